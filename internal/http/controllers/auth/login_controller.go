package auth

import (
	"net/http"
	"strings"

	dto "github.com/dropDatabas3/refgate/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/refgate/internal/http/errors"
	"github.com/dropDatabas3/refgate/internal/http/helpers"
	svc "github.com/dropDatabas3/refgate/internal/http/services/auth"
	"github.com/dropDatabas3/refgate/internal/observability/logger"
)

const maxLoginBodySize = 64 * 1024 // 64KB

// LoginController maneja el endpoint de login.
type LoginController struct {
	service svc.PasswordService
	cfg     Settings
}

// NewLoginController crea un nuevo controller de login.
func NewLoginController(service svc.PasswordService, cfg Settings) *LoginController {
	return &LoginController{service: service, cfg: cfg}
}

// Login maneja POST /auth/login (form email + password).
// Éxito: cookie de sesión + 303 al redirect configurado.
func (c *LoginController) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LoginController.Login"))

	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBodySize)
	if err := r.ParseForm(); err != nil {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDescription("invalid form"))
		return
	}

	req := dto.LoginRequest{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	if err := helpers.Validate(req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	sess, err := c.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		log.Debug("login failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}

	http.SetCookie(w, c.cfg.Cookie.SessionCookie(sess.Token, sess.ExpiresAt))
	http.Redirect(w, r, c.cfg.redirectURL(), http.StatusSeeOther)
}
