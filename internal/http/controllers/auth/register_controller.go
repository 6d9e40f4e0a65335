package auth

import (
	"net/http"

	dto "github.com/dropDatabas3/refgate/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/refgate/internal/http/errors"
	"github.com/dropDatabas3/refgate/internal/http/helpers"
	svc "github.com/dropDatabas3/refgate/internal/http/services/auth"
	"github.com/dropDatabas3/refgate/internal/observability/logger"
)

// RegisterController maneja el registro local.
type RegisterController struct {
	service svc.PasswordService
	cfg     Settings
}

// NewRegisterController crea un nuevo controller de registro.
func NewRegisterController(service svc.PasswordService, cfg Settings) *RegisterController {
	return &RegisterController{service: service, cfg: cfg}
}

// Register maneja POST /auth/register (JSON).
// Un referral inválido o vencido aborta el alta antes de crear el usuario.
func (c *RegisterController) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("RegisterController.Register"))

	var req dto.RegisterRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	if err := helpers.Validate(req); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	sess, err := c.service.Register(ctx, svc.RegisterInput{
		Email:        req.Email,
		Name:         req.Name,
		Identity:     req.Identity,
		Password:     req.Password,
		ReferralCode: req.ReferralCode(),
	})
	if err != nil {
		log.Debug("register failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}

	http.SetCookie(w, c.cfg.Cookie.SessionCookie(sess.Token, sess.ExpiresAt))
	http.Redirect(w, r, c.cfg.redirectURL(), http.StatusSeeOther)
}
