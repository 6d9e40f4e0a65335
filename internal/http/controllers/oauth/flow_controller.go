package oauth

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/refgate/internal/claims"
	"github.com/dropDatabas3/refgate/internal/domain/types"
	dto "github.com/dropDatabas3/refgate/internal/http/dto/oauth"
	httperrors "github.com/dropDatabas3/refgate/internal/http/errors"
	"github.com/dropDatabas3/refgate/internal/http/helpers"
	svc "github.com/dropDatabas3/refgate/internal/http/services/auth"
	"github.com/dropDatabas3/refgate/internal/oauth"
	"github.com/dropDatabas3/refgate/internal/observability/logger"
	tokens "github.com/dropDatabas3/refgate/internal/security/token"
)

const stateCookiePrefix = "oauth_state_"

// FlowController maneja authorize/token contra los proveedores registrados.
type FlowController struct {
	registry     *oauth.Registry
	provisioning svc.ProvisioningService
	tokens       svc.TokenIssuer
	cfg          Settings
}

// NewFlowController crea el controller del flujo OAuth2.
func NewFlowController(registry *oauth.Registry, provisioning svc.ProvisioningService, tokens svc.TokenIssuer, cfg Settings) *FlowController {
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = "/"
	}
	if cfg.StatePath == "" {
		cfg.StatePath = "/"
	}
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = 10 * time.Minute
	}
	return &FlowController{registry: registry, provisioning: provisioning, tokens: tokens, cfg: cfg}
}

// Authorize maneja GET /oauth2/{provider}/authorize.
// SSR: 303 al proveedor. Token: {"url": ...}.
func (c *FlowController) Authorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("FlowController.Authorize"))

	p, err := c.registry.Get(chi.URLParam(r, "provider"))
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	state, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		log.Error("state generation failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	http.SetCookie(w, helpers.BuildCookie(
		stateCookiePrefix+p.Name(), state, c.cfg.StatePath,
		http.SameSiteLaxMode, c.cfg.Cookie.Secure, c.cfg.StateTTL,
	))

	url := p.AuthorizationURL(state)
	if c.cfg.SSR {
		http.Redirect(w, r, url, http.StatusSeeOther)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.AuthorizeResponse{URL: url})
}

// Token maneja GET /oauth2/{provider}/token (callback del proveedor).
// Fallas del proveedor, state inválido o claims incompletas se loguean y
// terminan en 303 al redirect configurado; nunca exponen el error.
func (c *FlowController) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("FlowController.Token"))

	p, err := c.registry.Get(chi.URLParam(r, "provider"))
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	log = log.With(logger.Provider(p.Name()))

	stateName := stateCookiePrefix + p.Name()
	http.SetCookie(w, helpers.BuildDeletionCookie(stateName, c.cfg.StatePath, http.SameSiteLaxMode, c.cfg.Cookie.Secure))

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		log.Warn("provider returned an error", logger.String("provider_error", e))
		c.fail(w, r)
		return
	}
	if !validState(r, stateName, q.Get("state")) {
		log.Warn("oauth state mismatch")
		c.fail(w, r)
		return
	}
	code := q.Get("code")
	if code == "" {
		log.Warn("callback without code")
		c.fail(w, r)
		return
	}

	raw, err := p.Exchange(ctx, code)
	if err != nil {
		log.Warn("provider exchange failed", logger.Err(err))
		c.fail(w, r)
		return
	}
	ic, err := claims.Normalize(p.Name(), raw)
	if err != nil {
		log.Warn("provider claims rejected", logger.Err(err))
		c.fail(w, r)
		return
	}

	user, _, err := c.provisioning.Ensure(ctx, ic)
	if err != nil {
		if types.IsInfrastructure(err) {
			httperrors.WriteError(w, err)
			return
		}
		log.Warn("provisioning failed", logger.Err(err))
		c.fail(w, r)
		return
	}

	payload := ic.SessionPayload(user.ID)
	token, exp, err := c.tokens.CreateWithExpiry(payload)
	if err != nil {
		log.Error("session token signing failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	log.Info("oauth login", logger.UserID(user.ID))

	if c.cfg.SSR {
		http.SetCookie(w, c.cfg.Cookie.SessionCookie(token, exp))
		http.Redirect(w, r, c.cfg.RedirectURL, http.StatusSeeOther)
		return
	}
	payload["exp"] = exp.Unix()
	helpers.WriteJSON(w, http.StatusOK, dto.TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		Claims:    payload,
	})
}

func (c *FlowController) fail(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, c.cfg.RedirectURL, http.StatusSeeOther)
}

func validState(r *http.Request, cookieName, got string) bool {
	ck, err := r.Cookie(cookieName)
	if err != nil || ck.Value == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(ck.Value), []byte(got)) == 1
}
