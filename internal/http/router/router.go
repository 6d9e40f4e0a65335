// Package router arma el árbol de rutas chi del gateway.
package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/refgate/internal/domain/repository"
	apphttp "github.com/dropDatabas3/refgate/internal/http"
	authctrl "github.com/dropDatabas3/refgate/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/refgate/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/refgate/internal/http/controllers/oauth"
	refctrl "github.com/dropDatabas3/refgate/internal/http/controllers/referral"
	httperrors "github.com/dropDatabas3/refgate/internal/http/errors"
	mw "github.com/dropDatabas3/refgate/internal/http/middlewares"
	"github.com/dropDatabas3/refgate/internal/rate"
)

// Deps contiene todo lo que necesita el router.
type Deps struct {
	BasePath string // ej. "/api/v1"; "" = raíz

	Health   *healthctrl.Controllers
	Auth     *authctrl.Controllers
	OAuth    *oauthctrl.Controllers
	Referral *refctrl.Controllers

	Store       repository.Store
	Decoder     mw.TokenDecoder
	Provisioner mw.Provisioner // nil = sin alta automática de identidades externas
	CookieName  string

	RateLimiter rate.Limiter // opcional: login y register
	CORSOrigins []string
	Metrics     http.Handler // opcional: GET /metrics
}

// New arma el handler raíz.
//
// Fuera de BasePath quedan /healthz, /readyz y /metrics, sin sesión de store
// ni autenticación. Los logout tampoco autentican: una cookie inválida tiene
// que poder borrarse. Todo lo demás pasa por WithStoreSession y WithAuthentication.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(mw.Adapt(
		mw.WithRequestID(),
		mw.WithLogging(),
		mw.WithRecover(),
	)...)
	r.Use(apphttp.WithMetrics)
	r.Use(mw.Adapt(
		mw.WithSecurityHeaders(),
		mw.WithCORS(d.CORSOrigins),
	)...)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	registerOpsRoutes(r, d)

	api := func(r chi.Router) {
		r.Use(mw.Adapt(mw.WithNoStore())...)
		authn := mw.Adapt(
			mw.WithStoreSession(d.Store),
			mw.WithAuthentication(mw.AuthConfig{
				Decoder:     d.Decoder,
				CookieName:  d.CookieName,
				Provisioner: d.Provisioner,
			}),
		)
		registerAuthRoutes(r, d, authn)
		registerOAuthRoutes(r, d, authn)
		r.Group(func(r chi.Router) {
			r.Use(authn...)
			registerReferralRoutes(r, d)
		})
	}

	if base := normalizeBase(d.BasePath); base != "" {
		r.Route(base, api)
	} else {
		r.Group(api)
	}
	return r
}

func normalizeBase(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
