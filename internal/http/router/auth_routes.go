package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/dropDatabas3/refgate/internal/http/middlewares"
)

// registerAuthRoutes registra login local, registro y sesión.
func registerAuthRoutes(r chi.Router, d Deps, authn []func(http.Handler) http.Handler) {
	c := d.Auth
	if c == nil {
		return
	}

	limited := mw.WithRateLimit(mw.RateLimitConfig{
		Limiter: d.RateLimiter,
		KeyFunc: mw.IPPathRateKey,
	})

	r.Route("/auth", func(r chi.Router) {
		// GET /auth/logout - borra la cookie de sesión
		r.Get("/logout", c.Logout.Logout)

		r.Group(func(r chi.Router) {
			r.Use(authn...)
			// POST /auth/login - form email + password
			r.With(limited).Post("/login", c.Login.Login)
			// POST /auth/register - JSON, gateado por referral opcional
			r.With(limited).Post("/register", c.Register.Register)
			// GET /auth/providers - métodos de login disponibles
			r.Get("/providers", c.Providers.List)
			// GET /auth/me - identidad del request
			r.With(mw.RequireUser()).Get("/me", c.Me.Me)
		})
	})
}

// logoutHandler expone el logout de sesión bajo /oauth2/logout.
func logoutHandler(d Deps) http.HandlerFunc {
	if d.Auth == nil {
		return nil
	}
	return d.Auth.Logout.Logout
}
