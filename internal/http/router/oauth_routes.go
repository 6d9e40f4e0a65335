package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// registerOAuthRoutes registra el flujo OAuth2 por proveedor.
func registerOAuthRoutes(r chi.Router, d Deps, authn []func(http.Handler) http.Handler) {
	r.Route("/oauth2", func(r chi.Router) {
		if logout := logoutHandler(d); logout != nil {
			// GET /oauth2/logout
			r.Get("/logout", logout)
		}
		if d.OAuth == nil {
			return
		}
		r.Group(func(r chi.Router) {
			r.Use(authn...)
			// GET /oauth2/{provider}/authorize - inicia el flujo
			r.Get("/{provider}/authorize", d.OAuth.Flow.Authorize)
			// GET /oauth2/{provider}/token - callback del proveedor
			r.Get("/{provider}/token", d.OAuth.Flow.Token)
		})
	})
}
