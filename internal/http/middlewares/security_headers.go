package middlewares

import (
	"net/http"
	"strings"
)

// apiHeaders son las cabeceras fijas de toda respuesta. El gateway solo
// responde JSON y redirects, nunca HTML.
var apiHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
	{"Cross-Origin-Resource-Policy", "same-site"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
}

const hsts = "max-age=15552000; includeSubDomains"

// WithSecurityHeaders agrega apiHeaders y, sobre HTTPS, Strict-Transport-Security.
func WithSecurityHeaders() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range apiHeaders {
				h.Set(kv[0], kv[1])
			}
			if overTLS(r) {
				h.Set("Strict-Transport-Security", hsts)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// overTLS: TLS directo o terminado en un proxy que informa X-Forwarded-Proto.
func overTLS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
