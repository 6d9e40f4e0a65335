package router

import "github.com/go-chi/chi/v5"

// registerOpsRoutes registra liveness, readiness y métricas.
func registerOpsRoutes(r chi.Router, d Deps) {
	if d.Health != nil {
		// GET /healthz - el proceso responde
		r.Get("/healthz", d.Health.Health.Healthz)
		// GET /readyz - store y cache responden
		r.Get("/readyz", d.Health.Health.Readyz)
	}
	if d.Metrics != nil {
		r.Method("GET", "/metrics", d.Metrics)
	}
}
