package middlewares

import (
	"net/http"

	"github.com/dropDatabas3/refgate/internal/domain/repository"
	"github.com/dropDatabas3/refgate/internal/domain/types"
	"github.com/dropDatabas3/refgate/internal/http/errors"
	"github.com/dropDatabas3/refgate/internal/observability/logger"
)

// WithStoreSession reserva una sesión del store para el request y la libera
// al salir, incluso si el handler entra en panic. Si el store no responde
// el request termina en 503 sin llegar al handler.
func WithStoreSession(st repository.Store) Middleware {
	return func(next http.Handler) http.Handler {
		if st == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := st.Acquire(r.Context())
			if err != nil {
				logger.From(r.Context()).Error("store session acquire failed",
					logger.Component("middleware.session"),
					logger.Driver(st.Driver()),
					logger.Err(err),
				)
				errors.WriteError(w, types.Infra("store.acquire", err))
				return
			}
			defer func() {
				if cerr := sess.Close(); cerr != nil {
					logger.From(r.Context()).Warn("store session close failed", logger.Err(cerr))
				}
			}()

			next.ServeHTTP(w, r.WithContext(repository.WithSession(r.Context(), sess)))
		})
	}
}
