package middlewares

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/dropDatabas3/refgate/internal/http/errors"
	"github.com/dropDatabas3/refgate/internal/observability/logger"
)

// WithRecover convierte un panic del handler en un 500 con el body de error
// estándar. http.ErrAbortHandler se re-lanza para que net/http corte la conexión.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				logger.From(r.Context()).Error("handler panicked",
					logger.Component("http.recover"),
					logger.Any("panic", v),
					zap.Stack("stack"),
				)
				errors.WriteError(w, errors.ErrInternal.WithCause(fmt.Errorf("panic: %v", v)))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
