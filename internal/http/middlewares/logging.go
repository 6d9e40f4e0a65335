package middlewares

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dropDatabas3/refgate/internal/http/helpers"
	"github.com/dropDatabas3/refgate/internal/observability/logger"
)

// WithLogging deja en el contexto un logger con request_id, method y path
// (lo recuperan controllers y services con logger.From) y al terminar
// escribe una línea de access log: error para 5xx, warn para 4xx, info el resto.
// Debe ir después de WithRequestID.
func WithLogging() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLog := logger.L().With(
				logger.RequestID(GetRequestID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logger.ToContext(r.Context(), reqLog)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			accessLog(reqLog, status)("request completed",
				logger.Status(status),
				logger.Bytes(ww.BytesWritten()),
				logger.DurationMs(time.Since(start).Milliseconds()),
				logger.ClientIP(helpers.ClientIP(r)),
			)
		})
	}
}

func accessLog(l *zap.Logger, status int) func(string, ...zap.Field) {
	switch {
	case status >= http.StatusInternalServerError:
		return l.Error
	case status >= http.StatusBadRequest:
		return l.Warn
	default:
		return l.Info
	}
}
