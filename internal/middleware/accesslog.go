// internal/middleware/accesslog.go
//
// Request-scoped logger plus one access line per request.
//
// The chi RequestID middleware must run first; its id is attached to a child
// logger stored with logger.WithContext, so every log line written while
// handling the request carries `req_id`.
package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/adept-gateway/internal/logger"
)

// AccessLog returns middleware that logs method, path, status, size, and
// latency through base.
func AccessLog(base *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			l := base.With("req_id", chimw.GetReqID(r.Context()))
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), l)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			l.Infow("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"remote", r.RemoteAddr,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
