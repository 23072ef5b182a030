// Package middleware holds HTTP middleware shared by the REST routes.
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Logger emits one structured line per completed request. The event stream
// endpoint is demoted to Debug: its requests stay open for the life of the
// subscribing client and closing ones would otherwise dominate the log.
func Logger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", middleware.GetReqID(r.Context())),
				zap.String("remoteAddr", r.RemoteAddr),
			}

			if isEventStream(r.URL.Path) {
				logger.Debug("event stream closed", fields...)
				return
			}
			logger.Info("request completed", fields...)
		})
	}
}

func isEventStream(path string) bool {
	return strings.HasSuffix(strings.TrimRight(path, "/"), "/events")
}
