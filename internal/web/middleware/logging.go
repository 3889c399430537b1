package middleware

import (
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/face-gate/internal/logger"
)

// RequestLogger attaches a request-scoped logger to the context and logs
// one line per completed request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logger.WithKV(r.Context(), "request_id", chiMiddleware.GetReqID(r.Context()))
		r = r.WithContext(ctx)

		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		kvs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
		}
		if status >= http.StatusInternalServerError {
			logger.ErrorKV(ctx, "request", kvs...)
			return
		}
		logger.DebugKV(ctx, "request", kvs...)
	})
}
