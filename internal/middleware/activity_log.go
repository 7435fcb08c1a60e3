package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	pkghttp "github.com/strandnet/console/pkg/http"
	pkglogger "github.com/strandnet/console/pkg/logger"
)

// ActivityLogger returns a middleware that emits one structured event for
// every state-changing request. Query-parameter values and request bodies are
// never logged; only the parameter names appear.
func ActivityLogger(logger *slog.Logger, ipConfig *pkghttp.IPConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(wrapped, r)

			if !isStateChanging(r.Method) {
				return
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.Status()),
				slog.String("duration", time.Since(start).String()),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("source_addr", pkghttp.ExtractClientIP(r, ipConfig)),
				slog.String("user_agent", pkghttp.TruncateUserAgent(r.Header.Get("User-Agent"))),
			}

			if keys := pkglogger.QueryParamKeys(r.URL.RawQuery); len(keys) > 0 {
				attrs = append(attrs, slog.Any("query_params", keys))
			}

			logger.LogAttrs(context.Background(), slog.LevelInfo, "activity", attrs...)
		})
	}
}

func isStateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
