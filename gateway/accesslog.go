package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"proxy-gateway/middleware/ratelimit"
)

const RequestIDHeader = "X-Request-Id"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	outcomeKey
)

// RequestID reaproveita o X-Request-Id recebido ou gera um UUID novo.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type outcomeHolder struct{ outcome Outcome }

func setOutcome(ctx context.Context, o Outcome) {
	if h, ok := ctx.Value(outcomeKey).(*outcomeHolder); ok {
		h.outcome = o
	}
}

// AccessLog registra uma linha por request, depois da resposta.
func AccessLog(logger *slog.Logger, clientTrustedHops int) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			holder := &outcomeHolder{}
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), outcomeKey, holder)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration", time.Since(start),
				"bytes", ww.BytesWritten(),
				"client", ratelimit.ClientIdentity(r, clientTrustedHops),
				"user_agent", r.UserAgent(),
			}
			if id := RequestIDFrom(r.Context()); id != "" {
				attrs = append(attrs, "request_id", id)
			}
			if holder.outcome != "" {
				attrs = append(attrs, "outcome", string(holder.outcome))
			}
			if cs := ww.Header().Get(CacheStatusHeader); cs != "" {
				attrs = append(attrs, "cache", cs)
			}

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "request", attrs...)
		})
	}
}
