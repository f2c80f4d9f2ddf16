package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"proxy-gateway/middleware/ratelimit/infra"
)

// StatsReader é implementado pelos stores de estatística que sabem se ler.
type StatsReader interface {
	Snapshot(ctx context.Context) (infra.StatsSnapshot, error)
}

// statsHandler expõe os contadores de rate limit.
func statsHandler(s StatsReader, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := s.Snapshot(r.Context())
		if err != nil {
			logger.Warn("reading rate limit stats", "error", err)
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snap)
	}
}
