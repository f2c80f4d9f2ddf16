package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

const maxDelay = time.Minute

type item struct {
	ID       string    `json:"id"`
	Query    string    `json:"query,omitempty"`
	Served   time.Time `json:"served_at"`
	Sequence int64     `json:"sequence"`
}

// newRouter monta as rotas do upstream falso. Todas aceitam:
//
//	?delay=<duração>  segura a resposta (testa o timeout do gateway)
//	?status=<código>  força o status da resposta
func newRouter(logger *slog.Logger, now func() time.Time) http.Handler {
	var seq atomic.Int64

	r := chi.NewRouter()
	r.Use(delayAndStatus(logger))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"message":  "example upstream",
			"sequence": seq.Add(1),
		})
	})
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, item{
			ID:       chi.URLParam(r, "id"),
			Query:    r.URL.RawQuery,
			Served:   now().UTC(),
			Sequence: seq.Add(1),
		})
	})
	r.Post("/items", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"sequence": seq.Add(1)})
	})
	r.Get("/showTela", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<h1>Tela do Sistema</h1><p>Requisição recebida com sucesso!</p>")
		logger.Info("showTela accessed", "remote", r.RemoteAddr)
	})
	return r
}

func delayAndStatus(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()

			if v := q.Get("delay"); v != "" {
				d, err := time.ParseDuration(v)
				if err != nil || d < 0 || d > maxDelay {
					http.Error(w, "invalid delay", http.StatusBadRequest)
					return
				}
				select {
				case <-time.After(d):
				case <-r.Context().Done():
					logger.Debug("client gave up while delayed", "path", r.URL.Path)
					return
				}
			}

			if v := q.Get("status"); v != "" {
				code, err := strconv.Atoi(v)
				if err != nil || code < 100 || code > 599 {
					http.Error(w, "invalid status", http.StatusBadRequest)
					return
				}
				writeJSON(w, code, map[string]any{"status": code})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
