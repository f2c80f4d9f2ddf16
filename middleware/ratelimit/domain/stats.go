package domain

import (
	"context"
	"time"
)

// StatsEvent representa uma decisão do rate limit para fins de estatística.
//
// Method/Path são strings genéricas, sem amarrar em net/http.
// Path é o padrão da rota, não o path pedido. Key cresce com os clientes.
type StatsEvent struct {
	Key       Key
	Allowed   bool
	Remaining int

	Method string
	Path   string

	At time.Time
}

// StatsStore persiste estatísticas do rate limit (memória, Redis, ...).
//
// Erros são best-effort: quem chama loga e segue, nunca derruba a request.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
