package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import "time"

// Key identifica o cliente dono de uma janela (IP, API key, etc).
type Key string

// Window é o estado de uma janela fixa de um cliente.
//
// Count nunca fica negativo e nunca passa do limite configurado.
type Window struct {
	Start time.Time
	Count int
}

// WindowStore admite ou rejeita uma requisição para a chave.
//
// A implementação deve ser atômica por chave: duas admissões concorrentes
// não podem ambas ver a última vaga livre.
type WindowStore interface {
	Admit(Key) Decision
}

type Decision struct {
	Allowed bool

	Limit     int
	Remaining int
	// ResetAt é quando a janela atual termina.
	ResetAt time.Time
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}
