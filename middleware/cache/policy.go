package cache

import (
	"net/http"
	"slices"
	"strings"
)

// Policy decide o que pode ir para o cache.
type Policy struct {
	Methods   []string
	MinStatus int
	MaxStatus int
}

var DefaultPolicy = Policy{
	Methods:   []string{http.MethodGet, http.MethodHead},
	MinStatus: http.StatusOK,
	MaxStatus: 299,
}

func (p Policy) Cacheable(method string) bool {
	methods := p.Methods
	if len(methods) == 0 {
		methods = DefaultPolicy.Methods
	}
	return slices.ContainsFunc(methods, func(m string) bool {
		return strings.EqualFold(m, method)
	})
}

// Eligible diz se uma resposta com esse status pode ser armazenada.
// Falhas de transporte nunca chegam aqui.
func (p Policy) Eligible(status int) bool {
	lo, hi := p.MinStatus, p.MaxStatus
	if lo == 0 && hi == 0 {
		lo, hi = DefaultPolicy.MinStatus, DefaultPolicy.MaxStatus
	}
	return status >= lo && status <= hi
}
