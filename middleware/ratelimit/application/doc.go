// Package application decide admissões sem conhecer net/http: Service aplica a
// janela fixa por chave e ConcurrencyService controla as vagas em voo.
package application
