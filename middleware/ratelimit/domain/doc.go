// Package domain define contratos e tipos de domínio para rate limit e concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas.
// O algoritmo de rate limit é janela fixa: a contagem zera quando a janela
// termina, sem carregar punição de janelas anteriores.
package domain
