// Package gateway orquestra o tratamento de cada request do proxy.
//
// Cada request passa por uma máquina de estados explícita:
//
//	Received -> RateChecked -> CacheChecked -> Forwarding -> Responded
//
// com atalhos para Responded em auth negada (401), rate limit (429) e cache hit.
// Toda request termina em exatamente um Outcome e sempre recebe resposta.
package gateway
