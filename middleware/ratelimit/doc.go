// Package ratelimit fornece o estágio de rate limit do gateway e adapters
// net/http para rate limit e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny, acquire/timeout) sem net/http
//   - infra: implementações concretas (janela fixa, semáforo, stats)
//   - ratelimit (este pacote): identidade do cliente, Limiter, limite de concorrência e headers
//
// Fluxo:
//
//  1. Extrai a chave do cliente (header configurado ou IP respeitando TRUSTED_PROXY_HOPS)
//  2. Chama a camada application para obter a decisão
//  3. Se bloqueado, responde 429 com Retry-After (ou 503 no limite de concorrência)
//  4. Se permitido, segue para o próximo estágio
package ratelimit
