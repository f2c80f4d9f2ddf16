// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - Store: janela fixa por chave, com janitor e relógio injetável
//   - Slots: semáforo das requests em voo no proxy
//   - MemoryStatsStore / RedisStatsStore: estatísticas das decisões
package infra
