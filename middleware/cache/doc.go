// Package cache guarda respostas do upstream por um TTL.
//
// A chave (Key) é derivada só da identidade da request: método, path
// normalizado, query relevante e, se configurado, alguns headers.
// A expiração é preguiçosa (checada no Lookup) com uma varredura periódica
// opcional para limitar memória.
package cache
