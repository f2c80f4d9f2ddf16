// Package upstream encaminha uma request para a API de destino.
//
// Forward faz uma única chamada com timeout limitado e devolve um Result:
// Response para qualquer status recebido, Failure (Unreachable ou Timeout)
// quando não houve resposta.
package upstream
