package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

type KeyFunc func(r *http.Request) string

// ClientIdentity devolve o endereço do cliente confiando em exatamente
// trustedHops proxies à frente do gateway.
//
// A cadeia é [RemoteAddr, último XFF, ..., primeiro XFF]; o cliente é o item
// no índice min(trustedHops, len-1). Com 0 hops o X-Forwarded-For é ignorado,
// já que qualquer cliente consegue forjá-lo.
func ClientIdentity(r *http.Request, trustedHops int) string {
	remote := remoteHost(r.RemoteAddr)
	if trustedHops <= 0 {
		return remote
	}

	forwarded := forwardedFor(r.Header)
	chain := make([]string, 0, len(forwarded)+1)
	chain = append(chain, remote)
	for i := len(forwarded) - 1; i >= 0; i-- {
		chain = append(chain, forwarded[i])
	}

	return chain[min(trustedHops, len(chain)-1)]
}

// DefaultKeyFunc particiona por header (quando configurado e presente) ou pelo
// endereço do cliente.
func DefaultKeyFunc(keyHeader string, trustedHops int) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}
		return ClientIdentity(r, trustedHops)
	}
}

func forwardedFor(h http.Header) []string {
	var out []string
	for _, line := range h.Values("X-Forwarded-For") {
		for _, part := range strings.Split(line, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				out = append(out, ip)
			}
		}
	}
	return out
}

func remoteHost(addr string) string {
	addr = strings.TrimSpace(addr)
	host, _, err := net.SplitHostPort(addr)
	if err == nil && host != "" {
		return host
	}
	if addr != "" {
		return addr
	}
	return "unknown"
}
