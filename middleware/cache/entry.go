package cache

import (
	"net/http"
	"time"
)

// Entry é uma resposta armazenada. Nunca é alterada depois do Store.
type Entry struct {
	Key      Key
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Fresh diz se a entrada ainda vale em now.
func (e *Entry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.StoredAt) < ttl
}

// headers que não fazem sentido repetir para outro cliente
var uncachedHeaders = []string{
	"Connection", "Proxy-Connection", "Keep-Alive",
	"Proxy-Authenticate", "Proxy-Authorization", "TE",
	"Trailer", "Transfer-Encoding", "Upgrade",
	"Set-Cookie",
}

func storableHeader(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		out = make(http.Header)
	}
	for _, k := range uncachedHeaders {
		out.Del(k)
	}
	return out
}
