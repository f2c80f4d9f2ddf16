package gateway

import (
	"crypto/subtle"
	"net/http"
)

// Authenticator compara o header Authorization com "Bearer <API_KEY>".
// Sem chave configurada, tudo passa.
type Authenticator struct {
	expected []byte
}

func NewAuthenticator(apiKey string) Authenticator {
	if apiKey == "" {
		return Authenticator{}
	}
	return Authenticator{expected: []byte("Bearer " + apiKey)}
}

func (a Authenticator) Enabled() bool { return len(a.expected) > 0 }

func (a Authenticator) Check(r *http.Request) bool {
	if !a.Enabled() {
		return true
	}
	got := []byte(r.Header.Get("Authorization"))
	return subtle.ConstantTimeCompare(got, a.expected) == 1
}
