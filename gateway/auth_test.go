package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthenticator(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		header string
		want   bool
	}{
		{"disabled accepts anything", "", "", true},
		{"disabled ignores header", "", "Bearer whatever", true},
		{"missing header", "k1", "", false},
		{"wrong scheme", "k1", "Basic k1", false},
		{"wrong key", "k1", "Bearer k2", false},
		{"prefix of key", "k1", "Bearer k", false},
		{"exact match", "k1", "Bearer k1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			a := NewAuthenticator(tt.key)
			assert.Equal(t, tt.key != "", a.Enabled())
			assert.Equal(t, tt.want, a.Check(r))
		})
	}
}
