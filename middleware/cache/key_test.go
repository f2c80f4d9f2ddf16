package cache

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyBuilder_IsDeterministic(t *testing.T) {
	b := KeyBuilder{}
	r1 := httptest.NewRequest(http.MethodGet, "http://example/proxy?b=2&a=1", nil)
	r2 := httptest.NewRequest(http.MethodGet, "http://example/proxy?a=1&b=2", nil)

	assert.Equal(t, b.Build(r1), b.Build(r2))
	assert.Equal(t, b.Build(r1), b.Build(r1))
}

func TestKeyBuilder_NormalizesPath(t *testing.T) {
	b := KeyBuilder{}
	assert.Equal(t,
		b.BuildFrom("get", "//proxy/./x/", nil, nil),
		b.BuildFrom("GET", "/proxy/x", nil, nil),
	)
	assert.Equal(t, "GET /", b.Canonical("GET", "", nil, nil))
}

func TestKeyBuilder_MethodMatters(t *testing.T) {
	b := KeyBuilder{}
	assert.NotEqual(t,
		b.BuildFrom(http.MethodGet, "/proxy", nil, nil),
		b.BuildFrom(http.MethodHead, "/proxy", nil, nil),
	)
}

func TestKeyBuilder_OnlyRelevantQuery(t *testing.T) {
	b := KeyBuilder{QueryParams: []string{"q", "page"}}
	q1 := url.Values{"q": {"go"}, "page": {"1"}, "utm_source": {"x"}}
	q2 := url.Values{"page": {"1"}, "q": {"go"}}

	assert.Equal(t, b.BuildFrom("GET", "/s", q1, nil), b.BuildFrom("GET", "/s", q2, nil))
	assert.Equal(t, "GET /s?page=1&q=go", b.Canonical("GET", "/s", q1, nil))
}

func TestKeyBuilder_SelectedHeaders(t *testing.T) {
	b := KeyBuilder{Headers: []string{"accept-language"}}
	h1 := http.Header{"Accept-Language": {"pt-BR"}, "User-Agent": {"a"}}
	h2 := http.Header{"Accept-Language": {"en"}, "User-Agent": {"a"}}
	h3 := http.Header{"Accept-Language": {"pt-BR"}, "User-Agent": {"b"}}

	assert.NotEqual(t, b.BuildFrom("GET", "/", nil, h1), b.BuildFrom("GET", "/", nil, h2))
	assert.Equal(t, b.BuildFrom("GET", "/", nil, h1), b.BuildFrom("GET", "/", nil, h3))
	assert.Equal(t, "GET /#accept-language=pt-BR", b.Canonical("GET", "/", nil, h1))
}

func TestKeyBuilder_HeaderValuesCannotForgeOtherHeaders(t *testing.T) {
	b := KeyBuilder{Headers: []string{"X-A", "X-B"}}

	h1 := http.Header{}
	h1.Set("X-A", "x#x-b=y")
	h1.Set("X-B", "z")
	h2 := http.Header{}
	h2.Set("X-A", "x")
	h2.Set("X-B", "y#x-b=z")

	assert.NotEqual(t, b.Canonical("GET", "/p", nil, h1), b.Canonical("GET", "/p", nil, h2))
	assert.NotEqual(t, b.BuildFrom("GET", "/p", nil, h1), b.BuildFrom("GET", "/p", nil, h2))
	assert.Equal(t, "GET /p#x-a=x%23x-b%3Dy#x-b=z", b.Canonical("GET", "/p", nil, h1))
}

func TestPolicy_Defaults(t *testing.T) {
	p := Policy{}
	assert.True(t, p.Cacheable("get"))
	assert.True(t, p.Cacheable(http.MethodHead))
	assert.False(t, p.Cacheable(http.MethodPost))

	assert.True(t, p.Eligible(200))
	assert.True(t, p.Eligible(204))
	assert.False(t, p.Eligible(304))
	assert.False(t, p.Eligible(500))
}

func TestPolicy_CustomRange(t *testing.T) {
	p := Policy{Methods: []string{"POST"}, MinStatus: 200, MaxStatus: 200}
	assert.True(t, p.Cacheable(http.MethodPost))
	assert.False(t, p.Cacheable(http.MethodGet))
	assert.True(t, p.Eligible(200))
	assert.False(t, p.Eligible(201))
}
