package cache

import (
	"net/http"
	"net/url"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Key é o digest (hex) da forma canônica da request.
type Key string

// KeyBuilder deriva chaves de cache.
//
// QueryParams vazio considera todos os parâmetros; Headers vazio não considera nenhum.
type KeyBuilder struct {
	QueryParams []string
	Headers     []string
}

func (b KeyBuilder) Build(r *http.Request) Key {
	return b.BuildFrom(r.Method, r.URL.Path, r.URL.Query(), r.Header)
}

func (b KeyBuilder) BuildFrom(method, p string, query url.Values, header http.Header) Key {
	return Key(strconv.FormatUint(xxhash.Sum64String(b.Canonical(method, p, query, header)), 16))
}

// Canonical monta a forma textual usada no digest. Útil para logs e testes.
func (b KeyBuilder) Canonical(method, p string, query url.Values, header http.Header) string {
	var sb strings.Builder
	sb.WriteString(strings.ToUpper(method))
	sb.WriteByte(' ')
	sb.WriteString(NormalizePath(p))

	names := b.QueryParams
	if len(names) == 0 {
		names = make([]string, 0, len(query))
		for name := range query {
			names = append(names, name)
		}
	}
	names = slices.Clone(names)
	slices.Sort(names)
	names = slices.Compact(names)

	sep := byte('?')
	for _, name := range names {
		values, ok := query[name]
		if !ok {
			continue
		}
		for _, v := range values {
			sb.WriteByte(sep)
			sep = '&'
			sb.WriteString(url.QueryEscape(name))
			sb.WriteByte('=')
			sb.WriteString(url.QueryEscape(v))
		}
	}

	headers := make([]string, 0, len(b.Headers))
	for _, h := range b.Headers {
		headers = append(headers, http.CanonicalHeaderKey(strings.TrimSpace(h)))
	}
	slices.Sort(headers)
	headers = slices.Compact(headers)
	for _, h := range headers {
		if h == "" {
			continue
		}
		sb.WriteString("#")
		sb.WriteString(strings.ToLower(h))
		sb.WriteByte('=')
		// valores escapados: '#' e '=' vindos do cliente não podem forjar outro header
		for i, v := range header.Values(h) {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(url.QueryEscape(v))
		}
	}
	return sb.String()
}

// NormalizePath limpa o path ("//a/./b/" -> "/a/b"); vazio vira "/".
func NormalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
