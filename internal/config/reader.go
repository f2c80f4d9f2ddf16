package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// reader acumula erros de parse para reportar todos de uma vez.
type reader struct {
	lookup LookupFunc
	errs   []error
}

func (r *reader) raw(key string) (string, bool) {
	v, ok := r.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *reader) fail(key, value string, err error) {
	r.errs = append(r.errs, fmt.Errorf("invalid %s=%q: %w", key, value, err))
}

func (r *reader) str(key, def string) string {
	if v, ok := r.raw(key); ok {
		return v
	}
	return def
}

func (r *reader) integer(key string, def int) int {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return i
}

func (r *reader) integer64(key string, def int64) int64 {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return i
}

func (r *reader) float(key string, def float64) float64 {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return f
}

func (r *reader) boolean(key string, def bool) bool {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return b
}

// duration aceita "1m30s" ou um inteiro em milissegundos.
func (r *reader) duration(key string, def time.Duration) time.Duration {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	d, err := parseDuration(v, time.Millisecond)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return d
}

func (r *reader) list(key string, def []string) []string {
	v, ok := r.raw(key)
	if !ok {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// rateWindow: RATE_LIMIT_WINDOW_MS tem prioridade; RATE_LIMIT_WINDOW (minutos) é legado.
func (r *reader) rateWindow() time.Duration {
	if _, ok := r.raw("RATE_LIMIT_WINDOW_MS"); ok {
		return r.duration("RATE_LIMIT_WINDOW_MS", time.Minute)
	}
	if v, ok := r.raw("RATE_LIMIT_WINDOW"); ok {
		d, err := parseDuration(v, time.Minute)
		if err != nil {
			r.fail("RATE_LIMIT_WINDOW", v, err)
			return time.Minute
		}
		return d
	}
	return time.Minute
}

// cacheTTL: CACHE_TTL tem prioridade; CACHE_DURATION (minutos) é legado.
func (r *reader) cacheTTL() time.Duration {
	if _, ok := r.raw("CACHE_TTL"); ok {
		return r.duration("CACHE_TTL", 5*time.Minute)
	}
	if v, ok := r.raw("CACHE_DURATION"); ok {
		d, err := parseDuration(v, time.Minute)
		if err != nil {
			r.fail("CACHE_DURATION", v, err)
			return 5 * time.Minute
		}
		return d
	}
	return 5 * time.Minute
}

// statusRange lê "200-299" ou um status único "200".
func (r *reader) statusRange(key string, lo, hi int) (int, int) {
	v, ok := r.raw(key)
	if !ok {
		return lo, hi
	}
	a, b, found := strings.Cut(v, "-")
	if !found {
		b = a
	}
	l, err1 := strconv.Atoi(strings.TrimSpace(a))
	h, err2 := strconv.Atoi(strings.TrimSpace(b))
	if err1 != nil || err2 != nil {
		r.fail(key, v, fmt.Errorf("expected LOW-HIGH"))
		return lo, hi
	}
	return l, h
}

// parseDuration aceita sintaxe Go ou um número puro na unidade dada.
func parseDuration(v string, unit time.Duration) (time.Duration, error) {
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(n * float64(unit)), nil
	}
	return time.ParseDuration(v)
}
