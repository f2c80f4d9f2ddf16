// Package config centraliza o carregamento de configurações do gateway.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Proxy       ProxyConfig
	Upstream    UpstreamConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	Cache       CacheConfig
	Concurrency ConcurrencyConfig
	Stats       StatsConfig
	Log         LogConfig
	Metrics     MetricsConfig
}

type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

func (s ServerConfig) Addr() string { return ":" + s.Port }

type ProxyConfig struct {
	// Method "*" aceita qualquer método.
	Method string
	// Path terminado em "/*" repassa o resto do path para o upstream.
	Path string
}

type UpstreamConfig struct {
	URL            string
	Timeout        time.Duration
	MaxBodyBytes   int64
	ForwardHeaders []string
	RPS            float64
	Burst          int
}

type AuthConfig struct {
	// APIKey vazio desliga a autenticação.
	APIKey string
}

type RateLimitConfig struct {
	Enabled          bool
	Window           time.Duration
	Max              int
	TrustedProxyHops int
	KeyHeader        string
	AddHeaders       bool
	CleanupEvery     time.Duration
}

type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	MaxEntries   int
	SweepEvery   time.Duration
	KeyQuery     []string
	KeyHeaders   []string
	Methods      []string
	StatusMin    int
	StatusMax    int
	SingleFlight bool
}

type ConcurrencyConfig struct {
	Max            int
	AcquireTimeout time.Duration
}

type StatsConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Prefix        string
	TTL           time.Duration
	Bucket        string
	TrackKeys     bool
	// MaxKeys limita os clientes guardados pelo store em memória.
	MaxKeys int
}

type LogConfig struct {
	Level  string
	Format string
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

// LookupFunc tem a assinatura de os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load lê o .env (quando existir) e depois o ambiente.
//
// envFile vazio tenta ".env" e ignora a ausência; um arquivo explícito precisa existir.
func Load(envFile string) (Config, error) {
	if envFile == "" {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFile); err != nil {
		return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup monta a configuração a partir de uma fonte chave/valor.
func FromLookup(lookup LookupFunc) (Config, error) {
	r := reader{lookup: lookup}

	cfg := Config{
		Server: ServerConfig{
			Port:            r.str("PORT", "3000"),
			ShutdownTimeout: r.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Proxy: ProxyConfig{
			Method: strings.ToUpper(r.str("PROXY_METHOD", "GET")),
			Path:   r.str("PROXY_PATH", "/proxy"),
		},
		Upstream: UpstreamConfig{
			URL:            r.str("UPSTREAM_URL", "https://api.github.com"),
			Timeout:        r.duration("UPSTREAM_TIMEOUT", 10*time.Second),
			MaxBodyBytes:   r.integer64("UPSTREAM_MAX_BODY_BYTES", 10<<20),
			ForwardHeaders: r.list("UPSTREAM_FORWARD_HEADERS", []string{"Accept", "Accept-Language", "Content-Type", "User-Agent"}),
			RPS:            r.float("UPSTREAM_RPS", 0),
			Burst:          r.integer("UPSTREAM_BURST", 1),
		},
		Auth: AuthConfig{
			APIKey: r.str("API_KEY", ""),
		},
		RateLimit: RateLimitConfig{
			Enabled:          r.boolean("RATE_LIMIT_ENABLED", true),
			Window:           r.rateWindow(),
			Max:              r.integer("RATE_LIMIT_MAX", 5),
			TrustedProxyHops: r.integer("TRUSTED_PROXY_HOPS", 0),
			KeyHeader:        r.str("RATE_LIMIT_KEY_HEADER", ""),
			AddHeaders:       r.boolean("RATE_LIMIT_HEADERS", false),
		},
		Cache: CacheConfig{
			Enabled:      r.boolean("CACHE_ENABLED", true),
			TTL:          r.cacheTTL(),
			MaxEntries:   r.integer("CACHE_MAX_ENTRIES", 1000),
			SweepEvery:   r.duration("CACHE_SWEEP_INTERVAL", time.Minute),
			KeyQuery:     r.list("CACHE_KEY_QUERY", nil),
			KeyHeaders:   r.list("CACHE_KEY_HEADERS", nil),
			Methods:      upper(r.list("CACHE_METHODS", []string{"GET", "HEAD"})),
			SingleFlight: r.boolean("CACHE_SINGLE_FLIGHT", true),
		},
		Concurrency: ConcurrencyConfig{
			Max:            r.integer("CONCURRENCY_MAX", 0),
			AcquireTimeout: r.duration("CONCURRENCY_TIMEOUT", 0),
		},
		Stats: StatsConfig{
			Enabled:       r.boolean("RATE_STATS_ENABLED", false),
			RedisAddr:     r.str("RATE_STATS_REDIS_ADDR", ""),
			RedisPassword: r.str("RATE_STATS_REDIS_PASSWORD", ""),
			RedisDB:       r.integer("RATE_STATS_REDIS_DB", 0),
			Prefix:        r.str("RATE_STATS_PREFIX", "gateway:ratelimit"),
			TTL:           r.duration("RATE_STATS_TTL", 24*time.Hour),
			Bucket:        r.str("RATE_STATS_BUCKET", "minute"),
			TrackKeys:     r.boolean("RATE_STATS_TRACK_KEYS", false),
			MaxKeys:       r.integer("RATE_STATS_MAX_KEYS", 10000),
		},
		Log: LogConfig{
			Level:  strings.ToLower(r.str("LOG_LEVEL", "info")),
			Format: strings.ToLower(r.str("LOG_FORMAT", "text")),
		},
		Metrics: MetricsConfig{
			Enabled: r.boolean("METRICS_ENABLED", true),
			Path:    r.str("METRICS_PATH", "/metrics"),
		},
	}
	cfg.Cache.StatusMin, cfg.Cache.StatusMax = r.statusRange("CACHE_STATUS_RANGE", 200, 299)
	cfg.RateLimit.CleanupEvery = r.duration("RATE_LIMIT_CLEANUP_EVERY", cfg.RateLimit.Window)

	if err := errors.Join(r.errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		errs = append(errs, fmt.Errorf("PORT must be numeric, got %q", c.Server.Port))
	}
	u, err := url.Parse(c.Upstream.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("UPSTREAM_URL must be an absolute URL, got %q", c.Upstream.URL))
	}
	switch c.Proxy.Method {
	case "*", "GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "CONNECT", "TRACE":
	default:
		errs = append(errs, fmt.Errorf("PROXY_METHOD must be an HTTP method or *, got %q", c.Proxy.Method))
	}
	if !strings.HasPrefix(c.Proxy.Path, "/") {
		errs = append(errs, errors.New("PROXY_PATH must start with /"))
	}
	if c.Upstream.Timeout <= 0 {
		errs = append(errs, errors.New("UPSTREAM_TIMEOUT must be > 0"))
	}
	if c.Upstream.RPS < 0 {
		errs = append(errs, errors.New("UPSTREAM_RPS must be >= 0"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW_MS must be > 0"))
	}
	if c.RateLimit.Max <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_MAX must be > 0"))
	}
	if c.RateLimit.TrustedProxyHops < 0 {
		errs = append(errs, errors.New("TRUSTED_PROXY_HOPS must be >= 0"))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("CACHE_TTL must be > 0"))
	}
	if c.Cache.MaxEntries <= 0 {
		errs = append(errs, errors.New("CACHE_MAX_ENTRIES must be > 0"))
	}
	if c.Cache.StatusMin > c.Cache.StatusMax {
		errs = append(errs, errors.New("CACHE_STATUS_RANGE must be low-high"))
	}
	if c.Concurrency.Max < 0 {
		errs = append(errs, errors.New("CONCURRENCY_MAX must be >= 0"))
	}
	if c.Stats.MaxKeys <= 0 {
		errs = append(errs, errors.New("RATE_STATS_MAX_KEYS must be > 0"))
	}
	if c.Stats.Enabled && strings.TrimSpace(c.Stats.RedisAddr) == "" {
		errs = append(errs, errors.New("RATE_STATS_REDIS_ADDR is required when RATE_STATS_ENABLED=true"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Redacted devolve pares chave/valor para exibição, com o API key mascarado.
func (c Config) Redacted() [][2]string {
	key := ""
	if c.Auth.APIKey != "" {
		key = "********"
	}
	return [][2]string{
		{"PORT", c.Server.Port},
		{"PROXY_METHOD", c.Proxy.Method},
		{"PROXY_PATH", c.Proxy.Path},
		{"UPSTREAM_URL", c.Upstream.URL},
		{"UPSTREAM_TIMEOUT", c.Upstream.Timeout.String()},
		{"UPSTREAM_RPS", strconv.FormatFloat(c.Upstream.RPS, 'f', -1, 64)},
		{"API_KEY", key},
		{"RATE_LIMIT_ENABLED", strconv.FormatBool(c.RateLimit.Enabled)},
		{"RATE_LIMIT_WINDOW_MS", strconv.FormatInt(c.RateLimit.Window.Milliseconds(), 10)},
		{"RATE_LIMIT_MAX", strconv.Itoa(c.RateLimit.Max)},
		{"TRUSTED_PROXY_HOPS", strconv.Itoa(c.RateLimit.TrustedProxyHops)},
		{"RATE_LIMIT_KEY_HEADER", c.RateLimit.KeyHeader},
		{"CACHE_ENABLED", strconv.FormatBool(c.Cache.Enabled)},
		{"CACHE_TTL", c.Cache.TTL.String()},
		{"CACHE_MAX_ENTRIES", strconv.Itoa(c.Cache.MaxEntries)},
		{"CACHE_STATUS_RANGE", fmt.Sprintf("%d-%d", c.Cache.StatusMin, c.Cache.StatusMax)},
		{"CACHE_SINGLE_FLIGHT", strconv.FormatBool(c.Cache.SingleFlight)},
		{"CONCURRENCY_MAX", strconv.Itoa(c.Concurrency.Max)},
		{"RATE_STATS_ENABLED", strconv.FormatBool(c.Stats.Enabled)},
		{"LOG_LEVEL", c.Log.Level},
		{"LOG_FORMAT", c.Log.Format},
		{"METRICS_ENABLED", strconv.FormatBool(c.Metrics.Enabled)},
	}
}

func upper(in []string) []string {
	for i := range in {
		in[i] = strings.ToUpper(in[i])
	}
	return in
}
