package config

import (
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvListenAddr      = "LISTEN_ADDR"
	EnvUpstreamWSURL   = "UPSTREAM_WS_URL"
	EnvAPIBaseURL      = "API_BASE_URL"
	EnvConnectTimeout  = "CONNECT_TIMEOUT"
	EnvAPITimeout      = "API_TIMEOUT"
	EnvMaxPending      = "MAX_PENDING_FRAMES"
	EnvMaxSessions     = "MAX_SESSIONS"
	EnvStaticDir       = "STATIC_DIR"
	EnvAssetCacheTTL   = "ASSET_CACHE_TTL"
	EnvRedisAddr       = "REDIS_ADDR"
	EnvRedisPassword   = "REDIS_PASSWORD"
	EnvRedisDB         = "REDIS_DB"
	EnvAllowedOrigins  = "ALLOWED_ORIGINS"
	EnvLogFormat       = "LOG_FORMAT"
	EnvLogLevel        = "LOG_LEVEL"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)

const (
	DefaultListenAddr      = ":8000"
	DefaultUpstreamWSURL   = "wss://generativelanguage.googleapis.com"
	DefaultAPIBaseURL      = "https://generativelanguage.googleapis.com"
	DefaultConnectTimeout  = 10 * time.Second
	DefaultAPITimeout      = 15 * time.Second
	DefaultMaxPending      = 10
	DefaultStaticDir       = "static"
	DefaultAssetCacheTTL   = time.Hour
	DefaultShutdownTimeout = 10 * time.Second
)

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

type Config struct {
	ListenAddr string

	// UpstreamWSURL is the scheme+host the relay substitutes the inbound
	// request's path and query onto. A path or query on the configured value is
	// rejected at load time so the substitution stays unambiguous.
	UpstreamWSURL string
	APIBaseURL    string

	ConnectTimeout time.Duration
	APITimeout     time.Duration
	MaxPending     int
	MaxSessions    int

	StaticDir     string
	AssetCacheTTL time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AllowedOrigins []string

	LogFormat LogFormat
	LogLevel  slog.Level

	ShutdownTimeout time.Duration
}

func Load(args []string) (Config, error) {
	return load(os.LookupEnv, args)
}

func load(lookup func(string) (string, bool), args []string) (Config, error) {
	cfg := Config{
		ListenAddr:    envOrDefault(lookup, EnvListenAddr, DefaultListenAddr),
		UpstreamWSURL: envOrDefault(lookup, EnvUpstreamWSURL, DefaultUpstreamWSURL),
		APIBaseURL:    envOrDefault(lookup, EnvAPIBaseURL, DefaultAPIBaseURL),
		StaticDir:     envOrDefault(lookup, EnvStaticDir, DefaultStaticDir),
		RedisAddr:     envOrDefault(lookup, EnvRedisAddr, ""),
		RedisPassword: envOrDefault(lookup, EnvRedisPassword, ""),
	}

	var err error
	if cfg.ConnectTimeout, err = envDurationOrDefault(lookup, EnvConnectTimeout, DefaultConnectTimeout); err != nil {
		return Config{}, err
	}
	if cfg.APITimeout, err = envDurationOrDefault(lookup, EnvAPITimeout, DefaultAPITimeout); err != nil {
		return Config{}, err
	}
	if cfg.AssetCacheTTL, err = envDurationOrDefault(lookup, EnvAssetCacheTTL, DefaultAssetCacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = envDurationOrDefault(lookup, EnvShutdownTimeout, DefaultShutdownTimeout); err != nil {
		return Config{}, err
	}
	if cfg.MaxPending, err = envIntOrDefault(lookup, EnvMaxPending, DefaultMaxPending); err != nil {
		return Config{}, err
	}
	if cfg.MaxSessions, err = envIntOrDefault(lookup, EnvMaxSessions, 0); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = envIntOrDefault(lookup, EnvRedisDB, 0); err != nil {
		return Config{}, err
	}

	if raw := envOrDefault(lookup, EnvAllowedOrigins, ""); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	logFormatRaw := envOrDefault(lookup, EnvLogFormat, string(LogFormatText))
	logLevelRaw := envOrDefault(lookup, EnvLogLevel, "info")

	fs := flag.NewFlagSet("gemini-playground", flag.ContinueOnError)
	fs.StringVar(&cfg.ListenAddr, "listen-addr", cfg.ListenAddr, "address to listen on")
	fs.StringVar(&cfg.UpstreamWSURL, "upstream-ws-url", cfg.UpstreamWSURL, "upstream WebSocket scheme+host")
	fs.StringVar(&cfg.APIBaseURL, "api-base-url", cfg.APIBaseURL, "upstream HTTP API base URL")
	fs.StringVar(&cfg.StaticDir, "static-dir", cfg.StaticDir, "directory to serve static assets from")
	fs.StringVar(&logFormatRaw, "log-format", logFormatRaw, "log format (text or json)")
	fs.StringVar(&logLevelRaw, "log-level", logLevelRaw, "log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.LogFormat, err = parseLogFormat(logFormatRaw); err != nil {
		return Config{}, err
	}
	if cfg.LogLevel, err = parseLogLevel(logLevelRaw); err != nil {
		return Config{}, err
	}

	if err := validateBaseURL(EnvUpstreamWSURL, cfg.UpstreamWSURL, "ws", "wss"); err != nil {
		return Config{}, err
	}
	if err := validateBaseURL(EnvAPIBaseURL, cfg.APIBaseURL, "http", "https"); err != nil {
		return Config{}, err
	}
	if cfg.MaxPending <= 0 {
		return Config{}, fmt.Errorf("%s must be positive, got %d", EnvMaxPending, cfg.MaxPending)
	}
	if cfg.ConnectTimeout <= 0 {
		return Config{}, fmt.Errorf("%s must be positive, got %v", EnvConnectTimeout, cfg.ConnectTimeout)
	}
	if cfg.APITimeout <= 0 {
		return Config{}, fmt.Errorf("%s must be positive, got %v", EnvAPITimeout, cfg.APITimeout)
	}

	return cfg, nil
}

func validateBaseURL(name, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	schemeOK := false
	for _, s := range schemes {
		if u.Scheme == s {
			schemeOK = true
			break
		}
	}
	if !schemeOK {
		return fmt.Errorf("invalid %s %q: scheme must be one of %s", name, raw, strings.Join(schemes, ", "))
	}
	if u.Host == "" {
		return fmt.Errorf("invalid %s %q: missing host", name, raw)
	}
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" {
		return fmt.Errorf("invalid %s %q: must not carry a path or query", name, raw)
	}
	return nil
}

func NewLogger(cfg Config) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	switch cfg.LogFormat {
	case LogFormatText:
		handler = slog.NewTextHandler(os.Stdout, opts)
	case LogFormatJSON:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.LogFormat)
	}

	return slog.New(handler), nil
}

func envOrDefault(lookup func(string) (string, bool), key, fallback string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(lookup func(string) (string, bool), key string, fallback int) (int, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func envDurationOrDefault(lookup func(string) (string, bool), key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func parseLogFormat(raw string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(LogFormatText):
		return LogFormatText, nil
	case string(LogFormatJSON):
		return LogFormatJSON, nil
	}
	return "", fmt.Errorf("invalid log format %q (expected text or json)", raw)
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level %q (expected debug, info, warn, error)", raw)
}
