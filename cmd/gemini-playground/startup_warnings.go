package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/philogos/gemini-playground/internal/config"
)

func logStartupSecurityWarnings(logger *slog.Logger, cfg config.Config) {
	if logger == nil {
		logger = slog.Default()
	}

	if containsString(cfg.AllowedOrigins, "*") {
		logger.Warn("startup security warning: ALLOWED_ORIGINS contains '*' (allows any origin)",
			"warning_code", "allowed_origins_wildcard",
			"allowed_origins", cfg.AllowedOrigins,
		)
	}

	if cfg.MaxSessions <= 0 {
		logger.Warn("startup security warning: MAX_SESSIONS is unset/0 (unlimited relay sessions)",
			"warning_code", "max_sessions_unlimited",
			"max_sessions", cfg.MaxSessions,
		)
	}

	if cfg.ConnectTimeout > 2*time.Minute {
		logger.Warn("startup security warning: CONNECT_TIMEOUT is very large (increases half-open session resource exposure)",
			"warning_code", "connect_timeout_large",
			"connect_timeout", cfg.ConnectTimeout,
		)
	}

	if _, err := os.Stat(cfg.StaticDir); err != nil {
		logger.Warn("startup warning: static dir is not readable, asset requests will 404",
			"warning_code", "static_dir_missing",
			"static_dir", cfg.StaticDir,
			"err", err,
		)
	}
}

func containsString(xs []string, v string) bool {
	for _, s := range xs {
		if s == v {
			return true
		}
	}
	return false
}
