package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/gorilla/websocket"

	"github.com/philogos/gemini-playground/internal/apiproxy"
	"github.com/philogos/gemini-playground/internal/assets"
	"github.com/philogos/gemini-playground/internal/config"
	"github.com/philogos/gemini-playground/internal/gateway"
	"github.com/philogos/gemini-playground/internal/httpserver"
	"github.com/philogos/gemini-playground/internal/metrics"
	"github.com/philogos/gemini-playground/internal/relay"
)

var (
	// Set via -ldflags at build time. Values may be empty in local/dev builds.
	buildCommit = ""
	buildTime   = ""
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	logger.Info("starting gemini-playground",
		"listen_addr", cfg.ListenAddr,
		"upstream_ws_url", cfg.UpstreamWSURL,
		"api_base_url", cfg.APIBaseURL,
		"connect_timeout", cfg.ConnectTimeout,
		"api_timeout", cfg.APITimeout,
		"max_pending_frames", cfg.MaxPending,
		"max_sessions", cfg.MaxSessions,
		"static_dir", cfg.StaticDir,
		"asset_cache_ttl", cfg.AssetCacheTTL,
		"redis_addr_set", cfg.RedisAddr != "",
	)

	logStartupSecurityWarnings(logger, cfg)

	m := metrics.New()

	relayCfg := relay.Config{
		EstablishTimeout: cfg.ConnectTimeout,
		MaxPending:       cfg.MaxPending,
		MaxSessions:      cfg.MaxSessions,
		AllowedOrigins:   cfg.AllowedOrigins,
	}
	sessions := relay.NewSessionManager(relayCfg, m, logger)
	relaySrv, err := relay.NewServer(cfg.UpstreamWSURL, relayCfg, sessions, logger)
	if err != nil {
		logger.Error("failed to configure relay", "err", err)
		os.Exit(2)
	}

	forwarder, err := apiproxy.NewUpstreamForwarder(cfg.APIBaseURL)
	if err != nil {
		logger.Error("failed to configure api forwarder", "err", err)
		os.Exit(2)
	}
	guard := apiproxy.NewGuard(forwarder, cfg.APITimeout, m, logger)

	cache, err := assets.NewCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.AssetCacheTTL, logger)
	if err != nil {
		logger.Error("failed to configure asset cache", "err", err)
		os.Exit(2)
	}
	static := assets.NewHandler(cfg.StaticDir, cache, m, logger)

	gw := &gateway.Handler{
		Relay:  relaySrv,
		API:    guard,
		Static: static,
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Error("failed to listen", "err", err)
		os.Exit(1)
	}

	commit, builtAt := resolveBuildInfo(buildCommit, buildTime)
	build := httpserver.BuildInfo{Commit: commit, BuildTime: builtAt}

	srv := httpserver.New(cfg, logger, build, gw, metrics.NewHandler(m, sessions.Len))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server exited", "err", err)
			os.Exit(1)
		}
		return
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	sessions.CloseAll(websocket.CloseGoingAway, "server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "err", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server exited after shutdown", "err", err)
		os.Exit(1)
	}
}

func resolveBuildInfo(commit, buildTime string) (string, string) {
	// Prefer ldflags-injected values (production builds) but fall back to the Go
	// build info when available (useful for `go run` / dev builds).
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if commit == "" {
					commit = s.Value
				}
			case "vcs.time":
				if buildTime == "" {
					buildTime = s.Value
				}
			}
		}
	}

	return commit, buildTime
}
