// Command iptv-bridge ingests an IPTV provider (M3U playlist or Xtream API),
// normalizes it into a merged catalog snapshot, and serves it over a JSON
// addon API. Configuration comes from IPTV_BRIDGE_* environment variables,
// optionally loaded from a .env file.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/iptvbridge/iptv-bridge/internal/addon"
	"github.com/iptvbridge/iptv-bridge/internal/catalog"
	"github.com/iptvbridge/iptv-bridge/internal/config"
	"github.com/iptvbridge/iptv-bridge/internal/ingest"
	"github.com/iptvbridge/iptv-bridge/internal/log"
	"github.com/iptvbridge/iptv-bridge/internal/snapcache"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "iptv-bridge:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = config.LoadEnvFile(".env") // optional local overrides

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Configure(log.Config{Level: cfg.LogLevel, Service: "iptv-bridge"})
	logger := log.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shared, err := openSharedStore(cfg)
	if err != nil {
		return err
	}

	src, err := buildSource(cfg)
	if err != nil {
		return err
	}

	orch := &ingest.Orchestrator{
		Source:         src,
		EPGOffsetHours: cfg.EPGOffsetHours,
		CoreTimeout:    cfg.CoreFeedTimeout,
		AuxTimeout:     cfg.AuxFeedTimeout,
		Log:            log.WithComponent("ingest"),
	}

	cache := snapcache.New(snapcache.Options{
		MaxEntries: cfg.CacheMaxEntries,
		TTL:        cfg.CacheTTL,
		MinRefresh: cfg.CacheMinRefresh,
	}, shared, log.WithComponent("snapcache"))

	build := func(ctx context.Context) (*catalog.Snapshot, error) {
		return orch.Run(ctx)
	}
	fingerprint := cfg.Fingerprint()

	// Warm build. A failing provider at startup is not fatal; the first
	// request retries and a shared store may still hold a usable snapshot.
	if _, err := cache.GetOrBuild(ctx, fingerprint, false, build); err != nil {
		logger.Warn().Err(err).Msg("initial catalog build failed")
	}

	if cfg.RefreshInterval > 0 {
		go refreshLoop(ctx, cache, fingerprint, build, cfg.RefreshInterval, logger)
	}

	handler := &addon.Handler{
		Cache:       cache,
		Fingerprint: fingerprint,
		Build:       build,
		HealthURL:   healthURL(cfg),
		Log:         log.WithComponent("addon"),
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return err
	}
	return nil
}

// refreshLoop rebuilds the snapshot on a timer so clients rarely pay build
// latency. A small jitter keeps multiple instances from hitting the provider
// in lockstep.
func refreshLoop(ctx context.Context, cache *snapcache.Cache, fingerprint string, build snapcache.Builder, interval time.Duration, logger zerolog.Logger) {
	jitter := func() time.Duration {
		return time.Duration(rand.Int63n(int64(interval)/10 + 1))
	}
	timer := time.NewTimer(interval + jitter())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if _, err := cache.GetOrBuild(ctx, fingerprint, true, build); err != nil {
			logger.Warn().Err(err).Msg("scheduled refresh failed")
		}
		timer.Reset(interval + jitter())
	}
}

func buildSource(cfg *config.Config) (ingest.Source, error) {
	switch cfg.ProviderKind {
	case "m3u":
		return &ingest.PlaylistSource{M3UURL: cfg.M3UURL, EPGURL: cfg.EPGURL}, nil
	case "xtream":
		return ingest.NewXtreamSource(cfg.XtreamBaseURL, cfg.XtreamUser, cfg.XtreamPass, cfg.StreamExt, cfg.LiveOnly, log.WithComponent("xtream")), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.ProviderKind)
	}
}

func healthURL(cfg *config.Config) string {
	if cfg.ProviderKind == "xtream" {
		return cfg.XtreamBaseURL
	}
	return cfg.M3UURL
}

func openSharedStore(cfg *config.Config) (snapcache.SharedStore, error) {
	switch {
	case cfg.RedisAddr != "":
		store, err := snapcache.NewRedisStore(snapcache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log.WithComponent("redis"))
		if err != nil {
			return nil, err
		}
		return store, nil
	case cfg.SQLitePath != "":
		store, err := snapcache.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, nil
	}
}
