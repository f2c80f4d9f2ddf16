package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"proxy-gateway/gateway"
	"proxy-gateway/internal/config"
	"proxy-gateway/internal/logging"
	"proxy-gateway/middleware/ratelimit/infra"
)

func runServe(cmd *cobra.Command, opts *rootOptions) (err error) {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	gwOpts := []gateway.Option{gateway.WithRegistry(reg), gateway.WithLogger(logger)}
	if cfg.Stats.Enabled {
		rdb, rerr := newRedisStats(ctx, cfg.Stats)
		if rerr != nil {
			return rerr
		}
		defer func() { err = multierr.Append(err, rdb.Close()) }()

		gwOpts = append(gwOpts, gateway.WithStats(infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.Stats.Prefix),
			infra.WithStatsTTL(cfg.Stats.TTL),
			infra.WithStatsBucket(cfg.Stats.Bucket),
			infra.WithStatsTrackKeys(cfg.Stats.TrackKeys),
		)))
	}

	gw, err := gateway.New(cfg, gwOpts...)
	if err != nil {
		return err
	}
	gw.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// o forward pode levar o timeout do upstream inteiro
		WriteTimeout: max(30*time.Second, cfg.Upstream.Timeout+5*time.Second),
		IdleTimeout:  90 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info("gateway listening", append([]any{"addr", srv.Addr}, gw.Summary()...)...)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("gateway stopped")
	return nil
}

func newRedisStats(ctx context.Context, cfg config.StatsConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, multierr.Append(fmt.Errorf("redis stats ping %s: %w", cfg.RedisAddr, err), rdb.Close())
	}
	return rdb, nil
}
