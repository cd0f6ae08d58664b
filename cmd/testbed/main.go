// Package main é o binário do testbed: um serviço que reserva memória por sessão,
// enfileira admissões com timeout e recolhe sessões inativas, para exercitar
// diagnóstico de falhas por esgotamento de recursos.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"fault-testbed/middleware/session"
	"fault-testbed/middleware/session/domain"
	"fault-testbed/middleware/session/infra"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	Version = "0.1.0"
	appName = "testbed"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		listenAddr string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Session admission fault-injection testbed",
		Long: `testbed serves POST /api/v1/vehicle/climate/start behind a bounded
session table. Each session reserves memory, admission waits in a queue with a
timeout, idle sessions are reclaimed by a periodic sweep and keys that timed out
are kept sticky for a while.

Configuration comes from defaults, an optional YAML file (--config) and
environment variables (MAX_SESSIONS, SESSION_TTL_S, APP_QUEUE_TIMEOUT_S, ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(logLevel)
			slog.SetDefault(logger)

			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if listenAddr != "" {
				cfg.ListenAddr = listenAddr
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return run(ctx, cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides LISTEN_ADDR)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})
	return cmd
}

func newLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func run(ctx context.Context, cfg config, logger *slog.Logger) error {
	sticky := infra.NewStickyRegistry(cfg.stickyWindow())
	table := infra.NewSessionTable(cfg.MaxSessions,
		infra.WithPerSessionBytes(cfg.PerSessionBytes),
		infra.WithSessionTTL(cfg.sessionTTL()),
		infra.WithSweepEvery(cfg.SweepInterval),
		infra.WithSticky(sticky),
		infra.WithLogger(logger),
	)
	agg := infra.NewAggregator(cfg.metricsWindow())

	outcomes, closeOutcomes, err := newOutcomeStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeOutcomes()

	appender, closeLog, err := newAppender(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	var vehicle *infra.VehicleClient
	if cfg.VehicleURL != "" {
		vehicle = infra.NewVehicleClient(cfg.VehicleURL, infra.WithDownstreamTimeout(cfg.DownstreamTimeout))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		infra.NewCollector(agg, table, cfg.MaxSessions),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/vehicle/climate/start", session.Handler(session.Options{
		Gate:              table,
		Sticky:            sticky,
		Metrics:           agg,
		Outcomes:          outcomes,
		Budget:            cfg.admissionBudget(),
		Work:              climateWork(appender, vehicle),
		KeyHeader:         cfg.SessionHeader,
		AddSessionHeaders: cfg.AddSessionHeaders,
		MaxSessions:       cfg.MaxSessions,
		Logger:            logger,
	}))
	mux.Handle("GET /metrics", session.MetricsHandler(agg, table, session.ConfigView{
		PerSessionBytes:  cfg.PerSessionBytes,
		MaxSessions:      cfg.MaxSessions,
		SessionTTL:       cfg.SessionTTLS,
		AppQueueTimeoutS: cfg.AppQueueTimeoutS,
		StickyOnTimeoutS: cfg.StickyOnTimeoutS,
	}))
	mux.Handle("GET /metrics/prometheus", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	// a escrita precisa caber a espera na fila + o downstream
	writeTimeout := cfg.admissionBudget() + cfg.DownstreamTimeout + 10*time.Second
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       90 * time.Second,
	}

	logger.Info("testbed listening", "addr", cfg.ListenAddr, "vehicle_url", cfg.VehicleURL)
	logger.Info("sessions",
		"max_sessions", cfg.MaxSessions,
		"per_session_bytes", cfg.PerSessionBytes,
		"session_ttl", cfg.sessionTTL(),
		"app_queue_timeout", cfg.admissionBudget(),
		"sticky_window", cfg.stickyWindow(),
		"sweep_interval", cfg.SweepInterval,
	)
	logger.Info("io",
		"log_path", cfg.LogPath,
		"log_append_rps", cfg.LogAppendRPS,
		"outcome_stats", cfg.OutcomeStats,
		"downstream_timeout", cfg.DownstreamTimeout,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return table.RunSweeper(gctx) })
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newOutcomeStore(ctx context.Context, cfg config) (domain.OutcomeStore, func(), error) {
	switch cfg.OutcomeStats {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis outcome stats ping error: %w", err)
		}
		store := infra.NewRedisOutcomeStore(rdb,
			infra.WithOutcomePrefix(cfg.RedisPrefix),
			infra.WithOutcomeTTL(cfg.RedisTTL),
			infra.WithOutcomeBucket(cfg.RedisBucket),
			infra.WithOutcomeTrackKeys(cfg.TrackKeys),
		)
		return store, func() { _ = rdb.Close() }, nil
	case "memory":
		return infra.NewMemoryOutcomeStore(infra.WithTrackKeys(cfg.TrackKeys)), func() {}, nil
	default:
		return nil, func() {}, nil
	}
}

func newAppender(cfg config) (domain.LogAppender, func(), error) {
	rate := infra.WithAppendRate(cfg.LogAppendRPS)
	if cfg.LogPath == "" || cfg.LogPath == "-" {
		return infra.NewAppender(os.Stdout, rate), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	a, f, err := infra.OpenFileAppender(cfg.LogPath, cfg.LogSync, rate)
	if err != nil {
		return nil, nil, err
	}
	return a, func() { _ = f.Close() }, nil
}
