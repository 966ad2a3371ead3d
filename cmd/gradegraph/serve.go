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
	"github.com/spf13/cobra"

	api "github.com/mind-engage/mindengage-grades/internal/api/http"
	auth "github.com/mind-engage/mindengage-grades/internal/auth/middleware"
	"github.com/mind-engage/mindengage-grades/internal/config"
	"github.com/mind-engage/mindengage-grades/internal/course"
	"github.com/mind-engage/mindengage-grades/internal/db"
	"github.com/mind-engage/mindengage-grades/internal/grading"
	"github.com/mind-engage/mindengage-grades/internal/logger"
	"github.com/mind-engage/mindengage-grades/internal/results"
	syncx "github.com/mind-engage/mindengage-grades/internal/sync"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the grades HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadConfig()
			if addr != "" {
				cfg.HTTPAddr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}

// newLogger builds the service logger. The returned func closes the log file.
func newLogger(cfg config.Config) (*slog.Logger, func(), error) {
	opts := []logger.Option{logger.WithFormat(cfg.LogFormat)}
	if cfg.LogDebug {
		opts = append(opts, logger.WithDebug())
	}
	closeFn := func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		opts = append(opts, logger.WithWriter(f))
		closeFn = func() { _ = f.Close() }
	}
	return logger.New(opts...), closeFn, nil
}

func serve(ctx context.Context, cfg config.Config) error {
	log, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	ctx = logger.WithLogger(ctx, log)

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db open failed: %w", err)
	}
	defer dbh.Close()

	store := course.NewSQLStore(dbh, cfg.DBDriver)
	plans := grading.NewPlanCache(cfg.PlanCacheSize)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := results.NewMetrics(registry, plans.Size)

	svc := results.NewService(store, plans,
		results.WithMetrics(metrics),
		results.WithEvents(syncx.NewEventRepo(dbh, cfg.SiteID)),
	)

	policy, err := grading.ParseSelectPolicy(cfg.DefaultTiePolicy, cfg.DefaultExpiryPolicy)
	if err != nil {
		return fmt.Errorf("default selection policy: %w", err)
	}

	opts := api.RouterOptions{
		Service:       svc,
		Store:         store,
		Registry:      registry,
		CORSOrigins:   cfg.CORSOrigins,
		Logger:        log,
		JSONLogs:      cfg.LogFormat != "text",
		DefaultPolicy: policy,
	}
	if cfg.AuthRequired {
		opts.Auth = auth.NewAuthService(cfg.AuthHMACSecret)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(opts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info(ctx, "listening", "addr", cfg.HTTPAddr, "db", cfg.DBDriver, "auth", cfg.AuthRequired)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info(ctx, "shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
