package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"PivotScreener/internal/api"
	"PivotScreener/internal/config"
	"PivotScreener/internal/logger"
	"PivotScreener/internal/scanner"
	"PivotScreener/internal/scheduler"
	"PivotScreener/internal/snapshot"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "screener",
		Short: "Volume-confirmed pivot breakout/breakdown screener",
		Long: `Scans the derivatives underlyings universe on a fixed interval, flags
volume-confirmed closes beyond the prior session's pivot bands, and serves
the latest qualifying set over HTTP.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath := "configs/config.yaml"
			if v := os.Getenv("CONFIG_PATH"); v != "" {
				cfgPath = v
			}
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config validation: %w", err)
			}
			return run(cfg)
		},
	}
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "address to bind the HTTP server to")
	cmd.Flags().IntVar(&port, "port", 8000, "port to bind the HTTP server to")
	return cmd
}

func run(cfg *config.Config) error {
	if err := logger.Init(cfg.Log.Level, cfg.Log.Environment); err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.Get()
	log.Info("screener starting", zap.String("addr", cfg.Addr()), zap.String("scan_cron", cfg.Schedule.ScanCron))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	persister, closePersister := newPersister(cfg, log)
	defer closePersister()
	store := snapshot.Open(ctx, persister, log)

	rec := newRecorder(cfg, log)
	defer rec.Close()

	uni := newUniverse(cfg)
	fetcher := newFetcher(cfg)
	log.Info("components ready",
		zap.String("universe", uni.Name()),
		zap.String("data_source", fetcher.Name()),
		zap.String("snapshot_backend", persister.Name()))

	sc := scanner.NewScanner(uni, fetcher, store, rec, scanner.Options{
		Suffix:            cfg.Universe.Suffix,
		Window:            cfg.Scanner.Window,
		Workers:           cfg.Scanner.Workers,
		InstrumentTimeout: cfg.Scanner.InstrumentTimeout,
	}, log)

	sched := scheduler.NewScheduler(ctx, sc, log)
	if err := sched.Register(cfg.Schedule.ScanCron); err != nil {
		return err
	}
	sched.Start()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewHandler(store, rec, sc, sched, log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("HTTP server failed", zap.Error(err))
		runErr = err
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown", zap.Error(err))
	}
	sched.Stop()
	log.Info("screener stopped")
	return runErr
}
