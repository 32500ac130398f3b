package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"GoMatch/internal/config"
	"GoMatch/internal/dictionary"
	"GoMatch/internal/server"
	"GoMatch/internal/store"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	logger.Info("starting GoMatch",
		"version", Version,
		"port", cfg.Port,
		"data_dir", cfg.DataDir,
		"config", *configPath,
	)

	// Open the store and load saved dictionaries.
	st, err := store.Open(cfg.DataDir, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	mgr, err := dictionary.NewManager(st, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize dictionaries: %v\n", err)
		os.Exit(1)
	}
	for _, dc := range cfg.Dictionaries {
		if err := preload(mgr, dc); err != nil {
			fmt.Fprintf(os.Stderr, "failed to preload dictionary %s: %v\n", dc.Name, err)
			os.Exit(1)
		}
	}

	handler := server.NewHandler(mgr, logger, cfg.MaxBodyBytes)
	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: server.NewRouter(handler, server.Options{
			Version:   Version,
			RateLimit: cfg.RateLimit.RPS,
			Burst:     cfg.RateLimit.Burst,
		}),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SaveInterval > 0 {
		go saveLoop(ctx, mgr, cfg.SaveInterval)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}

	if err := mgr.SaveAll(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to save dictionaries: %v\n", err)
		os.Exit(1)
	}
}

// preload creates the configured dictionary if needed, adds its pattern
// file and builds it.
func preload(mgr *dictionary.Manager, dc config.DictionaryConfig) error {
	d, err := mgr.Get(dc.Name)
	if errors.Is(err, dictionary.ErrNotFound) {
		d, err = mgr.Create(dc.Name, dc.Rule)
	}
	if err != nil {
		return err
	}
	if d.Rule().Name != dc.Rule && dc.Rule != "" {
		return errors.Errorf("stored rule %q differs from configured %q", d.Rule().Name, dc.Rule)
	}
	if dc.PatternsFile != "" {
		patterns, err := dictionary.ReadPatternsFile(dc.PatternsFile)
		if err != nil {
			return err
		}
		if len(patterns) > 0 {
			if _, err := d.Add(patterns...); err != nil {
				return err
			}
		}
	}
	_, err = d.Build()
	return err
}

func saveLoop(ctx context.Context, mgr *dictionary.Manager, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = mgr.SaveAll()
		}
	}
}
