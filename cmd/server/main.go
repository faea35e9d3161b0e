package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dgallion1/protoreview/internal/api"
	"github.com/dgallion1/protoreview/internal/config"
	"github.com/dgallion1/protoreview/internal/coverage"
	"github.com/dgallion1/protoreview/internal/docstore"
	"github.com/dgallion1/protoreview/internal/layout"
	"github.com/dgallion1/protoreview/internal/patch"
	"github.com/dgallion1/protoreview/internal/sourcedoc"
)

func main() {
	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Document store: a local directory or the remote document service.
	var store docstore.Store
	var remote *docstore.Remote
	if cfg.DocumentsDir != "" {
		local, err := docstore.OpenDir(cfg.DocumentsDir, log)
		if err != nil {
			log.Error("failed to open documents", "dir", cfg.DocumentsDir, "error", err)
			os.Exit(1)
		}
		log.Info("loaded documents", "dir", cfg.DocumentsDir, "count", len(local.IDs()))
		store = local
	} else {
		remote = docstore.NewRemote(cfg.DocStoreURL, cfg.DocStoreAPIKey)
		store = remote
	}

	lay, err := layout.Load(cfg.LayoutFile)
	if err != nil {
		log.Error("failed to load layout", "file", cfg.LayoutFile, "error", err)
		os.Exit(1)
	}

	// Edit dispatch.
	stats := patch.NewStats(cfg.StatsWindow)
	svc := patch.NewService(store, stats, log)
	dispatcher := patch.NewDispatcher(svc, patch.NewNotifications(cfg.NotificationTTL), patch.DispatcherConfig{
		Workers:   cfg.WorkerCount,
		QueueSize: cfg.MaxQueueSize,
		RetryBase: cfg.RetryBase,
		RetryMax:  cfg.RetryMax,
	}, log)
	dispatcher.Start(ctx)

	sources := sourcedoc.NewLibrary(cfg.SourceDir, sourcedoc.PageMap{
		FirstNumberedPage: cfg.FirstNumberedPage,
		PageOffset:        cfg.PageOffset,
	}, sourcedoc.Options{Pdftotext: cfg.PDFPdftotext})

	srv := api.NewServer(api.Deps{
		Store:      store,
		Layout:     lay,
		Sessions:   coverage.NewStore(cfg.SessionTTL),
		Dispatcher: dispatcher,
		Stats:      stats,
		Sources:    sources,
	}, log, cfg)
	go srv.RunJanitor(ctx, time.Minute)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		dispatcher.Stop()
		cancel()
		if remote != nil {
			remote.Close()
		}
	}()

	log.Info("starting protoreview", "port", cfg.Port, "tabs", len(lay.Tabs), "editing", cfg.EditingEnabled)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-stopped
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
