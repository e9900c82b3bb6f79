package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AngelCh415/LEADS_GO/internal/config"
	"github.com/AngelCh415/LEADS_GO/internal/httpx"
	"github.com/AngelCh415/LEADS_GO/internal/ingest"
	"github.com/AngelCh415/LEADS_GO/internal/metrics"
	"github.com/AngelCh415/LEADS_GO/internal/store"
	"github.com/AngelCh415/LEADS_GO/internal/telemetry"
)

func main() {
	cfg, cfgErr := config.Load(os.Getenv("LEADS_CONFIG"))

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	if cfgErr != nil {
		logger.Warn("config file ignored", slog.String("err", cfgErr.Error()))
	}

	vocab, err := cfg.Vocabulary()
	if err != nil {
		logger.Error("invalid stage vocabulary", slog.String("err", err.Error()))
		os.Exit(1)
	}

	src, closeSrc, err := ingest.OpenSource(cfg)
	if err != nil {
		logger.Error("open lead source", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer closeSrc()

	tm := telemetry.New()
	snap := store.NewSnapshot()
	ref := ingest.NewRefresher(src, snap, vocab, logger, tm)
	mSvc := metrics.NewService(snap, vocab, cfg.ReportWeeks)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpx.NewRouter(logger, ref, mSvc, tm),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", slog.String("port", cfg.Port), slog.String("backend", cfg.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return ref.Loop(gctx, cfg.RefreshInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
