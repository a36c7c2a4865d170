// Package main wires together the SeedPitcher browser gateway service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/spacecode-ai/SeedPitcher/internal/analysis"
	"github.com/spacecode-ai/SeedPitcher/internal/api"
	"github.com/spacecode-ai/SeedPitcher/internal/browser"
	"github.com/spacecode-ai/SeedPitcher/internal/config"
	"github.com/spacecode-ai/SeedPitcher/internal/enrich"
	"github.com/spacecode-ai/SeedPitcher/internal/gateway"
	"github.com/spacecode-ai/SeedPitcher/internal/linkedin"
	"github.com/spacecode-ai/SeedPitcher/internal/logging"
	"github.com/spacecode-ai/SeedPitcher/internal/metrics"
	"github.com/spacecode-ai/SeedPitcher/internal/pitchdeck"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	factory := func() (gateway.Engine, error) {
		return browser.NewPlaywright(browser.Options{
			RemoteDebuggingPort: cfg.Browser.RemoteDebuggingPort,
			Headless:            cfg.Browser.Headless,
			SlowMoMs:            cfg.Browser.SlowMoMs,
			NavTimeout:          time.Duration(cfg.Browser.NavTimeoutSec) * time.Second,
			Logger:              logger.Named("browser"),
		})
	}

	gw := gateway.New(gateway.Config{
		QueueDepth:      cfg.Gateway.QueueDepth,
		PollInterval:    cfg.Gateway.PollInterval(),
		DefaultDeadline: cfg.Gateway.DefaultDeadline(),
		SubmitTimeout:   time.Duration(cfg.Gateway.SubmitTimeoutSec) * time.Second,
		StartTimeout:    cfg.Gateway.StartTimeout(),
		StartAttempts:   cfg.Gateway.StartAttempts,
	}, factory, logger.Named("gateway"))

	// A failed browser start is not fatal: the facade retries on the
	// first command that needs it.
	if err := gw.Start(ctx); err != nil {
		logger.Error("browser gateway start failed, serving degraded", zap.Error(err))
	}

	extractor := linkedin.NewExtractor(gw, linkedin.Config{
		NavAttempts:     cfg.Extract.NavAttempts,
		SettleBase:      time.Duration(cfg.Extract.SettleBaseSeconds) * time.Second,
		SettleStep:      time.Duration(cfg.Extract.SettleStepSeconds) * time.Second,
		MaxExperience:   cfg.Extract.MaxExperience,
		CommandDeadline: cfg.Gateway.DefaultDeadline(),
	}, logger.Named("linkedin"))

	opts := api.Options{
		Enricher: enrich.New(enrich.Config{
			UserAgent:    cfg.Enrich.UserAgent,
			Timeout:      time.Duration(cfg.Enrich.TimeoutSeconds) * time.Second,
			MaxPortfolio: cfg.Enrich.MaxPortfolio,
		}, logger.Named("enrich")),
	}
	if cfg.LLM.Enabled {
		opts.Analyzer = analysis.NewOpenAI(cfg.LLM.APIKey,
			analysis.WithModel(cfg.LLM.Model),
			analysis.WithBaseURL(cfg.LLM.BaseURL),
		)
	}
	if cfg.Startup.PitchDeckPath != "" {
		deck, err := pitchdeck.Load(cfg.Startup.PitchDeckPath)
		if err != nil {
			logger.Warn("pitch deck load failed", zap.String("path", cfg.Startup.PitchDeckPath), zap.Error(err))
		} else {
			opts.DeckSummary = deck.Summary(2000)
			logger.Info("pitch deck loaded", zap.String("title", deck.Title), zap.Int("slides", len(deck.Slides)))
		}
	}

	server := api.NewServer(gw, extractor, cfg, logger.Named("api"), opts)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownTimeout := time.Duration(cfg.Gateway.ShutdownTimeoutSec) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	if _, err := gw.Close(shutdownCtx); err != nil {
		logger.Error("gateway close failed", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
