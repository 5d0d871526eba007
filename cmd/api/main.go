package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/octobees/directory-leads/internal/config"
	"github.com/octobees/directory-leads/internal/directory"
	"github.com/octobees/directory-leads/internal/handler"
	"github.com/octobees/directory-leads/internal/metrics"
	middlewarepkg "github.com/octobees/directory-leads/internal/middleware"
	"github.com/octobees/directory-leads/internal/router"
	"github.com/octobees/directory-leads/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	httpClient := &http.Client{Timeout: cfg.DirectoryTimeout}
	directoryClient, err := directory.NewClient(httpClient, cfg.DirectoryBaseURL)
	if err != nil {
		logger.Fatal("failed to build directory client", zap.Error(err))
	}

	opts := []service.ScrapeOption{
		service.WithLogger(logger.Named("scrape")),
		service.WithMetrics(appMetrics),
		service.WithFailurePolicy(cfg.FailurePolicy),
	}
	if cfg.NormalizePhones {
		opts = append(opts, service.WithPhoneFormatter(service.NewPhoneFormatter(cfg.PhoneRegion)))
	}
	scrapeService := service.NewScrapeService(directoryClient, opts...)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	// the limiter keys on the peer address, so client-supplied forwarding headers are ignored
	e.IPExtractor = echo.ExtractIPDirect()

	e.Use(middlewarepkg.RequestID())
	e.Use(middlewarepkg.Logging(logger.Named("http")))
	e.Use(middlewarepkg.Metrics(appMetrics))
	e.Use(echoMiddleware.Recover())

	router.Register(e, cfg, router.Handlers{
		Cities: handler.NewCitiesHandler(cfg.Cities, cfg.MaxPages),
		Scrape: handler.NewScrapeHandler(scrapeService, cfg.MaxPages),
	}, registry)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- e.Start(":" + cfg.Port)
	}()
	logger.Info("server started",
		zap.String("port", cfg.Port),
		zap.String("directory", cfg.DirectoryBaseURL),
		zap.Strings("cities", cfg.Cities),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = lvl
	}
	return zcfg.Build()
}
