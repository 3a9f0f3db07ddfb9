// Package app wires the sandbox backend: sqlite storage, services, the
// change hub and the HTTP API.
package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/sandbox/config"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/sandbox/httpapi"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/sandbox/realtime"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/sandbox/repository/sqlite"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/sandbox/service"
)

type App struct {
	version   string
	buildDate string
	logger    zerolog.Logger
	server    *http.Server
	repoClose io.Closer
}

func New(version, buildDate string, logger zerolog.Logger) (*App, error) {
	cfg, err := config.Load(logger)
	if err != nil {
		return nil, err
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		logger = logger.Level(lvl)
	}
	repo, err := sqlite.New(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	hub := realtime.NewHub(logger.With().Str("component", "realtime").Logger())
	services := service.NewServices(repo, cfg,
		service.WithPublisher(hub),
		service.WithLogger(logger),
	)
	router := httpapi.NewRouter(services, hub, logger, cfg.GatewayKey, cfg.MaxRequestBytes)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// No WriteTimeout: the hub sets per-frame deadlines on websockets.
		IdleTimeout: 60 * time.Second,
	}
	return &App{version: version, buildDate: buildDate, logger: logger, server: server, repoClose: repo}, nil
}

func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer func() { _ = a.repoClose.Close() }()

	errc := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	a.logger.Info().
		Str("version", a.version).
		Str("build_date", a.buildDate).
		Str("addr", a.server.Addr).
		Msg("sandbox listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.server.Shutdown(shutdownCtx)
}
