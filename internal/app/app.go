package app

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/config"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/delivery/httpd"
)

type App struct {
	server   *http.Server
	logger   zerolog.Logger
	config   *config.Config
	services *Services
}

func New(cfg *config.Config, log zerolog.Logger) (*App, error) {
	services, err := NewServices(cfg, log)
	if err != nil {
		return nil, err
	}

	handler := httpd.NewHandler(
		services.Backfill,
		services.Detection,
		services.Remediation,
		services.Export,
		services.Catalog,
		services.Pools,
		log,
	)

	router := httpd.NewRouter(handler, cfg.CORS, cfg.Server.RequestTimeout, log)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		server:   server,
		logger:   log,
		config:   cfg,
		services: services,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info().Msgf("Starting duplicate service on %s", a.config.Server.Address)
	return a.server.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down duplicate service...")

	// In-flight bulk deletes finish before connections close.
	err := a.server.Shutdown(ctx)
	a.services.Close()
	return err
}
