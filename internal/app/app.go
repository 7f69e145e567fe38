package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/varoOP/stashplex/internal/api"
	"github.com/varoOP/stashplex/internal/cache"
	"github.com/varoOP/stashplex/internal/config"
	"github.com/varoOP/stashplex/internal/domain"
	"github.com/varoOP/stashplex/internal/image"
	"github.com/varoOP/stashplex/internal/logger"
	"github.com/varoOP/stashplex/internal/matcher"
	"github.com/varoOP/stashplex/internal/metadata"
	"github.com/varoOP/stashplex/internal/plex"
	"github.com/varoOP/stashplex/internal/stash"
)

// App holds the agent with all dependencies wired.
type App struct {
	log    zerolog.Logger
	config *domain.Config
	server *http.Server
}

// New initializes the logger, loads configuration and wires every component.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.NewWithLevel(cfg.LogLevel)

	c := cache.New(log, cfg.TTL())
	client := stash.NewClient(log, cfg)

	matcherSvc := matcher.NewService(log, client, c)
	metadataSvc := metadata.NewService(log, cfg, client, c)
	imageSvc := image.NewService(log, client, c)

	var publisher *plex.Publisher
	if cfg.PosterUploadEnabled() {
		publisher = plex.NewPublisher(log, plex.NewClient(log, cfg), imageSvc)
		log.Info().Str("plex_url", cfg.PlexURL).Msg("plex poster upload enabled")
	}

	server := api.NewServer(log, cfg, matcherSvc, metadataSvc, imageSvc, publisher)

	return &App{
		log:    log,
		config: cfg,
		server: &http.Server{
			Addr:    cfg.ListenAddr(),
			Handler: server.Handler(),
		},
	}, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.log.Info().
			Str("addr", a.config.ListenAddr()).
			Str("base_url", a.config.PublicBaseURL()).
			Str("stash_url", a.config.StashURL).
			Bool("poster_mode", a.config.PosterMode).
			Msg("stashplex listening")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.log.Info().Msg("server stopped")
	return nil
}
