package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/BAPONBARMON/file-server/internal/api"
	"github.com/BAPONBARMON/file-server/internal/config"
	"github.com/BAPONBARMON/file-server/internal/database"
	"github.com/BAPONBARMON/file-server/internal/files"
	"github.com/BAPONBARMON/file-server/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wsHub := websocket.NewHub()

	a, err := newApp(ctx, cfg, files.WithPublisher(wsHub))
	if err != nil {
		return err
	}
	defer a.Close()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		wsHub.Run(ctx)
	}()

	if cfg.Retention.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.reaper.Run(ctx)
		}()
	} else {
		log.Warn().Msg("retention reaper disabled, entries will not expire")
	}

	server := api.NewServer(cfg, a.manager, wsHub)
	srv := &http.Server{
		Addr:              cfg.AppHost,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.AppHost).Msg("starting http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
		stop()
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error().Err(shutdownErr).Msg("http server shutdown failed")
	}

	wg.Wait()
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.reaper.Sweep(cmd.Context())
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return errors.New("some expired entries could not be deleted")
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.DB.Driver != config.DBDriverPostgres {
		return errors.New("migrate requires db.driver postgres")
	}

	pool, err := openPool(cmd.Context(), cfg.DB.Source)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.Migrate(cmd.Context(), pool); err != nil {
		return err
	}
	log.Info().Msg("catalog migrations applied")
	return nil
}
