package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical/disclosure-extractor/internal/api"
	"github.com/spherical/disclosure-extractor/internal/domain"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the extraction HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	p, err := newPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	var store domain.RunStore
	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if s != nil {
		defer s.Close()
		store = s
	}

	router := api.NewRouter(logger, api.Config{
		Extractor:      p.service,
		Store:          store,
		RequestTimeout: cfg.Server.RequestTimeout,
		Version:        Version,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 10*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("provider", cfg.LLM.Provider).
			Str("database", cfg.Database.Driver).
			Str("cache", cfg.Cache.Driver).
			Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	}
}
