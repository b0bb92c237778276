package handlers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"timescope/internal/config"
	"timescope/internal/extractor"
	"timescope/internal/logger"

	"github.com/spf13/cobra"
)

// NewExtractServerCmd creates the command for the built-in extractor service
func NewExtractServerCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "extract-server",
		Short: "Start the built-in article extraction service",
		Long: `Start the article extraction service.

It exposes POST /extract, accepting {"url": ...} and returning the
article's readable text plus a best-effort publication year. The analysis
server points at it via extractor.url (default http://localhost:8000/extract).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtractServer(cmd.Context(), port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "extractor port (default from config: 8000)")

	return cmd
}

func runExtractServer(ctx context.Context, port int) error {
	log := logger.Get()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port == 0 {
		port = cfg.Extractor.Port
	}

	handler := extractor.NewRouter(extractor.New(cfg.Extractor.Timeout))
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Extractor.Timeout + 15*time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info(fmt.Sprintf("Extractor listening on http://localhost:%d", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("extractor server error: %w", err)

	case sig := <-shutdown:
		log.Info("Extractor shutdown initiated", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("extractor shutdown failed: %w", err)
		}
		log.Info("Extractor stopped successfully")
	}

	return nil
}
