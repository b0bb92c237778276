package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"timescope/internal/analysis"
	"timescope/internal/config"
	"timescope/internal/extract"
	"timescope/internal/llm"
	"timescope/internal/logger"
	"timescope/internal/server"

	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command for starting the analysis server
func NewServeCmd() *cobra.Command {
	var (
		port        int
		host        string
		templateDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the analysis HTTP server",
		Long: `Start the Timescope analysis server.

The server provides:
  • POST /api/analyze for programmatic access (basic auth)
  • A web UI for pasting article URLs
  • Health check and status endpoints

Required environment:
  • TIMESCOPE_API_KEY    completion API key
  • AUTH_USERNAME        basic auth user
  • AUTH_PASSWORD        basic auth password

Examples:
  # Start server on default port 8080
  timescope serve

  # Start on custom port
  timescope serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host, templateDir)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")
	cmd.Flags().StringVar(&templateDir, "template-dir", "", "Template directory (default from config)")

	return cmd
}

func runServe(ctx context.Context, port int, host, templateDir string) error {
	log := logger.Get()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override server config from flags if provided
	if port != 0 {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if templateDir != "" {
		cfg.Server.TemplateDir = templateDir
	}

	if cfg.Auth.Username == "" || cfg.Auth.Password == "" {
		log.Warn("AUTH_USERNAME/AUTH_PASSWORD not set; every request will be rejected with 401")
	}
	if cfg.Completion.APIKey == "" {
		log.Warn("completion API key not set; analyze requests will fail with a configuration error")
	}

	svc := analysis.NewService(
		extract.NewClient(cfg.Extractor),
		llm.NewClient(cfg.Completion),
	)
	srv := server.New(svc, cfg)

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	go func() {
		log.Info(fmt.Sprintf("Server listening on http://%s:%d", cfg.Server.Host, cfg.Server.Port))
		log.Info("Press Ctrl+C to stop")
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Info("Server shutdown initiated", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown failed, forcing close", "error", err)
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		log.Info("Server stopped successfully")
	}

	return nil
}
