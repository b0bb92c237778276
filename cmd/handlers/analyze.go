package handlers

import (
	"encoding/json"
	"fmt"
	"os"

	"timescope/internal/analysis"
	"timescope/internal/config"
	"timescope/internal/extract"
	"timescope/internal/llm"

	"github.com/spf13/cobra"
)

// NewAnalyzeCmd creates the one-shot analyze command
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Analyze a single article URL and print the result as JSON",
		Long: `Run the full analysis pipeline for one article URL without starting
the HTTP server, printing the AnalysisResult JSON to stdout.

Useful for scripting and for checking configuration:

  timescope analyze https://example.com/2020/03/story | jq .`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0])
		},
	}

	return cmd
}

func runAnalyze(cmd *cobra.Command, url string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Completion.APIKey == "" {
		return fmt.Errorf("completion API key is not configured (set TIMESCOPE_API_KEY)")
	}

	svc := analysis.NewService(
		extract.NewClient(cfg.Extractor),
		llm.NewClient(cfg.Completion),
	)

	result, err := svc.Analyze(cmd.Context(), url)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
