/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package handlers

import (
	"fmt"
	"os"

	"timescope/internal/config"

	"github.com/spf13/cobra"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "timescope",
		Short: "Timescope compares a news article's original claims with their status today.",
		Long: `Timescope takes a news article URL, extracts its text and original
publication year, asks a language model for a structured then-vs-now
comparison, and serves the result as JSON and as a small web UI.

Run 'timescope serve' for the analysis server, 'timescope extract-server'
for the built-in article extractor, or 'timescope analyze <url>' for a
one-shot analysis on the command line.`,
	}

	// Initialize configuration
	cobra.OnInitialize(initConfig)

	// Add persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.timescope.yaml)")

	// Add subcommands
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewExtractServerCmd())
	rootCmd.AddCommand(NewAnalyzeCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	_, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if config.Get().App.ConfigFile != "" {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", config.Get().App.ConfigFile)
	}
}
