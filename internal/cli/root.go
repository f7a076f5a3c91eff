// Package cli implements the nexus command line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nexusforge/nexus/internal/observability"
	"github.com/nexusforge/nexus/pkg/config"
)

var (
	configPath string
	cfg        *config.Config

	version = "dev"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nexus",
	Short: "Immersive storytelling client for Anthropic and Google models",
	Long: `The Nexus is a terminal client for long-running collaborative
storytelling sessions. It streams responses from Anthropic or Google
models, keeps a persistent game-master framework and character sheet
between sessions, and can archive and trim long conversations so a
story never outgrows its context window.

Quick Start:
  nexus chat                   # Start or resume an interactive session
  nexus sessions               # List saved sessions
  nexus archive <file> -k 10   # Archive and trim a saved session
  nexus serve                  # Serve the data directory over HTTP`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := observability.InitFromEnv(); err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		observability.Shutdown(context.Background())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "Path to the config file")
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "nexus.yaml"
	}
	return filepath.Join(home, ".nexus", "config.yaml")
}
