package cmd

import (
	"fmt"
	"os"

	"github.com/CyrilCartoux/watch-pros-sub002/pkg/config"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/logger"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "watch-pros",
	Short: "Watch Pros - B2B marketplace for professional watch dealers",
	Long: `Watch Pros serves the marketplace API: listing search and management,
seller registration and admin review.

Use "serve" to run the HTTP API, "migrate" to create the schema and
"seed" to load the brand and model catalog.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and initializes the global logger
func bootstrap() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
