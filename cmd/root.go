package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sensingcity/greenview-cli/internal/config"
	"github.com/sensingcity/greenview-cli/pkg/streetview"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "greenview",
	Short: "Street-level Green View Index pipeline",
	Long:  "Samples points along a street network, resolves street-level panoramas, classifies vegetation pixels, and exports a Green View Index point shapefile.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// newClient builds the imagery client from config, failing fast on missing
// credentials.
func newClient() (streetview.Client, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}
	opts := []streetview.Option{
		streetview.WithBaseURL(cfg.API.BaseURL),
		streetview.WithRateLimit(float64(cfg.Concurrency), cfg.Concurrency),
	}
	if cfg.API.Secret != "" {
		opts = append(opts, streetview.WithSigningSecret(cfg.API.Secret))
	}
	return streetview.NewClient(cfg.API.Key, opts...), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
