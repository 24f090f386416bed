// Package cli implements the portal command line.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/school-portal/portal-backend/internal/config"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "portal",
	Short:         "School portal points ledger and reward shop",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.yaml (defaults to $PORTAL_CONFIG or ./config.yaml)")
}

// Execute runs the root command with a context cancelled on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func appConfig() config.AppConfig {
	return config.AppConfig{ConfigPath: configPath}
}
