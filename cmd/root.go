package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/retreat-leads/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "retreat-leads",
	Short: "Retreat organizer lead database",
	Long:  "Ingests scraped retreat listings into a deduplicated ledger, enriches organizers with Places, website and AI signals, and ranks them as sales leads.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Log.Level = lvl
		}

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "override log.level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
