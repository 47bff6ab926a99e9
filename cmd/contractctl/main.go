package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"contractparser/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "contractctl",
	Short: "Extract and edit contract billing terms from the command line",
	Long: `Runs billing-term extraction on local contract files and works with the
resulting billing records: validate them, correct fields, export them as
JSON, CSV or XLSX, and print a summary.`,
	SilenceUsage: true,
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

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
