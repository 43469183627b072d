package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"advisorsql-backend/internal/config"
	"advisorsql-backend/internal/logging"
)

var (
	configPath string
	timeout    time.Duration

	// initialised by PersistentPreRunE
	cfg       *config.Config
	logger    *zap.Logger
	closeLogs func() error
)

var rootCmd = &cobra.Command{
	Use:   "advisorsql",
	Short: "Natural language questions over the advisory database",
	Long: `advisorsql answers questions about client allocations and advisor
holdings by letting an LLM write SQL against a local database.

Run "advisorsql ingest" once to load the CSV data, then "advisorsql serve"
for the HTTP and WebSocket API or "advisorsql ask" for a single question.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		logger, closeLogs, err = logging.New(logging.Options{
			Level: cfg.Logging.Level,
			File:  cfg.Logging.File,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		if closeLogs != nil {
			_ = closeLogs()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Timeout for ask, query and ingest")

	queryCmd.Flags().Bool("json", false, "Print the JSON payload instead of a table")
	askCmd.Flags().String("session", "", "Session ID to continue")
	askCmd.Flags().Bool("raw", false, "Print the answer without markdown rendering")

	rootCmd.AddCommand(serveCmd, askCmd, queryCmd, ingestCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
