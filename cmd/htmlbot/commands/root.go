// Package commands implements the htmlbot command line.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tbourn/html-downloader-bot/internal/config"
	"github.com/tbourn/html-downloader-bot/internal/sysutil"
)

// version is set at build time with -ldflags "-X ...commands.version=...".
var version = "dev"

// cfg is loaded once before any subcommand runs.
var cfg config.Config

var envFile string

var rootCmd = &cobra.Command{
	Use:           "htmlbot",
	Short:         "htmlbot is a Telegram bot that downloads web pages as HTML files.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// a missing .env is fine; the environment may already be set
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		c, err := config.Load()
		if err != nil {
			return err
		}
		cfg = c
		sysutil.ConfigureLogging(cfg.LogLevel, cfg.LogPretty, nil)
		return nil
	},
	// the bare binary behaves like the original single-purpose program
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
}

// ExecuteContext runs the CLI and exits non-zero on error.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
