package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	envFile    string
	logLevel   string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "estimatelens",
		Short:        "Compare story-point estimates with logged effort",
		Long:         "estimatelens pulls issues from Jira or JSON exports and reports how logged hours line up with story-point estimates.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.loadEnv()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "config.yaml", "Path to config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "Load environment variables from this dotenv file (default: .env if present)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	cmd.AddCommand(newServeCommand(opts), newReportCommand(opts))
	return cmd
}

// loadEnv populates the environment from the dotenv file. Variables already
// set take precedence. A missing default .env is not an error.
func (o *rootOptions) loadEnv() error {
	if o.envFile == "" {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(o.envFile); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// setupLogging installs a JSON slog handler writing to w as the default logger.
func (o *rootOptions) setupLogging(w io.Writer) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(o.logLevel))); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", o.logLevel, err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
	return nil
}
