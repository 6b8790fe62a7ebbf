// Package cli provides the exoctl operator command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/yanqian/exoplanet-classifier/internal/infra/backend"
	"github.com/yanqian/exoplanet-classifier/internal/infra/config"
	"github.com/yanqian/exoplanet-classifier/pkg/logger"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	jsonOutput bool
	modeFlag   string
	baseURL    string
	timeout    time.Duration

	cfg    *config.Config
	appLog *slog.Logger
	client *backend.Client
)

// offlineAnnotation marks commands that never talk to the backend.
const offlineAnnotation = "offline"

var rootCmd = &cobra.Command{
	Use:   "exoctl",
	Short: "Operate the exoplanet classifier backend",
	Long: `exoctl submits planets to the remote exoplanet classifier, runs CSV
batches through the same chunked pipeline as the gateway, and checks the
backend's health and readiness.

Configuration is read the same way the gateway reads it: .env, then
configs/config.yaml (or CONFIG_PATH), then environment variables.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		appLog = newLogger(cmd.ErrOrStderr())

		if cmd.Annotations[offlineAnnotation] == "true" {
			return nil
		}
		return initClient()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log backend traffic to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print raw JSON instead of a summary")
	rootCmd.PersistentFlags().StringVar(&modeFlag, "mode", "", "transport mode override (dev, relay, direct)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "backend base URL override for direct mode")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "per request timeout override")

	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(warmupCmd)
	rootCmd.AddCommand(modelInfoCmd)
}

func newLogger(w io.Writer) *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	level := cfg.Log.Level
	if level == "" {
		level = "debug"
	}
	return logger.NewWithWriters(w, io.Discard, level)
}

func initClient() error {
	bc := backend.Config{
		Mode:          backend.Mode(cfg.Backend.Mode),
		BaseURL:       cfg.Backend.BaseURL,
		DevProxyURL:   cfg.Backend.DevProxyURL,
		RelayURL:      cfg.Backend.RelayURL,
		Timeout:       cfg.Backend.Timeout,
		WarmUpTimeout: cfg.Backend.WarmUpTimeout,
		Breaker: backend.BreakerConfig{
			MaxRequests:         cfg.Backend.Breaker.MaxRequests,
			Interval:            cfg.Backend.Breaker.Interval,
			OpenTimeout:         cfg.Backend.Breaker.OpenTimeout,
			ConsecutiveFailures: cfg.Backend.Breaker.ConsecutiveFailures,
		},
	}
	if modeFlag != "" {
		bc.Mode = backend.Mode(modeFlag)
	}
	if baseURL != "" {
		bc.BaseURL = baseURL
	}
	if timeout > 0 {
		bc.Timeout = timeout
	}

	transport, err := backend.NewTransport(bc)
	if err != nil {
		return err
	}
	client = backend.NewClient(bc, transport, appLog)
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
