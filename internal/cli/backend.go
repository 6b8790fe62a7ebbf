package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Query the backend health endpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		health, err := client.Health(context.Background())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), health)
	},
}

var warmupCmd = &cobra.Command{
	Use:   "warmup",
	Short: "Wake the backend and report its readiness",
	Long: `Wake the backend and report its readiness.

The hosted backend sleeps when idle and can take tens of seconds to answer
the first request. warmup probes it once within the configured warm-up
timeout and exits non-zero if it is still offline.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ready := client.WarmUp(context.Background())
		fmt.Fprintf(cmd.OutOrStdout(), "Backend %s\n", client.Readiness())
		if !ready {
			return fmt.Errorf("backend is not ready")
		}
		return nil
	},
}

var modelInfoCmd = &cobra.Command{
	Use:   "model-info",
	Short: "Show the backend model description",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := client.ModelInfo(context.Background())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), info)
	},
}
