package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/yanqian/exoplanet-classifier/internal/domain/batch"
)

var (
	batchStrategy   string
	batchChunkSize  int
	batchChunkDelay time.Duration
	batchOutput     string
)

var batchCmd = &cobra.Command{
	Use:   "batch <file.csv>",
	Short: "Classify every row of a CSV file",
	Long: `Classify every row of a CSV file.

Headers may use canonical names, domain abbreviations or Kepler column names.
Rows are sent in chunks with a pause between chunks; a failed row is reported
in place without stopping the batch.

Examples:
  exoctl batch planets.csv
  exoctl batch planets.csv --chunk-size 5 --chunk-delay 1s -o predictions.csv
  exoctl batch koi.csv --strategy upload`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchStrategy, "strategy", "", "per_row or upload (defaults to config)")
	batchCmd.Flags().IntVar(&batchChunkSize, "chunk-size", 0, "rows per chunk (defaults to config)")
	batchCmd.Flags().DurationVar(&batchChunkDelay, "chunk-delay", 0, "pause between chunks (defaults to config)")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "write the results as CSV to this file")
}

func runBatch(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	bc := batch.Config{
		Strategy:     batch.Strategy(cfg.Batch.Strategy),
		MaxFileBytes: cfg.Batch.MaxFileBytes,
		Runner: batch.RunnerConfig{
			ChunkSize:  cfg.Batch.ChunkSize,
			ChunkDelay: cfg.Batch.ChunkDelay,
		},
	}
	if batchStrategy != "" {
		bc.Strategy = batch.Strategy(batchStrategy)
	}
	if batchChunkSize > 0 {
		bc.Runner.ChunkSize = batchChunkSize
	}
	if batchChunkDelay > 0 {
		bc.Runner.ChunkDelay = batchChunkDelay
	}

	svc := batch.NewSyncService(bc, client, client, appLog)

	ctx := context.Background()
	if !client.WarmUp(ctx) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: backend did not answer the warm-up probe, continuing anyway")
	}

	upload := batch.Upload{
		Filename: filepath.Base(path),
		MimeType: mime.TypeByExtension(filepath.Ext(path)),
		Content:  data,
	}
	report, err := svc.Submit(ctx, upload)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		if err := printJSON(out, report); err != nil {
			return err
		}
	} else {
		s := report.Summary
		fmt.Fprintf(out, "Rows: %d  successful: %d  failed: %d\n", s.TotalRows, s.SuccessfulPredictions, s.FailedPredictions)
		for _, r := range report.Results {
			if r.Failed() {
				fmt.Fprintf(out, "  #%-4d %s: %s\n", r.ID, r.PlanetType, r.Error)
				continue
			}
			fmt.Fprintf(out, "  #%-4d %-15s %5.1f%%  %s\n", r.ID, r.PlanetType, r.Confidence, r.SizeCategory)
		}
	}

	if batchOutput != "" {
		export, err := svc.ExportResults(ctx, report.Results)
		if err != nil {
			return err
		}
		if err := writeFile(batchOutput, export.Content); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", batchOutput)
	}
	return nil
}
