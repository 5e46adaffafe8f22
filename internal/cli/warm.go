package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/tabfind/internal/worker"
)

var (
	concurrency int
	warmTimeout time.Duration
)

// warmCmd represents the warm command
var warmCmd = &cobra.Command{
	Use:   "warm <file>",
	Short: "Refresh the cache of several sources in parallel",
	Long: `Warm fetches every source listed in a file (one URL per line, '#' for
comments) and stores each one in the cache, so later commands that point at
those sources start from a fresh local copy.

Example:
  tabfind warm sources.txt
  tabfind warm sources.txt --concurrency 4 --timeout 5m`,
	Args: cobra.ExactArgs(1),
	RunE: runWarm,
}

func init() {
	rootCmd.AddCommand(warmCmd)

	warmCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	warmCmd.Flags().DurationVar(&warmTimeout, "timeout", 10*time.Minute, "total timeout for warming")
}

func runWarm(cmd *cobra.Command, args []string) error {
	file := args[0]

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	if a.pipeline.Store() == nil {
		return fmt.Errorf("cache is disabled; nothing to warm")
	}

	ctx, cancel := context.WithTimeout(context.Background(), warmTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "Warming sources from %s with %d workers\n\n", file, concurrency)

	warmer := worker.NewWarmer(a.pipeline, concurrency)
	results, err := warmer.WarmFile(ctx, file)
	if err != nil {
		return fmt.Errorf("warm: %w", err)
	}

	out := cmd.OutOrStdout()
	failures := 0
	for _, result := range results {
		if result.Error != nil {
			failures++
			fmt.Fprintf(out, "✗ %s: %v\n", result.URL, explain(result.Error))
			continue
		}
		fmt.Fprintf(out, "✓ %s: %s\n", result.URL, describeLoad(result.Load))
		if result.Load.Warning != "" {
			fmt.Fprintf(out, "  warning: %s\n", result.Load.Warning)
		}
	}

	fmt.Fprintf(out, "\n%d sources, %d warmed, %d failed\n", len(results), len(results)-failures, failures)
	if failures > 0 {
		return fmt.Errorf("%d of %d sources failed", failures, len(results))
	}
	return nil
}
