package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var showCandidates bool

// filtersCmd represents the filters command
var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "List the filters derived from the current data",
	Long: `Filters are chosen automatically: columns that are filled often enough
and hold a moderate number of distinct values make the cut. Use --candidates
to see how every column scored and why the others were rejected.`,
	Args: cobra.NoArgs,
	RunE: runFilters,
}

func init() {
	rootCmd.AddCommand(filtersCmd)

	filtersCmd.Flags().BoolVar(&showCandidates, "candidates", false, "show the evaluation of every column")
	filtersCmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
}

func runFilters(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()
	if _, err := a.load(ctx, false); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ds := a.pipeline.Dataset()

	if showCandidates {
		candidates := a.pipeline.Candidates(ds)
		if jsonOutput {
			return writeJSON(out, candidates)
		}
		for _, c := range candidates {
			status := "rejected: " + c.Reason
			if c.Accepted {
				status = fmt.Sprintf("score %.2f", c.Score)
			}
			fmt.Fprintf(out, "%-30s filled %d/%d, %d values, %s\n", c.Key, c.Filled, c.Total, c.Unique, status)
		}
		return nil
	}

	if jsonOutput {
		return writeJSON(out, ds.Filters)
	}

	if len(ds.Filters) == 0 {
		fmt.Fprintln(out, "No column qualifies as a filter.")
		return nil
	}
	for _, f := range ds.Filters {
		fmt.Fprintf(out, "%s (--filter %q)\n", f.Label, f.Key+"=...")
		fmt.Fprintf(out, "  %s\n", strings.Join(f.Values, ", "))
	}
	return nil
}
