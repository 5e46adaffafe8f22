package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/tabfind/internal/extract"
	"github.com/ppiankov/tabfind/internal/model"
)

var (
	filterArgs  []string
	page        int
	pageSize    int
	jsonOutput  bool
	forceFetch  bool
	loadTimeout time.Duration
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search [terms...]",
	Short: "Search records and narrow them with filters",
	Long: `Search matches every term against all selected columns, ignoring case
and accents. Filters select an exact value for a column; run 'tabfind filters'
to see which columns and values are available.

Example:
  tabfind search
  tabfind search violin norte
  tabfind search --filter Sede=Norte --filter Instrumento=Piano
  tabfind search maria --page 2 --page-size 10 --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringArrayVarP(&filterArgs, "filter", "f", nil, "filter as column=value (repeatable)")
	searchCmd.Flags().IntVar(&page, "page", 1, "page number")
	searchCmd.Flags().IntVar(&pageSize, "page-size", 0, "records per page (default from query.page_size)")
	searchCmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
	searchCmd.Flags().BoolVar(&forceFetch, "refresh", false, "fetch the source even if the cache is fresh")
	searchCmd.Flags().DurationVar(&loadTimeout, "timeout", 2*time.Minute, "timeout for loading the source")
}

// parseFilters reads column=value pairs
func parseFilters(args []string) (model.FilterState, error) {
	filters := model.FilterState{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid filter %q: want column=value", arg)
		}
		filters.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	return filters, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	filters, err := parseFilters(filterArgs)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	res, err := a.load(ctx, forceFetch)
	if err != nil {
		return err
	}

	ds := a.pipeline.Dataset()
	for key := range filters {
		if !hasFilter(ds.Filters, key) {
			a.logger.Warn("ignoring unknown filter", "column", key)
		}
	}

	result := a.pipeline.Query(ds, model.QueryState{
		Search:   strings.Join(args, " "),
		Filters:  filters,
		Page:     page,
		PageSize: pageSize,
	})

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, result)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "%s\n", describeLoad(res))
	}

	if result.Total == 0 {
		fmt.Fprintln(out, "No matching records.")
		return nil
	}

	fmt.Fprintf(out, "%d matches, page %d of %d\n\n", result.Total, result.Page, result.TotalPages)
	for _, rec := range result.Records {
		chips := extract.Chips(rec, ds.Headers)
		title := extract.Title(rec, ds.Headers)
		if len(chips) > 0 && chips[0] == title {
			chips = chips[1:]
		}
		fmt.Fprintf(out, "%4d  %s\n", rec.Position, title)
		if len(chips) > 0 {
			fmt.Fprintf(out, "      %s\n", strings.Join(chips, " · "))
		}
	}
	if result.Page < result.TotalPages {
		fmt.Fprintf(out, "\nNext page: --page %d\n", result.Page+1)
	}
	return nil
}

func hasFilter(defs []model.FilterDefinition, key string) bool {
	for _, d := range defs {
		if d.Key == key {
			return true
		}
	}
	return false
}
