package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// refreshCmd represents the refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the source now and update the cache",
	Long: `Refresh bypasses every cache and fetches the source. When the fetch fails
the cached copy is kept and reported as such.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		res, err := a.load(ctx, true)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(out, res)
		}
		fmt.Fprintf(out, "✓ %s\n", describeLoad(res))
		if res.Warning != "" {
			fmt.Fprintf(out, "  warning: %s\n", res.Warning)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
	refreshCmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
}
