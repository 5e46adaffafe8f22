package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the cached copy of the source",
}

const cacheDisabledMessage = "Cache disabled (cache.enabled: false)"

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the cached entry for the configured source",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		out := cmd.OutOrStdout()

		store := a.pipeline.Store()
		if store == nil {
			fmt.Fprintln(out, cacheDisabledMessage)
			return nil
		}

		fmt.Fprintf(out, "Backend: %s\n", a.cfg.Cache.Backend)
		fmt.Fprintf(out, "Key:     %s\n", store.Key())
		fmt.Fprintf(out, "TTL:     %s\n", store.TTL())

		lookup, found := store.Read()
		if !found {
			fmt.Fprintln(out, "Entry:   none")
			return nil
		}
		state := "fresh"
		if lookup.Stale {
			state = "stale"
		}
		fmt.Fprintf(out, "Entry:   %d bytes, updated %s (%s ago, %s)\n",
			len(lookup.RawText), lookup.UpdatedAt.Local().Format("2006-01-02 15:04:05"), lookup.Age.Round(time.Second), state)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the cached entry for the configured source",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		out := cmd.OutOrStdout()

		store := a.pipeline.Store()
		if store == nil {
			fmt.Fprintln(out, cacheDisabledMessage)
			return nil
		}
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Cache entry %s removed\n", store.Key())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
