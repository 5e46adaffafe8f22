package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ppiankov/tabfind/internal/extract"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <n>",
	Short: "Show one record with its contact and summary",
	Long: `Show prints every selected column of record n (as numbered by 'search'),
the detected contact, a WhatsApp link when the contact is a phone number, and
a copyable summary.

Example:
  tabfind show 12`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
}

type recordDetail struct {
	Position int               `json:"position"`
	Title    string            `json:"title"`
	Fields   map[string]string `json:"fields"`
	Contact  string            `json:"contact,omitempty"`
	Link     string            `json:"link,omitempty"`
	Summary  string            `json:"summary"`
}

func runShow(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("record number must be an integer: %q", args[0])
	}

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

	ds := a.pipeline.Dataset()
	rec, err := ds.Record(n)
	if err != nil {
		return err
	}

	headers := ds.Headers
	resolver := a.pipeline.Resolver(ds)
	detail := recordDetail{
		Position: rec.Position,
		Title:    extract.Title(rec, headers),
		Fields:   rec.Fields,
		Contact:  resolver.ContactValue(rec),
		Link:     resolver.MessagingLink(rec),
		Summary:  resolver.Summary(rec),
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, detail)
	}

	fmt.Fprintf(out, "#%d %s\n\n", detail.Position, detail.Title)
	for _, h := range headers {
		v := rec.Get(h)
		if v == "" {
			v = "-"
		}
		fmt.Fprintf(out, "  %-28s %s\n", extract.PrettifyLabel(h)+":", v)
	}
	if detail.Contact != "" {
		fmt.Fprintf(out, "\nContact: %s\n", detail.Contact)
	}
	if detail.Link != "" {
		fmt.Fprintf(out, "WhatsApp: %s\n", detail.Link)
	}
	fmt.Fprintf(out, "\nSummary:\n%s\n", detail.Summary)
	return nil
}
