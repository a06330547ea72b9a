package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/credvault/pkg/audit"
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Read the audit trail",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'audit' requires a subcommand (list)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit entries, newest first",
	Long: `List audit entries, newest first.

Example:
  vaultctl audit list --action DELETE --since 24h
  vaultctl audit list --actor alice --output json`,
	Run: func(cmd *cobra.Command, args []string) {
		f := cmd.Flags()
		filter := audit.Filter{}
		filter.Actor, _ = f.GetString("actor")
		filter.Action, _ = f.GetString("action")
		filter.Search, _ = f.GetString("query")
		filter.SortOrder, _ = f.GetString("order")
		filter.Page, _ = f.GetInt("page")
		filter.PageSize, _ = f.GetInt("page-size")
		if since, _ := f.GetDuration("since"); since > 0 {
			from := time.Now().Add(-since)
			filter.From = &from
		}
		if filter.Action != "" {
			if _, err := audit.ActionString(filter.Action); err != nil {
				fail("Unknown action %q", filter.Action)
			}
		}
		output, _ := f.GetString("output")

		rt, err := newRuntime()
		if err != nil {
			fail("Failed to list audit entries: %v", err)
		}
		page, err := rt.recorder.Query(context.Background(), filter)
		if err != nil {
			fail("Failed to list audit entries: %v", err)
		}

		if output == "json" {
			out, _ := json.MarshalIndent(page, "", "  ")
			fmt.Println(string(out))
			return
		}
		printAuditPage(page)
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditListCmd)

	f := auditListCmd.Flags()
	f.String("actor", "", "filter by actor name")
	f.String("action", "", "filter by action (CREATE, VIEW, UPDATE, DELETE, SHARE, POLICY_LOAD, SETTINGS_UPDATE)")
	f.StringP("query", "q", "", "search credential name and change")
	f.Duration("since", 0, "only entries newer than this duration")
	f.String("order", "desc", "sort order by timestamp (asc or desc)")
	f.Int("page", 1, "page number")
	f.Int("page-size", 0, "entries per page (default from configuration)")
	f.StringP("output", "o", "text", "Output format (text or json)")
}

func printAuditPage(page audit.Page) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tACTION\tACTOR\tCREDENTIAL\tSOURCE\tCHANGE")
	for _, row := range page.Rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			row.Timestamp.Format(time.RFC3339),
			row.Action,
			row.ActorName,
			row.CredentialName,
			row.SourceAddress,
			row.Summary,
		)
	}
	_ = w.Flush()
	fmt.Printf("page %d of %d (%d entries)\n", page.Page, page.TotalPages, page.TotalCount)
}
