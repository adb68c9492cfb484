package main

import (
	"encoding/json"
	"strings"

	"github.com/agentuity/go-caselaw/caselaw"
	"github.com/agentuity/go-caselaw/store"
	"github.com/agentuity/go-caselaw/tui"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

// summaryWidth gives the summary column what the other columns leave.
func summaryWidth() int {
	return min(max(tui.Width()-100, 20), 80)
}

func jsonOutput(cmd *cobra.Command) bool {
	val, _ := cmd.Flags().GetBool("json")
	return val
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "failed to encode output")
}

func caseRows(cases []caselaw.Case) [][]string {
	rows := make([][]string, len(cases))
	width := summaryWidth()
	for i, c := range cases {
		rows[i] = []string{
			c.ID,
			tui.OrDash(c.Date),
			tui.OrDash(c.Type),
			tui.OrDash(c.CourtDivision),
			tui.OrDash(c.LanguageOfProceedings),
			tui.OrDash(c.Reference),
			tui.MaxWidth(tui.OrDash(c.Summary), width),
		}
	}
	return rows
}

func showCases(cases []caselaw.Case) {
	if len(cases) == 0 {
		tui.ShowWarning("No cases match")
		return
	}
	tui.Table([]string{"ID", "Date", "Type", "Division", "Lang", "Reference", "Summary"}, caseRows(cases))
}

func showCase(c caselaw.Case) {
	rows := [][]string{
		{"ID", c.ID},
		{"Date", tui.OrDash(c.Date)},
		{"Type", tui.OrDash(c.Type)},
		{"Reference", tui.OrDash(c.Reference)},
		{"Registry number", tui.OrDash(c.RegistryNumber)},
		{"Court division", tui.OrDash(c.CourtDivision)},
		{"Type of action", tui.OrDash(c.TypeOfAction)},
		{"Language", tui.OrDash(c.LanguageOfProceedings)},
		{"Parties", tui.OrDash(strings.Join(c.Parties, ", "))},
		{"Patent", tui.OrDash(c.Patent)},
		{"Legal norms", tui.OrDash(strings.Join(c.LegalNorms, ", "))},
		{"Tags", tui.OrDash(strings.Join(c.Tags, ", "))},
		{"Summary", tui.OrDash(c.Summary)},
	}
	for _, d := range c.Documents {
		rows = append(rows, []string{"Document", d.Title + " " + tui.Link("%s", d.URL)})
	}
	tui.Table([]string{"Field", "Value"}, rows)
}

// showNotification prints the store's current notification, if any.
func showNotification(s *store.Store) {
	n := s.State().Notification
	if n == nil {
		return
	}
	switch n.Type {
	case store.NotificationSuccess:
		tui.ShowSuccess("%s", n.Message)
	case store.NotificationError:
		tui.ShowError("%s", n.Message)
	case store.NotificationWarning:
		tui.ShowWarning("%s", n.Message)
	default:
		tui.ShowInfo("%s", n.Message)
	}
}
