package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/agentuity/go-caselaw/caselaw"
	"github.com/agentuity/go-caselaw/tui"
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise the case database",
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			if err := a.load(ctx, refresh); err != nil {
				return err
			}
			state := a.store.State()
			if jsonOutput(cmd) {
				return printJSON(cmd, state.Stats)
			}
			showStats(state.Stats)
			if state.LastSync != nil {
				fmt.Fprintln(tui.Output, tui.Muted("loaded "+state.LastSync.Format("2006-01-02 15:04:05")))
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached data")
	return cmd
}

func showStats(stats caselaw.Stats) {
	tui.ShowBanner("Case statistics", fmt.Sprintf("%d cases", stats.TotalCases))
	if stats.TotalCases == 0 {
		return
	}
	tui.Table([]string{"Type", "Cases"}, tui.CountRows(stats.ByType))
	tui.Table([]string{"Division", "Cases"}, tui.CountRows(stats.ByDivision))
	tui.Table([]string{"Language", "Cases"}, tui.CountRows(stats.ByLanguage))
	tui.Table([]string{"Month", "Cases"}, monthRows(stats.ByMonth))
	fmt.Fprintln(tui.Output, tui.Title("Most recent"))
	showCases(stats.Recent)
}

// monthRows lists months in calendar order.
func monthRows(byMonth map[string]int) [][]string {
	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)
	rows := make([][]string, len(months))
	for i, m := range months {
		rows[i] = []string{m, fmt.Sprint(byMonth[m])}
	}
	return rows
}
