package main

import (
	"context"
	"fmt"

	"github.com/agentuity/go-caselaw/caselaw"
	"github.com/agentuity/go-caselaw/tui"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

func addFilterFlags(cmd *cobra.Command, criteria *caselaw.FilterCriteria) {
	cmd.Flags().StringVarP(&criteria.SearchTerm, "search", "s", "", "free text search")
	cmd.Flags().StringVar(&criteria.DateFrom, "from", "", "earliest date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&criteria.DateTo, "to", "", "latest date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&criteria.CaseType, "type", "", "case type, e.g. Order or Decision")
	cmd.Flags().StringVar(&criteria.CourtDivision, "division", "", "court division")
	cmd.Flags().StringVar(&criteria.Language, "language", "", "language of proceedings")
}

func validateDates(criteria caselaw.FilterCriteria) error {
	for _, date := range []string{criteria.DateFrom, criteria.DateTo} {
		if date == "" {
			continue
		}
		if _, ok := caselaw.ParseDate(date); !ok {
			return errors.Newf("invalid date %q, expected YYYY-MM-DD", date)
		}
	}
	return nil
}

func newListCmd() *cobra.Command {
	var (
		criteria caselaw.FilterCriteria
		page     int
		perPage  int
		server   bool
		refresh  bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cases matching the filters",
		Example: `  caselaw list --type Order --from 2024-01-01
  caselaw list --search "provisional measures" --page 2
  caselaw list --server --division "Munich LD"`,
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			if err := validateDates(criteria); err != nil {
				return err
			}
			a.store.SetPagination(0, perPage)
			a.store.SetFilter(criteria)

			if server {
				cases, fromCache, err := a.store.LoadPage(ctx, page)
				if err != nil {
					return err
				}
				a.logger.Debug("page %d served from cache: %v", page, fromCache)
				if jsonOutput(cmd) {
					return printJSON(cmd, cases)
				}
				showCases(cases)
				return nil
			}

			if err := a.load(ctx, refresh); err != nil {
				return err
			}
			a.store.SetPage(page)
			cases := a.store.PaginatedCases()
			if jsonOutput(cmd) {
				return printJSON(cmd, cases)
			}
			showCases(cases)
			p := a.store.State().Pagination
			fmt.Fprintln(tui.Output, tui.Muted(fmt.Sprintf("page %d of %d, %d matching cases", p.CurrentPage, p.Pages(), p.TotalCount)))
			return nil
		}),
	}
	addFilterFlags(cmd, &criteria)
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page to show")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "cases per page (defaults to the config)")
	cmd.Flags().BoolVar(&server, "server", false, "filter and page on the server instead of loading every case")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached data")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one case",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			c, err := a.client.GetCase(ctx, args[0])
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, c)
			}
			showCase(c)
			return nil
		}),
	}
}

func newCountCmd() *cobra.Command {
	var criteria caselaw.FilterCriteria
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count the cases matching the filters on the server",
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			if err := validateDates(criteria); err != nil {
				return err
			}
			n, err := a.client.CountCases(ctx, criteria.Params())
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, map[string]int{"count": n})
			}
			fmt.Fprintln(tui.Output, n)
			return nil
		}),
	}
	addFilterFlags(cmd, &criteria)
	return cmd
}

func newUpdateCmd() *cobra.Command {
	var (
		edit caselaw.Case
		tags []string
		yes  bool
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a case",
		Example: `  caselaw update 42 --summary "Revocation action dismissed"
  caselaw update 42 --tags SEP,FRAND --yes`,
		Args: cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			id := args[0]
			record, err := a.client.GetCase(ctx, id)
			if err != nil {
				return err
			}
			changed := applyEdits(cmd, &record, edit, tags)
			if changed == 0 {
				tui.ShowWarning("Nothing to update")
				return nil
			}
			if !yes && !tui.Ask(a.logger, fmt.Sprintf("Update %d field(s) of case %s?", changed, id), true) {
				return nil
			}
			updated, err := a.store.UpdateRecord(ctx, id, record)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, updated)
			}
			tui.ShowSuccess("Updated case %s", updated.ID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&edit.Date, "date", "", "decision date")
	cmd.Flags().StringVar(&edit.Type, "type", "", "case type")
	cmd.Flags().StringVar(&edit.CourtDivision, "division", "", "court division")
	cmd.Flags().StringVar(&edit.LanguageOfProceedings, "language", "", "language of proceedings")
	cmd.Flags().StringVar(&edit.Summary, "summary", "", "summary")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "comma separated tags, replacing the current ones")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// applyEdits copies the fields given on the command line into record and
// returns how many were given.
func applyEdits(cmd *cobra.Command, record *caselaw.Case, edit caselaw.Case, tags []string) int {
	var changed int
	set := func(flag string, dst *string, val string) {
		if cmd.Flags().Changed(flag) {
			*dst = val
			changed++
		}
	}
	set("date", &record.Date, edit.Date)
	set("type", &record.Type, edit.Type)
	set("division", &record.CourtDivision, edit.CourtDivision)
	set("language", &record.LanguageOfProceedings, edit.LanguageOfProceedings)
	set("summary", &record.Summary, edit.Summary)
	if cmd.Flags().Changed("tags") {
		record.Tags = tags
		changed++
	}
	return changed
}
