package main

import (
	"context"

	"github.com/agentuity/go-caselaw/caselaw"
	"github.com/agentuity/go-caselaw/tui"
	"github.com/spf13/cobra"
)

func newFacetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "facets",
		Short: "List the values available for filtering",
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			facets, err := a.store.FetchAvailableFilters(ctx)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, facets)
			}
			showFacets(facets)
			return nil
		}),
	}
}

func showFacets(facets caselaw.Facets) {
	groups := []struct {
		name   string
		values []string
	}{
		{"Case types", facets.CaseTypes},
		{"Court divisions", facets.CourtDivisions},
		{"Languages", facets.Languages},
		{"Types of action", facets.ActionTypes},
		{"Tags", facets.Tags},
	}
	for _, g := range groups {
		if len(g.values) == 0 {
			continue
		}
		rows := make([][]string, len(g.values))
		for i, v := range g.values {
			rows[i] = []string{v}
		}
		tui.Table([]string{g.name}, rows)
	}
}

func newSyncCmd() *cobra.Command {
	var noWait bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Ask the server to pull fresh data from the court's registry",
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			if _, err := a.store.SyncFromSource(ctx); err != nil {
				return err
			}
			showNotification(a.store)
			if noWait {
				return nil
			}
			err := tui.ShowSpinner(ctx, "Waiting for the synchronisation", func(ctx context.Context) error {
				a.store.Wait()
				return nil
			})
			if err != nil {
				return err
			}
			state := a.store.State()
			if state.Error != "" {
				tui.ShowError("%s", state.Error)
				return nil
			}
			tui.ShowSuccess("%d cases loaded", len(state.AllCases))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "return once the server accepted the request")
	return cmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the API is reachable",
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			status, err := a.client.Health(ctx)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cmd, map[string]string{"status": status})
			}
			tui.ShowSuccess("%s is %s", a.cfg.API.URL, status)
			return nil
		}),
	}
}
