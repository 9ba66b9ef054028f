package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"exilence-cli/internal/core/stashtab"
	"exilence-cli/internal/settings"
)

func newTabsCommand(a *app) *cobra.Command {
	tabsCmd := &cobra.Command{
		Use:   "tabs",
		Short: "List and select stash tabs without the interactive table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var filter string
	list := &cobra.Command{
		Use:   "list",
		Short: "Print stash tabs with their selection marks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := a.loadWorkflow(cmd.Context())
			if err != nil {
				return err
			}
			wf.SetFilter(filter)
			return renderTabs(a.stdout, wf)
		},
	}
	list.Flags().StringVar(&filter, "filter", "", "only show tabs matching this text")

	var yes, all bool
	toggle := &cobra.Command{
		Use:   "toggle [position...]",
		Short: "Toggle stash tabs by position",
		Long: `Toggle stash tabs by position. Selecting a map tab needs --yes,
since it replaces the map tab selected before. With --all the visible
tabs are selected up to the limit, or cleared when all are selected.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("no positions given")
			}
			wf, err := a.loadWorkflow(cmd.Context())
			if err != nil {
				return err
			}
			if all {
				wf.SetFilter(filter)
				if _, err := wf.ToggleAll(); err != nil {
					return err
				}
			} else {
				rows, err := rowsAt(wf, args)
				if err != nil {
					return err
				}
				if err := wf.ToggleMany(rows); err != nil {
					return err
				}
			}
			if _, ok := wf.Pending(); ok {
				if _, err := wf.Confirm(yes); err != nil {
					return err
				}
			}
			wf.SetFilter("")
			return renderTabs(a.stdout, wf)
		},
	}
	toggle.Flags().BoolVarP(&yes, "yes", "y", false, "confirm selecting a map tab")
	toggle.Flags().BoolVar(&all, "all", false, "toggle all tabs matching --filter")
	toggle.Flags().StringVar(&filter, "filter", "", "restrict --all to tabs matching this text")

	tabsCmd.AddCommand(list, toggle)
	return tabsCmd
}

// loadWorkflow fetches the tab list and restores the saved selection.
func (a *app) loadWorkflow(ctx context.Context) (*stashtab.Workflow, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	stash, err := a.newClient().GetStashTabs(ctx, a.cfg.Account, a.cfg.League)
	if err != nil {
		return nil, fmt.Errorf("load stash tabs: %w", err)
	}
	scope := settings.Scope{Account: a.cfg.Account, League: a.cfg.League}
	wf := stashtab.New(scope, store, &cliPresenter{w: a.stderr}, stashtab.WithFuzzyFallback(a.cfg.FuzzyFallback))
	if _, _, err := wf.Load(stash.Tabs, store.Selection(scope)); err != nil {
		return nil, fmt.Errorf("save selection: %w", err)
	}
	return wf, nil
}

func rowsAt(wf *stashtab.Workflow, args []string) ([]stashtab.Row, error) {
	rows := make([]stashtab.Row, 0, len(args))
	for _, s := range args {
		pos, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("invalid position %q", s)
		}
		r, ok := wf.Row(pos)
		if !ok {
			return nil, fmt.Errorf("no stash tab at position %d", pos)
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func renderTabs(w io.Writer, wf *stashtab.Workflow) error {
	var b strings.Builder
	scope := wf.Scope()
	b.WriteString(titleStyle.Render("Stash tabs") + subtitleStyle.Render(fmt.Sprintf(" %s @ %s", scope.Account, scope.League)) + "\n")
	visible := wf.Visible()
	if len(visible) == 0 {
		b.WriteString(subtitleStyle.Render("no stash tabs match") + "\n")
	}
	for _, r := range visible {
		mark := "[ ]"
		if wf.IsSelected(r) {
			mark = successStyle.Render("[x]")
		}
		line := fmt.Sprintf("%s %3d  %s", mark, r.Position, r.Name)
		if r.IsMapTab {
			line += " " + warningStyle.Render("(map)")
		}
		b.WriteString(line + "\n")
	}
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("selected %d/%d", len(wf.Selected()), stashtab.MaxSelected)) + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// cliPresenter reports workflow interruptions on stderr. Map tab
// confirmations are answered by the --yes flag afterwards.
type cliPresenter struct {
	w io.Writer
}

func (p *cliPresenter) ConfirmMapTab(r stashtab.Row) {
	fmt.Fprintf(p.w, "%s %q is a map tab; pass --yes to select it\n", warningStyle.Render("confirm:"), r.Name)
}

func (p *cliPresenter) Alert(msg string) {
	fmt.Fprintln(p.w, warningStyle.Render("warning:")+" "+msg)
}
