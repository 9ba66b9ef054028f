package ui

import (
	"fmt"
	"slices"
	"strings"

	"exilence-cli/internal/core/release"
	"exilence-cli/internal/core/stashtab"
)

func (m Model) View() string {
	if m.state == stateQuit {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Exilence · Stash tabs"))
	if scope := m.scopeLabel(); scope != "" {
		b.WriteString("  " + subtitleStyle.Render(scope))
	}
	b.WriteString("\n")
	if n := m.releaseNotice(); n != "" {
		b.WriteString(n + "\n")
	}
	b.WriteString(dividerStyle.Render(strings.Repeat("─", max(10, m.width-2))))
	b.WriteString("\n\n")

	switch m.state {
	case stateSetup:
		b.WriteString(m.viewSetup())
	case stateLoading:
		b.WriteString(fmt.Sprintf("%s %s\n\n", m.spinner.View(), m.statusMsg))
		b.WriteString(renderFooter("", "q quit"))
	case stateBrowse:
		b.WriteString(m.viewBrowse())
	case stateConfirmMapTab:
		b.WriteString(m.viewConfirm())
	}
	return b.String()
}

func (m Model) scopeLabel() string {
	if m.workflow == nil {
		return ""
	}
	s := m.workflow.Scope()
	return fmt.Sprintf("%s @ %s", s.Account, s.League)
}

func (m Model) releaseNotice() string {
	if m.checker == nil || !slices.Contains(m.checker.Notifications(), release.NotificationNewVersion) {
		return ""
	}
	text := fmt.Sprintf("New version available: %s", m.checker.Latest())
	if m.lastRel.URL != "" {
		text += "  " + m.lastRel.URL
	}
	return noticeStyle.Render(text) + " " + helpStyle.Render("x dismiss")
}

func (m Model) viewSetup() string {
	var b strings.Builder
	b.WriteString("Which stash should be tracked?\n\n")
	labels := []string{"Account", "League"}
	inputs := []string{m.setup.account.View(), m.setup.league.View()}
	for i := range labels {
		label := fmt.Sprintf("%-8s", labels[i])
		if i == m.setup.focus {
			label = focusStyle.Render(label)
		}
		b.WriteString(label + " " + inputs[i] + "\n")
	}
	b.WriteString("\n")
	if m.setup.err != nil {
		b.WriteString(errorStyle.Render(m.setup.err.Error()) + "\n\n")
	}
	b.WriteString(renderFooter(m.statusMsg, "tab switch field  |  enter confirm  |  esc quit"))
	return b.String()
}

func (m Model) viewBrowse() string {
	var b strings.Builder
	if m.loadErr != nil {
		b.WriteString(errorStyle.Render("Could not load stash tabs.") + "\n\n")
	}
	if m.search.searching {
		b.WriteString("Filter: " + m.search.input.View() + "\n\n")
	} else if f := m.filterText(); f != "" {
		b.WriteString(subtleStyle.Render(fmt.Sprintf("Filter: %q", f)) + "\n\n")
	}
	b.WriteString(m.viewport.View())
	b.WriteString("\n\n")

	selected, shown, total := 0, 0, 0
	if m.workflow != nil {
		selected, shown, total = len(m.workflow.Selected()), len(m.workflow.Visible()), len(m.workflow.Rows())
	}
	counter := fmt.Sprintf("Selected %d/%d", selected, stashtab.MaxSelected)
	if selected >= stashtab.MaxSelected {
		counter = warnStyle.Render(counter)
	} else if selected > 0 {
		counter = okStyle.Render(counter)
	}
	b.WriteString(counter + subtleStyle.Render(fmt.Sprintf("  |  %d of %d tabs shown", shown, total)) + "\n")

	status := m.statusMsg
	if m.deps.Metrics != nil {
		status += "  |  " + m.deps.Metrics.Snapshot().String()
	}
	help := "j/k move  |  space toggle  |  a all/none  |  i invert shown  |  / filter  |  r reload  |  q quit"
	if m.search.searching {
		help = "type to filter  |  enter keep  |  esc clear"
	}
	b.WriteString(renderFooter(status, help))
	return b.String()
}

func (m Model) viewConfirm() string {
	name := ""
	if m.workflow != nil {
		if r, ok := m.workflow.Pending(); ok {
			name = r.Name
		}
	}
	body := fmt.Sprintf("%q is a map tab.\n\nOnly one map tab can be tracked. Selecting it\nreplaces any map tab selected before.\n\n%s",
		name, helpStyle.Render("y select  |  n cancel"))
	return dialogStyle.Render(body)
}
