package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jduncan-rva/skill-sync/internal/skillsync/domain"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/session"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/target"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	listStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(lipgloss.Color("238")).
			PaddingRight(2)

	detailsStyle = lipgloss.NewStyle().PaddingLeft(2)

	itemStyle         = lipgloss.NewStyle().PaddingLeft(2)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("170"))

	statusPendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	statusRunningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	statusSuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	statusFailStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	headingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			MarginBottom(1)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingTop(1)
)

func (m Model) View() string {
	var body string
	switch m.session.Stage() {
	case session.StageLoading:
		body = fmt.Sprintf("%s Retrieving skills from %s", m.spinner.View(), m.services.Request.Locator)
	case session.StageSelectBundles:
		body = m.viewSelectBundles()
	case session.StageSelectTarget:
		body = m.viewSelectTarget()
	case session.StagePlanPreview:
		body = m.viewPlan()
	case session.StageConfirmOverwrite:
		body = m.viewConfirm()
	case session.StageExecuting:
		body = m.viewExecution()
	case session.StageSummary:
		body = m.viewSummary()
	case session.StageFatal:
		body = statusFailStyle.Render("Error: " + m.session.Err().Error())
	}

	title := titleStyle.Render("Skill Sync")
	footer := footerStyle.Render(m.help.View(m.helpKeys()))
	return lipgloss.JoinVertical(lipgloss.Left, title, "", body, footer)
}

// helpKeys lists the bindings honored in the current stage.
func (m Model) helpKeys() stageHelp {
	k := m.keys
	switch m.session.Stage() {
	case session.StageSelectBundles:
		return stageHelp{k.Up, k.Down, k.Toggle, k.ToggleAll, k.Confirm, k.Quit}
	case session.StageSelectTarget:
		if m.editing {
			return stageHelp{k.Confirm, key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel edit"))}
		}
		return stageHelp{k.Up, k.Down, k.Confirm, k.Back, k.Quit}
	case session.StagePlanPreview:
		if m.session.AcceptsInput() {
			return stageHelp{k.Confirm, k.Back, k.Quit}
		}
	case session.StageConfirmOverwrite:
		return stageHelp{k.Approve, k.Skip, k.ApproveAll, k.Quit}
	case session.StageSummary, session.StageFatal:
		return stageHelp{k.Confirm, k.Quit}
	}
	return stageHelp{k.Cancel}
}

func (m Model) viewSelectBundles() string {
	sel := m.session.Selection()

	var list strings.Builder
	for i, b := range sel.Bundles {
		cursor := " "
		style := itemStyle
		if i == m.bundleCursor {
			cursor = ">"
			style = selectedItemStyle
		}
		check := "[ ]"
		if sel.IsSelected(b.ID) {
			check = "[x]"
		}
		row := fmt.Sprintf("%s %s %s", cursor, check, b.ID)
		if b.IsSystem {
			row += statusPendingStyle.Render(" (system)")
		}
		list.WriteString(style.Render(row) + "\n")
	}

	var details strings.Builder
	if m.bundleCursor < len(sel.Bundles) {
		b := sel.Bundles[m.bundleCursor]
		fmt.Fprintf(&details, "Name: %s\n", b.DisplayName)
		if b.Description != "" {
			fmt.Fprintf(&details, "Description: %s\n", b.Description)
		}
		fmt.Fprintf(&details, "Source: %s\n", b.SourceDir)
	}

	heading := headingStyle.Render(fmt.Sprintf("Select skills (%d of %d selected)", sel.Count(), len(sel.Bundles)))
	return lipgloss.JoinVertical(lipgloss.Left, heading,
		lipgloss.JoinHorizontal(lipgloss.Top, listStyle.Render(list.String()), detailsStyle.Render(details.String())))
}

func (m Model) viewSelectTarget() string {
	var b strings.Builder
	b.WriteString(headingStyle.Render(fmt.Sprintf("Install %d skills to", m.session.Selection().Count())) + "\n")
	for i, c := range m.choices {
		cursor := " "
		style := itemStyle
		if i == m.targetCursor {
			cursor = ">"
			style = selectedItemStyle
		}
		where := ""
		if c.Target.Kind != domain.TargetCustom {
			if path, err := target.Resolve(c.Target, m.services.Env); err == nil {
				where = statusPendingStyle.Render(" " + path)
			} else {
				where = statusFailStyle.Render(" unavailable")
			}
		}
		b.WriteString(style.Render(fmt.Sprintf("%s %s", cursor, c.Label)) + where + "\n")
	}
	if m.editing {
		b.WriteString("\n" + m.input.View() + "\n")
	}
	return b.String()
}

func (m Model) viewPlan() string {
	p := m.session.Preview()
	if p.Pending {
		return fmt.Sprintf("%s Building plan for %s", m.spinner.View(), p.Target)
	}

	var b strings.Builder
	replacements := 0
	b.WriteString(headingStyle.Render("Plan for "+p.DestRoot) + "\n")
	for _, item := range p.Plan {
		label := statusSuccessStyle.Render("create ")
		if item.Action == domain.ActionReplace {
			label = statusRunningStyle.Render("replace")
			replacements++
		}
		b.WriteString(itemStyle.Render(fmt.Sprintf("%s %s", label, item.BundleID)) + "\n")
	}
	fmt.Fprintf(&b, "\n%d new, %d replacements", len(p.Plan)-replacements, replacements)
	if replacements > 0 && m.session.Interactive() {
		b.WriteString(" (you will be asked about each)")
	}
	return b.String()
}

func (m Model) viewConfirm() string {
	c := m.session.Confirmation()
	item, ok := c.Current()
	if !ok {
		return ""
	}
	heading := headingStyle.Render(fmt.Sprintf("Replace existing skill (%d of %d)", c.Cursor+1, len(c.Queue)))
	return fmt.Sprintf("%s\n%s\n\n%s\n%s",
		heading,
		statusRunningStyle.Render(item.BundleID),
		"Destination: "+item.DestDir,
		statusPendingStyle.Render("Its current contents will be discarded."))
}

func (m Model) viewExecution() string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("Syncing") + "\n")
	exec := m.session.Execution()
	for _, e := range exec.Log {
		b.WriteString(itemStyle.Render(entryLine(e)) + "\n")
	}
	if exec.Current != nil {
		b.WriteString(itemStyle.Render(fmt.Sprintf("%s %s", m.spinner.View(), exec.Current.BundleID)) + "\n")
	}
	return b.String()
}

func (m Model) viewSummary() string {
	var b strings.Builder
	sum := m.session.Summary()
	b.WriteString(headingStyle.Render("Done") + "\n")
	for _, e := range m.session.Execution().Log {
		b.WriteString(itemStyle.Render(entryLine(e)) + "\n")
	}
	fmt.Fprintf(&b, "\nDestination: %s\nCreated: %d | Replaced: %d | Skipped: %d | Failed: %d | Selected: %d",
		sum.DestinationRoot, sum.Created, sum.Replaced, sum.Skipped, sum.Failed, sum.TotalSelected)
	return b.String()
}

func entryLine(e domain.ExecutionEntry) string {
	status := string(e.Status)
	switch e.Status {
	case domain.StatusCreated, domain.StatusReplaced:
		return fmt.Sprintf("%s %s", statusSuccessStyle.Render(status), e.BundleID)
	case domain.StatusFailed:
		return fmt.Sprintf("%s %s: %s", statusFailStyle.Render(status), e.BundleID, e.Error)
	}
	return fmt.Sprintf("%s %s", statusPendingStyle.Render(status), e.BundleID)
}
