package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jduncan-rva/skill-sync/internal/skillsync/domain"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/session"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case CancelMsg:
		return m.dispatch(session.Cancel{})

	case eventMsg:
		if msg.event == nil {
			return m, nil
		}
		return m.dispatch(msg.event)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Cancel) {
			return m.dispatch(session.Cancel{})
		}
		if !m.session.AcceptsInput() {
			return m, nil
		}
		return m.handleKey(msg)
	}

	if m.editing {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) dispatch(ev session.Event) (tea.Model, tea.Cmd) {
	eff := m.session.Handle(ev)
	m.clampCursors()
	return m, m.perform(eff)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.session.Stage() {
	case session.StageSelectBundles:
		return m.selectBundlesKey(msg)
	case session.StageSelectTarget:
		if m.editing {
			return m.customPathKey(msg)
		}
		return m.selectTargetKey(msg)
	case session.StagePlanPreview:
		switch {
		case key.Matches(msg, m.keys.Confirm):
			return m.dispatch(session.Confirm{})
		case key.Matches(msg, m.keys.Back):
			return m.dispatch(session.Back{})
		case key.Matches(msg, m.keys.Quit):
			return m.dispatch(session.Quit{})
		}
	case session.StageConfirmOverwrite:
		switch {
		case key.Matches(msg, m.keys.Approve):
			return m.dispatch(session.Approve{})
		case key.Matches(msg, m.keys.Skip):
			return m.dispatch(session.Skip{})
		case key.Matches(msg, m.keys.ApproveAll):
			return m.dispatch(session.ApproveAll{})
		case key.Matches(msg, m.keys.Quit):
			return m.dispatch(session.Quit{})
		}
	case session.StageSummary, session.StageFatal:
		if key.Matches(msg, m.keys.Confirm, m.keys.Quit) {
			return m.dispatch(session.Acknowledge{})
		}
	}
	return m, nil
}

func (m Model) selectBundlesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	bundles := m.session.Selection().Bundles
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.bundleCursor > 0 {
			m.bundleCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.bundleCursor < len(bundles)-1 {
			m.bundleCursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		if len(bundles) > 0 {
			return m.dispatch(session.Toggle{ID: bundles[m.bundleCursor].ID})
		}
	case key.Matches(msg, m.keys.ToggleAll):
		return m.dispatch(session.ToggleAll{})
	case key.Matches(msg, m.keys.Confirm):
		return m.dispatch(session.Confirm{})
	case key.Matches(msg, m.keys.Quit):
		return m.dispatch(session.Quit{})
	}
	return m, nil
}

func (m Model) selectTargetKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.targetCursor > 0 {
			m.targetCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.targetCursor < len(m.choices)-1 {
			m.targetCursor++
		}
	case key.Matches(msg, m.keys.Confirm):
		choice := m.choices[m.targetCursor]
		if choice.Target.Kind == domain.TargetCustom {
			m.editing = true
			return m, m.input.Focus()
		}
		return m.dispatch(session.PickTarget{Target: choice.Target})
	case key.Matches(msg, m.keys.Back):
		return m.dispatch(session.Back{})
	case key.Matches(msg, m.keys.Quit):
		return m.dispatch(session.Quit{})
	}
	return m, nil
}

// customPathKey handles keys while the destination path is being typed, so
// letters such as q reach the input instead of quitting.
func (m Model) customPathKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		path := strings.TrimSpace(m.input.Value())
		if path == "" {
			return m, nil
		}
		m.editing = false
		m.input.Blur()
		return m.dispatch(session.PickTarget{Target: domain.Target{Kind: domain.TargetCustom, Path: path}})
	case tea.KeyEsc:
		m.editing = false
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) clampCursors() {
	if sel := m.session.Selection(); sel != nil && m.bundleCursor >= len(sel.Bundles) {
		m.bundleCursor = max(len(sel.Bundles)-1, 0)
	}
	if m.session.Stage() != session.StageSelectTarget {
		m.editing = false
	}
}
