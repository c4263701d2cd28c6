// Package ui is the terminal front end of a sync session. It turns key
// presses into session events, runs the session's effects as tea commands,
// and renders whichever stage the session is in.
package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/jduncan-rva/skill-sync/internal/skillsync/logging"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/session"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/target"
)

// CancelMsg asks the model to cancel the session, as Ctrl+C does. Send it
// from a signal handler with Program.Send.
type CancelMsg struct{}

// eventMsg carries the outcome of a background effect back into Update.
type eventMsg struct {
	event session.Event
}

type Model struct {
	session  *session.Session
	services *session.Services
	// ctx is cancelled when the session exits so running tasks stop early.
	ctx    context.Context
	cancel context.CancelFunc

	keys    KeyMap
	help    help.Model
	spinner spinner.Model
	// input collects a custom destination path in SelectTarget.
	input   textinput.Model
	editing bool

	bundleCursor int
	targetCursor int
	choices      []target.Choice

	// ExitCode is set once the session has finished.
	ExitCode int

	width  int
	height int
	logger zerolog.Logger
}

// NewModel returns a model for s. Effects run against svc with a context
// derived from ctx.
func NewModel(ctx context.Context, s *session.Session, svc *session.Services) Model {
	ctx, cancel := context.WithCancel(ctx)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	input := textinput.New()
	input.Placeholder = "~/skills"
	input.Prompt = "Destination: "
	input.Width = 48

	return Model{
		session:  s,
		services: svc,
		ctx:      ctx,
		cancel:   cancel,
		keys:     DefaultKeyMap,
		help:     help.New(),
		spinner:  sp,
		input:    input,
		choices:  target.Choices(),
		logger:   logging.GetLogger("ui"),
	}
}

// Session exposes the underlying session, mainly for inspection after the
// program exits.
func (m Model) Session() *session.Session {
	return m.session
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.perform(m.session.Start()))
}

// perform turns an effect into a command. Exit cancels running tasks, waits
// for them, releases the source, and only then stops the program.
func (m *Model) perform(eff session.Effect) tea.Cmd {
	svc, ctx := m.services, m.ctx
	switch e := eff.(type) {
	case nil:
		return nil
	case session.Exit:
		m.ExitCode = e.Code
		m.cancel()
		m.logger.Info().Int("code", e.Code).Str("stage", m.session.Stage().String()).Msg("Session finished")
		return func() tea.Msg {
			svc.Close()
			return tea.QuitMsg{}
		}
	}

	return func() tea.Msg {
		return eventMsg{event: svc.Perform(ctx, eff)}
	}
}
