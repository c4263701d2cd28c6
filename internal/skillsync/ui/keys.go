package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for every stage. Which bindings are live
// depends on the stage the session is in.
type KeyMap struct {
	Up   key.Binding
	Down key.Binding

	// Bundle selection.
	Toggle    key.Binding
	ToggleAll key.Binding

	Confirm key.Binding
	Back    key.Binding

	// Overwrite confirmation.
	Approve    key.Binding
	Skip       key.Binding
	ApproveAll key.Binding

	Quit   key.Binding
	Cancel key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" ", "x"),
		key.WithHelp("space", "toggle"),
	),
	ToggleAll: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "toggle all"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "confirm"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "backspace"),
		key.WithHelp("esc", "back"),
	),
	Approve: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "replace"),
	),
	Skip: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "skip"),
	),
	ApproveAll: key.NewBinding(
		key.WithKeys("A"),
		key.WithHelp("A", "replace all"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q"),
		key.WithHelp("q", "quit"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("C-c", "cancel"),
	),
}

// stageHelp adapts a binding list to help.KeyMap.
type stageHelp []key.Binding

func (h stageHelp) ShortHelp() []key.Binding  { return h }
func (h stageHelp) FullHelp() [][]key.Binding { return [][]key.Binding{h} }
