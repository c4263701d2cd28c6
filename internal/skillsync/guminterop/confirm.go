// Package guminterop asks yes/no questions through the gum CLI when it is
// installed.
package guminterop

import (
	"context"
	"os"
	"os/exec"

	"github.com/jduncan-rva/skill-sync/internal/skillsync/logging"
)

// Prompter runs `gum confirm`. The zero value uses the real PATH and
// process terminal.
type Prompter struct {
	// LookPath locates the gum binary. Defaults to exec.LookPath.
	LookPath func(string) (string, error)
	// Run executes the prompt and reports whether the operator agreed.
	Run func(ctx context.Context, bin, msg string) bool
}

// Available reports whether the gum binary is in PATH.
func (p Prompter) Available() bool {
	lookPath := p.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	_, err := lookPath("gum")
	return err == nil
}

// Confirm asks msg through gum. Without gum the answer is no, so nothing is
// ever overwritten without an explicit yes.
func (p Prompter) Confirm(ctx context.Context, msg string) bool {
	logger := logging.GetLogger("gum")
	lookPath := p.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	bin, err := lookPath("gum")
	if err != nil {
		logger.Warn().Str("prompt", msg).Msg("gum not found, declining")
		return false
	}
	run := p.Run
	if run == nil {
		run = runGum
	}
	agreed := run(ctx, bin, msg)
	logger.Debug().Str("prompt", msg).Bool("agreed", agreed).Msg("gum confirm")
	return agreed
}

// gum confirm exits 0 for yes and 1 for no.
func runGum(ctx context.Context, bin, msg string) bool {
	cmd := exec.CommandContext(ctx, bin, "confirm", msg)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run() == nil
}
