// Package headless answers session prompts without a terminal UI. It selects
// the configured skills, picks the configured destination, prints the plan
// and summary as plain styled text, and asks about replacements through gum.
package headless

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/jduncan-rva/skill-sync/internal/skillsync/domain"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/errors"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/logging"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/session"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	createStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	replaceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	skipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Confirmer asks a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, msg string) bool
}

// Decider implements session.Decider for non-interactive runs.
type Decider struct {
	Ctx    context.Context
	Out    io.Writer
	Prompt Confirmer
	Target *domain.Target
	// Skills lists requested bundle ids. Empty selects everything.
	Skills []string

	toggled bool
	err     error
	logger  zerolog.Logger
}

// New returns a Decider writing to out.
func New(ctx context.Context, out io.Writer, prompt Confirmer, t *domain.Target, skills []string) *Decider {
	return &Decider{
		Ctx:    ctx,
		Out:    out,
		Prompt: prompt,
		Target: t,
		Skills: skills,
		logger: logging.GetLogger("headless"),
	}
}

// Err reports why the decider abandoned the session, if it did.
func (d *Decider) Err() error {
	return d.err
}

func (d *Decider) Decide(s *session.Session) session.Event {
	switch s.Stage() {
	case session.StageSelectBundles:
		return d.selectBundles(s)
	case session.StageSelectTarget:
		if d.Target == nil {
			d.err = errors.New(errors.ErrConfigInvalid, "no destination configured")
			return session.Quit{}
		}
		return session.PickTarget{Target: *d.Target}
	case session.StagePlanPreview:
		d.printPlan(s.Preview())
		return session.Confirm{}
	case session.StageConfirmOverwrite:
		item, ok := s.Confirmation().Current()
		if !ok {
			return session.Skip{}
		}
		if d.Prompt != nil && d.Prompt.Confirm(d.Ctx, fmt.Sprintf("Replace existing skill %s?", item.BundleID)) {
			return session.Approve{}
		}
		return session.Skip{}
	case session.StageSummary:
		d.printSummary(s)
		return session.Acknowledge{}
	case session.StageFatal:
		fmt.Fprintln(d.Out, failStyle.Render("Error: "+s.Err().Error()))
		return session.Acknowledge{}
	}
	return session.Quit{}
}

func (d *Decider) selectBundles(s *session.Session) session.Event {
	sel := s.Selection()
	if d.toggled || len(d.Skills) > 0 {
		var missing []string
		for _, id := range d.Skills {
			if !sel.IsSelected(id) {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			d.logger.Warn().Strs("skills", missing).Msg("Requested skills not found")
			fmt.Fprintf(d.Out, "Skipping unknown skills: %s\n", strings.Join(missing, ", "))
		}
		if sel.Count() == 0 {
			d.err = errors.New(errors.ErrNoBundlesFound, "none of the requested skills exist in the source")
			return session.Quit{}
		}
		return session.Confirm{}
	}
	d.toggled = true
	return session.ToggleAll{}
}

func (d *Decider) printPlan(p *session.Preview) {
	fmt.Fprintln(d.Out, headerStyle.Render(fmt.Sprintf("Plan for %s", p.DestRoot)))
	for _, item := range p.Plan {
		label := createStyle.Render("create ")
		if item.Action == domain.ActionReplace {
			label = replaceStyle.Render("replace")
		}
		fmt.Fprintf(d.Out, "  %s %s\n", label, item.BundleID)
	}
}

func (d *Decider) printSummary(s *session.Session) {
	for _, e := range s.Execution().Log {
		switch e.Status {
		case domain.StatusFailed:
			fmt.Fprintf(d.Out, "  %s %s: %s\n", failStyle.Render("failed  "), e.BundleID, e.Error)
		case domain.StatusSkipped:
			fmt.Fprintf(d.Out, "  %s %s\n", skipStyle.Render("skipped "), e.BundleID)
		default:
			fmt.Fprintf(d.Out, "  %s %s\n", createStyle.Render(fmt.Sprintf("%-8s", e.Status)), e.BundleID)
		}
	}
	sum := s.Summary()
	fmt.Fprintf(d.Out, "%s created %d, replaced %d, skipped %d, failed %d of %d selected in %s\n",
		headerStyle.Render("Done:"), sum.Created, sum.Replaced, sum.Skipped, sum.Failed, sum.TotalSelected, sum.DestinationRoot)
}
