package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jduncan-rva/skill-sync/internal/skillsync/config"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/guminterop"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/headless"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/logging"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/session"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/source"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/target"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/ui"
)

// exitError carries a non-zero session exit code out of cobra.
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// exitCode maps the error returned by the root command to a process exit
// code.
func exitCode(err error) int {
	if err == nil {
		return session.ExitOK
	}
	var ee exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return session.ExitFailure
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skill-sync",
		Short: "Install skill bundles from a repository into an agent's skills directory",
		Long: `skill-sync retrieves a repository of skill bundles (directories holding a
SKILL.md manifest), lets you pick which ones to install and where, previews
what will be created or replaced, and copies them into place.

Without a terminal, or with --headless, every skill (or those named with
--skill) is installed to the configured --target or --dest.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			if code := run(cmd.Context(), cfg, cmd.OutOrStdout()); code != session.ExitOK {
				return exitError{code: code}
			}
			return nil
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func run(ctx context.Context, cfg *config.AppConfig, out io.Writer) int {
	useHeadless := cfg.Headless || !isTerminal(os.Stdout) || !isTerminal(os.Stdin)

	closer := logging.SetupLogger(logging.Options{
		Verbosity: cfg.Verbosity,
		Console:   useHeadless,
		File:      cfg.LogFile,
	})
	defer closer.Close()

	if useHeadless && cfg.Target == nil {
		fmt.Fprintln(os.Stderr, "Error: not running in a terminal; pass --target or --dest")
		return session.ExitFailure
	}

	log.Info().
		Str("repo", cfg.Repo).
		Str("ref", cfg.Ref).
		Str("path", cfg.Path).
		Str("backend", string(cfg.Backend)).
		Bool("headless", useHeadless).
		Str("config", cfg.ConfigFile).
		Msg("Starting sync")

	svc := session.NewServices(afero.NewOsFs(), source.ForLocator(cfg.Repo, cfg.Backend), cfg.Request(), target.OSEnv(), cfg.IncludeSystem)
	defer svc.Close()

	s := session.New(session.Options{
		Interactive: !cfg.Yes,
		Target:      cfg.Target,
		Preselect:   cfg.Skills,
	})

	if useHeadless {
		return runHeadless(ctx, cfg, s, svc, out)
	}
	return runTUI(ctx, s, svc)
}

func runHeadless(ctx context.Context, cfg *config.AppConfig, s *session.Session, svc *session.Services, out io.Writer) int {
	d := headless.New(ctx, out, guminterop.Prompter{}, cfg.Target, cfg.Skills)
	code := session.Drive(ctx, s, svc, d)
	if err := d.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if code == session.ExitOK {
			code = session.ExitFailure
		}
	}
	return code
}

func runTUI(ctx context.Context, s *session.Session, svc *session.Services) int {
	p := tea.NewProgram(ui.NewModel(ctx, s, svc), tea.WithAltScreen(), tea.WithoutSignalHandler())

	// Signals arrive through ctx; the session decides what cancelling means.
	go func() {
		<-ctx.Done()
		p.Send(ui.CancelMsg{})
	}()

	final, err := p.Run()
	// The program may stop with tasks still running; let them finish before
	// the source is released.
	svc.Close()
	if err != nil {
		log.Error().Err(err).Msg("Terminal UI failed")
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		return session.ExitFailure
	}

	m, ok := final.(ui.Model)
	if !ok || !m.Session().Finished() {
		log.Error().Msg("Terminal UI stopped before the session finished")
		return session.ExitFailure
	}
	if err := m.Session().Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return m.ExitCode
}
