// Package target resolves a destination choice to an absolute skills root.
// Environment lookups and the working directory come from an explicit Env so
// resolution never reads process state.
package target

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jduncan-rva/skill-sync/internal/skillsync/domain"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/errors"
)

// Env supplies the process state destination resolution depends on.
type Env struct {
	Getenv func(string) string
	Cwd    string
}

// OSEnv captures the current process environment and working directory.
func OSEnv() Env {
	cwd, _ := os.Getwd()
	return Env{Getenv: os.Getenv, Cwd: cwd}
}

func (e Env) get(key string) string {
	if e.Getenv == nil {
		return ""
	}
	return strings.TrimSpace(e.Getenv(key))
}

// Choice is a selectable destination with a label for display.
type Choice struct {
	Target domain.Target
	Label  string
}

// Choices lists the destinations offered for interactive selection.
func Choices() []Choice {
	return []Choice{
		{Target: domain.Target{Kind: domain.TargetCodex}, Label: "Codex (user)"},
		{Target: domain.Target{Kind: domain.TargetClaude}, Label: "Claude (user)"},
		{Target: domain.Target{Kind: domain.TargetProject}, Label: "Project (.codex/skills)"},
		{Target: domain.Target{Kind: domain.TargetCustom}, Label: "Custom path"},
	}
}

// ParseKind validates a target name.
func ParseKind(s string) (domain.TargetKind, bool) {
	switch k := domain.TargetKind(strings.ToLower(strings.TrimSpace(s))); k {
	case domain.TargetCodex, domain.TargetClaude, domain.TargetProject, domain.TargetCustom:
		return k, true
	}
	return "", false
}

// Resolve returns the absolute destination root for t.
func Resolve(t domain.Target, env Env) (string, error) {
	switch t.Kind {
	case domain.TargetCodex:
		return homeScoped(env, "CODEX_HOME", ".codex")
	case domain.TargetClaude:
		return homeScoped(env, "CLAUDE_CONFIG_DIR", ".claude")
	case domain.TargetProject:
		if env.Cwd == "" {
			return "", errors.New(errors.ErrDestinationResolution, "working directory is unknown")
		}
		return filepath.Join(env.Cwd, ".codex", "skills"), nil
	case domain.TargetCustom:
		return customPath(t.Path, env)
	default:
		return "", errors.Newf(errors.ErrDestinationResolution, "unknown target %q", t.Kind)
	}
}

// homeScoped resolves $override/skills, falling back to $HOME/dir/skills.
func homeScoped(env Env, override, dir string) (string, error) {
	if base := env.get(override); base != "" {
		return filepath.Clean(filepath.Join(expandHome(base, env.get("HOME")), "skills")), nil
	}
	home := env.get("HOME")
	if home == "" {
		return "", errors.Newf(errors.ErrDestinationResolution, "neither %s nor HOME is set", override)
	}
	return filepath.Join(home, dir, "skills"), nil
}

func customPath(path string, env Env) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New(errors.ErrDestinationResolution, "custom destination path is empty")
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home := env.get("HOME")
		if home == "" {
			return "", errors.Newf(errors.ErrDestinationResolution, "cannot expand %s: HOME is not set", path)
		}
		path = expandHome(path, home)
	}
	if !filepath.IsAbs(path) {
		if env.Cwd == "" {
			return "", errors.Newf(errors.ErrDestinationResolution, "cannot resolve relative path %s: working directory is unknown", path)
		}
		path = filepath.Join(env.Cwd, path)
	}
	return filepath.Clean(path), nil
}

func expandHome(path, home string) string {
	if home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
