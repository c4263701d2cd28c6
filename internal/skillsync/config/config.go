// Package config layers skill-sync settings from built-in defaults, an
// optional TOML file, SKILL_SYNC_* environment variables and command line
// flags, in increasing order of precedence.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/jduncan-rva/skill-sync/internal/skillsync/domain"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/errors"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/source"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/target"
)

const envPrefix = "SKILL_SYNC_"

// Configuration keys. Flags use the same names with dashes.
const (
	keyRepo          = "repo"
	keyRef           = "ref"
	keyPath          = "path"
	keyTarget        = "target"
	keyDest          = "dest"
	keySkills        = "skills"
	keyIncludeSystem = "include_system"
	keyYes           = "yes"
	keyHeadless      = "headless"
	keyBackend       = "backend"
	keyLogFile       = "log_file"
	keyVerbosity     = "verbosity"
)

// flagKeys maps flag names whose key differs from the dash-to-underscore
// form.
var flagKeys = map[string]string{
	"skill":   keySkills,
	"verbose": keyVerbosity,
}

type AppConfig struct {
	Repo string
	Ref  string
	Path string
	// Target is nil when the destination is chosen interactively.
	Target        *domain.Target
	Skills        []string
	IncludeSystem bool
	Yes           bool
	Headless      bool
	Backend       source.Backend
	LogFile       string
	Verbosity     int
	// ConfigFile is the TOML file that was loaded, if any.
	ConfigFile string
}

// Request returns the source request described by the configuration.
func (c *AppConfig) Request() source.Request {
	return source.Request{Locator: c.Repo, Revision: c.Ref, SubPath: c.Path}
}

// DefaultConfigPath locates the user config file.
var DefaultConfigPath = func() string {
	return filepath.Join(xdg.ConfigHome, "skill-sync", "config.toml")
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		keyPath:    "skills",
		keyBackend: string(source.BackendGoGit),
	}
}

// RegisterFlags adds every configuration flag to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("repo", "", "Skills repository URL or local directory")
	fs.String("ref", "", "Branch or tag to check out (default: remote HEAD)")
	fs.String("path", "skills", "Directory inside the repository that holds skills")
	fs.String("target", "", "Destination: codex, claude, project or custom")
	fs.String("dest", "", "Custom destination directory (implies --target custom)")
	fs.StringSlice("skill", nil, "Skill id to preselect (repeatable)")
	fs.Bool("include-system", false, "Include skills under .system")
	fs.BoolP("yes", "y", false, "Replace existing skills without asking")
	fs.Bool("headless", false, "Run without the terminal UI")
	fs.String("backend", string(source.BackendGoGit), "Clone backend: go-git or exec")
	fs.String("config", "", "Path to a TOML config file")
	fs.String("log-file", "", "Write logs to this file")
	fs.CountP("verbose", "v", "Increase log verbosity (repeatable)")
}

// Load resolves the configuration. Only flags the user actually set take
// precedence over the file and environment.
func Load(flags *pflag.FlagSet) (*AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigInvalid, "failed to load defaults")
	}

	cfgFile, err := configFile(flags)
	if err != nil {
		return nil, err
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), toml.Parser()); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigInvalid, "failed to load config from %s", cfgFile)
		}
	}

	err = k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigInvalid, "failed to load environment")
	}

	changed, err := changedFlags(flags)
	if err != nil {
		return nil, err
	}
	if err := k.Load(confmap.Provider(changed, "."), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigInvalid, "failed to load flags")
	}

	cfg := &AppConfig{
		Repo:          strings.TrimSpace(k.String(keyRepo)),
		Ref:           strings.TrimSpace(k.String(keyRef)),
		Path:          strings.TrimSpace(k.String(keyPath)),
		Skills:        stringList(k, keySkills),
		IncludeSystem: k.Bool(keyIncludeSystem),
		Yes:           k.Bool(keyYes),
		Headless:      k.Bool(keyHeadless),
		Backend:       source.Backend(strings.ToLower(k.String(keyBackend))),
		LogFile:       k.String(keyLogFile),
		Verbosity:     k.Int(keyVerbosity),
		ConfigFile:    cfgFile,
	}

	cfg.Target, err = resolveTarget(k.String(keyTarget), k.String(keyDest))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that depend on each other.
func (c *AppConfig) Validate() error {
	switch c.Backend {
	case source.BackendGoGit, source.BackendExec:
	default:
		return errors.Newf(errors.ErrConfigInvalid, "invalid backend %q (want go-git or exec)", c.Backend)
	}
	if c.Headless && c.Target == nil {
		return errors.New(errors.ErrConfigInvalid, "headless mode needs --target or --dest")
	}
	return nil
}

func resolveTarget(kind, dest string) (*domain.Target, error) {
	kind = strings.TrimSpace(kind)
	dest = strings.TrimSpace(dest)

	if kind == "" {
		if dest == "" {
			return nil, nil
		}
		return &domain.Target{Kind: domain.TargetCustom, Path: dest}, nil
	}

	k, ok := target.ParseKind(kind)
	if !ok {
		return nil, errors.Newf(errors.ErrConfigInvalid, "invalid target %q (want codex, claude, project or custom)", kind)
	}
	switch {
	case k == domain.TargetCustom && dest == "":
		return nil, errors.New(errors.ErrConfigInvalid, "target custom needs --dest")
	case k != domain.TargetCustom && dest != "":
		return nil, errors.Newf(errors.ErrConfigInvalid, "--dest conflicts with target %s", k)
	}
	return &domain.Target{Kind: k, Path: dest}, nil
}

func configFile(flags *pflag.FlagSet) (string, error) {
	if flags != nil {
		if f := flags.Lookup("config"); f != nil && f.Changed {
			path := f.Value.String()
			if _, err := os.Stat(path); err != nil {
				return "", errors.Wrapf(err, errors.ErrConfigInvalid, "config file %s", path)
			}
			return path, nil
		}
	}
	if path := DefaultConfigPath(); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

// changedFlags collects the flags set on the command line, converted to
// their configuration types.
func changedFlags(flags *pflag.FlagSet) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if flags == nil {
		return out, nil
	}

	var convErr error
	flags.Visit(func(f *pflag.Flag) {
		if f.Name == "config" || convErr != nil {
			return
		}
		key, ok := flagKeys[f.Name]
		if !ok {
			key = strings.ReplaceAll(f.Name, "-", "_")
		}

		switch f.Value.Type() {
		case "bool":
			v, err := strconv.ParseBool(f.Value.String())
			convErr = err
			out[key] = v
		case "count", "int":
			v, err := strconv.Atoi(f.Value.String())
			convErr = err
			out[key] = v
		case "stringSlice":
			v, err := flags.GetStringSlice(f.Name)
			convErr = err
			out[key] = v
		default:
			out[key] = f.Value.String()
		}
	})
	if convErr != nil {
		return nil, errors.Wrap(convErr, errors.ErrConfigInvalid, "invalid flag value")
	}
	return out, nil
}

// stringList reads a list that may be given as a TOML array or as a comma
// separated string.
func stringList(k *koanf.Koanf, key string) []string {
	var raw []string
	if s, ok := k.Get(key).(string); ok {
		raw = strings.Split(s, ",")
	} else {
		raw = k.Strings(key)
	}

	var out []string
	for _, item := range raw {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
