package headless

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jduncan-rva/skill-sync/internal/skillsync/domain"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/errors"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/session"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/source"
	"github.com/jduncan-rva/skill-sync/internal/skillsync/target"
)

type localProvider struct{ root string }

func (p localProvider) Retrieve(context.Context, source.Request) (*source.Source, error) {
	return source.NewSource(p.root, nil), nil
}

type answers struct {
	reply bool
	asked []string
}

func (a *answers) Confirm(_ context.Context, msg string) bool {
	a.asked = append(a.asked, msg)
	return a.reply
}

func setup(t *testing.T) (afero.Fs, *session.Services) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for _, p := range []string{"/src/alpha/SKILL.md", "/src/beta/SKILL.md", "/dest/beta/old.txt"} {
		require.NoError(t, fsys.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, afero.WriteFile(fsys, p, []byte("---\nname: x\n---\n"), 0644))
	}
	svc := session.NewServices(fsys, localProvider{root: "/src"}, source.Request{Locator: "/src"}, target.Env{Cwd: "/"}, false)
	return fsys, svc
}

var custom = domain.Target{Kind: domain.TargetCustom, Path: "/dest"}

func TestDecider_SyncAllDeclineReplacement(t *testing.T) {
	fsys, svc := setup(t)
	var out bytes.Buffer
	prompt := &answers{reply: false}
	d := New(context.Background(), &out, prompt, &custom, nil)

	code := session.Drive(context.Background(), session.New(session.Options{Interactive: true}), svc, d)

	assert.Equal(t, session.ExitOK, code)
	assert.NoError(t, d.Err())
	assert.Equal(t, []string{"Replace existing skill beta?"}, prompt.asked)

	exists, err := afero.Exists(fsys, "/dest/alpha/SKILL.md")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = afero.Exists(fsys, "/dest/beta/old.txt")
	require.NoError(t, err)
	assert.True(t, exists, "declined replacement leaves destination alone")

	text := out.String()
	assert.Contains(t, text, "Plan for /dest")
	assert.Contains(t, text, "replace beta")
	assert.Contains(t, text, "created 1, replaced 0, skipped 1, failed 0 of 2 selected")
}

func TestDecider_ApprovedReplacement(t *testing.T) {
	fsys, svc := setup(t)
	var out bytes.Buffer
	d := New(context.Background(), &out, &answers{reply: true}, &custom, []string{"beta"})

	code := session.Drive(context.Background(), session.New(session.Options{Interactive: true, Preselect: d.Skills}), svc, d)

	assert.Equal(t, session.ExitOK, code)
	exists, _ := afero.Exists(fsys, "/dest/beta/old.txt")
	assert.False(t, exists)
	exists, _ = afero.Exists(fsys, "/dest/alpha")
	assert.False(t, exists, "only requested skills are synced")
	assert.Contains(t, out.String(), "replaced 1")
}

func TestDecider_UnknownSkills(t *testing.T) {
	_, svc := setup(t)
	var out bytes.Buffer
	d := New(context.Background(), &out, nil, &custom, []string{"ghost"})

	code := session.Drive(context.Background(), session.New(session.Options{Preselect: d.Skills}), svc, d)

	assert.Equal(t, session.ExitOK, code)
	assert.True(t, errors.HasCode(d.Err(), errors.ErrNoBundlesFound))
	assert.Contains(t, out.String(), "Skipping unknown skills: ghost")
}

func TestDecider_NoTarget(t *testing.T) {
	_, svc := setup(t)
	d := New(context.Background(), &bytes.Buffer{}, nil, nil, nil)

	session.Drive(context.Background(), session.New(session.Options{}), svc, d)

	assert.True(t, errors.HasCode(d.Err(), errors.ErrConfigInvalid))
}

func TestDecider_Fatal(t *testing.T) {
	_, svc := setup(t)
	svc.Provider = localProvider{root: "/missing"}
	var out bytes.Buffer
	d := New(context.Background(), &out, nil, &custom, nil)

	code := session.Drive(context.Background(), session.New(session.Options{}), svc, d)

	assert.Equal(t, session.ExitFailure, code)
	assert.Contains(t, out.String(), "Error:")
}
