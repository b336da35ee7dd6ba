package skills

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jingkaihe/silk/pkg/targets"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSkill(t *testing.T, root, owner, repo, name string) Skill {
	t.Helper()
	path := writeMarker(t, filepath.Join(root, owner, repo, "skills", name), "# "+name+"\n")
	return Skill{Name: name, Path: path, Owner: owner, Repo: repo}
}

func newTargets(t *testing.T) []targets.Target {
	t.Helper()
	home := t.TempDir()
	return targets.Resolve(targets.Defaults(), home)
}

func TestQualifiedName(t *testing.T) {
	a := Skill{Name: "pdf", Owner: "anthropics", Repo: "skills"}
	b := Skill{Name: "pdf", Owner: "someone", Repo: "skills"}

	assert.Equal(t, "anthropics:skills:pdf", a.QualifiedName())
	assert.NotEqual(t, a.QualifiedName(), b.QualifiedName())
}

func TestLinkAndUnlink(t *testing.T) {
	s := newSkill(t, t.TempDir(), "owner", "repo", "pdf")
	ts := newTargets(t)
	claude := ts[0]

	assert.False(t, s.IsLinkedTo(claude))
	assert.False(t, s.IsLinked(ts))

	require.NoError(t, s.LinkTo(claude))
	assert.True(t, s.IsLinkedTo(claude))
	assert.True(t, s.IsLinked(ts))
	assert.Equal(t, []targets.Target{claude}, s.LinkedTargets(ts))

	dest, err := os.Readlink(s.LinkPath(claude))
	require.NoError(t, err)
	assert.Equal(t, s.Dir(), dest)
	assert.Equal(t, filepath.Join(claude.Dir, "owner:repo:pdf"), s.LinkPath(claude))

	require.NoError(t, s.UnlinkFrom(claude))
	assert.False(t, s.IsLinkedTo(claude))

	_, err = os.Lstat(s.LinkPath(claude))
	assert.True(t, os.IsNotExist(err))
}

func TestLinkCreatesTargetDirectory(t *testing.T) {
	s := newSkill(t, t.TempDir(), "owner", "repo", "pdf")
	target := targets.Target{Name: "custom", DisplayName: "Custom", Dir: filepath.Join(t.TempDir(), "a", "b", "skills")}

	require.NoError(t, s.LinkTo(target))
	assert.DirExists(t, target.Dir)
	assert.True(t, s.IsLinkedTo(target))
}

func TestLinkTwiceIsAlreadyLinked(t *testing.T) {
	s := newSkill(t, t.TempDir(), "owner", "repo", "pdf")
	target := newTargets(t)[0]

	require.NoError(t, s.LinkTo(target))
	err := s.LinkTo(target)
	require.Error(t, err)
	assert.True(t, IsAlreadyLinked(err))
	assert.Contains(t, err.Error(), "owner:repo:pdf")
}

func TestUnlinkWithoutLinkIsNotLinked(t *testing.T) {
	s := newSkill(t, t.TempDir(), "owner", "repo", "pdf")
	err := s.UnlinkFrom(newTargets(t)[0])
	require.Error(t, err)
	assert.True(t, IsNotLinked(err))
}

func TestBrokenLink(t *testing.T) {
	s := newSkill(t, t.TempDir(), "owner", "repo", "pdf")
	target := newTargets(t)[0]
	require.NoError(t, s.LinkTo(target))

	require.NoError(t, os.RemoveAll(s.Dir()))

	assert.False(t, s.IsLinkedTo(target), "dangling link is not linked")
	assert.True(t, IsAlreadyLinked(s.LinkTo(target)), "dangling link still occupies the path")

	require.NoError(t, RemoveLink(target, s.QualifiedName()))
	_, err := os.Lstat(s.LinkPath(target))
	assert.True(t, os.IsNotExist(err))
}

func TestRemoveLinkMissingIsNotAnError(t *testing.T) {
	target := newTargets(t)[0]
	assert.NoError(t, RemoveLink(target, "a:b:c"))
	assert.NoError(t, RemoveLink(targets.Target{Name: "nohome"}, "a:b:c"))
}

func TestLinkWithoutHome(t *testing.T) {
	s := newSkill(t, t.TempDir(), "owner", "repo", "pdf")
	target := targets.Resolve(targets.Defaults(), "")[0]

	err := s.LinkTo(target)
	var linkErr *LinkError
	require.True(t, errors.As(err, &linkErr))
	assert.Equal(t, "cannot determine home directory", linkErr.Reason)

	assert.False(t, s.IsLinkedTo(target))
	assert.True(t, IsNotLinked(s.UnlinkFrom(target)))
}

func TestToggleAll(t *testing.T) {
	s := newSkill(t, t.TempDir(), "owner", "repo", "pdf")
	ts := newTargets(t)

	require.NoError(t, s.LinkTo(ts[1]))

	linked, err := s.ToggleAll(ts)
	require.NoError(t, err)
	assert.True(t, linked)
	assert.True(t, s.IsLinkedTo(ts[0]))
	assert.True(t, s.IsLinkedTo(ts[1]))

	linked, err = s.ToggleAll(ts)
	require.NoError(t, err)
	assert.False(t, linked)
	assert.Empty(t, s.LinkedTargets(ts))

	linked, err = s.ToggleAll(ts)
	require.NoError(t, err)
	assert.True(t, linked)
	assert.Len(t, s.LinkedTargets(ts), 2)
}

func TestToggleAllStopsAtFailingTarget(t *testing.T) {
	s := newSkill(t, t.TempDir(), "owner", "repo", "pdf")
	ok := newTargets(t)[0]

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	bad := targets.Target{Name: "bad", DisplayName: "Bad", Dir: filepath.Join(blocker, "skills")}
	never := targets.Target{Name: "never", DisplayName: "Never", Dir: filepath.Join(t.TempDir(), "skills")}

	linked, err := s.ToggleAll([]targets.Target{ok, bad, never})
	require.Error(t, err)
	assert.False(t, linked)

	var targetErr *TargetError
	require.True(t, errors.As(err, &targetErr))
	assert.Equal(t, "bad", targetErr.Target.Name)
	assert.Contains(t, err.Error(), "Link to Bad failed")

	assert.True(t, s.IsLinkedTo(ok), "earlier targets keep their link")
	assert.False(t, s.IsLinkedTo(never), "later targets are not attempted")
}

func TestFromFound(t *testing.T) {
	s := FromFound(Found{Name: "x", Path: "/p/x/SKILL.md", Description: "d"}, "o", "r")
	assert.Equal(t, "o:r:x", s.QualifiedName())
	assert.Equal(t, "/p/x", s.Dir())
	assert.Equal(t, "d", s.Description)
}
