package tui

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/silk/pkg/git"
	"github.com/jingkaihe/silk/pkg/plugins"
	"github.com/jingkaihe/silk/pkg/skills"
	"github.com/jingkaihe/silk/pkg/status"
	"github.com/jingkaihe/silk/pkg/targets"
)

// fakeGit clones repositories from in-memory file sets keyed by URL
type fakeGit struct {
	mu    sync.Mutex
	repos map[string]map[string]string
	gate  chan struct{}
}

func (g *fakeGit) Clone(ctx context.Context, url, dest string) error {
	if g.gate != nil {
		select {
		case <-g.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	g.mu.Lock()
	files, ok := g.repos[url]
	g.mu.Unlock()
	if !ok {
		return &git.CloneError{URL: url, Stderr: "repository not found"}
	}

	if err := os.MkdirAll(filepath.Join(dest, ".git"), 0o755); err != nil {
		return err
	}
	for rel, content := range files {
		path := filepath.Join(dest, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (g *fakeGit) Pull(context.Context, string) error { return nil }

func (g *fakeGit) IsRepository(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil && info.IsDir()
}

func (g *fakeGit) add(ref string, skillNames ...string) {
	files := map[string]string{"README.md": "# " + ref}
	for _, name := range skillNames {
		files[filepath.Join("skills", name, skills.MarkerFile)] = "---\ndescription: " + name + " helpers\n---\n"
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.repos["https://github.com/"+ref] = files
}

type fixture struct {
	store   *plugins.Store
	git     *fakeGit
	cache   string
	targets []targets.Target
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	g := &fakeGit{repos: map[string]map[string]string{}}
	cache := filepath.Join(t.TempDir(), "repos")
	ts := targets.Resolve(targets.Defaults(), t.TempDir())

	store, err := plugins.NewStore(plugins.StoreConfig{CacheDir: cache, Targets: ts}, plugins.WithGitClient(g))
	require.NoError(t, err)
	return &fixture{store: store, git: g, cache: cache, targets: ts}
}

func (f *fixture) install(t *testing.T, ref string, skillNames ...string) {
	t.Helper()
	f.git.add(ref, skillNames...)
	_, err := f.store.Install(context.Background(), ref)
	require.NoError(t, err)
}

func (f *fixture) model(t *testing.T) Model {
	t.Helper()
	m, err := NewModel(context.Background(), f.store)
	require.NoError(t, err)
	t.Cleanup(m.shutdown)
	return m
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+d":
		return tea.KeyMsg{Type: tea.KeyCtrlD}
	case "ctrl+u":
		return tea.KeyMsg{Type: tea.KeyCtrlU}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		m = send(t, m, keyMsg(k))
	}
	return m
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m = send(t, m, keyMsg(string(r)))
	}
	return m
}

// pollUntil drives the poll loop until cond holds
func pollUntil(t *testing.T, m Model, cond func(Model) bool) Model {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		m = send(t, m, tickMsg(time.Now()))
		if cond(m) {
			return m
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met, status: %s", m.status.Display())
	return m
}

func statusContains(s string) func(Model) bool {
	return func(m Model) bool {
		for _, e := range m.status.Entries() {
			if e.Message == s {
				return true
			}
		}
		return false
	}
}

func TestNewModelListsInstalledPlugins(t *testing.T) {
	f := newFixture(t)
	f.install(t, "acme/toolkit", "pdf", "xlsx")

	m := f.model(t)
	require.Len(t, m.plugins, 1)

	view := m.View()
	assert.Contains(t, view, "silk - Plugin Manager")
	assert.Contains(t, view, "Plugins (1)")
	assert.Contains(t, view, "acme/toolkit")
	assert.Contains(t, view, "[0/2 linked]")
	assert.Contains(t, view, "Ready")
	assert.Contains(t, view, "i:install")
}

func TestEmptyPluginList(t *testing.T) {
	m := newFixture(t).model(t)
	assert.Contains(t, m.View(), "No plugins installed. Press 'i' to install a plugin.")

	m = press(t, m, "d")
	assert.Equal(t, "No plugin selected", m.status.Display())
	m = press(t, m, "u", "enter", "j")
	assert.Equal(t, ViewPluginList, m.view)
	assert.Equal(t, 0, m.selectedPlugin)
}

func TestNavigation(t *testing.T) {
	f := newFixture(t)
	f.install(t, "acme/a", "one")
	f.install(t, "acme/b", "one")
	f.install(t, "acme/c", "one")

	m := f.model(t)
	m = press(t, m, "j", "down", "j")
	assert.Equal(t, 2, m.selectedPlugin)
	m = press(t, m, "k")
	assert.Equal(t, 1, m.selectedPlugin)
	m = press(t, m, "up", "up")
	assert.Equal(t, 0, m.selectedPlugin)
	m = press(t, m, "ctrl+d")
	assert.Equal(t, 2, m.selectedPlugin)
	m = press(t, m, "ctrl+u")
	assert.Equal(t, 0, m.selectedPlugin)
}

func TestInstall(t *testing.T) {
	f := newFixture(t)
	f.git.add("acme/toolkit", "pdf")

	m := f.model(t)
	m = press(t, m, "i")
	require.Equal(t, ViewInstallInput, m.view)
	assert.Contains(t, m.View(), "git url:")

	m = typeText(t, m, "acme/toolkit")
	m = press(t, m, "enter")
	assert.Equal(t, ViewPluginList, m.view)
	assert.True(t, statusContains("Installing acme/toolkit...")(m))
	assert.Equal(t, status.KindProgress, m.status.DisplayKind())

	m = pollUntil(t, m, statusContains("Installed: acme/toolkit"))
	require.Len(t, m.plugins, 1)
	assert.Equal(t, "acme/toolkit", m.plugins[0].Name())
	assert.Equal(t, 0, m.runner.Len())
}

func TestInstallRejectedUpFront(t *testing.T) {
	f := newFixture(t)
	f.install(t, "acme/toolkit", "pdf")
	m := f.model(t)

	m = press(t, m, "i", "enter")
	assert.Equal(t, "URL cannot be empty", m.status.Display())
	assert.Equal(t, ViewInstallInput, m.view)

	m = typeText(t, m, "not a url")
	m = press(t, m, "enter")
	assert.Equal(t, "Invalid URL: not a url", m.status.Display())
	assert.Equal(t, ViewInstallInput, m.view)

	m = press(t, m, "esc", "i")
	m = typeText(t, m, "https://github.com/acme/toolkit.git")
	m = press(t, m, "enter")
	assert.Equal(t, ViewPluginList, m.view)
	assert.True(t, statusContains("Already installed: acme/toolkit")(m))
	assert.Equal(t, 0, m.runner.Len())
}

func TestInstallInputBackspace(t *testing.T) {
	m := newFixture(t).model(t)
	m = press(t, m, "i")
	m = typeText(t, m, "ab")
	m = press(t, m, "backspace")
	assert.Equal(t, "a", m.input.Value())
	m = press(t, m, "backspace", "backspace")
	assert.Equal(t, ViewPluginList, m.view)
}

func TestInstallFailure(t *testing.T) {
	m := newFixture(t).model(t)
	m = press(t, m, "i")
	m = typeText(t, m, "ghost/repo")
	m = press(t, m, "enter")

	m = pollUntil(t, m, func(m Model) bool { return m.status.HasError() })
	assert.Equal(t,
		"Install failed (ghost/repo): git clone failed for https://github.com/ghost/repo: repository not found",
		m.status.Display())
	assert.Empty(t, m.plugins)
}

func TestPendingInstallIsListed(t *testing.T) {
	f := newFixture(t)
	f.install(t, "acme/toolkit", "pdf")
	f.git.add("acme/widgets", "chart")
	f.git.gate = make(chan struct{})

	m := f.model(t)
	m = press(t, m, "i")
	m = typeText(t, m, "acme/widgets")
	m = press(t, m, "enter")

	view := m.View()
	assert.Contains(t, view, "Plugins (2)")
	assert.Contains(t, view, "acme/widgets  [installing]")

	m = press(t, m, "j")
	assert.Equal(t, 1, m.selectedPlugin)
	m = press(t, m, "d")
	assert.True(t, statusContains("Plugin is still installing")(m))
	m = press(t, m, "enter")
	assert.Equal(t, ViewPluginList, m.view)

	close(f.git.gate)
	m = pollUntil(t, m, statusContains("Installed: acme/widgets"))
	assert.Len(t, m.plugins, 2)
	assert.NotContains(t, m.View(), "[installing]")
}

func TestUpdateSelected(t *testing.T) {
	f := newFixture(t)
	f.install(t, "acme/toolkit", "pdf")

	m := f.model(t)
	m = press(t, m, "u")
	assert.True(t, statusContains("Updating acme/toolkit...")(m))

	m = pollUntil(t, m, statusContains("Updated: acme/toolkit"))
	require.Len(t, m.plugins, 1)
}

func TestDeleteSelected(t *testing.T) {
	f := newFixture(t)
	f.install(t, "acme/toolkit", "pdf")

	m := f.model(t)
	path := m.plugins[0].Path
	m = press(t, m, "d")

	assert.Equal(t, "Deleted: acme/toolkit", m.status.Display())
	assert.Empty(t, m.plugins)
	assert.NoDirExists(t, path)
}

func TestLinkTargets(t *testing.T) {
	f := newFixture(t)
	f.install(t, "acme/toolkit", "pdf")
	claude, codex := f.targets[0], f.targets[1]

	m := f.model(t)
	m = press(t, m, "l")
	require.Equal(t, ViewSkillList, m.view)
	assert.Contains(t, m.View(), "pdf helpers")

	m = press(t, m, "enter")
	require.Equal(t, ViewTargetSelect, m.view)
	assert.Contains(t, m.View(), "Link pdf to:")

	m = press(t, m, "enter")
	assert.Equal(t, "Linked pdf to Claude Code", m.status.Display())
	skill, ok := m.plugins[0].Skill("pdf")
	require.True(t, ok)
	assert.True(t, skill.IsLinkedTo(claude))
	assert.False(t, skill.IsLinkedTo(codex))

	m = press(t, m, "enter")
	assert.True(t, statusContains("Unlinked pdf from Claude Code")(m))
	assert.False(t, skill.IsLinkedTo(claude))

	m = press(t, m, "j", "l")
	assert.True(t, statusContains("Linked pdf to Codex")(m))
	assert.True(t, skill.IsLinkedTo(codex))

	m = press(t, m, "h")
	require.Equal(t, ViewSkillList, m.view)
	assert.Contains(t, m.View(), "[linked]")

	m = press(t, m, "L")
	assert.True(t, statusContains("Linked pdf to all targets")(m))
	assert.True(t, skill.IsLinkedTo(claude))
	assert.True(t, skill.IsLinkedTo(codex))

	m = press(t, m, "L")
	assert.True(t, statusContains("Unlinked pdf from all targets")(m))
	assert.False(t, skill.IsLinked(f.targets))

	m = press(t, m, "esc")
	assert.Equal(t, ViewPluginList, m.view)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	f.install(t, "acme/toolkit", "pdf")
	f.install(t, "acme/widgets", "chart")
	f.install(t, "other/tools", "lint")

	m := f.model(t)
	m = press(t, m, "/")
	require.True(t, m.searchActive)

	m = typeText(t, m, "wid")
	assert.Equal(t, 1, m.selectedPlugin)
	view := m.View()
	assert.Contains(t, view, "Plugins (1 of 3)")
	assert.Contains(t, view, "/wid_")
	assert.NotContains(t, view, "other/tools")

	m = press(t, m, "down", "up")
	assert.Equal(t, 1, m.selectedPlugin)

	m = press(t, m, "backspace", "backspace", "backspace")
	assert.True(t, m.searchActive)
	assert.Empty(t, m.searchQuery)
	m = press(t, m, "backspace")
	assert.False(t, m.searchActive)

	m = press(t, m, "/")
	m = typeText(t, m, "zzz")
	assert.Equal(t, 1, m.selectedPlugin)
	assert.Contains(t, m.View(), "Plugins (0 of 3)")

	m = press(t, m, "esc", "/")
	m = typeText(t, m, "oth")
	m = press(t, m, "enter")
	assert.False(t, m.searchActive)
	assert.Equal(t, ViewSkillList, m.view)
	assert.Equal(t, "other/tools", m.currentPlugin().Name())
}

func TestCacheChangeRefreshesWhenIdle(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)
	require.Empty(t, m.plugins)

	f.install(t, "acme/toolkit", "pdf")
	m = send(t, m, cacheChangedMsg{})
	assert.True(t, m.dirty)

	m = send(t, m, tickMsg(time.Now()))
	assert.False(t, m.dirty)
	require.Len(t, m.plugins, 1)
	assert.True(t, m.status.IsEmpty())
}

func TestRefreshKey(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)

	f.install(t, "acme/toolkit", "pdf")
	m = press(t, m, "r")
	assert.Equal(t, "Refreshed plugin list", m.status.Display())
	assert.Len(t, m.plugins, 1)
}

func TestStatusExpiresOnTick(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	board := status.NewBoard(status.WithClock(func() time.Time { return now }))

	m, err := NewModel(context.Background(), f.store, WithStatusBoard(board))
	require.NoError(t, err)
	t.Cleanup(m.shutdown)

	m = press(t, m, "r")
	assert.False(t, board.IsEmpty())

	now = now.Add(status.DefaultDisplayDuration)
	send(t, m, tickMsg(now))
	assert.Equal(t, "Ready", board.Display())
}

func TestQuit(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		t.Run(k, func(t *testing.T) {
			m := newFixture(t).model(t)
			next, cmd := m.Update(keyMsg(k))
			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
			assert.Empty(t, next.View())
		})
	}
}

func TestWaitForChange(t *testing.T) {
	assert.Nil(t, waitForChange(nil))

	ch := make(chan struct{}, 1)
	ch <- struct{}{}
	assert.Equal(t, cacheChangedMsg{}, waitForChange(ch)())

	close(ch)
	assert.Nil(t, waitForChange(ch)())
}
