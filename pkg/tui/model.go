package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/jingkaihe/silk/pkg/jobs"
	"github.com/jingkaihe/silk/pkg/logger"
	"github.com/jingkaihe/silk/pkg/plugins"
	"github.com/jingkaihe/silk/pkg/source"
	"github.com/jingkaihe/silk/pkg/status"
	"github.com/jingkaihe/silk/pkg/targets"
)

const (
	pollInterval    = 100 * time.Millisecond
	scrollAmount    = 10
	shutdownTimeout = 2 * time.Second
)

// Manager is the plugin store as seen by the interactive shell
type Manager interface {
	jobs.Store
	ListInstalled(ctx context.Context) ([]*plugins.Plugin, error)
	IsInstalled(id source.Identity) bool
	Remove(ctx context.Context, p *plugins.Plugin) error
	Targets() []targets.Target
}

// View is the screen currently shown
type View int

// Views
const (
	ViewPluginList View = iota
	ViewSkillList
	ViewTargetSelect
	ViewInstallInput
)

// Model represents the main TUI model
type Model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	manager Manager
	runner  *jobs.Runner
	status  *status.Board
	targets []targets.Target

	plugins        []*plugins.Plugin
	view           View
	selectedPlugin int
	selectedSkill  int
	selectedTarget int

	input        textinput.Model
	searchActive bool
	searchQuery  string

	// changes delivers cache directory notifications; dirty is set until the
	// next refresh picks them up
	changes <-chan struct{}
	dirty   bool

	width    int
	height   int
	quitting bool
}

// Option configures a Model
type Option func(*Model)

// WithStatusBoard replaces the default status board
func WithStatusBoard(b *status.Board) Option {
	return func(m *Model) {
		m.status = b
	}
}

// WithChanges sets the channel that signals cache directory changes
func WithChanges(ch <-chan struct{}) Option {
	return func(m *Model) {
		m.changes = ch
	}
}

type tickMsg time.Time

type cacheChangedMsg struct{}

// NewModel creates the model and loads the installed plugins
func NewModel(ctx context.Context, manager Manager, opts ...Option) (Model, error) {
	ctx, cancel := context.WithCancel(ctx)

	ti := textinput.New()
	ti.Placeholder = "https://github.com/owner/repo"
	ti.Prompt = ""
	ti.CharLimit = 512

	m := Model{
		ctx:     ctx,
		cancel:  cancel,
		manager: manager,
		runner:  jobs.NewRunner(ctx, manager),
		status:  status.NewBoard(),
		targets: manager.Targets(),
		view:    ViewPluginList,
		input:   ti,
	}
	for _, opt := range opts {
		opt(&m)
	}

	list, err := manager.ListInstalled(ctx)
	if err != nil {
		cancel()
		return Model{}, errors.Wrap(err, "failed to list installed plugins")
	}
	m.plugins = list

	return m, nil
}

// Init starts the poll loop and the cache watch
func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), waitForChange(m.changes))
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return cacheChangedMsg{}
	}
}

// Update handles the message updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.pollJobs()
		if m.dirty && m.runner.Len() == 0 {
			m.reload(false)
		}
		m.status.ClearExpired()
		return m, tick()

	case cacheChangedMsg:
		m.dirty = true
		return m, waitForChange(m.changes)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(10, msg.Width-12)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m.quit()
		}
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searchActive && (m.view == ViewPluginList || m.view == ViewSkillList) {
		return m.handleSearchKey(msg)
	}

	switch m.view {
	case ViewSkillList:
		return m.handleSkillListKey(msg)
	case ViewTargetSelect:
		return m.handleTargetKey(msg)
	case ViewInstallInput:
		return m.handleInstallKey(msg)
	default:
		return m.handlePluginListKey(msg)
	}
}

func (m Model) handlePluginListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m.quit()
	case "j", "down":
		m.selectNext()
	case "k", "up":
		m.selectPrev()
	case "ctrl+d":
		m.scrollDown()
	case "ctrl+u":
		m.scrollUp()
	case "enter", "l":
		m.enterSkillList()
	case "i":
		return m, m.enterInstallInput()
	case "d":
		m.deleteSelected()
	case "r":
		m.reload(true)
	case "u":
		m.updateSelected()
	case "/":
		m.enterSearch()
	}
	return m, nil
}

func (m Model) handleSkillListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m.quit()
	case "esc", "h":
		m.backToPluginList()
	case "j", "down":
		m.selectNext()
	case "k", "up":
		m.selectPrev()
	case "ctrl+d":
		m.scrollDown()
	case "ctrl+u":
		m.scrollUp()
	case "enter", "l":
		m.enterTargetSelect()
	case "L":
		m.toggleAllTargets()
	case "/":
		m.enterSearch()
	}
	return m, nil
}

func (m Model) handleTargetKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m.quit()
	case "esc", "h":
		m.view = ViewSkillList
	case "j", "down":
		m.selectNext()
	case "k", "up":
		m.selectPrev()
	case "enter", "l":
		m.toggleSelectedTarget()
	}
	return m, nil
}

func (m Model) handleInstallKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.backToPluginList()
		return m, nil
	case tea.KeyEnter:
		m.startInstall()
		return m, nil
	case tea.KeyBackspace:
		if m.input.Value() == "" {
			m.backToPluginList()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.exitSearch()
	case tea.KeyEnter:
		m.exitSearch()
		if m.view == ViewPluginList {
			m.enterSkillList()
		} else {
			m.enterTargetSelect()
		}
	case tea.KeyBackspace:
		if m.searchQuery == "" {
			m.exitSearch()
		} else {
			r := []rune(m.searchQuery)
			m.searchQuery = string(r[:len(r)-1])
			m.selectFirstFiltered()
		}
	case tea.KeyUp:
		m.moveFiltered(-1)
	case tea.KeyDown:
		m.moveFiltered(1)
	case tea.KeyRunes, tea.KeySpace:
		m.searchQuery += string(msg.Runes)
		m.selectFirstFiltered()
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.shutdown()
	return m, tea.Quit
}

// shutdown cancels running jobs and waits briefly for them to exit
func (m Model) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := m.runner.Shutdown(ctx); err != nil {
		logger.G(m.ctx).WithError(err).Warn("background jobs did not stop in time")
	}
	m.cancel()
}
