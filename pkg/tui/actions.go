package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jingkaihe/silk/pkg/jobs"
	"github.com/jingkaihe/silk/pkg/logger"
	"github.com/jingkaihe/silk/pkg/plugins"
	"github.com/jingkaihe/silk/pkg/skills"
	"github.com/jingkaihe/silk/pkg/source"
	"github.com/jingkaihe/silk/pkg/status"
)

// pendingInstalls returns the install jobs that have not been collected yet
func (m *Model) pendingInstalls() []*jobs.Job {
	var out []*jobs.Job
	for _, j := range m.runner.Pending() {
		if j.Kind == jobs.KindInstall {
			out = append(out, j)
		}
	}
	return out
}

// pendingUpdate reports whether an update for the plugin is still running
func (m *Model) pendingUpdate(p *plugins.Plugin) bool {
	for _, j := range m.runner.Pending() {
		if j.Kind == jobs.KindUpdate && j.Description == p.Name() {
			return true
		}
	}
	return false
}

func (m *Model) totalRows() int {
	return len(m.plugins) + len(m.pendingInstalls())
}

func (m *Model) isSelectedInstalling() bool {
	return m.selectedPlugin >= len(m.plugins)
}

func (m *Model) currentPlugin() *plugins.Plugin {
	if m.selectedPlugin < 0 || m.selectedPlugin >= len(m.plugins) {
		return nil
	}
	return m.plugins[m.selectedPlugin]
}

func (m *Model) currentSkill() (skills.Skill, bool) {
	p := m.currentPlugin()
	if p == nil {
		return skills.Skill{}, false
	}
	list := p.Skills()
	if m.selectedSkill < 0 || m.selectedSkill >= len(list) {
		return skills.Skill{}, false
	}
	return list[m.selectedSkill], true
}

func (m *Model) clampPlugin() {
	m.selectedPlugin = min(m.selectedPlugin, max(0, m.totalRows()-1))
}

func (m *Model) selectNext() {
	switch m.view {
	case ViewPluginList:
		if total := m.totalRows(); total > 0 && m.selectedPlugin < total-1 {
			m.selectedPlugin++
		}
	case ViewSkillList:
		if p := m.currentPlugin(); p != nil {
			if n := len(p.Skills()); n > 0 && m.selectedSkill < n-1 {
				m.selectedSkill++
			}
		}
	case ViewTargetSelect:
		if m.selectedTarget < len(m.targets)-1 {
			m.selectedTarget++
		}
	}
}

func (m *Model) selectPrev() {
	switch m.view {
	case ViewPluginList:
		if m.selectedPlugin > 0 {
			m.selectedPlugin--
		}
	case ViewSkillList:
		if m.selectedSkill > 0 {
			m.selectedSkill--
		}
	case ViewTargetSelect:
		if m.selectedTarget > 0 {
			m.selectedTarget--
		}
	}
}

func (m *Model) scrollDown() {
	switch m.view {
	case ViewPluginList:
		if total := m.totalRows(); total > 0 {
			m.selectedPlugin = min(m.selectedPlugin+scrollAmount, total-1)
		}
	case ViewSkillList:
		if p := m.currentPlugin(); p != nil {
			if n := len(p.Skills()); n > 0 {
				m.selectedSkill = min(m.selectedSkill+scrollAmount, n-1)
			}
		}
	}
}

func (m *Model) scrollUp() {
	switch m.view {
	case ViewPluginList:
		m.selectedPlugin = max(0, m.selectedPlugin-scrollAmount)
	case ViewSkillList:
		m.selectedSkill = max(0, m.selectedSkill-scrollAmount)
	}
}

func (m *Model) enterSkillList() {
	if m.isSelectedInstalling() && m.totalRows() > 0 {
		m.status.Add("view:error", "Plugin is still installing", status.KindError)
		return
	}
	if m.currentPlugin() != nil {
		m.selectedSkill = 0
		m.view = ViewSkillList
	}
}

func (m *Model) enterTargetSelect() {
	if _, ok := m.currentSkill(); !ok {
		return
	}
	m.selectedTarget = 0
	m.view = ViewTargetSelect
}

func (m *Model) enterInstallInput() tea.Cmd {
	m.input.Reset()
	m.view = ViewInstallInput
	return tea.Batch(m.input.Focus(), textinput.Blink)
}

func (m *Model) backToPluginList() {
	m.view = ViewPluginList
	m.input.Reset()
	m.input.Blur()
	m.exitSearch()
}

// reload replaces the plugin list with what is on disk. Explicit reloads
// report on the status board.
func (m *Model) reload(explicit bool) {
	m.dirty = false

	list, err := m.manager.ListInstalled(m.ctx)
	if err != nil {
		m.status.Add("refresh", fmt.Sprintf("Error: %s", err), status.KindError)
		return
	}
	m.plugins = list
	m.clampPlugin()
	if p := m.currentPlugin(); p != nil {
		m.selectedSkill = min(m.selectedSkill, max(0, len(p.Skills())-1))
	}
	if explicit {
		m.status.Add("refresh", "Refreshed plugin list", status.KindSuccess)
	}
}

// merge replaces the plugin with the same repository or appends it
func (m *Model) merge(p *plugins.Plugin) {
	for i, existing := range m.plugins {
		if existing.SameRepository(p) {
			m.plugins[i] = p
			return
		}
	}
	m.plugins = append(m.plugins, p)
}

func (m *Model) startInstall() {
	ref := strings.TrimSpace(m.input.Value())
	if ref == "" {
		m.status.Add("install:error", "URL cannot be empty", status.KindError)
		return
	}

	id, err := source.Parse(ref)
	if err != nil {
		m.status.Add("install:error", fmt.Sprintf("Invalid URL: %s", ref), status.KindError)
		return
	}

	m.backToPluginList()
	if m.manager.IsInstalled(id) {
		m.status.Add("install:"+ref, fmt.Sprintf("Already installed: %s", id.Name()), status.KindInfo)
		return
	}

	job := m.runner.Install(ref)
	m.status.Add(job.Key, fmt.Sprintf("Installing %s...", ref), status.KindProgress)
	logger.G(m.ctx).WithField("plugin", id.Name()).Debug("install started")
}

func (m *Model) updateSelected() {
	if m.totalRows() == 0 {
		m.status.Add("update:error", "No plugin selected", status.KindError)
		return
	}
	if m.isSelectedInstalling() {
		m.status.Add("update:error", "Plugin is still installing", status.KindError)
		return
	}

	p := m.plugins[m.selectedPlugin]
	job := m.runner.Update(p)
	m.status.Add(job.Key, fmt.Sprintf("Updating %s...", p.Name()), status.KindProgress)
}

func (m *Model) deleteSelected() {
	if m.totalRows() == 0 {
		m.status.Add("delete:error", "No plugin selected", status.KindError)
		return
	}
	if m.isSelectedInstalling() {
		m.status.Add("delete:error", "Plugin is still installing", status.KindError)
		return
	}

	p := m.plugins[m.selectedPlugin]
	id := "delete:" + p.Name()
	if err := m.manager.Remove(m.ctx, p); err != nil {
		m.status.Add(id, fmt.Sprintf("Delete failed: %s", err), status.KindError)
		return
	}

	m.plugins = append(m.plugins[:m.selectedPlugin:m.selectedPlugin], m.plugins[m.selectedPlugin+1:]...)
	m.clampPlugin()
	m.status.Add(id, fmt.Sprintf("Deleted: %s", p.Name()), status.KindSuccess)
}

// pollJobs collects finished jobs, folds their plugins into the list and
// reports the outcome under the job's status id.
func (m *Model) pollJobs() {
	for _, r := range m.runner.Poll() {
		switch r.Job.Kind {
		case jobs.KindInstall:
			if r.Err != nil {
				m.status.Add(r.Job.Key, fmt.Sprintf("Install failed (%s): %s", r.Job.Description, r.Err), status.KindError)
				continue
			}
			m.merge(r.Plugin)
			m.status.Add(r.Job.Key, fmt.Sprintf("Installed: %s", r.Plugin.Name()), status.KindSuccess)
		case jobs.KindUpdate:
			if r.Err != nil {
				m.status.Add(r.Job.Key, fmt.Sprintf("Update failed: %s", r.Err), status.KindError)
				continue
			}
			m.merge(r.Plugin)
			m.status.Add(r.Job.Key, fmt.Sprintf("Updated: %s", r.Job.Description), status.KindSuccess)
		}
	}
	m.clampPlugin()
}

func (m *Model) toggleSelectedTarget() {
	s, ok := m.currentSkill()
	if !ok || m.selectedTarget >= len(m.targets) {
		return
	}

	t := m.targets[m.selectedTarget]
	id := fmt.Sprintf("link:%s:%s", t.DisplayName, s.Name)
	log := logger.G(m.ctx).WithField("skill", s.QualifiedName()).WithField("target", t.Name)

	if s.IsLinkedTo(t) {
		if err := s.UnlinkFrom(t); err != nil {
			log.WithError(err).Debug("unlink failed")
			m.status.Add(id, fmt.Sprintf("Unlink failed: %s", err), status.KindError)
			return
		}
		m.status.Add(id, fmt.Sprintf("Unlinked %s from %s", s.Name, t.DisplayName), status.KindSuccess)
		return
	}

	if err := s.LinkTo(t); err != nil {
		log.WithError(err).Debug("link failed")
		m.status.Add(id, fmt.Sprintf("Link failed: %s", err), status.KindError)
		return
	}
	m.status.Add(id, fmt.Sprintf("Linked %s to %s", s.Name, t.DisplayName), status.KindSuccess)
}

func (m *Model) toggleAllTargets() {
	s, ok := m.currentSkill()
	if !ok {
		return
	}

	id := "link:all:" + s.Name
	linked, err := s.ToggleAll(m.targets)
	switch {
	case err != nil:
		m.status.Add(id, err.Error(), status.KindError)
	case linked:
		m.status.Add(id, fmt.Sprintf("Linked %s to all targets", s.Name), status.KindSuccess)
	default:
		m.status.Add(id, fmt.Sprintf("Unlinked %s from all targets", s.Name), status.KindSuccess)
	}
}
