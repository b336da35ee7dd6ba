package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jingkaihe/silk/pkg/status"
)

const title = "silk - Plugin Manager"

// chrome is the number of lines used around the list: title, list header,
// status bar with its border and the help line
const chrome = 5

var (
	textColor    = lipgloss.Color("7")
	dimColor     = lipgloss.Color("8")
	accentColor  = lipgloss.Color("6")
	successColor = lipgloss.Color("2")
	errorColor   = lipgloss.Color("1")

	titleStyle   = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	textStyle    = lipgloss.NewStyle().Foreground(textColor)
	dimStyle     = lipgloss.NewStyle().Foreground(dimColor)
	accentStyle  = lipgloss.NewStyle().Foreground(accentColor)
	successStyle = lipgloss.NewStyle().Foreground(successColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)

	statusBarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(dimColor)
)

// View renders the current screen
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderTitle())
	b.WriteString("\n")

	switch m.view {
	case ViewSkillList:
		b.WriteString(m.renderSkillList())
	case ViewTargetSelect:
		b.WriteString(m.renderTargetSelect())
	default:
		b.WriteString(m.renderPluginList())
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(m.renderHelpBar())
	return b.String()
}

func (m Model) renderTitle() string {
	rendered := titleStyle.Render(title)
	if m.width > 0 {
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, rendered)
	}
	return rendered
}

func indicator(selected bool) string {
	if selected {
		return accentStyle.Render("> ")
	}
	return dimStyle.Render("  ")
}

func nameStyle(selected bool) lipgloss.Style {
	if selected {
		return accentStyle
	}
	return textStyle
}

func (m Model) renderPluginList() string {
	total := m.totalRows()
	filtered := m.filteredPluginIndices()
	installing := m.pendingInstalls()

	header := fmt.Sprintf("Plugins (%d)", total)
	if m.searchActive && m.searchQuery != "" {
		header = fmt.Sprintf("Plugins (%d of %d)", len(filtered), total)
	}

	if total == 0 {
		return dimStyle.Render(header) + "\n" +
			dimStyle.Render("No plugins installed. Press 'i' to install a plugin.")
	}

	lines := make([]string, 0, total)
	cursor := 0
	for _, i := range filtered {
		p := m.plugins[i]
		selected := i == m.selectedPlugin
		if selected {
			cursor = len(lines)
		}

		list := p.Skills()
		linked := 0
		for _, s := range list {
			if s.IsLinked(m.targets) {
				linked++
			}
		}

		line := indicator(selected) +
			nameStyle(selected).Render(p.Name()) +
			dimStyle.Render(fmt.Sprintf("  [%d/%d linked]", linked, len(list)))
		if m.pendingUpdate(p) {
			line += accentStyle.Render("  [updating]")
		}
		lines = append(lines, line)
	}

	if m.searchQuery == "" {
		for i, job := range installing {
			selected := len(m.plugins)+i == m.selectedPlugin
			if selected {
				cursor = len(lines)
			}
			lines = append(lines, indicator(selected)+
				nameStyle(selected).Render(job.Description)+
				accentStyle.Render("  [installing]"))
		}
	}

	return dimStyle.Render(header) + "\n" + strings.Join(m.window(lines, cursor), "\n")
}

func (m Model) renderSkillList() string {
	p := m.currentPlugin()
	if p == nil {
		return ""
	}

	list := p.Skills()
	filtered := m.filteredSkillIndices()

	header := p.Name()
	if m.searchActive && m.searchQuery != "" {
		header = fmt.Sprintf("%s (%d of %d skills)", p.Name(), len(filtered), len(list))
	}

	if len(list) == 0 {
		return dimStyle.Render(header) + "\n" + dimStyle.Render("No skills in this plugin.")
	}

	lines := make([]string, 0, len(filtered))
	cursor := 0
	for _, i := range filtered {
		s := list[i]
		selected := i == m.selectedSkill
		if selected {
			cursor = len(lines)
		}

		line := indicator(selected) + nameStyle(selected).Render(s.Name)
		if s.IsLinked(m.targets) {
			line += successStyle.Render("  [linked]")
		}
		if selected && s.Description != "" {
			line += dimStyle.Render("  " + s.Description)
		}
		lines = append(lines, line)
	}

	return dimStyle.Render(header) + "\n" + strings.Join(m.window(lines, cursor), "\n")
}

func (m Model) renderTargetSelect() string {
	s, ok := m.currentSkill()
	if !ok {
		return ""
	}

	header := fmt.Sprintf("Link %s to:", s.Name)
	if len(m.targets) == 0 {
		return dimStyle.Render(header) + "\n" + dimStyle.Render("No link targets configured.")
	}

	lines := make([]string, 0, len(m.targets))
	for i, t := range m.targets {
		selected := i == m.selectedTarget
		line := indicator(selected) +
			nameStyle(selected).Render(t.DisplayName) +
			dimStyle.Render("  "+t.Dir)
		if s.IsLinkedTo(t) {
			line += successStyle.Render("  [linked]")
		}
		lines = append(lines, line)
	}

	return dimStyle.Render(header) + "\n" + strings.Join(m.window(lines, m.selectedTarget), "\n")
}

// window returns the lines that fit the terminal, keeping cursor visible
func (m Model) window(lines []string, cursor int) []string {
	height := m.height - chrome
	if m.height == 0 || len(lines) <= height {
		return lines
	}
	height = max(1, height)

	start := 0
	if cursor >= height {
		start = cursor - height + 1
	}
	end := min(start+height, len(lines))
	return lines[start:end]
}

func statusStyle(kind status.Kind) lipgloss.Style {
	switch kind {
	case status.KindError:
		return errorStyle
	case status.KindProgress:
		return accentStyle
	case status.KindInfo:
		return dimStyle
	default:
		return successStyle
	}
}

func (m Model) renderStatusBar() string {
	style := statusBarStyle
	if m.width > 0 {
		style = style.Width(m.width)
	}
	return style.Render(statusStyle(m.status.DisplayKind()).Render(" " + m.status.Display()))
}

func helpText(v View) string {
	switch v {
	case ViewSkillList:
		return "/:search  j/k:navigate  l:link  L:link all  h:back  q:quit"
	case ViewTargetSelect:
		return "j/k:navigate  l:toggle  h:back  q:quit"
	default:
		return "/:search  i:install  d:delete  r:refresh  u:update  l:view  q:quit"
	}
}

func (m Model) renderHelpBar() string {
	if m.searchActive {
		return accentStyle.Render("/" + m.searchQuery + "_")
	}
	if m.view == ViewInstallInput {
		return accentStyle.Render("git url: ") + m.input.View()
	}

	help := dimStyle.Render(helpText(m.view))
	if m.width > 0 {
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, help)
	}
	return help
}
