package tui

import (
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"
)

// filterIndices returns the indices of the candidates that fuzzy-match
// query, in list order. An empty query matches everything.
func filterIndices(query string, candidates []string) []int {
	if query == "" {
		all := make([]int, len(candidates))
		for i := range candidates {
			all[i] = i
		}
		return all
	}

	lowered := make([]string, len(candidates))
	for i, c := range candidates {
		lowered[i] = strings.ToLower(c)
	}

	matches := fuzzy.Find(strings.ToLower(query), lowered)
	indices := make([]int, 0, len(matches))
	for _, match := range matches {
		indices = append(indices, match.Index)
	}
	slices.Sort(indices)
	return indices
}

func (m *Model) filteredPluginIndices() []int {
	names := make([]string, len(m.plugins))
	for i, p := range m.plugins {
		names[i] = p.Name()
	}
	return filterIndices(m.searchQuery, names)
}

func (m *Model) filteredSkillIndices() []int {
	p := m.currentPlugin()
	if p == nil {
		return nil
	}
	list := p.Skills()
	names := make([]string, len(list))
	for i, s := range list {
		names[i] = s.Name
	}
	return filterIndices(m.searchQuery, names)
}

func (m *Model) enterSearch() {
	m.searchActive = true
	m.searchQuery = ""
}

func (m *Model) exitSearch() {
	m.searchActive = false
	m.searchQuery = ""
}

func (m *Model) selectFirstFiltered() {
	switch m.view {
	case ViewPluginList:
		if filtered := m.filteredPluginIndices(); len(filtered) > 0 {
			m.selectedPlugin = filtered[0]
		}
	case ViewSkillList:
		if filtered := m.filteredSkillIndices(); len(filtered) > 0 {
			m.selectedSkill = filtered[0]
		}
	}
}

// moveFiltered moves the selection by delta within the filtered results.
// A selection outside the results jumps to the first match.
func (m *Model) moveFiltered(delta int) {
	var (
		filtered []int
		current  *int
	)
	switch m.view {
	case ViewPluginList:
		filtered, current = m.filteredPluginIndices(), &m.selectedPlugin
	case ViewSkillList:
		filtered, current = m.filteredSkillIndices(), &m.selectedSkill
	default:
		return
	}
	if len(filtered) == 0 {
		return
	}

	pos := slices.Index(filtered, *current)
	if pos < 0 {
		*current = filtered[0]
		return
	}
	if next := pos + delta; next >= 0 && next < len(filtered) {
		*current = filtered[next]
	}
}
