// Package plugins manages the local cache of plugin repositories: installing,
// updating and removing them, and keeping skill links consistent when a
// repository changes underneath them.
package plugins

import (
	"github.com/jingkaihe/silk/pkg/skills"
	"github.com/jingkaihe/silk/pkg/source"
)

// Plugin is an installed repository and the skills found in it.
// Values are never mutated; operations that change a plugin return a new one.
type Plugin struct {
	Host  string
	Owner string
	Repo  string
	Path  string

	skills []skills.Skill
}

func newPlugin(id source.Identity, path string, found []skills.Found) *Plugin {
	p := &Plugin{
		Host:  id.Host,
		Owner: id.Owner,
		Repo:  id.Repo,
		Path:  path,
	}
	p.skills = make([]skills.Skill, 0, len(found))
	for _, f := range found {
		p.skills = append(p.skills, skills.FromFound(f, id.Owner, id.Repo))
	}
	return p
}

// Name returns "owner/repo"
func (p *Plugin) Name() string {
	return p.Owner + "/" + p.Repo
}

// Identity returns the repository identity of the plugin
func (p *Plugin) Identity() source.Identity {
	return source.FromPath(p.Host, p.Owner, p.Repo)
}

// Skills returns a copy of the plugin's skills in scan order
func (p *Plugin) Skills() []skills.Skill {
	out := make([]skills.Skill, len(p.skills))
	copy(out, p.skills)
	return out
}

// Skill returns the first skill with the given short or qualified name
func (p *Plugin) Skill(name string) (skills.Skill, bool) {
	for _, s := range p.skills {
		if s.Name == name || s.QualifiedName() == name {
			return s, true
		}
	}
	return skills.Skill{}, false
}

// SameRepository reports whether both plugins refer to the same repository
func (p *Plugin) SameRepository(other *Plugin) bool {
	if other == nil {
		return false
	}
	return p.Host == other.Host && p.Owner == other.Owner && p.Repo == other.Repo
}
