// Package targets describes the consumers that skills can be linked into.
// A target is data: a name, a display name and a directory resolved from the
// user's home directory. Adding a consumer means adding a Definition.
package targets

import (
	"path/filepath"
	"strings"
)

// Definition describes a link target before the home directory is known
type Definition struct {
	Name        string
	DisplayName string
	Resolve     func(home string) string
}

// Target is a link target with its resolved skills directory.
// Dir is empty when the home directory could not be determined.
type Target struct {
	Name        string `json:"name" yaml:"name"`
	DisplayName string `json:"displayName" yaml:"displayName"`
	Dir         string `json:"dir" yaml:"dir"`
}

func homeSubdir(parts ...string) func(string) string {
	return func(home string) string {
		if home == "" {
			return ""
		}
		return filepath.Join(append([]string{home}, parts...)...)
	}
}

var defaults = []Definition{
	{Name: "claude", DisplayName: "Claude Code", Resolve: homeSubdir(".claude", "skills")},
	{Name: "codex", DisplayName: "Codex", Resolve: homeSubdir(".codex", "skills")},
}

// Defaults returns the built-in target definitions in display order
func Defaults() []Definition {
	out := make([]Definition, len(defaults))
	copy(out, defaults)
	return out
}

// Fixed returns a definition whose directory does not depend on the home
// directory, except for a leading "~" which is expanded.
func Fixed(name, displayName, dir string) Definition {
	if displayName == "" {
		displayName = name
	}
	return Definition{
		Name:        name,
		DisplayName: displayName,
		Resolve: func(home string) string {
			return ExpandHome(dir, home)
		},
	}
}

// ExpandHome replaces a leading "~" with home. It returns "" when the path
// needs a home directory that is not known.
func ExpandHome(path, home string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home == "" {
			return ""
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

// Merge overlays extra definitions on base. A definition with an existing
// name replaces it in place, new names are appended.
func Merge(base []Definition, extra ...Definition) []Definition {
	out := make([]Definition, len(base))
	copy(out, base)

	for _, def := range extra {
		replaced := false
		for i := range out {
			if out[i].Name == def.Name {
				out[i] = def
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, def)
		}
	}
	return out
}

// Resolve turns definitions into targets for the given home directory
func Resolve(defs []Definition, home string) []Target {
	out := make([]Target, 0, len(defs))
	for _, def := range defs {
		out = append(out, Target{
			Name:        def.Name,
			DisplayName: def.DisplayName,
			Dir:         def.Resolve(home),
		})
	}
	return out
}

// Registry is the resolved, ordered set of targets
type Registry struct {
	targets []Target
}

// NewRegistry creates a registry from resolved targets
func NewRegistry(targets []Target) *Registry {
	r := &Registry{targets: make([]Target, len(targets))}
	copy(r.targets, targets)
	return r
}

// All returns every target in stable order
func (r *Registry) All() []Target {
	out := make([]Target, len(r.targets))
	copy(out, r.targets)
	return out
}

// Get looks a target up by name
func (r *Registry) Get(name string) (Target, bool) {
	for _, t := range r.targets {
		if t.Name == name {
			return t, true
		}
	}
	return Target{}, false
}

// Names returns the target names in order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.targets))
	for _, t := range r.targets {
		names = append(names, t.Name)
	}
	return names
}

// Len returns the number of targets
func (r *Registry) Len() int { return len(r.targets) }
