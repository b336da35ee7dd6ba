// Package skills finds skill markers inside plugin repositories and manages
// the symlinks that expose individual skills to their consumers.
// A skill is a directory containing a SKILL.md file, optionally starting with
// a YAML front matter block that carries its description.
package skills

import (
	"os"
	"path/filepath"

	"github.com/jingkaihe/silk/pkg/targets"
	"github.com/pkg/errors"
)

// Skill is a skill discovered inside an installed plugin.
// Whether it is linked is never stored; it is read from the filesystem.
type Skill struct {
	Name        string `json:"name" yaml:"name"`
	Path        string `json:"path" yaml:"path"` // path of the SKILL.md marker
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Owner       string `json:"owner" yaml:"owner"`
	Repo        string `json:"repo" yaml:"repo"`
}

// FromFound attributes a scanned marker to the plugin owner/repo
func FromFound(f Found, owner, repo string) Skill {
	return Skill{
		Name:        f.Name,
		Path:        f.Path,
		Description: f.Description,
		Owner:       owner,
		Repo:        repo,
	}
}

// QualifiedName returns "owner:repo:name", unique across installed plugins
func (s Skill) QualifiedName() string {
	return s.Owner + ":" + s.Repo + ":" + s.Name
}

// Dir returns the directory the link points at
func (s Skill) Dir() string {
	return filepath.Dir(s.Path)
}

// LinkPath returns where the skill's link lives in the target
func (s Skill) LinkPath(t targets.Target) string {
	return linkPath(t, s.QualifiedName())
}

func linkPath(t targets.Target, qualifiedName string) string {
	if t.Dir == "" {
		return ""
	}
	return filepath.Join(t.Dir, qualifiedName)
}

// IsLinkedTo reports whether the link path resolves to an existing entry.
// A dangling link counts as not linked.
func (s Skill) IsLinkedTo(t targets.Target) bool {
	p := s.LinkPath(t)
	if p == "" {
		return false
	}
	_, err := os.Stat(p)
	return err == nil
}

// IsLinked reports whether the skill is linked to at least one target
func (s Skill) IsLinked(ts []targets.Target) bool {
	for _, t := range ts {
		if s.IsLinkedTo(t) {
			return true
		}
	}
	return false
}

// LinkedTargets returns the targets the skill is linked to
func (s Skill) LinkedTargets(ts []targets.Target) []targets.Target {
	var linked []targets.Target
	for _, t := range ts {
		if s.IsLinkedTo(t) {
			linked = append(linked, t)
		}
	}
	return linked
}

// LinkTo creates a symlink to the skill directory inside the target.
// Any existing entry at the link path, even a dangling link, is an AlreadyLinkedError.
func (s Skill) LinkTo(t targets.Target) error {
	name := s.QualifiedName()
	p := s.LinkPath(t)
	if p == "" {
		return &LinkError{Name: name, Reason: "cannot determine home directory"}
	}

	if _, err := os.Lstat(p); err == nil {
		return &AlreadyLinkedError{Name: name}
	}

	if err := os.MkdirAll(t.Dir, 0o755); err != nil {
		return &LinkError{Name: name, Reason: err.Error(), Err: err}
	}

	if err := os.Symlink(s.Dir(), p); err != nil {
		return &LinkError{Name: name, Reason: err.Error(), Err: err}
	}

	return nil
}

// UnlinkFrom removes the skill's link from the target
func (s Skill) UnlinkFrom(t targets.Target) error {
	name := s.QualifiedName()
	p := s.LinkPath(t)
	if p == "" {
		return &NotLinkedError{Name: name}
	}

	if _, err := os.Lstat(p); err != nil {
		return &NotLinkedError{Name: name}
	}

	if err := os.Remove(p); err != nil {
		return errors.Wrapf(err, "failed to remove link %s", p)
	}
	return nil
}

// ToggleAll unlinks the skill from every target when it is linked to all of
// them, otherwise links it to each target it is missing from. It reports the
// resulting state. The first failure stops the sequence; changes already made
// are kept and the error names the failing target.
func (s Skill) ToggleAll(ts []targets.Target) (bool, error) {
	allLinked := len(ts) > 0
	for _, t := range ts {
		if !s.IsLinkedTo(t) {
			allLinked = false
			break
		}
	}

	if allLinked {
		for _, t := range ts {
			if err := s.UnlinkFrom(t); err != nil {
				return true, &TargetError{Target: t, Op: "unlink", Err: err}
			}
		}
		return false, nil
	}

	for _, t := range ts {
		if s.IsLinkedTo(t) {
			continue
		}
		if err := s.LinkTo(t); err != nil {
			return false, &TargetError{Target: t, Op: "link", Err: err}
		}
	}
	return true, nil
}

// RemoveLink removes whatever sits at the qualified name's link path in the
// target, including a dangling link. A missing entry is not an error.
func RemoveLink(t targets.Target, qualifiedName string) error {
	p := linkPath(t, qualifiedName)
	if p == "" {
		return nil
	}
	if _, err := os.Lstat(p); err != nil {
		return nil
	}
	if err := os.Remove(p); err != nil {
		return errors.Wrapf(err, "failed to remove link %s", p)
	}
	return nil
}
