package skills

import (
	"fmt"

	"github.com/jingkaihe/silk/pkg/targets"
	"github.com/pkg/errors"
)

// LinkError is returned when a link cannot be created
type LinkError struct {
	Name   string
	Reason string
	Err    error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link failed for %s: %s", e.Name, e.Reason)
}

func (e *LinkError) Unwrap() error { return e.Err }

// AlreadyLinkedError is returned when something already exists at the link path
type AlreadyLinkedError struct {
	Name string
}

func (e *AlreadyLinkedError) Error() string {
	return fmt.Sprintf("skill already linked: %s", e.Name)
}

// NotLinkedError is returned when unlinking a skill that has no link
type NotLinkedError struct {
	Name string
}

func (e *NotLinkedError) Error() string {
	return fmt.Sprintf("skill not linked: %s", e.Name)
}

// TargetError names the target a multi-target operation stopped at
type TargetError struct {
	Target targets.Target
	Op     string
	Err    error
}

func (e *TargetError) Error() string {
	if e.Op == "unlink" {
		return fmt.Sprintf("Unlink from %s failed: %s", e.Target.DisplayName, e.Err)
	}
	return fmt.Sprintf("Link to %s failed: %s", e.Target.DisplayName, e.Err)
}

func (e *TargetError) Unwrap() error { return e.Err }

// IsAlreadyLinked reports whether err is or wraps an AlreadyLinkedError
func IsAlreadyLinked(err error) bool {
	var target *AlreadyLinkedError
	return errors.As(err, &target)
}

// IsNotLinked reports whether err is or wraps a NotLinkedError
func IsNotLinked(err error) bool {
	var target *NotLinkedError
	return errors.As(err, &target)
}
