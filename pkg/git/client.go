// Package git wraps the git command line for the few operations plugins need:
// shallow clone, fast-forward pull and repository detection.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jingkaihe/silk/pkg/logger"
	"github.com/jingkaihe/silk/pkg/osutil"
	"github.com/pkg/errors"
)

// Client is the set of git operations used by the plugin store
type Client interface {
	Clone(ctx context.Context, url, dest string) error
	Pull(ctx context.Context, path string) error
	IsRepository(path string) bool
}

// CloneError is returned when cloning a repository fails
type CloneError struct {
	URL    string
	Stderr string
	Err    error
}

func (e *CloneError) Error() string {
	return fmt.Sprintf("git clone failed for %s: %s", e.URL, detail(e.Stderr, e.Err))
}

func (e *CloneError) Unwrap() error { return e.Err }

// UpdateError is returned when pulling a repository fails
type UpdateError struct {
	Path   string
	Stderr string
	Err    error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("git pull failed: %s", detail(e.Stderr, e.Err))
}

func (e *UpdateError) Unwrap() error { return e.Err }

func detail(stderr string, err error) string {
	if s := strings.TrimSpace(stderr); s != "" {
		return s
	}
	if err != nil {
		return err.Error()
	}
	return "unknown error"
}

// IsCloneError reports whether err is or wraps a CloneError
func IsCloneError(err error) bool {
	var target *CloneError
	return errors.As(err, &target)
}

// IsUpdateError reports whether err is or wraps an UpdateError
func IsUpdateError(err error) bool {
	var target *UpdateError
	return errors.As(err, &target)
}

// CLIClient runs the git binary found on PATH
type CLIClient struct {
	binary  string
	timeout time.Duration
}

// Option configures a CLIClient
type Option func(*CLIClient)

// WithTimeout bounds every git invocation. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(c *CLIClient) {
		c.timeout = d
	}
}

// WithBinary overrides the git executable
func WithBinary(path string) Option {
	return func(c *CLIClient) {
		c.binary = path
	}
}

// NewCLIClient creates a git client backed by the git command
func NewCLIClient(opts ...Option) *CLIClient {
	c := &CLIClient{binary: "git"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CLIClient) run(ctx context.Context, dir string, args ...string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Dir = dir
	// never block on a credential prompt
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	osutil.SetProcessGroup(cmd)
	osutil.SetProcessGroupKill(cmd)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.G(ctx).WithField("args", args).WithField("dir", dir).Debug("running git")
	err := cmd.Run()
	if err == nil {
		return "", nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = errors.Wrap(ctxErr, err.Error())
	}
	return stderr.String(), err
}

// Clone performs a shallow clone of url into dest
func (c *CLIClient) Clone(ctx context.Context, url, dest string) error {
	stderr, err := c.run(ctx, "", "clone", "--depth", "1", url, dest)
	if err != nil {
		return &CloneError{URL: url, Stderr: stderr, Err: err}
	}
	return nil
}

// Pull fast-forwards the repository at path
func (c *CLIClient) Pull(ctx context.Context, path string) error {
	stderr, err := c.run(ctx, path, "pull", "--ff-only")
	if err != nil {
		return &UpdateError{Path: path, Stderr: stderr, Err: err}
	}
	return nil
}

// IsRepository reports whether path is the top of a git work tree.
// A plain directory nested inside some other work tree does not count.
func (c *CLIClient) IsRepository(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	if _, err := os.Stat(filepath.Join(path, ".git")); err != nil {
		return false
	}

	cmd := exec.Command(c.binary, "-C", path, "rev-parse", "--is-inside-work-tree")
	out, err := cmd.Output()
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(out)) == "true"
}
