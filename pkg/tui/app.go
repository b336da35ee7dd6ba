// Package tui is the interactive plugin manager: a bubbletea program that
// lists installed plugins and their skills, links skills into targets and
// runs installs and updates in the background.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/jingkaihe/silk/pkg/logger"
)

// Run starts the interactive plugin manager and blocks until it exits.
// cacheDir is watched so changes made by other processes show up.
func Run(ctx context.Context, manager Manager, cacheDir string, opts ...Option) error {
	watcher, err := NewCacheWatcher(ctx, cacheDir)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("cache watcher unavailable, refresh manually with r")
	} else {
		defer watcher.Close()
		opts = append(opts, WithChanges(watcher.Changes()))
	}

	model, err := NewModel(ctx, manager, opts...)
	if err != nil {
		return err
	}
	defer model.shutdown()

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return errors.Wrap(err, "error running program")
	}
	return nil
}
