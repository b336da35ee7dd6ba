package plugins

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jingkaihe/silk/pkg/git"
	"github.com/jingkaihe/silk/pkg/logger"
	"github.com/jingkaihe/silk/pkg/skills"
	"github.com/jingkaihe/silk/pkg/source"
	"github.com/jingkaihe/silk/pkg/targets"
	"github.com/jingkaihe/silk/pkg/telemetry"
	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
	"go.opentelemetry.io/otel/attribute"
)

const lockDir = ".locks"

// NotInstalledError is returned when an operation needs a plugin that is not in the cache
type NotInstalledError struct {
	Name string
}

func (e *NotInstalledError) Error() string {
	return fmt.Sprintf("plugin not installed: %s", e.Name)
}

// IsNotInstalled reports whether err is or wraps a NotInstalledError
func IsNotInstalled(err error) bool {
	var target *NotInstalledError
	return errors.As(err, &target)
}

// StoreConfig holds the explicit inputs of a Store
type StoreConfig struct {
	CacheDir string
	Targets  []targets.Target
}

// Store manages plugin repositories under a cache root laid out as host/owner/repo
type Store struct {
	cacheDir string
	targets  []targets.Target
	git      git.Client
	scanner  *skills.Scanner
	locking  bool
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithGitClient replaces the git command line client
func WithGitClient(c git.Client) StoreOption {
	return func(s *Store) {
		s.git = c
	}
}

// WithScanner replaces the default skill scanner
func WithScanner(sc *skills.Scanner) StoreOption {
	return func(s *Store) {
		s.scanner = sc
	}
}

// WithLocking turns the per-repository file lock on or off
func WithLocking(enabled bool) StoreOption {
	return func(s *Store) {
		s.locking = enabled
	}
}

// NewStore creates a store rooted at cfg.CacheDir
func NewStore(cfg StoreConfig, opts ...StoreOption) (*Store, error) {
	if cfg.CacheDir == "" {
		return nil, errors.New("cache directory is required")
	}

	s := &Store{
		cacheDir: cfg.CacheDir,
		targets:  append([]targets.Target(nil), cfg.Targets...),
		locking:  true,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.git == nil {
		s.git = git.NewCLIClient()
	}
	if s.scanner == nil {
		sc, err := skills.NewScanner()
		if err != nil {
			return nil, err
		}
		s.scanner = sc
	}

	return s, nil
}

// CacheDir returns the cache root
func (s *Store) CacheDir() string { return s.cacheDir }

// Targets returns the link targets reconciled by Update and cleaned by Remove
func (s *Store) Targets() []targets.Target {
	return append([]targets.Target(nil), s.targets...)
}

// LocalPath returns the cache directory of a repository
func (s *Store) LocalPath(id source.Identity) string {
	return filepath.Join(s.cacheDir, id.RelPath())
}

// Install clones the repository, or pulls it when it is already cached,
// and returns the freshly scanned plugin.
func (s *Store) Install(ctx context.Context, ref string) (*Plugin, error) {
	id, err := source.Parse(ref)
	if err != nil {
		return nil, err
	}

	var plugin *Plugin
	err = telemetry.WithSpan(ctx, "plugins.install", func(ctx context.Context) error {
		path := s.LocalPath(id)
		log := logger.G(ctx).WithField("plugin", id.String()).WithField("path", path)

		unlock, err := s.lock(id)
		if err != nil {
			return err
		}
		defer unlock()

		if s.git.IsRepository(path) {
			log.Debug("plugin already cached, pulling")
			if err := s.git.Pull(ctx, path); err != nil {
				return err
			}
		} else {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return errors.Wrap(err, "failed to create plugin directory")
			}
			log.Debug("cloning plugin")
			if err := s.git.Clone(ctx, id.URL, path); err != nil {
				s.pruneParents(ctx, path)
				return err
			}
		}

		plugin, err = s.load(ctx, id, path)
		if err != nil {
			return err
		}
		log.WithField("skills", len(plugin.skills)).Info("installed plugin")
		return nil
	}, attribute.String("plugin", id.String()))
	if err != nil {
		return nil, err
	}

	return plugin, nil
}

type linkSnapshot struct {
	target        targets.Target
	qualifiedName string
	markerPath    string
}

// Update pulls the plugin and reconciles its links: links of skills that
// disappeared are removed, links of skills that moved are recreated on the
// targets they were linked to. Reconciliation is best-effort.
func (s *Store) Update(ctx context.Context, p *Plugin) (*Plugin, error) {
	if !s.git.IsRepository(p.Path) {
		return nil, &git.UpdateError{Path: p.Path, Stderr: "plugin is not installed"}
	}

	id := p.Identity()
	var updated *Plugin
	err := telemetry.WithSpan(ctx, "plugins.update", func(ctx context.Context) error {
		log := logger.G(ctx).WithField("plugin", id.String()).WithField("path", p.Path)

		unlock, err := s.lock(id)
		if err != nil {
			return err
		}
		defer unlock()

		var snapshot []linkSnapshot
		for _, sk := range p.skills {
			for _, t := range s.targets {
				if sk.IsLinkedTo(t) {
					snapshot = append(snapshot, linkSnapshot{
						target:        t,
						qualifiedName: sk.QualifiedName(),
						markerPath:    sk.Path,
					})
				}
			}
		}

		if err := s.git.Pull(ctx, p.Path); err != nil {
			return err
		}

		updated, err = s.load(ctx, id, p.Path)
		if err != nil {
			return err
		}

		s.reconcile(ctx, snapshot, updated)
		log.WithField("skills", len(updated.skills)).Info("updated plugin")
		return nil
	}, attribute.String("plugin", id.String()))
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (s *Store) reconcile(ctx context.Context, snapshot []linkSnapshot, updated *Plugin) {
	current := make(map[string]skills.Skill, len(updated.skills))
	for _, sk := range updated.skills {
		if _, ok := current[sk.QualifiedName()]; !ok {
			current[sk.QualifiedName()] = sk
		}
	}

	for _, snap := range snapshot {
		log := logger.G(ctx).WithField("skill", snap.qualifiedName).WithField("target", snap.target.Name)

		sk, ok := current[snap.qualifiedName]
		if !ok {
			if err := skills.RemoveLink(snap.target, snap.qualifiedName); err != nil {
				log.WithError(err).Debug("failed to remove link of deleted skill")
			}
			telemetry.AddEvent(ctx, "link removed",
				attribute.String("skill", snap.qualifiedName),
				attribute.String("target", snap.target.Name))
			log.Info("removed link of deleted skill")
			continue
		}

		if sk.Path == snap.markerPath {
			continue
		}

		if err := skills.RemoveLink(snap.target, snap.qualifiedName); err != nil {
			log.WithError(err).Debug("failed to remove link of moved skill")
		}
		if err := sk.LinkTo(snap.target); err != nil {
			log.WithError(err).Debug("failed to relink moved skill")
			continue
		}
		telemetry.AddEvent(ctx, "link recreated",
			attribute.String("skill", snap.qualifiedName),
			attribute.String("target", snap.target.Name))
		log.Info("relinked moved skill")
	}
}

// Remove unlinks every skill of the plugin, deletes its cache directory and
// prunes the owner and host directories when they become empty.
func (s *Store) Remove(ctx context.Context, p *Plugin) error {
	if !s.withinCache(p.Path) {
		return &NotInstalledError{Name: p.Name()}
	}
	if _, err := os.Stat(p.Path); err != nil {
		return &NotInstalledError{Name: p.Name()}
	}

	id := p.Identity()
	return telemetry.WithSpan(ctx, "plugins.remove", func(ctx context.Context) error {
		log := logger.G(ctx).WithField("plugin", id.String()).WithField("path", p.Path)

		unlock, err := s.lock(id)
		if err != nil {
			return err
		}
		defer unlock()

		for _, sk := range p.skills {
			for _, t := range s.targets {
				_ = sk.UnlinkFrom(t)
			}
		}

		if err := os.RemoveAll(p.Path); err != nil {
			return errors.Wrapf(err, "failed to remove %s", p.Path)
		}

		s.pruneParents(ctx, p.Path)

		log.Info("removed plugin")
		return nil
	}, attribute.String("plugin", id.String()))
}

// pruneParents removes the owner then host directories of a repository
// path when they are empty
func (s *Store) pruneParents(ctx context.Context, path string) {
	ownerDir := filepath.Dir(path)
	hostDir := filepath.Dir(ownerDir)
	for _, dir := range []string{ownerDir, hostDir} {
		if !s.withinCache(dir) {
			return
		}
		if err := os.Remove(dir); err != nil {
			logger.G(ctx).WithError(err).WithField("dir", dir).Debug("directory not pruned")
			return
		}
	}
}

func (s *Store) withinCache(dir string) bool {
	rel, err := filepath.Rel(s.cacheDir, dir)
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}

// ListInstalled returns every cached repository sorted by host/owner/repo.
// A missing cache root yields an empty list.
func (s *Store) ListInstalled(ctx context.Context) ([]*Plugin, error) {
	var result []*Plugin

	err := telemetry.WithSpan(ctx, "plugins.list", func(ctx context.Context) error {
		hosts, err := readDirs(s.cacheDir)
		if err != nil {
			return err
		}

		for _, host := range hosts {
			owners, err := readDirs(filepath.Join(s.cacheDir, host))
			if err != nil {
				return err
			}
			for _, owner := range owners {
				repos, err := readDirs(filepath.Join(s.cacheDir, host, owner))
				if err != nil {
					return err
				}
				for _, repo := range repos {
					path := filepath.Join(s.cacheDir, host, owner, repo)
					if !s.git.IsRepository(path) {
						continue
					}
					p, err := s.load(ctx, source.FromPath(host, owner, repo), path)
					if err != nil {
						return err
					}
					result = append(result, p)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Identity().String() < result[j].Identity().String()
	})
	return result, nil
}

// IsInstalled reports whether the repository is cached as a valid git repository
func (s *Store) IsInstalled(id source.Identity) bool {
	return s.git.IsRepository(s.LocalPath(id))
}

// Get loads one installed plugin
func (s *Store) Get(ctx context.Context, id source.Identity) (*Plugin, error) {
	path := s.LocalPath(id)
	if !s.git.IsRepository(path) {
		return nil, &NotInstalledError{Name: id.Name()}
	}
	return s.load(ctx, id, path)
}

// Lookup parses ref and loads the installed plugin it names
func (s *Store) Lookup(ctx context.Context, ref string) (*Plugin, error) {
	id, err := source.Parse(ref)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Store) load(ctx context.Context, id source.Identity, path string) (*Plugin, error) {
	found, err := s.scanner.Scan(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to scan plugin %s", id.Name())
	}
	return newPlugin(id, path, found), nil
}

// lock serializes operations on one repository across goroutines and processes
func (s *Store) lock(id source.Identity) (func(), error) {
	if !s.locking {
		return func() {}, nil
	}

	dir := filepath.Join(s.cacheDir, lockDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create lock directory")
	}

	name := fmt.Sprintf("%s_%s_%s.lock", id.Host, id.Owner, id.Repo)
	unlock, err := lockedfile.MutexAt(filepath.Join(dir, name)).Lock()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to lock %s", id.String())
	}
	return unlock, nil
}

// readDirs lists the subdirectory names of dir; a missing dir has none
func readDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read %s", dir)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
