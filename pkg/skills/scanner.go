package skills

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jingkaihe/silk/pkg/logger"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
)

// MarkerFile is the file that marks a directory as a skill
const MarkerFile = "SKILL.md"

// version control directories are never descended into
var vcsDirs = map[string]struct{}{
	".git": {},
	".svn": {},
	".hg":  {},
}

// Found is a skill marker located by a scan, before it is attributed to a plugin
type Found struct {
	Name        string
	Path        string
	Description string
}

// Scanner walks directory trees looking for skill markers
type Scanner struct {
	ignore []string
}

// Option configures a Scanner
type Option func(*Scanner) error

// WithIgnorePatterns skips files and directories whose slash separated path
// relative to the scan root matches one of the doublestar patterns
func WithIgnorePatterns(patterns ...string) Option {
	return func(s *Scanner) error {
		for _, p := range patterns {
			if !doublestar.ValidatePattern(p) {
				return errors.Errorf("invalid ignore pattern %q", p)
			}
		}
		s.ignore = append(s.ignore, patterns...)
		return nil
	}
}

// NewScanner creates a scanner
func NewScanner(opts ...Option) (*Scanner, error) {
	s := &Scanner{}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Scan finds every SKILL.md under root. Results follow the lexical walk order.
// A missing root yields no skills.
func (s *Scanner) Scan(ctx context.Context, root string) ([]Found, error) {
	var found []Found

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				if errors.Is(err, fs.ErrNotExist) {
					return filepath.SkipAll
				}
				return err
			}
			logger.G(ctx).WithError(err).WithField("path", path).Debug("skipping unreadable entry")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path != root && s.ignored(root, path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if _, ok := vcsDirs[d.Name()]; ok && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Name() != MarkerFile || !d.Type().IsRegular() {
			return nil
		}

		found = append(found, Found{
			Name:        skillName(root, path),
			Path:        path,
			Description: readDescription(ctx, path),
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to scan %s", root)
	}

	return found, nil
}

func (s *Scanner) ignored(root, path string) bool {
	if len(s.ignore) == 0 {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range s.ignore {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// skillName is the marker's parent directory name, or the root's own name for
// a marker sitting directly in the root
func skillName(root, markerPath string) string {
	dir := filepath.Dir(markerPath)
	if filepath.Clean(dir) == filepath.Clean(root) {
		return filepath.Base(filepath.Clean(root))
	}
	return filepath.Base(dir)
}

func readDescription(ctx context.Context, path string) string {
	content, err := os.ReadFile(path)
	if err != nil {
		logger.G(ctx).WithError(err).WithField("path", path).Debug("failed to read skill marker")
		return ""
	}
	return parseDescription(content)
}

// parseDescription reads the description field of a leading front matter
// block. Front matter that is not valid YAML falls back to a line scan.
func parseDescription(content []byte) string {
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if _, ok := frontMatter(content); !ok {
		return ""
	}

	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err == nil {
		metaData, err := meta.TryGet(pctx)
		if err == nil {
			description, _ := metaData["description"].(string)
			return description
		}
	}

	return scanDescription(content)
}

// frontMatter returns the lines between the opening and closing "---"
func frontMatter(content []byte) ([]string, bool) {
	lines := strings.Split(string(content), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return nil, false
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return lines[1:i], true
		}
	}
	return nil, false
}

func scanDescription(content []byte) string {
	lines, ok := frontMatter(content)
	if !ok {
		return ""
	}

	for _, line := range lines {
		value, ok := strings.CutPrefix(strings.TrimSpace(line), "description:")
		if !ok {
			continue
		}
		return unquote(strings.TrimSpace(value))
	}
	return ""
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
