// Package source normalizes user supplied repository references into a
// canonical identity. The identity decides where a plugin lives in the cache.
package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// DefaultHost is used for shorthand "owner/repo" references
const DefaultHost = "github.com"

// Identity uniquely identifies a plugin repository
type Identity struct {
	Host  string
	Owner string
	Repo  string
	// URL is the clone URL. Shorthand references get a synthesized https URL,
	// everything else keeps the string the user typed.
	URL string
}

// Name returns the "owner/repo" form used in user facing output
func (i Identity) Name() string {
	return i.Owner + "/" + i.Repo
}

// String returns "host/owner/repo"
func (i Identity) String() string {
	return i.Host + "/" + i.Owner + "/" + i.Repo
}

// RelPath returns the cache-relative directory of the repository
func (i Identity) RelPath() string {
	return filepath.Join(i.Host, i.Owner, i.Repo)
}

// FromPath rebuilds the identity of a repository that is already cached
func FromPath(host, owner, repo string) Identity {
	return Identity{
		Host:  host,
		Owner: owner,
		Repo:  repo,
		URL:   httpsURL(host, owner, repo),
	}
}

// InvalidURLError is returned when a reference matches none of the accepted forms
type InvalidURLError struct {
	URL string
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid URL: %s", e.URL)
}

// IsInvalidURL reports whether err is (or wraps) an InvalidURLError
func IsInvalidURL(err error) bool {
	var target *InvalidURLError
	return errors.As(err, &target)
}

// Parse parses a repository reference.
//
// Accepted forms, in order:
//
//	owner/repo[.git]                      (host defaults to github.com)
//	https://<host>/<owner>/<repo>[.git]
//	git@<host>:<owner>/<repo>[.git]
func Parse(ref string) (Identity, error) {
	trimmed := strings.TrimSpace(ref)

	if !strings.Contains(trimmed, "://") && !strings.HasPrefix(trimmed, "git@") {
		if owner, repo, ok := strings.Cut(trimmed, "/"); ok {
			repo = strings.TrimSuffix(repo, ".git")
			if validSegment(owner) && validSegment(repo) {
				return Identity{
					Host:  DefaultHost,
					Owner: owner,
					Repo:  repo,
					URL:   httpsURL(DefaultHost, owner, repo),
				}, nil
			}
		}
	}

	if rest, ok := strings.CutPrefix(trimmed, "https://"); ok {
		host, path, ok := strings.Cut(rest, "/")
		if !ok || host == "" {
			return Identity{}, &InvalidURLError{URL: ref}
		}
		return parseOwnerRepo(host, path, trimmed, ref)
	}

	if rest, ok := strings.CutPrefix(trimmed, "git@"); ok {
		host, path, ok := strings.Cut(rest, ":")
		if !ok || host == "" {
			return Identity{}, &InvalidURLError{URL: ref}
		}
		return parseOwnerRepo(host, path, trimmed, ref)
	}

	return Identity{}, &InvalidURLError{URL: ref}
}

func parseOwnerRepo(host, path, url, original string) (Identity, error) {
	path = strings.TrimSuffix(path, ".git")
	owner, repo, ok := strings.Cut(path, "/")
	// every segment becomes one directory level of the cache layout
	if !ok || !validSegment(host) || !validSegment(owner) || !validSegment(repo) {
		return Identity{}, &InvalidURLError{URL: original}
	}

	return Identity{
		Host:  host,
		Owner: owner,
		Repo:  repo,
		URL:   url,
	}, nil
}

// validSegment reports whether s can be used as a single cache directory name
func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

func httpsURL(host, owner, repo string) string {
	return fmt.Sprintf("https://%s/%s/%s", host, owner, repo)
}
