package source

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		host  string
		owner string
		repo  string
		url   string
	}{
		{"https with .git", "https://github.com/anthropics/claude-code.git", "github.com", "anthropics", "claude-code", "https://github.com/anthropics/claude-code.git"},
		{"https without .git", "https://github.com/anthropics/claude-code", "github.com", "anthropics", "claude-code", "https://github.com/anthropics/claude-code"},
		{"ssh with .git", "git@github.com:anthropics/claude-code.git", "github.com", "anthropics", "claude-code", "git@github.com:anthropics/claude-code.git"},
		{"ssh without .git", "git@github.com:anthropics/claude-code", "github.com", "anthropics", "claude-code", "git@github.com:anthropics/claude-code"},
		{"gitlab https", "https://gitlab.com/user/project.git", "gitlab.com", "user", "project", "https://gitlab.com/user/project.git"},
		{"shorthand", "anthropics/claude-code", "github.com", "anthropics", "claude-code", "https://github.com/anthropics/claude-code"},
		{"shorthand with .git", "anthropics/claude-code.git", "github.com", "anthropics", "claude-code", "https://github.com/anthropics/claude-code"},
		{"surrounding whitespace", "  anthropics/claude-code \n", "github.com", "anthropics", "claude-code", "https://github.com/anthropics/claude-code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.host, id.Host)
			assert.Equal(t, tt.owner, id.Owner)
			assert.Equal(t, tt.repo, id.Repo)
			assert.Equal(t, tt.url, id.URL)
		})
	}
}

func TestParseSameRepositoryAcrossForms(t *testing.T) {
	inputs := []string{
		"anthropics/claude-code",
		"https://github.com/anthropics/claude-code",
		"https://github.com/anthropics/claude-code.git",
		"git@github.com:anthropics/claude-code.git",
	}

	var ids []Identity
	for _, input := range inputs {
		id, err := Parse(input)
		require.NoError(t, err, input)
		ids = append(ids, id)
	}

	for _, id := range ids[1:] {
		assert.Equal(t, ids[0].Host, id.Host)
		assert.Equal(t, ids[0].Owner, id.Owner)
		assert.Equal(t, ids[0].Repo, id.Repo)
		assert.Equal(t, ids[0].RelPath(), id.RelPath())
	}
}

func TestParseInvalid(t *testing.T) {
	inputs := []string{
		"",
		"owner",
		"owner/",
		"/repo",
		"not-a-url",
		"https://github.com",
		"https://github.com/",
		"https://github.com/owner",
		"https://github.com/owner/",
		"https://github.com/owner/repo/extra",
		"git@github.com",
		"git@github.com:owner",
		"ftp://example.com/owner/repo",
		"../x",
		"./x",
		"acme/.",
		"acme/..",
		"acme/..git",
		`acme\evil/repo`,
		`acme/re\po`,
		"https://x/a/..",
		"https://github.com/../..",
		"https://github.com/./repo",
		"https://../owner/repo",
		"https://./owner/repo",
		`https://github.com/acme/re\po`,
		"git@github.com:../..",
		"git@github.com:acme/.",
		"git@..:owner/repo",
		`git@ho\st:owner/repo`,
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			require.Error(t, err)
			assert.True(t, IsInvalidURL(err))

			var invalid *InvalidURLError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, input, invalid.URL)
			assert.Contains(t, err.Error(), "invalid URL")
		})
	}
}

func TestIdentityHelpers(t *testing.T) {
	id, err := Parse("git@gitlab.com:user/project.git")
	require.NoError(t, err)

	assert.Equal(t, "user/project", id.Name())
	assert.Equal(t, "gitlab.com/user/project", id.String())

	rebuilt := FromPath("gitlab.com", "user", "project")
	assert.Equal(t, "https://gitlab.com/user/project", rebuilt.URL)
	assert.Equal(t, id.RelPath(), rebuilt.RelPath())
}

func TestIsInvalidURLWrapped(t *testing.T) {
	_, err := Parse("owner")
	wrapped := errors.Wrap(err, "install failed")
	assert.True(t, IsInvalidURL(wrapped))
	assert.False(t, IsInvalidURL(errors.New("something else")))
}
