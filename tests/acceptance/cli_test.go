package acceptance

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetsCommand(t *testing.T) {
	home := tempHome(t)
	output, err := silk(t, home, "targets")
	require.NoError(t, err, output)

	assert.Contains(t, output, "Claude Code")
	assert.Contains(t, output, filepath.Join(home, ".claude", "skills"))
	assert.Contains(t, output, filepath.Join(home, ".codex", "skills"))
}

func TestListEmptyCache(t *testing.T) {
	output, err := silk(t, tempHome(t), "list", "--output", "json")
	require.NoError(t, err, output)

	var plugins []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(output), &plugins))
	assert.Empty(t, plugins)
}

func TestListRejectsUnknownFormat(t *testing.T) {
	output, err := silk(t, tempHome(t), "list", "--output", "xml")
	require.Error(t, err)
	assert.Contains(t, output, "unsupported output format")
}

func TestInstallInvalidReference(t *testing.T) {
	output, err := silk(t, tempHome(t), "install", "not a url")
	require.Error(t, err)
	assert.Contains(t, output, "Install failed")
}

func TestUpdateRequiresArguments(t *testing.T) {
	output, err := silk(t, tempHome(t), "update")
	require.Error(t, err)
	assert.NotEmpty(t, output)
}

func TestSkillsUnknownPlugin(t *testing.T) {
	output, err := silk(t, tempHome(t), "skills", "acme/missing")
	require.Error(t, err)
	assert.NotEmpty(t, output)
}
