//go:build unix

package osutil

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetProcessGroup(t *testing.T) {
	cmd := exec.Command("echo", "test")
	SetProcessGroup(cmd)

	require.NotNil(t, cmd.SysProcAttr)
	assert.True(t, cmd.SysProcAttr.Setpgid)
}

func TestSetProcessGroupKill(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the child sleep ignores TERM and would keep the group alive without SIGKILL
	cmd := exec.CommandContext(ctx, "sh", "-c", "trap '' TERM; sleep 30 & wait")
	SetProcessGroup(cmd)
	SetProcessGroupKill(cmd)
	require.NoError(t, cmd.Start())

	time.Sleep(100 * time.Millisecond)
	start := time.Now()
	cancel()

	err := cmd.Wait()
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
