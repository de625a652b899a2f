package process

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zxsted/dialogmanager/pkg/domain"
)

func shell(t *testing.T, script string) Process {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts need sh")
	}
	return Process{Command: "sh", Args: []string{"-c", script}}
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("Fails For Unregistered Command", func(t *testing.T) {
		_, err := NewRunner().Run(ctx, "hacker_script", nil)
		assert.ErrorIs(t, err, ErrNotRegistered)
	})

	t.Run("Passes Input On Stdin", func(t *testing.T) {
		r := NewRunner(WithProcesses(map[string]Process{"cat": shell(t, "cat")}))
		out, err := r.Run(ctx, "cat", map[string]any{"msg": "SecretMessage"})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"msg": "SecretMessage"}, out.Value, "JSON output is decoded")
		assert.Zero(t, out.ExitCode)
	})

	t.Run("Passes Env", func(t *testing.T) {
		p := shell(t, `echo "$DIALOGMANAGER_PROCESS $GREETING"`)
		p.Env = map[string]string{"GREETING": "hi"}
		r := NewRunner(WithProcesses(map[string]Process{"env": p}))

		out, err := r.Run(ctx, "env", nil)
		require.NoError(t, err)
		assert.Equal(t, "env hi", out.Value)
	})

	t.Run("Reports Exit Status", func(t *testing.T) {
		r := NewRunner(WithProcesses(map[string]Process{"fail": shell(t, "echo oops >&2; exit 3")}))
		out, err := r.Run(ctx, "fail", nil)
		require.NoError(t, err)
		assert.Equal(t, 3, out.ExitCode)
		assert.Equal(t, "oops\n", out.Stderr)
		assert.Nil(t, out.Value)
	})

	t.Run("Times Out", func(t *testing.T) {
		r := NewRunner(
			WithProcesses(map[string]Process{"slow": shell(t, "exec sleep 5")}),
			WithTimeout(50*time.Millisecond),
		)
		_, err := r.Run(ctx, "slow", nil)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("Uses Base Dir", func(t *testing.T) {
		dir := t.TempDir()
		r := NewRunner(WithProcesses(map[string]Process{"pwd": shell(t, "pwd")}), WithBaseDir(dir))
		out, err := r.Run(ctx, "pwd", nil)
		require.NoError(t, err)
		assert.Contains(t, out.Value, filepath.Base(dir))
	})
}

func TestRunner_Producer(t *testing.T) {
	r := NewRunner(WithProcesses(map[string]Process{
		"quote":   shell(t, `echo '["Sure.", "Right away."]'`),
		"pending": shell(t, "true"),
		"broken":  shell(t, "exit 2"),
	}))
	ctx := context.Background()
	turn := &domain.TurnContext{State: domain.NewConversationState("c")}

	got, err := r.Producer("quote").Reply(ctx, turn)
	require.NoError(t, err)
	assert.Equal(t, []any{"Sure.", "Right away."}, got)

	_, err = r.Producer("pending").Reply(ctx, turn)
	assert.ErrorIs(t, err, domain.ErrNotReady)

	_, err = r.Producer("broken").Reply(ctx, turn)
	assert.ErrorContains(t, err, "status 2")
}

func TestRunner_Validator(t *testing.T) {
	r := NewRunner(WithProcesses(map[string]Process{
		"lower":  shell(t, `echo '{"raw": "ana", "value": "ana"}'`),
		"accept": shell(t, "true"),
		"refuse": shell(t, "echo 'Not an email.'; exit 1"),
		"quiet":  shell(t, "echo 'No.' >&2; exit 1"),
	}))
	ctx := context.Background()
	entity := domain.Entity{"raw": "Ana"}

	got, err := r.Validator("lower")(ctx, entity, domain.Memory{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"raw": "ana", "value": "ana"}, got)

	got, err = r.Validator("accept")(ctx, entity, domain.Memory{})
	require.NoError(t, err)
	assert.Nil(t, got)

	var rejected *domain.ValidationRejected
	_, err = r.Validator("refuse")(ctx, entity, domain.Memory{})
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "Not an email.", rejected.Payload)

	_, err = r.Validator("quiet")(ctx, entity, domain.Memory{})
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "No.", rejected.Payload)
}
