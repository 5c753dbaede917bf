//go:build !windows

package exec

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRunner() *Runner {
	return New(5*time.Second, 1<<20)
}

func TestRun_Success(t *testing.T) {
	result := testRunner().Run(context.Background(), "echo hello")

	assert.True(t, result.Success)
	assert.Equal(t, "hello\n", result.Stdout)
	assert.Zero(t, result.ExitCode)
	assert.Empty(t, result.Error)
}

func TestRun_EmptyCommand(t *testing.T) {
	result := testRunner().Run(context.Background(), "   ")

	assert.False(t, result.Success)
	assert.Equal(t, "empty command", result.Error)
}

func TestRun_NonZeroExit(t *testing.T) {
	result := testRunner().Run(context.Background(), "exit 3")

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.ExitCode)
	assert.NotEmpty(t, result.Error)
}

func TestRun_CapturesStderr(t *testing.T) {
	result := testRunner().Run(context.Background(), "echo oops 1>&2")

	assert.True(t, result.Success)
	assert.Equal(t, "oops\n", result.Stderr)
}

func TestRun_Timeout(t *testing.T) {
	r := New(200*time.Millisecond, 1<<20)

	start := time.Now()
	result := r.Run(context.Background(), "sleep 10")

	require.False(t, result.Success)
	assert.True(t, result.TimedOut)
	assert.Contains(t, result.Error, "timed out")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRun_OutputCapAborts(t *testing.T) {
	r := New(10*time.Second, 1024)

	result := r.Run(context.Background(), "yes irene")

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "byte limit")
	assert.LessOrEqual(t, len(result.Stdout), 1024)
}

func TestRun_CommandNotFound(t *testing.T) {
	result := testRunner().Run(context.Background(), "definitely-not-a-real-binary-xyz")

	assert.False(t, result.Success)
	assert.NotZero(t, result.ExitCode)
	assert.True(t, strings.Contains(result.Stderr, "not found") || result.Error != "")
}
