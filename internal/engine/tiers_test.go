// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeexec-server/internal/container"
)

const testTimeout = 5 * time.Second

// fakeRuntime is a minimal in-memory stand-in for container.Engine used to
// drive runEphemeral/runPersistent without a real Podman/Docker install.
type fakeRuntime struct {
	runResult  *container.RunResult
	runErr     error
	execResult *container.RunResult
	execErr    error
	execCalls  int
}

func (f *fakeRuntime) Name() string                                                { return "fake" }
func (f *fakeRuntime) Available() bool                                             { return true }
func (f *fakeRuntime) Version(ctx context.Context) (string, error)                 { return "0.0.0", nil }
func (f *fakeRuntime) Build(ctx context.Context, opts container.BuildOptions) error { return nil }

func (f *fakeRuntime) Run(ctx context.Context, opts container.RunOptions) (*container.RunResult, error) {
	if opts.Stdout != nil {
		_, _ = io.WriteString(opts.Stdout, "ran\n")
	}
	return f.runResult, f.runErr
}

func (f *fakeRuntime) Exec(ctx context.Context, containerID string, command []string, opts container.RunOptions) (*container.RunResult, error) {
	f.execCalls++
	if opts.Stdout != nil {
		_, _ = io.WriteString(opts.Stdout, "exec-out\n")
	}
	return f.execResult, f.execErr
}

func (f *fakeRuntime) Remove(ctx context.Context, containerID string, force bool) error { return nil }
func (f *fakeRuntime) ImageExists(ctx context.Context, image string) (bool, error)      { return true, nil }
func (f *fakeRuntime) RemoveImage(ctx context.Context, image string, force bool) error  { return nil }
func (f *fakeRuntime) BinaryPath() string                                               { return "/usr/bin/fake" }
func (f *fakeRuntime) BuildRunArgs(opts container.RunOptions) []string                  { return nil }
func (f *fakeRuntime) Stats(ctx context.Context, containerID string) (int, error)       { return 42, nil }
func (f *fakeRuntime) SystemInfo(ctx context.Context) (container.SystemInfo, error) {
	return container.SystemInfo{}, nil
}

func TestRunEphemeral_Success(t *testing.T) {
	rt := &fakeRuntime{runResult: &container.RunResult{ExitCode: 0, ContainerID: "c1"}}
	eng := New(rt, Limits{Timeout: testTimeout}, Limits{}, Limits{}, nil)

	spec := languageTable["python"]
	result := eng.runEphemeral(context.Background(), "python", spec, "print(1)", TierIsolation, eng.isolation, "ephemeral")

	assert.True(t, result.Success)
	assert.Equal(t, MethodPodman, result.Method)
	assert.Equal(t, 42, result.MemoryUsageMiB)
	assert.Equal(t, "c1", result.ContainerID)
}

func TestRunEphemeral_NonZeroExit(t *testing.T) {
	rt := &fakeRuntime{runResult: &container.RunResult{ExitCode: 1}}
	eng := New(rt, Limits{Timeout: testTimeout}, Limits{}, Limits{}, nil)

	spec := languageTable["python"]
	result := eng.runEphemeral(context.Background(), "python", spec, "raise SystemExit(1)", TierIsolation, eng.isolation, "ephemeral")
	assert.False(t, result.Success)
	assert.Equal(t, MethodPodman, result.Method)
}

func TestRunEphemeral_AdapterErrorIsReported(t *testing.T) {
	rt := &fakeRuntime{runErr: errors.New("podman not found")}
	eng := New(rt, Limits{Timeout: testTimeout}, Limits{}, Limits{}, nil)

	spec := languageTable["python"]
	result := eng.runEphemeral(context.Background(), "python", spec, "print(1)", TierIsolation, eng.isolation, "ephemeral")
	assert.False(t, result.Success)
	assert.Equal(t, MethodPodmanError, result.Method)
	assert.Contains(t, result.Error, "podman not found")
}

func TestRunPersistent_ReusesSessionContainer(t *testing.T) {
	rt := &fakeRuntime{
		runResult:  &container.RunResult{ContainerID: "session-1"},
		execResult: &container.RunResult{ExitCode: 0},
	}
	eng := New(rt, Limits{Timeout: testTimeout}, Limits{Timeout: testTimeout}, Limits{}, nil)

	spec := languageTable["python"]
	first := eng.runPersistent(context.Background(), "python", spec, "print(1)")
	require.True(t, first.Success)
	second := eng.runPersistent(context.Background(), "python", spec, "print(2)")
	require.True(t, second.Success)

	// One Run call to start the session container, two Exec calls (write + run) per call.
	assert.Equal(t, 4, rt.execCalls)
	assert.Len(t, eng.sessions, 1)
}

func TestRunPersistent_DowngradesToIsolationOnExecFailure(t *testing.T) {
	rt := &fakeRuntime{
		runResult: &container.RunResult{ContainerID: "session-1"},
		execErr:   errors.New("exec failed"),
	}
	eng := New(rt, Limits{Timeout: testTimeout}, Limits{Timeout: testTimeout}, Limits{}, nil)

	spec := languageTable["python"]
	result := eng.runPersistent(context.Background(), "python", spec, "print(1)")

	// Downgrade falls through to runEphemeral, which calls Run again (not Exec)
	// and reports the isolation tier's security level even though the caller
	// originally asked for the persistent tier.
	assert.Equal(t, string(TierIsolation), result.SecurityLevel)
}
