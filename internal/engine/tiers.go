// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"codeexec-server/internal/container"
)

// sandboxImage is the container image run by the isolation, persistent, and
// development tiers. It must carry python3, node, sh, rustc, and go, since
// the language table dispatches to all five inside the same image.
const sandboxImage = "ghcr.io/codeexec-server/sandbox:latest"

// runEphemeral implements the *isolation* and *development* tiers: a fresh
// host temp directory and a single one-shot container per call.
func (e *Engine) runEphemeral(ctx context.Context, language string, spec languageSpec, code string, tier Tier, limits Limits, namePrefix string) *ExecutionResult {
	dir, err := os.MkdirTemp("", "codeexec-*")
	if err != nil {
		return &ExecutionResult{Method: MethodPodmanError, SecurityLevel: string(tier),
			Error: fmt.Sprintf("Error: failed to create temp directory: %v", err)}
	}
	defer os.RemoveAll(dir)

	codeFile := filepath.Join(dir, "code."+spec.ext)
	if err := os.WriteFile(codeFile, []byte(code), 0o644); err != nil {
		return &ExecutionResult{Method: MethodPodmanError, SecurityLevel: string(tier),
			Error: fmt.Sprintf("Error: failed to write code file: %v", err)}
	}

	containerPath := "/code/" + filepath.Base(codeFile)
	name := fmt.Sprintf("%s-%s-%s", namePrefix, language, uuid.NewString()[:8])

	opts := container.RunOptions{
		Image:   sandboxImage,
		Command: spec.containerArgv(containerPath),
		Name:    name,
		Remove:  true,
		Volumes: []string{fmt.Sprintf("%s:%s:ro", codeFile, containerPath)},
	}
	applyLimits(&opts, limits)

	runCtx, cancel := context.WithTimeout(ctx, limits.Timeout)
	defer cancel()

	var stdout, stderr outputBuffer
	opts.Stdout = &stdout
	opts.Stderr = &stderr

	result, err := e.runtime.Run(runCtx, opts)
	if runCtx.Err() == context.DeadlineExceeded {
		_ = e.runtime.Remove(context.Background(), name, true)
		return &ExecutionResult{
			Method:        MethodPodmanTimeout,
			SecurityLevel: string(tier),
			Error:         "Error: execution timed out",
			Output:        stdout.String(),
		}
	}
	if err != nil {
		return &ExecutionResult{Method: MethodPodmanError, SecurityLevel: string(tier),
			Error: fmt.Sprintf("Error: %v", err)}
	}
	if result.Error != nil {
		return &ExecutionResult{Method: MethodPodmanError, SecurityLevel: string(tier),
			Error: fmt.Sprintf("Error: %v", result.Error)}
	}

	memMiB := 0
	if mem, err := e.runtime.Stats(context.Background(), result.ContainerID); err == nil {
		memMiB = mem
	}

	return &ExecutionResult{
		Success:        result.ExitCode == 0,
		Output:         stdout.String(),
		Error:          stderr.String(),
		MemoryUsageMiB: memMiB,
		ContainerID:    result.ContainerID,
		SecurityLevel:  string(tier),
		Method:         MethodPodman,
	}
}

// runPersistent implements the *session-persistent* tier: a long-lived
// container reused across calls for the same language. On any adapter
// failure it silently downgrades to a single *isolation* call.
func (e *Engine) runPersistent(ctx context.Context, language string, spec languageSpec, code string) *ExecutionResult {
	key := sessionKey(language)

	e.mu.Lock()
	session, ok := e.sessions[key]
	e.mu.Unlock()

	if !ok {
		id, err := e.startSessionContainer(ctx, language)
		if err != nil {
			e.logger.Debug("persistent tier: start failed, downgrading to isolation", "language", language, "err", err)
			return e.runEphemeral(ctx, language, spec, code, TierIsolation, e.isolation, "ephemeral")
		}
		session = &SessionContainer{Key: key, Language: language, ContainerID: id}
		e.mu.Lock()
		e.sessions[key] = session
		e.mu.Unlock()
	}

	remoteFile := fmt.Sprintf("/tmp/code_%s.%s", uuid.NewString()[:8], spec.ext)

	writeOpts := container.RunOptions{Stdin: newStringReader(code)}
	_, err := e.runtime.Exec(ctx, session.ContainerID, []string{"sh", "-c", "cat > " + remoteFile}, writeOpts)
	if err != nil {
		e.logger.Debug("persistent tier: write failed, downgrading to isolation", "language", language, "err", err)
		return e.runEphemeral(ctx, language, spec, code, TierIsolation, e.isolation, "ephemeral")
	}

	var stdout, stderr outputBuffer
	runOpts := container.RunOptions{Stdout: &stdout, Stderr: &stderr}
	result, err := e.runtime.Exec(ctx, session.ContainerID, spec.containerArgv(remoteFile), runOpts)
	if err != nil {
		e.logger.Debug("persistent tier: exec failed, downgrading to isolation", "language", language, "err", err)
		return e.runEphemeral(ctx, language, spec, code, TierIsolation, e.isolation, "ephemeral")
	}

	memMiB := 0
	if mem, statErr := e.runtime.Stats(context.Background(), session.ContainerID); statErr == nil {
		memMiB = mem
	}

	return &ExecutionResult{
		Success:        result.ExitCode == 0,
		Output:         stdout.String(),
		Error:          stderr.String(),
		MemoryUsageMiB: memMiB,
		ContainerID:    session.ContainerID,
		SecurityLevel:  string(TierPersistent),
		Method:         MethodPodman,
	}
}

// startSessionContainer starts the idle detached container backing a
// session-persistent language, using the same resource caps as the
// isolation tier minus the code-file mount.
func (e *Engine) startSessionContainer(ctx context.Context, language string) (string, error) {
	name := fmt.Sprintf("session-%s-%s", language, uuid.NewString()[:8])
	opts := container.RunOptions{
		Image:   sandboxImage,
		Command: []string{"sh", "-c", "sleep 3600"},
		Name:    name,
	}
	applyLimits(&opts, e.isolation)

	result, err := e.runtime.Run(ctx, opts)
	if err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", result.Error
	}
	return name, nil
}

// applyLimits translates Limits into the RunOptions fields the runtime
// adapter's argv builder turns into --memory/--cpus/--tmpfs/--read-only/
// --network none/--cap-drop/--security-opt flags. Every tier always drops
// all capabilities and sets no-new-privileges, regardless of its other caps.
func applyLimits(opts *container.RunOptions, limits Limits) {
	opts.MemoryMiB = limits.MemoryMiB
	opts.CPUs = limits.CPUs
	opts.TmpfsMiB = limits.TmpfsMiB
	opts.ReadOnlyRootfs = limits.ReadOnlyRootfs
	opts.NetworkDisabled = limits.NetworkDisabled
	opts.DropAllCapabilities = true
	opts.NoNewPrivileges = true
}
