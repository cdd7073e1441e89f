// SPDX-License-Identifier: MPL-2.0

// Package engine implements the tiered code-execution engine: it runs a
// snippet of Python, JavaScript, or Bash either inside a rootless OCI
// container (with one of three isolation policies) or, when no container
// runtime is available, as a direct host subprocess.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"codeexec-server/internal/container"
)

// Tier selects an execution isolation policy. Execute treats the empty tier
// as a request for the subprocess fallback and any other unknown value as
// TierIsolation.
type Tier string

const (
	// TierIsolation is the ephemeral-max-isolation tier: one container per call.
	TierIsolation Tier = "isolation"
	// TierPersistent is the session-persistent tier: one container per (session, language).
	TierPersistent Tier = "persistent"
	// TierDevelopment is the development-permissive tier: relaxed resource caps and privileges.
	TierDevelopment Tier = "development"
)

// Method is the terminal disposition tag recorded on every ExecutionResult.
type Method string

const (
	MethodPodman        Method = "podman"
	MethodFallback      Method = "fallback"
	MethodPodmanTimeout Method = "podman_timeout"
	MethodPodmanError   Method = "podman_error"
	MethodFallbackError Method = "fallback_error"
)

// ExecutionResult is the immutable record returned by every execution path.
type ExecutionResult struct {
	// Success is true iff the executed process exited zero AND no
	// engine-level failure occurred. Driven by exit code, never by
	// scanning the output text for "Error:" (see Engine.fallback).
	Success bool
	// Output and Error hold the captured standard streams, UTF-8 with
	// lossy replacement on invalid bytes.
	Output string
	Error  string
	// ExecutionTime is wall-clock from engine entry to result assembly.
	ExecutionTime time.Duration
	// MemoryUsageMiB is sampled at container teardown; 0 if unknown or
	// on the fallback path.
	MemoryUsageMiB int
	// ContainerID is the id assigned by the runtime; empty on the fallback path.
	ContainerID string
	// SecurityLevel is the tier actually used (or "subprocess" for the fallback path).
	SecurityLevel string
	// Method is the terminal disposition tag.
	Method Method
}

// SessionContainer is the mutable record the Engine keeps for each
// session-persistent language. The Engine is its sole writer.
type SessionContainer struct {
	Key         string
	Language    string
	ContainerID string
	CreatedAt   time.Time
}

// Limits configures one tier's resource caps and timeout. It mirrors
// config.TierConfig without importing the config package, so engine stays
// independently testable.
type Limits struct {
	MemoryMiB       int
	CPUs            float64
	TmpfsMiB        int
	Timeout         time.Duration
	NetworkDisabled bool
	ReadOnlyRootfs  bool
}

// Engine executes code snippets across the three container tiers and the
// subprocess fallback path. The zero value is not usable; construct with New.
type Engine struct {
	runtime container.Engine // nil when no runtime is available: all calls fall back
	logger  *log.Logger

	isolation   Limits
	persistent  Limits
	development Limits

	mu       sync.Mutex // guards sessions; single-writer per spec §5
	sessions map[string]*SessionContainer
}

// New constructs an Engine. runtime may be nil, in which case every call
// routes to the subprocess fallback regardless of requested tier.
func New(runtime container.Engine, isolation, persistent, development Limits, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		runtime:     runtime,
		logger:      logger,
		isolation:   isolation,
		persistent:  persistent,
		development: development,
		sessions:    make(map[string]*SessionContainer),
	}
}

// Execute runs code in the given language under the given tier. An empty
// tier ("") explicitly requests the subprocess fallback path, matching what
// every non-container call site (the Command Router's /run, /quantum, and
// /benchmark, and the Tool Surface's execute_code) intends when it passes
// "". A non-empty but unrecognized tier is treated as TierIsolation. If the
// runtime adapter is unavailable, every call routes to the subprocess
// fallback regardless of tier.
func (e *Engine) Execute(ctx context.Context, language, code string, tier Tier) *ExecutionResult {
	start := time.Now()

	spec, known := languageTable[language]
	if e.runtime == nil || tier == "" || !known {
		result := e.fallback(ctx, language, code)
		result.ExecutionTime = time.Since(start)
		return result
	}

	var result *ExecutionResult
	switch tier {
	case TierPersistent:
		result = e.runPersistent(ctx, language, spec, code)
	case TierDevelopment:
		result = e.runEphemeral(ctx, language, spec, code, TierDevelopment, e.development, "dev")
	default:
		result = e.runEphemeral(ctx, language, spec, code, TierIsolation, e.isolation, "ephemeral")
	}

	result.ExecutionTime = time.Since(start)
	return result
}

// Runtime returns the underlying container adapter, or nil if none is
// configured (every call then routes to the subprocess fallback).
func (e *Engine) Runtime() container.Engine {
	return e.runtime
}

// Cleanup tears down a single session (sessionID = "session-<language>") or,
// when sessionID is empty, every tracked session. Every formerly-registered
// container receives a kill call; the registry entry is always removed even
// if the kill fails, matching the idempotence law in spec §8.
func (e *Engine) Cleanup(ctx context.Context, sessionID string) {
	e.mu.Lock()
	var targets []*SessionContainer
	if sessionID == "" {
		for _, s := range e.sessions {
			targets = append(targets, s)
		}
		e.sessions = make(map[string]*SessionContainer)
	} else if s, ok := e.sessions[sessionID]; ok {
		targets = append(targets, s)
		delete(e.sessions, sessionID)
	}
	e.mu.Unlock()

	for _, s := range targets {
		if e.runtime != nil && s.ContainerID != "" {
			if err := e.runtime.Remove(ctx, s.ContainerID, true); err != nil {
				e.logger.Debug("cleanup: failed to remove session container", "session", s.Key, "err", err)
			}
		}
	}
}

// sessionKey derives the deterministic session identifier for a language.
func sessionKey(language string) string {
	return fmt.Sprintf("session-%s", language)
}
