// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// outputBuffer is a concurrency-safe-enough io.Writer for a single exec.Cmd's
// stdout/stderr: exec.Cmd never writes to it concurrently with String().
type outputBuffer struct {
	bytes.Buffer
}

func newStringReader(s string) *strings.Reader {
	return strings.NewReader(s)
}

// fallback runs code as a direct host subprocess when no container runtime
// is available or the language isn't one of the tiered table's five. Success
// is driven exclusively by the process exit code.
func (e *Engine) fallback(ctx context.Context, language, code string) *ExecutionResult {
	switch language {
	case "python":
		return e.fallbackExternal(ctx, language, code, "py", func(path string) (string, []string) {
			return "python3", []string{path}
		})
	case "javascript":
		return e.fallbackExternal(ctx, language, code, "js", func(path string) (string, []string) {
			return "node", []string{path}
		})
	case "bash":
		return e.fallbackBash(ctx, code)
	default:
		return &ExecutionResult{
			Success:       false,
			Error:         fmt.Sprintf("Error: unsupported language %q", language),
			SecurityLevel: "subprocess",
			Method:        MethodFallbackError,
		}
	}
}

// fallbackExternal runs interpreted code through a real host interpreter
// binary, spilling the snippet to a temp file first since most interpreters
// report saner tracebacks for a file than for `-c`/stdin.
func (e *Engine) fallbackExternal(ctx context.Context, language, code, ext string, command func(path string) (string, []string)) *ExecutionResult {
	f, err := os.CreateTemp("", "codeexec-fallback-*."+ext)
	if err != nil {
		return &ExecutionResult{
			Success:       false,
			Error:         fmt.Sprintf("Error: failed to create temp file: %v", err),
			SecurityLevel: "subprocess",
			Method:        MethodFallbackError,
		}
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(code); err != nil {
		f.Close()
		return &ExecutionResult{
			Success:       false,
			Error:         fmt.Sprintf("Error: failed to write temp file: %v", err),
			SecurityLevel: "subprocess",
			Method:        MethodFallbackError,
		}
	}
	f.Close()

	bin, args := command(path)
	binPath, err := exec.LookPath(bin)
	if err != nil {
		return &ExecutionResult{
			Success:       false,
			Error:         fmt.Sprintf("Error: %s not found on host: %v", bin, err),
			SecurityLevel: "subprocess",
			Method:        MethodFallbackError,
		}
	}

	var stdout, stderr outputBuffer
	cmd := exec.CommandContext(ctx, binPath, args...)
	cmd.Dir = filepath.Dir(path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return &ExecutionResult{
				Success:       false,
				Error:         fmt.Sprintf("Error: %v", runErr),
				Output:        stdout.String(),
				SecurityLevel: "subprocess",
				Method:        MethodFallbackError,
			}
		}
	}

	return &ExecutionResult{
		Success:       exitCode == 0,
		Output:        stdout.String(),
		Error:         stderr.String(),
		SecurityLevel: "subprocess",
		Method:        MethodFallback,
	}
}

// fallbackBash interprets shell code in-process with mvdan.cc/sh rather than
// shelling out to /bin/sh, matching how the rest of the pack embeds the
// interpreter instead of spawning one.
func (e *Engine) fallbackBash(ctx context.Context, code string) *ExecutionResult {
	file, err := syntax.NewParser().Parse(strings.NewReader(code), "")
	if err != nil {
		return &ExecutionResult{
			Success:       false,
			Error:         fmt.Sprintf("Error: %v", err),
			SecurityLevel: "subprocess",
			Method:        MethodFallbackError,
		}
	}

	var stdout, stderr outputBuffer
	runner, err := interp.New(
		interp.StdIO(nil, &stdout, &stderr),
	)
	if err != nil {
		return &ExecutionResult{
			Success:       false,
			Error:         fmt.Sprintf("Error: %v", err),
			SecurityLevel: "subprocess",
			Method:        MethodFallbackError,
		}
	}

	runErr := runner.Run(ctx, file)
	exitCode := 0
	if runErr != nil {
		var status interp.ExitStatus
		if errors.As(runErr, &status) {
			exitCode = int(status)
		} else {
			return &ExecutionResult{
				Success:       false,
				Error:         fmt.Sprintf("Error: %v", runErr),
				Output:        stdout.String(),
				SecurityLevel: "subprocess",
				Method:        MethodFallbackError,
			}
		}
	}

	return &ExecutionResult{
		Success:       exitCode == 0,
		Output:        stdout.String(),
		Error:         stderr.String(),
		SecurityLevel: "subprocess",
		Method:        MethodFallback,
	}
}
