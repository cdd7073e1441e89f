// SPDX-License-Identifier: MPL-2.0

package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"codeexec-server/internal/engine"
	"codeexec-server/internal/security"
)

// register populates the immutable command registry. Called once from New.
func (r *Router) register() {
	r.add(Command{
		Name:        "run",
		Description: "Run code through the subprocess fallback path",
		Category:    "execution",
		Usage:       "/run <language> <code...>",
		Examples:    []string{"/run python print(2+2)"},
		Handler:     handleRun,
	})
	r.add(Command{
		Name:        "container",
		Description: "Run code inside a container at an explicit isolation tier",
		Category:    "execution",
		Usage:       "/container <tier> <language> <code...>",
		Examples:    []string{"/container isolation python print(2+2)"},
		Handler:     handleContainer,
	})
	r.add(Command{
		Name:        "secure_run",
		Description: "Run the Security Analyzer, then execute at the isolation tier",
		Category:    "execution",
		Usage:       "/secure_run <language> <code...>",
		Aliases:     []string{"securerun"},
		Handler:     handleSecureRun,
	})
	r.add(Command{
		Name:        "dev_run",
		Description: "Run code at the development-permissive tier",
		Category:    "execution",
		Usage:       "/dev_run <language> <code...>",
		Aliases:     []string{"devrun"},
		Handler:     handleDevRun,
	})
	r.add(Command{
		Name:        "quantum",
		Description: "Run a bundled benchmarking demonstration",
		Category:    "demo",
		Usage:       "/quantum <task>",
		Examples:    []string{"/quantum sort"},
		Handler:     handleQuantum,
	})
	r.add(Command{
		Name:        "quantum_container",
		Description: "Describe a multi-container quantum demonstration (stub)",
		Category:    "demo",
		Usage:       "/quantum_container <task>",
		Handler:     handleQuantumContainer,
	})
	r.add(Command{
		Name:        "benchmark",
		Description: "Time repeated executions of a snippet",
		Category:    "demo",
		Usage:       "/benchmark <language> <code...> [iterations]",
		Handler:     handleBenchmark,
	})
	r.add(Command{
		Name:        "podman_status",
		Description: "Report container engine availability and host info",
		Category:    "diagnostics",
		Usage:       "/podman_status",
		Handler:     handlePodmanStatus,
	})
	r.add(Command{
		Name:        "cleanup",
		Description: "Tear down one or all session-persistent containers",
		Category:    "diagnostics",
		Usage:       "/cleanup [session]",
		Handler:     handleCleanup,
	})
	r.add(Command{
		Name:        "status",
		Description: "Report router statistics",
		Category:    "diagnostics",
		Usage:       "/status",
		Handler:     handleStatus,
	})
	r.add(Command{
		Name:        "help",
		Description: "List registered commands, or describe one",
		Category:    "diagnostics",
		Usage:       "/help [command]",
		Handler:     handleHelp,
	})
}

func handleRun(ctx context.Context, r *Router, args []string) string {
	language, code, ok := splitLanguageAndCode(args)
	if !ok {
		return "Error: usage: /run <language> <code...>"
	}
	result := r.Engine.Execute(ctx, language, code, "")
	return FormatResult(result, language)
}

func handleContainer(ctx context.Context, r *Router, args []string) string {
	if len(args) < 3 {
		return "Error: usage: /container <tier> <language> <code...>"
	}
	tier := engine.Tier(args[0])
	switch tier {
	case engine.TierIsolation, engine.TierPersistent, engine.TierDevelopment:
	default:
		return fmt.Sprintf("Error: unknown tier %q; must be one of isolation, persistent, development", args[0])
	}
	language := args[1]
	code := strings.Join(args[2:], " ")

	r.incContainersUsed()
	result := r.Engine.Execute(ctx, language, code, tier)
	return FormatResult(result, language)
}

func handleSecureRun(ctx context.Context, r *Router, args []string) string {
	language, code, ok := splitLanguageAndCode(args)
	if !ok {
		return "Error: usage: /secure_run <language> <code...>"
	}
	findings := security.Analyze(code)
	if len(findings) > 0 {
		r.incSecurityViolationsPrevented()
	}
	result := r.Engine.Execute(ctx, language, code, engine.TierIsolation)
	return securityWarningBlock(findings) + FormatResult(result, language)
}

func handleDevRun(ctx context.Context, r *Router, args []string) string {
	language, code, ok := splitLanguageAndCode(args)
	if !ok {
		return "Error: usage: /dev_run <language> <code...>"
	}
	result := r.Engine.Execute(ctx, language, code, engine.TierDevelopment)
	return FormatResult(result, language)
}

func handlePodmanStatus(ctx context.Context, r *Router, _ []string) string {
	runtime := r.Engine.Runtime()
	if runtime == nil {
		return "podman_status: no container runtime configured; every call uses the subprocess fallback"
	}

	version, err := runtime.Version(ctx)
	if err != nil {
		return fmt.Sprintf("podman_status: %s runtime detected but unreachable: %v", runtime.Name(), err)
	}

	info, err := runtime.SystemInfo(ctx)
	if err != nil {
		return fmt.Sprintf("podman_status: engine=%s version=%s (system info unavailable: %v)", runtime.Name(), version, err)
	}

	return fmt.Sprintf(
		"podman_status: engine=%s version=%s rootless=%t cgroup_version=%s storage_driver=%s",
		runtime.Name(), version, info.Rootless, info.CgroupVersion, info.StorageDriver,
	)
}

func handleCleanup(ctx context.Context, r *Router, args []string) string {
	session := ""
	if len(args) > 0 {
		session = args[0]
	}
	r.Engine.Cleanup(ctx, session)
	if session == "" {
		return "cleaned up all session-persistent containers"
	}
	return fmt.Sprintf("cleaned up session %q", session)
}

func handleStatus(ctx context.Context, r *Router, _ []string) string {
	_ = ctx
	s := r.GetStats()
	return fmt.Sprintf(
		"commands_executed=%d quantum_tests_run=%d performance_gains_found=%d bugs_prevented=%d containers_used=%d security_violations_prevented=%d",
		s.CommandsExecuted, s.QuantumTestsRun, s.PerformanceGainsFound, s.BugsPrevented, s.ContainersUsed, s.SecurityViolationsPrevented,
	)
}

func handleHelp(ctx context.Context, r *Router, args []string) string {
	_ = ctx
	if len(args) > 0 {
		cmd, ok := r.resolve(strings.ToLower(args[0]))
		if !ok {
			return fmt.Sprintf("Error: unknown command %q", args[0])
		}
		return fmt.Sprintf("%s — %s\nusage: %s", cmd.Name, cmd.Description, cmd.Usage)
	}

	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, name := range []string{"run", "container", "secure_run", "dev_run", "quantum", "quantum_container", "benchmark", "podman_status", "cleanup", "status", "help"} {
		if cmd, ok := r.commands[name]; ok {
			fmt.Fprintf(&b, "  /%s — %s\n", cmd.Name, cmd.Description)
		}
	}
	return b.String()
}

// splitLanguageAndCode splits "<language> <code...>" positional args.
func splitLanguageAndCode(args []string) (language, code string, ok bool) {
	if len(args) < 2 {
		return "", "", false
	}
	return args[0], strings.Join(args[1:], " "), true
}

// FormatResult renders an ExecutionResult into the fixed text block the
// Tool Surface and Command Router both return to the caller. language names
// the snippet's source language, used only to phrase the no-output case.
func FormatResult(result *engine.ExecutionResult, language string) string {
	var b strings.Builder
	if result.Output != "" {
		fmt.Fprintf(&b, "Output:\n%s", result.Output)
	}
	if result.Error != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Errors/Warnings:\n%s", result.Error)
	}
	if b.Len() == 0 {
		b.WriteString(noOutputMessage(language))
	}
	return b.String()
}

// noOutputMessage phrases the empty-result case per language, matching how
// each runtime's own "ran but printed nothing" idiom reads.
func noOutputMessage(language string) string {
	switch language {
	case "python":
		return "(no output — script ran without printing to stdout)"
	case "javascript", "node":
		return "(no output — script ran without writing to stdout)"
	case "bash", "sh":
		return "(no output — command produced no stdout)"
	default:
		return "(no output)"
	}
}

// parseTrailingIterations extracts an optional trailing all-digit token as
// the iteration count, defaulting to 10, and returns the remaining code
// tokens joined back together.
func parseTrailingIterations(args []string) (code string, iterations int) {
	iterations = 10
	if len(args) == 0 {
		return "", iterations
	}
	last := args[len(args)-1]
	if n, err := strconv.Atoi(last); err == nil && isAllDigits(last) {
		iterations = n
		return strings.Join(args[:len(args)-1], " "), iterations
	}
	return strings.Join(args, " "), iterations
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
