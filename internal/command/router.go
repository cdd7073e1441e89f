// SPDX-License-Identifier: MPL-2.0

// Package command implements the slash-command router: it parses a
// "/name args…" line, resolves a single alias hop, dispatches to a
// registered handler, and maintains bounded history plus monotonic
// statistics counters.
package command

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/shlex"

	"codeexec-server/internal/engine"
	"codeexec-server/internal/security"
)

// Handler executes one command and returns its text response.
type Handler func(ctx context.Context, r *Router, args []string) string

// Command is a registry entry; names and aliases form disjoint identifier
// sets, and alias lookups must resolve to a registered name in a single hop.
type Command struct {
	Name        string
	Description string
	Category    string
	Usage       string
	Examples    []string
	Aliases     []string
	Handler     Handler
}

// Stats holds the router's monotonic counters.
type Stats struct {
	CommandsExecuted           int
	QuantumTestsRun            int
	PerformanceGainsFound      int
	BugsPrevented              int
	ContainersUsed             int
	SecurityViolationsPrevented int
}

// HistoryEntry records one executed command line and its response.
type HistoryEntry struct {
	Line     string
	Response string
}

const defaultHistoryCap = 1000

// Router is the Command Router component (spec §4.D). Its registry is
// populated once at construction and is immutable thereafter; history and
// stats are updated under a single-writer discipline (mu).
type Router struct {
	Engine *engine.Engine

	commands map[string]Command
	aliases  map[string]string

	mu           sync.Mutex
	stats        Stats
	history      []HistoryEntry
	historyCap   int
}

// New constructs a Router with the minimum registered command set and wires
// it to an Execution Engine.
func New(eng *engine.Engine) *Router {
	r := &Router{
		Engine:     eng,
		commands:   make(map[string]Command),
		aliases:    make(map[string]string),
		historyCap: defaultHistoryCap,
	}
	r.register()
	return r
}

func (r *Router) add(cmd Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd.Name
	}
}

// resolve looks up a command name, following a single alias hop.
func (r *Router) resolve(name string) (Command, bool) {
	if cmd, ok := r.commands[name]; ok {
		return cmd, true
	}
	if target, ok := r.aliases[name]; ok {
		cmd, ok := r.commands[target]
		return cmd, ok
	}
	return Command{}, false
}

// Dispatch parses and runs a line beginning with "/". It is safe to call
// concurrently; each call is treated as an independent task per spec §5.
func (r *Router) Dispatch(ctx context.Context, line string) string {
	trimmed := strings.TrimPrefix(strings.TrimSpace(line), "/")
	tokens, err := shlex.Split(trimmed)
	if err != nil || len(tokens) == 0 {
		return "Error: empty or malformed command; try /help"
	}

	name := strings.ToLower(tokens[0])
	args := tokens[1:]

	cmd, ok := r.resolve(name)
	if !ok {
		return fmt.Sprintf("Error: unknown command %q; try /help for the list of commands", name)
	}

	response := cmd.Handler(ctx, r, args)

	r.mu.Lock()
	r.stats.CommandsExecuted++
	r.history = append(r.history, HistoryEntry{Line: line, Response: response})
	if len(r.history) > r.historyCap {
		r.history = r.history[len(r.history)-r.historyCap:]
	}
	r.mu.Unlock()

	return response
}

// History returns a copy of the bounded command history, oldest first.
func (r *Router) History() []HistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]HistoryEntry, len(r.history))
	copy(out, r.history)
	return out
}

// GetStats returns a snapshot of the monotonic counters.
func (r *Router) GetStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Router) incQuantumTestsRun()            { r.mu.Lock(); r.stats.QuantumTestsRun++; r.mu.Unlock() }
func (r *Router) incPerformanceGainsFound()       { r.mu.Lock(); r.stats.PerformanceGainsFound++; r.mu.Unlock() }
func (r *Router) incBugsPrevented()               { r.mu.Lock(); r.stats.BugsPrevented++; r.mu.Unlock() }
func (r *Router) incContainersUsed()              { r.mu.Lock(); r.stats.ContainersUsed++; r.mu.Unlock() }
func (r *Router) incSecurityViolationsPrevented() { r.mu.Lock(); r.stats.SecurityViolationsPrevented++; r.mu.Unlock() }

// securityWarningBlock formats the Security Analyzer's findings into the
// prefix text /secure_run prepends ahead of the execution result.
func securityWarningBlock(findings []security.Finding) string {
	if len(findings) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Security Analyzer warnings:\n")
	for _, f := range findings {
		fmt.Fprintf(&b, "  - %s: %q\n", f.Category, f.Token)
	}
	b.WriteString("\n")
	return b.String()
}
