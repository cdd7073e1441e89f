// SPDX-License-Identifier: MPL-2.0

// Package security implements a pure, advisory static scan over a snippet's
// source text. It never blocks execution; it only surfaces findings for the
// Command Router's /secure_run warning block.
package security

import "strings"

// Finding is a single matched risky token.
type Finding struct {
	Category string
	Token    string
}

// catalogue is the fixed set of risky tokens scanned for, grouped by the
// category description reported alongside each match.
var catalogue = []Finding{
	{Category: "potentially unsafe import", Token: "import os"},
	{Category: "potentially unsafe import", Token: "urllib"},
	{Category: "potentially unsafe import", Token: "requests"},
	{Category: "potentially unsafe import", Token: "socket"},
	{Category: "dynamic code evaluation", Token: "exec("},
	{Category: "dynamic code evaluation", Token: "eval("},
	{Category: "dynamic code evaluation", Token: "__import__"},
	{Category: "process or filesystem access", Token: "subprocess"},
	{Category: "process or filesystem access", Token: "open("},
	{Category: "process or filesystem access", Token: "os.system"},
	{Category: "process or filesystem access", Token: "os.popen"},
	{Category: "process or filesystem access", Token: "sys.exit"},
}

// Analyze scans code for substring occurrences of the risky-token catalogue.
// It carries no state and blocks nothing; callers decide what to do with the
// findings.
func Analyze(code string) []Finding {
	var findings []Finding
	for _, entry := range catalogue {
		if strings.Contains(code, entry.Token) {
			findings = append(findings, entry)
		}
	}
	return findings
}
