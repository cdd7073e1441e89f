// SPDX-License-Identifier: MPL-2.0

package engine

import "fmt"

// languageSpec is one row of the immutable language ↔ extension ↔
// execution-command table consulted on every call.
type languageSpec struct {
	// ext is the file extension used for the on-disk/in-container source file.
	ext string
	// containerArgv builds the argv used to run file f inside a container.
	containerArgv func(f string) []string
}

// languageTable maps a language name to its spec. Unknown languages are
// handled by Execute and Engine.fallback as an "unsupported language" error.
var languageTable = map[string]languageSpec{
	"python": {
		ext: "py",
		containerArgv: func(f string) []string {
			return []string{"python3", f}
		},
	},
	"javascript": {
		ext: "js",
		containerArgv: func(f string) []string {
			return []string{"node", f}
		},
	},
	"bash": {
		ext: "sh",
		containerArgv: func(f string) []string {
			return []string{"sh", f}
		},
	},
	"rust": {
		ext: "rs",
		containerArgv: func(f string) []string {
			return []string{"sh", "-c", fmt.Sprintf("cd /tmp && rustc %s -o /tmp/program && /tmp/program", f)}
		},
	},
	"go": {
		ext: "go",
		containerArgv: func(f string) []string {
			return []string{"sh", "-c", fmt.Sprintf("cd /tmp && go run %s", f)}
		},
	},
}
