// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))
	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "codeexec-server",
	Short: "A sandboxed code-execution service for conversational agents",
	Long: titleStyle.Render("codeexec-server") + subtitleStyle.Render(" - stdio JSON-RPC code execution with tiered container isolation") + `

codeexec-server reads line-delimited JSON-RPC 2.0 requests from standard
input and executes Python, JavaScript, or Bash snippets either as a direct
host subprocess or inside a rootless Podman/Docker container, at one of
three isolation tiers. A loopback HTTP+websocket dashboard exposes recent
traffic and aggregate metrics for debugging.

` + subtitleStyle.Render("Quick start:") + `
  codeexec-server serve         Run the stdio service (default command)
  codeexec-server version       Print version information`,
}

func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and runs it. Called
// once from main.main.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/codeexec-server/config.toml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
