// SPDX-License-Identifier: MPL-2.0

// Command codeexec-server speaks line-delimited JSON-RPC over stdio to an
// upstream conversational agent, executing Python/JavaScript/Bash snippets
// either as a direct host subprocess or inside a rootless OCI container,
// and exposes an HTTP+websocket inspection dashboard on loopback.
package main

func main() {
	Execute()
}
