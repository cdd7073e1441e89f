// SPDX-License-Identifier: MPL-2.0

// Package toolsurface wires the two MCP-style tools — execute_code and
// create_file — to the Command Router and Execution Engine.
package toolsurface

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"codeexec-server/internal/command"
	"codeexec-server/internal/engine"
	"codeexec-server/internal/jsonrpc"
)

// Surface implements jsonrpc.ToolHandler.
type Surface struct {
	Engine *engine.Engine
	Router *command.Router
}

// New constructs a Surface wired to the given Engine and Router.
func New(eng *engine.Engine, router *command.Router) *Surface {
	return &Surface{Engine: eng, Router: router}
}

// Handle dispatches a tools/call request by tool name.
func (s *Surface) Handle(ctx context.Context, name string, arguments json.RawMessage) ([]jsonrpc.ContentBlock, error) {
	switch name {
	case "execute_code":
		return s.executeCode(ctx, arguments)
	case "create_file":
		return s.createFile(arguments)
	default:
		return nil, fmt.Errorf("unknown tool %q", name)
	}
}

func (s *Surface) executeCode(ctx context.Context, arguments json.RawMessage) ([]jsonrpc.ContentBlock, error) {
	var args struct {
		Language string `json:"language"`
		Code     string `json:"code"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return textBlock(fmt.Sprintf("Error: invalid arguments: %v", err)), nil
	}
	if args.Language == "" || args.Code == "" {
		return textBlock("Error: language and code are required"), nil
	}

	if args.Language == "slash" || strings.HasPrefix(args.Code, "/") {
		return textBlock(s.Router.Dispatch(ctx, args.Code)), nil
	}

	result := s.Engine.Execute(ctx, args.Language, args.Code, "")
	return textBlock(command.FormatResult(result, args.Language)), nil
}

func (s *Surface) createFile(arguments json.RawMessage) ([]jsonrpc.ContentBlock, error) {
	var args struct {
		Filename string `json:"filename"`
		Content  string `json:"content"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return textBlock(fmt.Sprintf("Error: invalid arguments: %v", err)), nil
	}

	if strings.Contains(args.Filename, "..") || strings.HasPrefix(args.Filename, "/") {
		return textBlock(fmt.Sprintf("Error: refusing to write outside the working directory: %q", args.Filename)), nil
	}

	if err := os.WriteFile(args.Filename, []byte(args.Content), 0o644); err != nil {
		return textBlock(fmt.Sprintf("Error: failed to write file: %v", err)), nil
	}

	return textBlock(fmt.Sprintf("wrote %d bytes to %s", len(args.Content), args.Filename)), nil
}

func textBlock(text string) []jsonrpc.ContentBlock {
	return []jsonrpc.ContentBlock{{Type: "text", Text: text}}
}
