// SPDX-License-Identifier: MPL-2.0

// Package jsonrpc implements the line-framed JSON-RPC 2.0 stdio front-end:
// a single-threaded blocking reader that submits each request as a task to
// the Tool Surface, and writes each response as one atomic line to stdout.
package jsonrpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInternalError  = -32603

	ProtocolVersion = "2024-11-05"
	ServerName      = "codeexec-server"
)

// ServerVersion is overridden at build time via -ldflags; "dev" otherwise.
var ServerVersion = "dev"

// request is the minimal inbound envelope this front-end understands.
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// response is the outbound envelope; exactly one of Result/Error is set.
type response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`

	// executionMS carries the tool call's wall-clock duration, in
	// milliseconds, to writeResponse's Inspector logging. Unset (nil) for
	// every method other than tools/call. Unexported, so never serialized.
	executionMS *float64
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ToolHandler routes a tools/call request to the Tool Surface.
type ToolHandler func(ctx context.Context, name string, arguments json.RawMessage) (content []ContentBlock, err error)

// ContentBlock is one element of a tools/call response's content array.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Logger is the subset of events this server reports to the Inspector.
type Logger interface {
	LogInbound(ctx context.Context, content any)
	LogOutbound(ctx context.Context, content any, executionMS *float64, errText *string)
}

// Tools is the fixed set of tool descriptors returned by tools/list.
var Tools = []map[string]any{
	{
		"name":        "execute_code",
		"description": "Execute a snippet of Python, JavaScript, or Bash code and return its captured output.",
		"inputSchema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"language": map[string]any{"enum": []string{"python", "javascript", "bash", "slash"}},
				"code":     map[string]any{"type": "string"},
			},
			"required":             []string{"language", "code"},
			"additionalProperties": false,
		},
	},
	{
		"name":        "create_file",
		"description": "Write content to a file in the server's working directory.",
		"inputSchema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"filename": map[string]any{"type": "string"},
				"content":  map[string]any{"type": "string"},
			},
			"required":             []string{"filename", "content"},
			"additionalProperties": false,
		},
	},
}

// Server is the JSON-RPC front-end (spec §4.F). Construct with New and call
// Serve once; it blocks until in reaches EOF or ctx is cancelled.
type Server struct {
	tools  ToolHandler
	logger *log.Logger
	obs    Logger

	writeMu sync.Mutex
}

// New constructs a Server. obs may be nil to skip Inspector logging (tests).
func New(tools ToolHandler, logger *log.Logger, obs Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{tools: tools, logger: logger, obs: obs}
}

// Serve reads newline-delimited JSON-RPC requests from in and writes
// responses to out until in is exhausted or ctx is cancelled. Each request
// is dispatched as an independent goroutine task (spec §5's cooperative task
// pool); responses are written under writeMu so no two lines interleave.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	var wg sync.WaitGroup
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		wg.Add(1)
		go func(line string) {
			defer wg.Done()
			s.handleLine(ctx, line, out)
		}(line)
	}

	wg.Wait()
	return scanner.Err()
}

func (s *Server) handleLine(ctx context.Context, line string, out io.Writer) {
	var req request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		s.writeResponse(ctx, out, response{
			JSONRPC: "2.0",
			ID:      nil,
			Error:   &rpcError{Code: CodeParseError, Message: "parse error: " + err.Error()},
		})
		return
	}

	if s.obs != nil {
		s.obs.LogInbound(ctx, map[string]any{"method": req.Method, "id": req.ID})
	}

	if req.Method == "notifications/initialized" {
		return
	}

	if req.ID == nil {
		s.writeResponse(ctx, out, response{
			JSONRPC: "2.0",
			ID:      nil,
			Error:   &rpcError{Code: CodeInvalidRequest, Message: "invalid request: missing id"},
		})
		return
	}

	resp := s.dispatch(ctx, req)
	s.writeResponse(ctx, out, resp)
}

func (s *Server) dispatch(ctx context.Context, req request) (resp response) {
	defer func() {
		if r := recover(); r != nil {
			resp = response{
				JSONRPC: "2.0",
				ID:      req.ID,
				Error:   &rpcError{Code: CodeInternalError, Message: fmt.Sprintf("internal error: %v", r)},
			}
		}
	}()

	switch req.Method {
	case "initialize":
		return response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: map[string]any{
				"protocolVersion": ProtocolVersion,
				"capabilities":    map[string]any{"tools": map[string]any{}},
				"serverInfo":      map[string]any{"name": ServerName, "version": ServerVersion},
			},
		}

	case "tools/list":
		return response{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{"tools": Tools}}

	case "tools/call":
		return s.dispatchToolsCall(ctx, req)

	default:
		return response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &rpcError{Code: CodeMethodNotFound, Message: fmt.Sprintf("method not found: %s", req.Method)},
		}
	}
}

func (s *Server) dispatchToolsCall(ctx context.Context, req request) response {
	var call struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &call); err != nil {
			return response{
				JSONRPC: "2.0",
				ID:      req.ID,
				Error:   &rpcError{Code: CodeInternalError, Message: "invalid tools/call params: " + err.Error()},
			}
		}
	}

	start := time.Now()
	content, err := s.tools(ctx, call.Name, call.Arguments)
	elapsedMS := float64(time.Since(start)) / float64(time.Millisecond)

	if err != nil {
		content = []ContentBlock{{Type: "text", Text: "Error: " + err.Error()}}
	}

	return response{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{"content": content}, executionMS: &elapsedMS}
}

func (s *Server) writeResponse(ctx context.Context, out io.Writer, resp response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to marshal response", "err", err)
		return
	}

	s.writeMu.Lock()
	_, writeErr := out.Write(append(data, '\n'))
	s.writeMu.Unlock()
	if writeErr != nil {
		s.logger.Error("failed to write response", "err", writeErr)
	}

	if s.obs != nil {
		var errText *string
		if resp.Error != nil {
			msg := resp.Error.Message
			errText = &msg
		}
		s.obs.LogOutbound(ctx, resp, resp.executionMS, errText)
	}
}
