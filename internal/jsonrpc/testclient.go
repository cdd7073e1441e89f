// SPDX-License-Identifier: MPL-2.0

package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// TestClient drives a Server in-process without going through real stdio,
// for use from tests. It mirrors send_request/run_integration_tests from
// the inspector tooling this package's front-end was built alongside.
type TestClient struct {
	server *Server
	nextID int
}

// NewTestClient wraps a Server for in-process request/response testing.
func NewTestClient(server *Server) *TestClient {
	return &TestClient{server: server}
}

// TestResult is one entry of RunIntegrationTests' report.
type TestResult struct {
	Method  string
	Success bool
	Result  json.RawMessage
	Err     error
}

// SendRequest builds a request envelope for method/params, feeds it through
// the server's line handler, and returns the raw decoded response.
func (c *TestClient) SendRequest(ctx context.Context, method string, params any) (json.RawMessage, error) {
	c.nextID++
	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      fmt.Sprintf("test_%d", c.nextID),
		"method":  method,
		"params":  params,
	}
	line, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var out bytes.Buffer
	c.server.handleLine(ctx, string(line), &out)
	if out.Len() == 0 {
		return nil, fmt.Errorf("no response for method %q", method)
	}
	return json.RawMessage(bytes.TrimRight(out.Bytes(), "\n")), nil
}

// RunIntegrationTests exercises initialize and both MCP tools end to end,
// the same fixed suite as the original inspector's smoke test.
func (c *TestClient) RunIntegrationTests(ctx context.Context) []TestResult {
	cases := []struct {
		method string
		params any
	}{
		{"initialize", map[string]any{}},
		{"tools/call", map[string]any{
			"name":      "execute_code",
			"arguments": map[string]any{"language": "python", "code": `print("test")`},
		}},
		{"tools/call", map[string]any{
			"name":      "create_file",
			"arguments": map[string]any{"filename": "test.txt", "content": "test"},
		}},
	}

	results := make([]TestResult, 0, len(cases))
	for _, tc := range cases {
		raw, err := c.SendRequest(ctx, tc.method, tc.params)
		if err != nil {
			results = append(results, TestResult{Method: tc.method, Success: false, Err: err})
			continue
		}

		var resp response
		if err := json.Unmarshal(raw, &resp); err != nil {
			results = append(results, TestResult{Method: tc.method, Success: false, Err: err})
			continue
		}
		results = append(results, TestResult{
			Method:  tc.method,
			Success: resp.Error == nil,
			Result:  raw,
		})
	}
	return results
}
