// SPDX-License-Identifier: MPL-2.0

package jsonrpc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTestClient_RunIntegrationTests(t *testing.T) {
	tools := func(ctx context.Context, name string, arguments json.RawMessage) ([]ContentBlock, error) {
		return []ContentBlock{{Type: "text", Text: "ok:" + name}}, nil
	}
	s := New(tools, nil, nil)
	client := NewTestClient(s)

	results := client.RunIntegrationTests(context.Background())
	assert.Len(t, results, 3)
	for _, r := range results {
		assert.NoError(t, r.Err)
		assert.True(t, r.Success, "method %s should succeed", r.Method)
	}
	assert.Equal(t, "initialize", results[0].Method)
	assert.Equal(t, "tools/call", results[1].Method)
}
