// SPDX-License-Identifier: MPL-2.0

package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeexec-server/internal/engine"
)

func newTestRouter() *Router {
	eng := engine.New(nil, engine.Limits{}, engine.Limits{}, engine.Limits{}, nil)
	return New(eng)
}

func TestDispatch_UnknownCommand(t *testing.T) {
	r := newTestRouter()
	resp := r.Dispatch(context.Background(), "/nope")
	assert.Contains(t, resp, "unknown command")
}

func TestDispatch_EmptyLine(t *testing.T) {
	r := newTestRouter()
	resp := r.Dispatch(context.Background(), "/")
	assert.Contains(t, resp, "empty or malformed")
}

func TestDispatch_RunExecutesCode(t *testing.T) {
	r := newTestRouter()
	resp := r.Dispatch(context.Background(), "/run bash echo hi")
	assert.Contains(t, resp, "hi")
}

func TestDispatch_AliasResolvesToCanonicalCommand(t *testing.T) {
	r := newTestRouter()
	resp := r.Dispatch(context.Background(), "/devrun bash echo dev")
	assert.Contains(t, resp, "dev")
}

func TestDispatch_TracksStatsAndHistory(t *testing.T) {
	r := newTestRouter()
	r.Dispatch(context.Background(), "/run bash echo a")
	r.Dispatch(context.Background(), "/run bash echo b")

	stats := r.GetStats()
	assert.Equal(t, 2, stats.CommandsExecuted)

	history := r.History()
	require.Len(t, history, 2)
	assert.Equal(t, "/run bash echo a", history[0].Line)
}

func TestDispatch_QuotedArgumentsAreShlexSplit(t *testing.T) {
	r := newTestRouter()
	resp := r.Dispatch(context.Background(), `/run bash echo "hello world"`)
	assert.Contains(t, resp, "hello world")
}

func TestDispatch_ContainerRejectsUnknownTier(t *testing.T) {
	r := newTestRouter()
	resp := r.Dispatch(context.Background(), "/container bogus python print(1)")
	assert.Contains(t, resp, "unknown tier")
}

func TestDispatch_HelpWithoutArgsListsCommands(t *testing.T) {
	r := newTestRouter()
	resp := r.Dispatch(context.Background(), "/help")
	assert.Contains(t, resp, "/run")
	assert.Contains(t, resp, "/status")
}

func TestDispatch_HelpWithArgDescribesOneCommand(t *testing.T) {
	r := newTestRouter()
	resp := r.Dispatch(context.Background(), "/help run")
	assert.Contains(t, resp, "/run <language> <code...>")
}

func TestHistory_BoundedAtCap(t *testing.T) {
	r := newTestRouter()
	r.historyCap = 3
	for i := 0; i < 5; i++ {
		r.Dispatch(context.Background(), "/status")
	}
	assert.Len(t, r.History(), 3)
}

func TestResolve_SingleHopAliasOnly(t *testing.T) {
	r := newTestRouter()
	_, ok := r.resolve("securerun")
	assert.True(t, ok)
	_, ok = r.resolve("not_a_command_or_alias")
	assert.False(t, ok)
}
