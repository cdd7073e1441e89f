// SPDX-License-Identifier: MPL-2.0

// Package inspector is the process-wide observer: a bounded ring buffer of
// RPC events, running-mean metrics, and a websocket pub/sub hub that
// broadcasts every logged event to subscribed dashboard clients.
package inspector

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// Direction tags whether an RPCEvent was received or emitted by the front-end.
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// RPCEvent is a single recorded protocol message plus timing/error metadata.
type RPCEvent struct {
	Timestamp     time.Time   `json:"timestamp"`
	Direction     Direction   `json:"direction"`
	MessageType   string      `json:"message_type"`
	Method        string      `json:"method,omitempty"`
	ID            any         `json:"id,omitempty"`
	Content       any         `json:"content"`
	ExecutionMS   *float64    `json:"execution_time_ms,omitempty"`
	ErrorText     *string     `json:"error_text,omitempty"`
}

// MethodStats is the per-method aggregate derived from logged events.
type MethodStats struct {
	Count       int     `json:"count"`
	TotalTimeMS float64 `json:"total_time_ms"`
	AvgTimeMS   float64 `json:"avg_time_ms"`
	Errors      int     `json:"errors"`
}

// Metrics is the aggregate snapshot exposed by GetMetrics.
type Metrics struct {
	TotalMessages   int                    `json:"total_messages"`
	ErrorCount      int                    `json:"error_count"`
	AvgResponseMS   float64                `json:"avg_response_time"`
	PerMethod       map[string]MethodStats `json:"per_method"`
}

// SystemMetrics reports host resource utilization, percentages in [0, 100].
type SystemMetrics struct {
	CPUPercent  float64 `json:"cpu_percent"`
	MemPercent  float64 `json:"mem_percent"`
	DiskPercent float64 `json:"disk_percent"`
}

// Inspector is the single-writer observer described in spec §4.E. All
// mutation goes through Log; readers take a snapshot under the same mutex.
type Inspector struct {
	mu         sync.Mutex
	capacity   int
	recording  bool
	buffer     []RPCEvent
	metrics    Metrics
	subscriber subscriberSet
}

// subscriberSet abstracts the websocket hub so Inspector stays testable
// without a real network connection.
type subscriberSet interface {
	Broadcast(envelope []byte)
}

// New constructs an Inspector with the given ring-buffer capacity (spec
// default 1000) and subscriber hub.
func New(capacity int, subs subscriberSet) *Inspector {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Inspector{
		capacity:   capacity,
		recording:  true,
		metrics:    Metrics{PerMethod: make(map[string]MethodStats)},
		subscriber: subs,
	}
}

// Log is the single write entry point: constructs an RPCEvent, appends it to
// the ring buffer (if recording is on), updates running metrics, and
// broadcasts the event to subscribers.
func (ins *Inspector) Log(ctx context.Context, direction Direction, content any, executionMS *float64, errText *string) {
	event := RPCEvent{
		Timestamp:   time.Now(),
		Direction:   direction,
		MessageType: "response",
		Content:     content,
		ExecutionMS: executionMS,
		ErrorText:   errText,
	}

	if obj, ok := content.(map[string]any); ok {
		if m, ok := obj["method"].(string); ok && m != "" {
			event.Method = m
			event.MessageType = m
		}
		event.ID = obj["id"]
	}

	ins.mu.Lock()
	if ins.recording {
		ins.buffer = append(ins.buffer, event)
		if len(ins.buffer) > ins.capacity {
			ins.buffer = ins.buffer[len(ins.buffer)-ins.capacity:]
		}
	}

	ins.metrics.TotalMessages++
	if errText != nil {
		ins.metrics.ErrorCount++
	}
	if executionMS != nil {
		n := float64(ins.metrics.TotalMessages)
		ins.metrics.AvgResponseMS = (ins.metrics.AvgResponseMS*(n-1) + *executionMS) / n

		if event.Method != "" {
			stats := ins.metrics.PerMethod[event.Method]
			stats.Count++
			stats.TotalTimeMS += *executionMS
			stats.AvgTimeMS = stats.TotalTimeMS / float64(stats.Count)
			if errText != nil {
				stats.Errors++
			}
			ins.metrics.PerMethod[event.Method] = stats
		}
	} else if event.Method != "" && errText != nil {
		stats := ins.metrics.PerMethod[event.Method]
		stats.Errors++
		ins.metrics.PerMethod[event.Method] = stats
	}
	ins.mu.Unlock()

	if ins.subscriber != nil {
		envelope, err := json.Marshal(map[string]any{"type": "mcp_message", "data": event})
		if err == nil {
			ins.subscriber.Broadcast(envelope)
		}
	}
	_ = ctx
}

// LogInbound records a request or notification read from standard input.
// It satisfies jsonrpc.Logger without importing the jsonrpc package.
func (ins *Inspector) LogInbound(ctx context.Context, content any) {
	ins.Log(ctx, Inbound, content, nil, nil)
}

// LogOutbound records a response written to standard output.
func (ins *Inspector) LogOutbound(ctx context.Context, content any, executionMS *float64, errText *string) {
	ins.Log(ctx, Outbound, content, executionMS, errText)
}

// RecentMessages returns the most recent limit events, oldest first.
func (ins *Inspector) RecentMessages(limit int) []RPCEvent {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	n := len(ins.buffer)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]RPCEvent, limit)
	copy(out, ins.buffer[n-limit:])
	return out
}

// GetMetrics returns a snapshot of the aggregated RPC metrics.
func (ins *Inspector) GetMetrics() Metrics {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	perMethod := make(map[string]MethodStats, len(ins.metrics.PerMethod))
	for k, v := range ins.metrics.PerMethod {
		perMethod[k] = v
	}
	return Metrics{
		TotalMessages: ins.metrics.TotalMessages,
		ErrorCount:    ins.metrics.ErrorCount,
		AvgResponseMS: ins.metrics.AvgResponseMS,
		PerMethod:     perMethod,
	}
}

// GetSystemMetrics samples host CPU/memory/disk utilization.
func GetSystemMetrics(ctx context.Context) SystemMetrics {
	var out SystemMetrics

	if pcts, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false); err == nil && len(pcts) > 0 {
		out.CPUPercent = pcts[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		out.MemPercent = vm.UsedPercent
	}
	if du, err := disk.UsageWithContext(ctx, "/"); err == nil {
		out.DiskPercent = du.UsedPercent
	}
	return out
}

// Clear empties the ring buffer without resetting the cumulative metrics.
func (ins *Inspector) Clear() {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	ins.buffer = nil
}

// ToggleRecording flips whether Log appends to the ring buffer and returns
// the new state.
func (ins *Inspector) ToggleRecording() bool {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	ins.recording = !ins.recording
	return ins.recording
}
