package modules

import (
	"context"
	"fmt"
)

// TCPingModule is a thin, TCP-only sibling of ping_module: no ICMP attempt
// at all, matching the original module's use of the standalone tcping
// library as an explicit alternative to the ICMP-first module.
type TCPingModule struct{}

// NewTCPingModule constructs the built-in tcping module.
func NewTCPingModule() *TCPingModule { return &TCPingModule{} }

func (m *TCPingModule) Name() string { return "tcping" }

func (m *TCPingModule) Schema() Schema {
	return Schema{Fields: []Field{
		{Name: "host", Type: FieldString, Default: ""},
		{Name: "target", Type: FieldString, Default: ""},
		{Name: "port", Type: FieldInt, Required: true},
		{Name: "count", Type: FieldInt, Default: 3},
	}}
}

func (m *TCPingModule) Setup(ctx context.Context) error { return nil }

func (m *TCPingModule) Handle(ctx context.Context, payload map[string]any, headers map[string]string) (any, error) {
	host := String(payload, "host", "")
	if host == "" {
		host = String(payload, "target", "")
	}
	if host == "" {
		return nil, fmt.Errorf("tcping: missing host")
	}
	port := Int(payload, "port", 0)
	if port <= 0 {
		return nil, fmt.Errorf("tcping: missing or invalid port")
	}
	count := Int(payload, "count", 3)

	result := tcpProbe(ctx, host, port, count)
	result["address"] = host
	result["host"] = host
	return result, nil
}
