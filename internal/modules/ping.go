package modules

import (
	"context"
	"fmt"
	"net"
	"time"
)

// PingModule probes a target with repeated TCP connect attempts. The
// original module ICMP-pings with a TCP fallback; the agent runtime never
// runs with the raw-socket capability ICMP requires, so this module always
// takes the fallback path and reports protocol "tcp".
type PingModule struct{}

// NewPingModule constructs the built-in ping module.
func NewPingModule() *PingModule { return &PingModule{} }

func (m *PingModule) Name() string { return "ping_module" }

func (m *PingModule) Schema() Schema {
	return Schema{Fields: []Field{
		{Name: "host", Type: FieldString, Default: ""},
		{Name: "target", Type: FieldString, Default: ""},
		{Name: "count", Type: FieldInt, Default: 3},
		{Name: "port", Type: FieldInt, Default: 80},
	}}
}

func (m *PingModule) Setup(ctx context.Context) error { return nil }

func (m *PingModule) Handle(ctx context.Context, payload map[string]any, headers map[string]string) (any, error) {
	host := String(payload, "host", "")
	if host == "" {
		host = String(payload, "target", "")
	}
	if host == "" {
		return nil, fmt.Errorf("ping_module: missing host")
	}
	count := Int(payload, "count", 3)
	port := Int(payload, "port", 80)

	result := tcpProbe(ctx, host, port, count)
	result["address"] = host
	result["host"] = host
	return result, nil
}

// tcpProbe dials addr:port count times, returning min/avg/max RTT and loss
// in the shape the original module's result dict used.
func tcpProbe(ctx context.Context, addr string, port, count int) map[string]any {
	if count <= 0 {
		count = 1
	}

	var min, max, sum time.Duration
	received := 0
	rtts := make([]float64, 0, count)

	for i := 0; i < count; i++ {
		start := time.Now()
		conn, err := (&net.Dialer{Timeout: 5 * time.Second}).DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", addr, port))
		rtt := time.Since(start)
		if err != nil {
			continue
		}
		conn.Close()

		received++
		rtts = append(rtts, rtt.Seconds()*1000)
		if min == 0 || rtt < min {
			min = rtt
		}
		if rtt > max {
			max = rtt
		}
		sum += rtt
	}

	var avg time.Duration
	if received > 0 {
		avg = sum / time.Duration(received)
	}

	return map[string]any{
		"protocol":         "tcp",
		"port":             port,
		"is_alive":         received > 0,
		"packets_sent":     count,
		"packets_received": received,
		"packet_loss":      float64(count-received) / float64(count) * 100,
		"rtts":             rtts,
		"rtt_min_ms":       min.Seconds() * 1000,
		"rtt_avg_ms":       avg.Seconds() * 1000,
		"rtt_max_ms":       max.Seconds() * 1000,
		"timestamp":        time.Now().Unix(),
	}
}
