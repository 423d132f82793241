package agentrt

import (
	"context"
	"time"

	"github.com/Arjun4522/internet-measurement-network/internal/modules"
	"github.com/Arjun4522/internet-measurement-network/pkg/bus"
)

// runHeartbeatLoop publishes a heartbeat on bus.HeartbeatModuleSubject
// every heartbeatInterval until ctx is cancelled, folding a load-average
// sample into the config map per the heartbeat module's contract.
func (r *Runtime) runHeartbeatLoop(ctx context.Context) {
	r.sendHeartbeat(ctx)

	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sendHeartbeat(ctx)
		}
	}
}

func (r *Runtime) sendHeartbeat(ctx context.Context) {
	r.totalHeartbeatsMu.Lock()
	r.totalHeartbeats++
	count := r.totalHeartbeats
	r.totalHeartbeatsMu.Unlock()

	hb := map[string]any{
		"agent_id":         r.agentID,
		"hostname":         r.hostname,
		"first_seen":       r.firstSeen,
		"total_heartbeats": count,
		"config":           map[string]string{"load1": modules.SampleLoadAverage()},
		"timestamp":        time.Now().Unix(),
	}

	if err := r.bus.Publish(ctx, bus.HeartbeatModuleSubject, hb); err != nil {
		r.log.Printf("[WARN] heartbeat publish: %v", err)
	}
}
