package coordinator

import "encoding/json"

// measurementResponse is the JSON body read back from an out or error
// subject. Only ID and Error are interpreted by the coordinator; the rest
// of the payload is stored verbatim as the result.
type measurementResponse struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

// heartbeatMessage is the JSON body published on the heartbeat subjects.
type heartbeatMessage struct {
	AgentID         string            `json:"agent_id"`
	Hostname        string            `json:"hostname"`
	FirstSeen       float64           `json:"first_seen"`
	TotalHeartbeats int64             `json:"total_heartbeats"`
	Config          map[string]string `json:"config"`
	Timestamp       float64           `json:"timestamp"`
}

// moduleStateBroadcast is the JSON body published on agent.module.state.
// The coordinator publishes it after each state write for other observers;
// it does not subscribe to this subject itself.
type moduleStateBroadcast struct {
	AgentID      string            `json:"agent_id"`
	ModuleName   string            `json:"module_name"`
	State        string            `json:"state"`
	RequestID    string            `json:"request_id"`
	Timestamp    int64             `json:"timestamp"`
	Version      int64             `json:"version"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Details      map[string]string `json:"details,omitempty"`
}

// Outcome is what Dispatch returns for a finished or failed workflow.
type Outcome struct {
	RequestID string
	State     string // completed, error, failed
	Payload   json.RawMessage
	Error     string
}

// busyError is returned by Dispatch when the per-agent outstanding-await
// bound is exceeded.
type busyError struct{ agentID string }

func (e *busyError) Error() string { return "coordinator: agent " + e.agentID + " is busy" }

// IsBusy reports whether err was returned because the per-agent
// outstanding-await bound was exceeded, so callers (the REST layer) can
// surface a 429/503 instead of a generic 500.
func IsBusy(err error) bool {
	_, ok := err.(*busyError)
	return ok
}
