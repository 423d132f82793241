package bus

// StreamName is the single JetStream stream backing every subject below.
const StreamName = "IMN"

// HeartbeatModuleSubject carries the heartbeat broadcast every agent
// publishes on, regardless of module configuration.
const HeartbeatModuleSubject = "agent.heartbeat_module"

// ModuleStateSubject carries the module-state transition broadcast.
const ModuleStateSubject = "agent.module.state"

// AgentIn returns the command subject for agentID.
func AgentIn(agentID string) string { return "agent." + agentID + ".in" }

// AgentOut returns the success-result subject for agentID.
func AgentOut(agentID string) string { return "agent." + agentID + ".out" }

// AgentError returns the error-result subject for agentID.
func AgentError(agentID string) string { return "agent." + agentID + ".error" }

// ModuleIn returns the per-module command subject for agentID/module.
func ModuleIn(agentID, module string) string { return "agent." + agentID + "." + module + ".in" }

// ModuleOut returns the per-module success-result subject for agentID/module.
func ModuleOut(agentID, module string) string { return "agent." + agentID + "." + module + ".out" }

// ModuleError returns the per-module error-result subject for agentID/module.
func ModuleError(agentID, module string) string { return "agent." + agentID + "." + module + ".error" }

// LegacyHeartbeat returns the deprecated per-agent heartbeat subject, still
// accepted by the heartbeat consumer alongside HeartbeatModuleSubject.
func LegacyHeartbeat(agentID string) string { return "heartbeat." + agentID }

// Subjects lists every subject pattern the control-plane stream must cover.
func Subjects() []string {
	return []string{
		"agent.*.in",
		"agent.*.out",
		"agent.*.error",
		"agent.*.*.in",
		"agent.*.*.out",
		"agent.*.*.error",
		HeartbeatModuleSubject,
		ModuleStateSubject,
		"heartbeat.*",
	}
}
