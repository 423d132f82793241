// Package config loads the environment-variable configuration recognized
// by every IMN binary, following the same "read with a sane default"
// helpers the teacher uses for its own environment overrides.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Coordinator holds the settings the coordinator/REST binary reads at
// startup.
type Coordinator struct {
	NATSURL             string
	DBOSAddress         string
	HeartbeatIntervalMS int
	LivenessWindowMS    int
	RequestTimeoutMS    int
	VisibilityTimeoutS  int64
	IdempotencyTTLS     int64
	ListenAddr          string
}

// LoadCoordinator reads Coordinator settings from the environment,
// applying the defaults named in the configuration table.
func LoadCoordinator() Coordinator {
	return Coordinator{
		NATSURL:             getString("NATS_URL", "nats://127.0.0.1:4222"),
		DBOSAddress:         getString("DBOS_ADDRESS", "127.0.0.1:50051"),
		HeartbeatIntervalMS: getInt("HEARTBEAT_INTERVAL_MS", 2000),
		LivenessWindowMS:    getInt("LIVENESS_WINDOW_MS", 10000),
		RequestTimeoutMS:    getInt("REQUEST_TIMEOUT_MS", 30000),
		VisibilityTimeoutS:  getInt64("VISIBILITY_TIMEOUT_S", 300),
		IdempotencyTTLS:     getInt64("IDEMPOTENCY_TTL_S", 86400),
		ListenAddr:          getString("LISTEN_ADDR", ":8080"),
	}
}

// RequestTimeout returns the per-request coordinator timeout as a
// time.Duration.
func (c Coordinator) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// LivenessWindow returns the agent alive/dead threshold as a
// time.Duration.
func (c Coordinator) LivenessWindow() time.Duration {
	return time.Duration(c.LivenessWindowMS) * time.Millisecond
}

// HeartbeatInterval returns the heartbeat cadence as a time.Duration.
func (c Coordinator) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalMS) * time.Millisecond
}

// Agent holds the settings a measurement agent reads at startup.
type Agent struct {
	NATSURL             string
	DBOSAddress         string
	AgentID             string
	ModulesPath         string
	ModulesConfigPath   string
	HeartbeatIntervalMS int
	ListenAddr          string
}

// LoadAgent reads Agent settings from the environment. AgentID defaults to
// an empty string, signaling the caller should generate one.
func LoadAgent() Agent {
	return Agent{
		NATSURL:             getString("NATS_URL", "nats://127.0.0.1:4222"),
		DBOSAddress:         getString("DBOS_ADDRESS", "127.0.0.1:50051"),
		AgentID:             getString("AGENT_ID", ""),
		ModulesPath:         getString("MODULES_PATH", ""),
		ModulesConfigPath:   getString("MODULES_CONFIG_PATH", ""),
		HeartbeatIntervalMS: getInt("HEARTBEAT_INTERVAL_MS", 2000),
		ListenAddr:          getString("LISTEN_ADDR", ":8081"),
	}
}

// HeartbeatInterval returns the heartbeat cadence as a time.Duration.
func (a Agent) HeartbeatInterval() time.Duration {
	return time.Duration(a.HeartbeatIntervalMS) * time.Millisecond
}

// DBOS holds the settings the durable-state-store binary reads at
// startup.
type DBOS struct {
	KVAddr          string
	ListenPort      string
	IdempotencyTTLS int64
	MaxRetries      int
}

// LoadDBOS reads DBOS settings from the environment.
func LoadDBOS() DBOS {
	return DBOS{
		KVAddr:          getString("KV_ADDR", "127.0.0.1:6379"),
		ListenPort:      getString("DBOS_PORT", "50051"),
		IdempotencyTTLS: getInt64("IDEMPOTENCY_TTL_S", 86400),
		MaxRetries:      getInt("MAX_TASK_RETRIES", 5),
	}
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}
