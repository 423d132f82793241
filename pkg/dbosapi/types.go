// Package dbosapi defines the wire messages and service contract for the
// durable state store's RPC surface. The messages stand in for generated
// protobuf stubs; encoding is handled by the "json" grpc.Codec registered
// in codec.go rather than by protoc-generated marshal code, so the shapes
// below are plain, hand-written structs instead of *_pb.go output.
package dbosapi

// Agent mirrors internal/dbos.Agent on the wire.
type Agent struct {
	ID              string            `json:"id"`
	Hostname        string            `json:"hostname"`
	Alive           bool              `json:"alive"`
	FirstSeen       int64             `json:"first_seen"`
	LastSeen        int64             `json:"last_seen"`
	Config          map[string]string `json:"config"`
	TotalHeartbeats int64             `json:"total_heartbeats"`
}

// ModuleState mirrors internal/dbos.ModuleState on the wire.
type ModuleState struct {
	RequestID    string            `json:"request_id"`
	AgentID      string            `json:"agent_id"`
	ModuleName   string            `json:"module_name"`
	State        string            `json:"state"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Details      map[string]string `json:"details,omitempty"`
	Timestamp    int64             `json:"timestamp"`
	Version      int64             `json:"version"`
}

// MeasurementResult mirrors internal/dbos.MeasurementResult on the wire.
type MeasurementResult struct {
	ID             string `json:"id"`
	AgentID        string `json:"agent_id"`
	RequestID      string `json:"request_id"`
	ModuleName     string `json:"module_name"`
	Payload        []byte `json:"payload"`
	CreatedAt      int64  `json:"created_at"`
	ReceivedAt     int64  `json:"received_at"`
	AgentStartTime int64  `json:"agent_start_time"`
	RuntimeVersion string `json:"runtime_version"`
	ModuleRevision string `json:"module_revision"`
	ServerID       string `json:"server_id"`
	IngestSource   string `json:"ingest_source"`
}

// Task mirrors internal/dbos.Task on the wire.
type Task struct {
	ID          string `json:"id"`
	AgentID     string `json:"agent_id"`
	ModuleName  string `json:"module_name"`
	Payload     []byte `json:"payload"`
	ScheduledAt int64  `json:"scheduled_at"`
	CreatedAt   int64  `json:"created_at"`
	Status      string `json:"status"`
	VisibleAt   int64  `json:"visible_at"`
	RetryCount  int    `json:"retry_count"`
}

// EventLogEntry mirrors internal/dbos.EventLogEntry on the wire.
type EventLogEntry struct {
	Kind      string            `json:"kind"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

type RegisterAgentRequest struct {
	Agent *Agent `json:"agent"`
}

type RegisterAgentResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type GetAgentRequest struct {
	AgentID string `json:"agent_id"`
}

type GetAgentResponse struct {
	Found bool   `json:"found"`
	Agent *Agent `json:"agent,omitempty"`
	Error string `json:"error,omitempty"`
}

type ListAgentsRequest struct{}

type ListAgentsResponse struct {
	Agents []*Agent `json:"agents"`
	Error  string   `json:"error,omitempty"`
}

type SetModuleStateRequest struct {
	State              *ModuleState `json:"state"`
	ExpectedVersion    int64        `json:"expected_version,omitempty"`
	UseExpectedVersion bool         `json:"use_expected_version,omitempty"`
}

type SetModuleStateResponse struct {
	Success bool         `json:"success"`
	State   *ModuleState `json:"state,omitempty"`
	Error   string       `json:"error,omitempty"`
}

type GetModuleStateRequest struct {
	RequestID string `json:"request_id"`
}

type GetModuleStateResponse struct {
	Found bool         `json:"found"`
	State *ModuleState `json:"state,omitempty"`
	Error string       `json:"error,omitempty"`
}

type ListModuleStatesRequest struct {
	AgentID    string `json:"agent_id"`
	ModuleName string `json:"module_name"`
}

type ListModuleStatesResponse struct {
	States []*ModuleState `json:"states"`
	Error  string         `json:"error,omitempty"`
}

type StoreResultRequest struct {
	Result *MeasurementResult `json:"result"`
}

type StoreResultResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type GetResultRequest struct {
	AgentID   string `json:"agent_id"`
	RequestID string `json:"request_id"`
}

type GetResultResponse struct {
	Found  bool               `json:"found"`
	Result *MeasurementResult `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

type ListResultsRequest struct {
	AgentID string `json:"agent_id"`
}

type ListResultsResponse struct {
	Results []*MeasurementResult `json:"results"`
	Error   string               `json:"error,omitempty"`
}

type DeleteResultRequest struct {
	AgentID   string `json:"agent_id"`
	RequestID string `json:"request_id"`
}

type DeleteResultResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type ScheduleTaskRequest struct {
	Task *Task `json:"task"`
}

type ScheduleTaskResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type GetTaskRequest struct {
	TaskID string `json:"task_id"`
}

type GetTaskResponse struct {
	Found bool   `json:"found"`
	Task  *Task  `json:"task,omitempty"`
	Error string `json:"error,omitempty"`
}

type ListDueTasksRequest struct {
	Timestamp int64 `json:"timestamp"`
}

type ListDueTasksResponse struct {
	Tasks []*Task `json:"tasks"`
	Error string  `json:"error,omitempty"`
}

type ClaimDueTasksRequest struct {
	Timestamp         int64 `json:"timestamp"`
	VisibilityTimeout int64 `json:"visibility_timeout"`
}

type ClaimDueTasksResponse struct {
	Tasks []*Task `json:"tasks"`
	Error string  `json:"error,omitempty"`
}

type AckTaskRequest struct {
	TaskID string `json:"task_id"`
}

type AckTaskResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type NackTaskRequest struct {
	TaskID     string `json:"task_id"`
	RetryDelay int64  `json:"retry_delay"`
	Timestamp  int64  `json:"timestamp"`
}

type NackTaskResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type LogEventRequest struct {
	Entry *EventLogEntry `json:"entry"`
}

type LogEventResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type GetEventsRequest struct {
	Limit int64 `json:"limit"`
}

type GetEventsResponse struct {
	Events []*EventLogEntry `json:"events"`
	Error  string           `json:"error,omitempty"`
}

type ListAllModuleStatesRequest struct{}

type ListAllModuleStatesResponse struct {
	States []*ModuleState `json:"states"`
	Error  string         `json:"error,omitempty"`
}

type ListStaleNonTerminalStatesRequest struct {
	Cutoff int64 `json:"cutoff"`
}

type ListStaleNonTerminalStatesResponse struct {
	States []*ModuleState `json:"states"`
	Error  string         `json:"error,omitempty"`
}

type RequeueExpiredTasksRequest struct {
	Timestamp int64 `json:"timestamp"`
}

type RequeueExpiredTasksResponse struct {
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}
