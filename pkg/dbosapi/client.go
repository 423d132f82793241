package dbosapi

import (
	"context"

	"google.golang.org/grpc"
)

// DBOSClient is the typed client side of the DBOS gRPC service.
type DBOSClient interface {
	RegisterAgent(ctx context.Context, in *RegisterAgentRequest, opts ...grpc.CallOption) (*RegisterAgentResponse, error)
	GetAgent(ctx context.Context, in *GetAgentRequest, opts ...grpc.CallOption) (*GetAgentResponse, error)
	ListAgents(ctx context.Context, in *ListAgentsRequest, opts ...grpc.CallOption) (*ListAgentsResponse, error)

	SetModuleState(ctx context.Context, in *SetModuleStateRequest, opts ...grpc.CallOption) (*SetModuleStateResponse, error)
	GetModuleState(ctx context.Context, in *GetModuleStateRequest, opts ...grpc.CallOption) (*GetModuleStateResponse, error)
	ListModuleStates(ctx context.Context, in *ListModuleStatesRequest, opts ...grpc.CallOption) (*ListModuleStatesResponse, error)

	StoreResult(ctx context.Context, in *StoreResultRequest, opts ...grpc.CallOption) (*StoreResultResponse, error)
	GetResult(ctx context.Context, in *GetResultRequest, opts ...grpc.CallOption) (*GetResultResponse, error)
	ListResults(ctx context.Context, in *ListResultsRequest, opts ...grpc.CallOption) (*ListResultsResponse, error)
	DeleteResult(ctx context.Context, in *DeleteResultRequest, opts ...grpc.CallOption) (*DeleteResultResponse, error)

	ScheduleTask(ctx context.Context, in *ScheduleTaskRequest, opts ...grpc.CallOption) (*ScheduleTaskResponse, error)
	GetTask(ctx context.Context, in *GetTaskRequest, opts ...grpc.CallOption) (*GetTaskResponse, error)
	ListDueTasks(ctx context.Context, in *ListDueTasksRequest, opts ...grpc.CallOption) (*ListDueTasksResponse, error)
	ClaimDueTasks(ctx context.Context, in *ClaimDueTasksRequest, opts ...grpc.CallOption) (*ClaimDueTasksResponse, error)
	AckTask(ctx context.Context, in *AckTaskRequest, opts ...grpc.CallOption) (*AckTaskResponse, error)
	NackTask(ctx context.Context, in *NackTaskRequest, opts ...grpc.CallOption) (*NackTaskResponse, error)

	LogEvent(ctx context.Context, in *LogEventRequest, opts ...grpc.CallOption) (*LogEventResponse, error)
	GetEvents(ctx context.Context, in *GetEventsRequest, opts ...grpc.CallOption) (*GetEventsResponse, error)

	ListAllModuleStates(ctx context.Context, in *ListAllModuleStatesRequest, opts ...grpc.CallOption) (*ListAllModuleStatesResponse, error)
	ListStaleNonTerminalStates(ctx context.Context, in *ListStaleNonTerminalStatesRequest, opts ...grpc.CallOption) (*ListStaleNonTerminalStatesResponse, error)
	RequeueExpiredTasks(ctx context.Context, in *RequeueExpiredTasksRequest, opts ...grpc.CallOption) (*RequeueExpiredTasksResponse, error)
}

type dbosClient struct {
	cc grpc.ClientConnInterface
}

// NewDBOSClient wraps cc, negotiating the json codec on every call instead
// of the grpc default proto codec.
func NewDBOSClient(cc grpc.ClientConnInterface) DBOSClient {
	return &dbosClient{cc: cc}
}

func invoke[Req, Resp any](ctx context.Context, c *dbosClient, method string, in *Req, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dbosClient) RegisterAgent(ctx context.Context, in *RegisterAgentRequest, opts ...grpc.CallOption) (*RegisterAgentResponse, error) {
	return invoke[RegisterAgentRequest, RegisterAgentResponse](ctx, c, "RegisterAgent", in, opts...)
}

func (c *dbosClient) GetAgent(ctx context.Context, in *GetAgentRequest, opts ...grpc.CallOption) (*GetAgentResponse, error) {
	return invoke[GetAgentRequest, GetAgentResponse](ctx, c, "GetAgent", in, opts...)
}

func (c *dbosClient) ListAgents(ctx context.Context, in *ListAgentsRequest, opts ...grpc.CallOption) (*ListAgentsResponse, error) {
	return invoke[ListAgentsRequest, ListAgentsResponse](ctx, c, "ListAgents", in, opts...)
}

func (c *dbosClient) SetModuleState(ctx context.Context, in *SetModuleStateRequest, opts ...grpc.CallOption) (*SetModuleStateResponse, error) {
	return invoke[SetModuleStateRequest, SetModuleStateResponse](ctx, c, "SetModuleState", in, opts...)
}

func (c *dbosClient) GetModuleState(ctx context.Context, in *GetModuleStateRequest, opts ...grpc.CallOption) (*GetModuleStateResponse, error) {
	return invoke[GetModuleStateRequest, GetModuleStateResponse](ctx, c, "GetModuleState", in, opts...)
}

func (c *dbosClient) ListModuleStates(ctx context.Context, in *ListModuleStatesRequest, opts ...grpc.CallOption) (*ListModuleStatesResponse, error) {
	return invoke[ListModuleStatesRequest, ListModuleStatesResponse](ctx, c, "ListModuleStates", in, opts...)
}

func (c *dbosClient) StoreResult(ctx context.Context, in *StoreResultRequest, opts ...grpc.CallOption) (*StoreResultResponse, error) {
	return invoke[StoreResultRequest, StoreResultResponse](ctx, c, "StoreResult", in, opts...)
}

func (c *dbosClient) GetResult(ctx context.Context, in *GetResultRequest, opts ...grpc.CallOption) (*GetResultResponse, error) {
	return invoke[GetResultRequest, GetResultResponse](ctx, c, "GetResult", in, opts...)
}

func (c *dbosClient) ListResults(ctx context.Context, in *ListResultsRequest, opts ...grpc.CallOption) (*ListResultsResponse, error) {
	return invoke[ListResultsRequest, ListResultsResponse](ctx, c, "ListResults", in, opts...)
}

func (c *dbosClient) DeleteResult(ctx context.Context, in *DeleteResultRequest, opts ...grpc.CallOption) (*DeleteResultResponse, error) {
	return invoke[DeleteResultRequest, DeleteResultResponse](ctx, c, "DeleteResult", in, opts...)
}

func (c *dbosClient) ScheduleTask(ctx context.Context, in *ScheduleTaskRequest, opts ...grpc.CallOption) (*ScheduleTaskResponse, error) {
	return invoke[ScheduleTaskRequest, ScheduleTaskResponse](ctx, c, "ScheduleTask", in, opts...)
}

func (c *dbosClient) GetTask(ctx context.Context, in *GetTaskRequest, opts ...grpc.CallOption) (*GetTaskResponse, error) {
	return invoke[GetTaskRequest, GetTaskResponse](ctx, c, "GetTask", in, opts...)
}

func (c *dbosClient) ListDueTasks(ctx context.Context, in *ListDueTasksRequest, opts ...grpc.CallOption) (*ListDueTasksResponse, error) {
	return invoke[ListDueTasksRequest, ListDueTasksResponse](ctx, c, "ListDueTasks", in, opts...)
}

func (c *dbosClient) ClaimDueTasks(ctx context.Context, in *ClaimDueTasksRequest, opts ...grpc.CallOption) (*ClaimDueTasksResponse, error) {
	return invoke[ClaimDueTasksRequest, ClaimDueTasksResponse](ctx, c, "ClaimDueTasks", in, opts...)
}

func (c *dbosClient) AckTask(ctx context.Context, in *AckTaskRequest, opts ...grpc.CallOption) (*AckTaskResponse, error) {
	return invoke[AckTaskRequest, AckTaskResponse](ctx, c, "AckTask", in, opts...)
}

func (c *dbosClient) NackTask(ctx context.Context, in *NackTaskRequest, opts ...grpc.CallOption) (*NackTaskResponse, error) {
	return invoke[NackTaskRequest, NackTaskResponse](ctx, c, "NackTask", in, opts...)
}

func (c *dbosClient) LogEvent(ctx context.Context, in *LogEventRequest, opts ...grpc.CallOption) (*LogEventResponse, error) {
	return invoke[LogEventRequest, LogEventResponse](ctx, c, "LogEvent", in, opts...)
}

func (c *dbosClient) GetEvents(ctx context.Context, in *GetEventsRequest, opts ...grpc.CallOption) (*GetEventsResponse, error) {
	return invoke[GetEventsRequest, GetEventsResponse](ctx, c, "GetEvents", in, opts...)
}

func (c *dbosClient) ListAllModuleStates(ctx context.Context, in *ListAllModuleStatesRequest, opts ...grpc.CallOption) (*ListAllModuleStatesResponse, error) {
	return invoke[ListAllModuleStatesRequest, ListAllModuleStatesResponse](ctx, c, "ListAllModuleStates", in, opts...)
}

func (c *dbosClient) ListStaleNonTerminalStates(ctx context.Context, in *ListStaleNonTerminalStatesRequest, opts ...grpc.CallOption) (*ListStaleNonTerminalStatesResponse, error) {
	return invoke[ListStaleNonTerminalStatesRequest, ListStaleNonTerminalStatesResponse](ctx, c, "ListStaleNonTerminalStates", in, opts...)
}

func (c *dbosClient) RequeueExpiredTasks(ctx context.Context, in *RequeueExpiredTasksRequest, opts ...grpc.CallOption) (*RequeueExpiredTasksResponse, error) {
	return invoke[RequeueExpiredTasksRequest, RequeueExpiredTasksResponse](ctx, c, "RequeueExpiredTasks", in, opts...)
}
