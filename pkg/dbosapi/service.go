package dbosapi

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name used in the method
// paths below and in client Invoke calls.
const ServiceName = "dbosapi.DBOS"

// DBOSServer is implemented by internal/dbosserver to expose the durable
// state store over gRPC.
type DBOSServer interface {
	RegisterAgent(context.Context, *RegisterAgentRequest) (*RegisterAgentResponse, error)
	GetAgent(context.Context, *GetAgentRequest) (*GetAgentResponse, error)
	ListAgents(context.Context, *ListAgentsRequest) (*ListAgentsResponse, error)

	SetModuleState(context.Context, *SetModuleStateRequest) (*SetModuleStateResponse, error)
	GetModuleState(context.Context, *GetModuleStateRequest) (*GetModuleStateResponse, error)
	ListModuleStates(context.Context, *ListModuleStatesRequest) (*ListModuleStatesResponse, error)

	StoreResult(context.Context, *StoreResultRequest) (*StoreResultResponse, error)
	GetResult(context.Context, *GetResultRequest) (*GetResultResponse, error)
	ListResults(context.Context, *ListResultsRequest) (*ListResultsResponse, error)
	DeleteResult(context.Context, *DeleteResultRequest) (*DeleteResultResponse, error)

	ScheduleTask(context.Context, *ScheduleTaskRequest) (*ScheduleTaskResponse, error)
	GetTask(context.Context, *GetTaskRequest) (*GetTaskResponse, error)
	ListDueTasks(context.Context, *ListDueTasksRequest) (*ListDueTasksResponse, error)
	ClaimDueTasks(context.Context, *ClaimDueTasksRequest) (*ClaimDueTasksResponse, error)
	AckTask(context.Context, *AckTaskRequest) (*AckTaskResponse, error)
	NackTask(context.Context, *NackTaskRequest) (*NackTaskResponse, error)

	LogEvent(context.Context, *LogEventRequest) (*LogEventResponse, error)
	GetEvents(context.Context, *GetEventsRequest) (*GetEventsResponse, error)

	ListAllModuleStates(context.Context, *ListAllModuleStatesRequest) (*ListAllModuleStatesResponse, error)
	ListStaleNonTerminalStates(context.Context, *ListStaleNonTerminalStatesRequest) (*ListStaleNonTerminalStatesResponse, error)
	RequeueExpiredTasks(context.Context, *RequeueExpiredTasksRequest) (*RequeueExpiredTasksResponse, error)
}

// UnimplementedDBOSServer can be embedded to satisfy DBOSServer while a
// service is under construction; every method returns a plain error naming
// the method as not implemented (not a grpc status, so grpc reports it with
// code Unknown rather than Unimplemented).
type UnimplementedDBOSServer struct{}

func (UnimplementedDBOSServer) RegisterAgent(context.Context, *RegisterAgentRequest) (*RegisterAgentResponse, error) {
	return nil, errUnimplemented("RegisterAgent")
}
func (UnimplementedDBOSServer) GetAgent(context.Context, *GetAgentRequest) (*GetAgentResponse, error) {
	return nil, errUnimplemented("GetAgent")
}
func (UnimplementedDBOSServer) ListAgents(context.Context, *ListAgentsRequest) (*ListAgentsResponse, error) {
	return nil, errUnimplemented("ListAgents")
}
func (UnimplementedDBOSServer) SetModuleState(context.Context, *SetModuleStateRequest) (*SetModuleStateResponse, error) {
	return nil, errUnimplemented("SetModuleState")
}
func (UnimplementedDBOSServer) GetModuleState(context.Context, *GetModuleStateRequest) (*GetModuleStateResponse, error) {
	return nil, errUnimplemented("GetModuleState")
}
func (UnimplementedDBOSServer) ListModuleStates(context.Context, *ListModuleStatesRequest) (*ListModuleStatesResponse, error) {
	return nil, errUnimplemented("ListModuleStates")
}
func (UnimplementedDBOSServer) StoreResult(context.Context, *StoreResultRequest) (*StoreResultResponse, error) {
	return nil, errUnimplemented("StoreResult")
}
func (UnimplementedDBOSServer) GetResult(context.Context, *GetResultRequest) (*GetResultResponse, error) {
	return nil, errUnimplemented("GetResult")
}
func (UnimplementedDBOSServer) ListResults(context.Context, *ListResultsRequest) (*ListResultsResponse, error) {
	return nil, errUnimplemented("ListResults")
}
func (UnimplementedDBOSServer) DeleteResult(context.Context, *DeleteResultRequest) (*DeleteResultResponse, error) {
	return nil, errUnimplemented("DeleteResult")
}
func (UnimplementedDBOSServer) ScheduleTask(context.Context, *ScheduleTaskRequest) (*ScheduleTaskResponse, error) {
	return nil, errUnimplemented("ScheduleTask")
}
func (UnimplementedDBOSServer) GetTask(context.Context, *GetTaskRequest) (*GetTaskResponse, error) {
	return nil, errUnimplemented("GetTask")
}
func (UnimplementedDBOSServer) ListDueTasks(context.Context, *ListDueTasksRequest) (*ListDueTasksResponse, error) {
	return nil, errUnimplemented("ListDueTasks")
}
func (UnimplementedDBOSServer) ClaimDueTasks(context.Context, *ClaimDueTasksRequest) (*ClaimDueTasksResponse, error) {
	return nil, errUnimplemented("ClaimDueTasks")
}
func (UnimplementedDBOSServer) AckTask(context.Context, *AckTaskRequest) (*AckTaskResponse, error) {
	return nil, errUnimplemented("AckTask")
}
func (UnimplementedDBOSServer) NackTask(context.Context, *NackTaskRequest) (*NackTaskResponse, error) {
	return nil, errUnimplemented("NackTask")
}
func (UnimplementedDBOSServer) LogEvent(context.Context, *LogEventRequest) (*LogEventResponse, error) {
	return nil, errUnimplemented("LogEvent")
}
func (UnimplementedDBOSServer) GetEvents(context.Context, *GetEventsRequest) (*GetEventsResponse, error) {
	return nil, errUnimplemented("GetEvents")
}
func (UnimplementedDBOSServer) ListAllModuleStates(context.Context, *ListAllModuleStatesRequest) (*ListAllModuleStatesResponse, error) {
	return nil, errUnimplemented("ListAllModuleStates")
}
func (UnimplementedDBOSServer) ListStaleNonTerminalStates(context.Context, *ListStaleNonTerminalStatesRequest) (*ListStaleNonTerminalStatesResponse, error) {
	return nil, errUnimplemented("ListStaleNonTerminalStates")
}
func (UnimplementedDBOSServer) RequeueExpiredTasks(context.Context, *RequeueExpiredTasksRequest) (*RequeueExpiredTasksResponse, error) {
	return nil, errUnimplemented("RequeueExpiredTasks")
}

func errUnimplemented(method string) error {
	return &unimplementedError{method: method}
}

type unimplementedError struct{ method string }

func (e *unimplementedError) Error() string { return "dbosapi: " + e.method + " not implemented" }

// RegisterDBOSServer registers srv on s using the json codec's content
// subtype rather than a protoc-generated descriptor.
func RegisterDBOSServer(s grpc.ServiceRegistrar, srv DBOSServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DBOSServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RegisterAgent", Handler: genericHandler(func(s DBOSServer, ctx context.Context, r *RegisterAgentRequest) (any, error) { return s.RegisterAgent(ctx, r) })},
		{MethodName: "GetAgent", Handler: genericHandler(func(s DBOSServer, ctx context.Context, r *GetAgentRequest) (any, error) { return s.GetAgent(ctx, r) })},
		{MethodName: "ListAgents", Handler: genericHandler(func(s DBOSServer, ctx context.Context, r *ListAgentsRequest) (any, error) { return s.ListAgents(ctx, r) })},
		{MethodName: "SetModuleState", Handler: genericHandler(func(s DBOSServer, ctx context.Context, r *SetModuleStateRequest) (any, error) { return s.SetModuleState(ctx, r) })},
		{MethodName: "GetModuleState", Handler: genericHandler(func(s DBOSServer, ctx context.Context, r *GetModuleStateRequest) (any, error) { return s.GetModuleState(ctx, r) })},
		{MethodName: "ListModuleStates", Handler: genericHandler(func(s DBOSServer, ctx context.Context, r *ListModuleStatesRequest) (any, error) { return s.ListModuleStates(ctx, r) })},
		{MethodName: "StoreResult", Handler: genericHandler(func(s DBOSServer, ctx context.Context, r *StoreResultRequest) (any, error) { return s.StoreResult(ctx, r) })},
		{MethodName: "GetResult", Handler: genericHandler(func(s DBOSServer, ctx context.Context, r *GetResultRequest) (any, error) { return s.GetResult(ctx, r) })},
		{MethodName: "ListResults", Handler: genericHandler(func(s DBOSServer, ctx context.Context, r *ListResultsRequest) (any, error) { return s.ListResults(ctx, r) })},
		{MethodName: "DeleteResult", Handler: genericHandler(func(s DBOSServer, ctx context.Context, r *DeleteResultRequest) (any, error) { return s.DeleteResult(ctx, r) })},
		{MethodName: "ScheduleTask", Handler: genericHandler(func(s DBOSServer, ctx context.Context, r *ScheduleTaskRequest) (any, error) { return s.ScheduleTask(ctx, r) })},
		{MethodName: "GetTask", Handler: genericHandler(func(s DBOSServer, ctx context.Context, r *GetTaskRequest) (any, error) { return s.GetTask(ctx, r) })},
		{MethodName: "ListDueTasks", Handler: genericHandler(func(s DBOSServer, ctx context.Context, r *ListDueTasksRequest) (any, error) { return s.ListDueTasks(ctx, r) })},
		{MethodName: "ClaimDueTasks", Handler: genericHandler(func(s DBOSServer, ctx context.Context, r *ClaimDueTasksRequest) (any, error) { return s.ClaimDueTasks(ctx, r) })},
		{MethodName: "AckTask", Handler: genericHandler(func(s DBOSServer, ctx context.Context, r *AckTaskRequest) (any, error) { return s.AckTask(ctx, r) })},
		{MethodName: "NackTask", Handler: genericHandler(func(s DBOSServer, ctx context.Context, r *NackTaskRequest) (any, error) { return s.NackTask(ctx, r) })},
		{MethodName: "LogEvent", Handler: genericHandler(func(s DBOSServer, ctx context.Context, r *LogEventRequest) (any, error) { return s.LogEvent(ctx, r) })},
		{MethodName: "GetEvents", Handler: genericHandler(func(s DBOSServer, ctx context.Context, r *GetEventsRequest) (any, error) { return s.GetEvents(ctx, r) })},
		{MethodName: "ListAllModuleStates", Handler: genericHandler(func(s DBOSServer, ctx context.Context, r *ListAllModuleStatesRequest) (any, error) { return s.ListAllModuleStates(ctx, r) })},
		{MethodName: "ListStaleNonTerminalStates", Handler: genericHandler(func(s DBOSServer, ctx context.Context, r *ListStaleNonTerminalStatesRequest) (any, error) { return s.ListStaleNonTerminalStates(ctx, r) })},
		{MethodName: "RequeueExpiredTasks", Handler: genericHandler(func(s DBOSServer, ctx context.Context, r *RequeueExpiredTasksRequest) (any, error) { return s.RequeueExpiredTasks(ctx, r) })},
	},
	Metadata: "dbosapi.proto",
}

// genericHandler adapts a strongly-typed service method into the
// grpc.MethodDesc Handler shape, decoding the request with dec and running
// any configured unary interceptor.
func genericHandler[Req any](call func(DBOSServer, context.Context, *Req) (any, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(DBOSServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
