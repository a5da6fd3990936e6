package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the telemetry service.
const ServiceName = "kpm.v1.Telemetry"

const (
	methodListSources   = "/" + ServiceName + "/ListSources"
	methodTailRecords   = "/" + ServiceName + "/TailRecords"
	methodMonitorStatus = "/" + ServiceName + "/MonitorStatus"
	methodResetMonitor  = "/" + ServiceName + "/ResetMonitor"
)

// TelemetryServer is the server API of kpm.v1.Telemetry. Messages are
// protobuf well-known types carrying the JSON shape of the domain values.
type TelemetryServer interface {
	ListSources(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	TailRecords(context.Context, *structpb.Struct) (*structpb.ListValue, error)
	MonitorStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ResetMonitor(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
}

// RegisterTelemetryServer registers srv on s.
func RegisterTelemetryServer(s grpc.ServiceRegistrar, srv TelemetryServer) {
	s.RegisterService(&TelemetryServiceDesc, srv)
}

// TelemetryServiceDesc describes kpm.v1.Telemetry for grpc.Server.
var TelemetryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TelemetryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListSources", Handler: listSourcesHandler},
		{MethodName: "TailRecords", Handler: tailRecordsHandler},
		{MethodName: "MonitorStatus", Handler: monitorStatusHandler},
		{MethodName: "ResetMonitor", Handler: resetMonitorHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kpm/v1/telemetry.proto",
}

func listSourcesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TelemetryServer).ListSources(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListSources}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TelemetryServer).ListSources(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func tailRecordsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TelemetryServer).TailRecords(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodTailRecords}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TelemetryServer).TailRecords(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func monitorStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TelemetryServer).MonitorStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodMonitorStatus}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TelemetryServer).MonitorStatus(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func resetMonitorHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TelemetryServer).ResetMonitor(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodResetMonitor}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TelemetryServer).ResetMonitor(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
