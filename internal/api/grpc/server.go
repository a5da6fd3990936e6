package grpcapi

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/PauloFidalgo/cmov-5g/internal/application/telemetry"
	"github.com/PauloFidalgo/cmov-5g/internal/domain"
	"github.com/PauloFidalgo/cmov-5g/internal/infra"
)

// Field names of the TailRecords request.
const (
	fieldSource = "source"
	fieldLast   = "last"
)

// NewServer constructs a gRPC server exposing the telemetry transport.
func NewServer(service telemetry.Service, logger domain.Logger) *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{
		loggingInterceptor(logger),
		infra.GRPCUnaryInterceptor(),
	}

	server := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	RegisterTelemetryServer(server, &telemetryServer{service: service})
	return server
}

type telemetryServer struct {
	service telemetry.Service
}

func (s *telemetryServer) ListSources(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	sources, err := s.service.Sources(ctx)
	if err != nil {
		return nil, translateServiceError(err)
	}
	return toList(sources)
}

func (s *telemetryServer) TailRecords(ctx context.Context, req *structpb.Struct) (*structpb.ListValue, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request must not be nil")
	}

	fields := req.GetFields()
	source := fields[fieldSource].GetStringValue()
	if source == "" {
		return nil, status.Error(codes.InvalidArgument, "source is required")
	}

	var last int
	if v, ok := fields[fieldLast]; ok {
		n := v.GetNumberValue()
		if n < 0 || n != float64(int(n)) {
			return nil, status.Error(codes.InvalidArgument, "last must be a non-negative integer")
		}
		last = int(n)
	}

	records, err := s.service.Tail(ctx, source, last)
	if err != nil {
		return nil, translateServiceError(err)
	}
	return toList(records)
}

func (s *telemetryServer) MonitorStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st, err := s.service.MonitorStatus(ctx)
	if err != nil {
		return nil, translateServiceError(err)
	}
	return toStruct(st)
}

func (s *telemetryServer) ResetMonitor(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if _, err := s.service.ResetMonitor(ctx); err != nil {
		return nil, translateServiceError(err)
	}
	return &emptypb.Empty{}, nil
}

func translateServiceError(err error) error {
	var ingestErr *domain.IngestError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, "source not found")
	case errors.Is(err, domain.ErrNoMonitor):
		return status.Error(codes.NotFound, "no monitored file")
	case errors.Is(err, telemetry.ErrInvalidSource):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &ingestErr):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, "internal server error")
	}
}

// toStruct converts v through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	var m map[string]any
	if err := roundTrip(v, &m); err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}

func toList(v any) (*structpb.ListValue, error) {
	var items []any
	if err := roundTrip(v, &items); err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	out, err := structpb.NewList(items)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}

func roundTrip(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func loggingInterceptor(logger domain.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		duration := time.Since(start)
		if logger == nil {
			return resp, err
		}
		if err != nil {
			logger.Printf(ctx, "gRPC %s failed in %s: %v", info.FullMethod, duration, err)
		} else {
			logger.Printf(ctx, "gRPC %s completed in %s", info.FullMethod, duration)
		}
		return resp, err
	}
}

var _ TelemetryServer = (*telemetryServer)(nil)
