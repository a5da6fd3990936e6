package grpcapi

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/PauloFidalgo/cmov-5g/internal/domain"
)

// Client calls kpm.v1.Telemetry and decodes the responses into domain values.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// ListSources returns the stored datasets.
func (c *Client) ListSources(ctx context.Context, opts ...grpc.CallOption) ([]domain.SourceInfo, error) {
	out := new(structpb.ListValue)
	if err := c.conn.Invoke(ctx, methodListSources, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}

	var sources []domain.SourceInfo
	if err := decode(out.AsSlice(), &sources); err != nil {
		return nil, err
	}
	return sources, nil
}

// TailRecords returns the last records of source. A non-positive last uses
// the server default.
func (c *Client) TailRecords(ctx context.Context, source string, last int, opts ...grpc.CallOption) ([]domain.Record, error) {
	fields := map[string]any{fieldSource: source}
	if last > 0 {
		fields[fieldLast] = last
	}
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}

	out := new(structpb.ListValue)
	if err := c.conn.Invoke(ctx, methodTailRecords, in, out, opts...); err != nil {
		return nil, err
	}

	var records []domain.Record
	if err := decode(out.AsSlice(), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// MonitorStatus returns the status of the monitored file.
func (c *Client) MonitorStatus(ctx context.Context, opts ...grpc.CallOption) (domain.MonitorStatus, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodMonitorStatus, &emptypb.Empty{}, out, opts...); err != nil {
		return domain.MonitorStatus{}, err
	}

	var st domain.MonitorStatus
	if err := decode(out.AsMap(), &st); err != nil {
		return domain.MonitorStatus{}, err
	}
	return st, nil
}

// ResetMonitor discards the monitored file's records.
func (c *Client) ResetMonitor(ctx context.Context, opts ...grpc.CallOption) error {
	return c.conn.Invoke(ctx, methodResetMonitor, &emptypb.Empty{}, new(emptypb.Empty), opts...)
}

func decode(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "decode response")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
