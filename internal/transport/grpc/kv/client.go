// Package kvgrpc contains the channel gRPC client and server adapters.
package kvgrpc

import (
	"context"
	"fmt"
	"math"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client is a connection to a channel gRPC server.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to a channel gRPC server at target.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("kv client: dial %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Open starts a new session on the server.
func (c *Client) Open(ctx context.Context) (*Session, error) {
	out := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, openMethod, &emptypb.Empty{}, out); err != nil {
		return nil, fromGRPCStatus(err)
	}
	return &Session{conn: c.conn, id: out.GetValue()}, nil
}

// Session is the client side of one open channel.
type Session struct {
	conn *grpc.ClientConn
	id   string
}

// ID returns the server-assigned session id.
func (s *Session) ID() string {
	return s.id
}

// Write sends one request buffer and returns the number of bytes the server accepted.
func (s *Session) Write(ctx context.Context, p []byte) (int, error) {
	out := new(wrapperspb.Int64Value)
	if err := s.conn.Invoke(s.outgoing(ctx), writeMethod, wrapperspb.Bytes(p), out); err != nil {
		return 0, fromGRPCStatus(err)
	}
	return int(out.GetValue()), nil
}

// Read fetches the staged response. maxLen <= 0 means no limit.
func (s *Session) Read(ctx context.Context, maxLen int) ([]byte, error) {
	var limit uint32
	switch {
	case maxLen <= 0:
	case int64(maxLen) > math.MaxUint32:
		limit = math.MaxUint32
	default:
		limit = uint32(maxLen)
	}
	out := new(wrapperspb.BytesValue)
	if err := s.conn.Invoke(s.outgoing(ctx), readMethod, wrapperspb.UInt32(limit), out); err != nil {
		return nil, fromGRPCStatus(err)
	}
	return out.GetValue(), nil
}

// Close ends the session on the server.
func (s *Session) Close(ctx context.Context) error {
	if err := s.conn.Invoke(s.outgoing(ctx), closeMethod, &emptypb.Empty{}, new(emptypb.Empty)); err != nil {
		return fromGRPCStatus(err)
	}
	return nil
}

func (s *Session) outgoing(ctx context.Context) context.Context {
	return metadata.AppendToOutgoingContext(ctx, SessionIDKey, s.id)
}
