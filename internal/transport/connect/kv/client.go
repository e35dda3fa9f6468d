package kvconnect

import (
	"context"
	"math"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls the channel service on a Connect server.
type Client struct {
	open  *connect.Client[emptypb.Empty, wrapperspb.StringValue]
	write *connect.Client[wrapperspb.BytesValue, wrapperspb.Int64Value]
	read  *connect.Client[wrapperspb.UInt32Value, wrapperspb.BytesValue]
	close *connect.Client[emptypb.Empty, emptypb.Empty]
}

// NewClient creates a client for the server at baseURL, e.g. "http://localhost:8081".
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		open:  connect.NewClient[emptypb.Empty, wrapperspb.StringValue](httpClient, baseURL+OpenProcedure, opts...),
		write: connect.NewClient[wrapperspb.BytesValue, wrapperspb.Int64Value](httpClient, baseURL+WriteProcedure, opts...),
		read:  connect.NewClient[wrapperspb.UInt32Value, wrapperspb.BytesValue](httpClient, baseURL+ReadProcedure, opts...),
		close: connect.NewClient[emptypb.Empty, emptypb.Empty](httpClient, baseURL+CloseProcedure, opts...),
	}
}

// Open starts a new session on the server.
func (c *Client) Open(ctx context.Context) (*Session, error) {
	res, err := c.open.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, fromConnectError(err)
	}
	return &Session{client: c, id: res.Msg.GetValue()}, nil
}

// Session is the client side of one open channel.
type Session struct {
	client *Client
	id     string
}

// ID returns the server-assigned session id.
func (s *Session) ID() string {
	return s.id
}

// Write sends one request buffer and returns the number of bytes the server accepted.
func (s *Session) Write(ctx context.Context, p []byte) (int, error) {
	req := connect.NewRequest(wrapperspb.Bytes(p))
	req.Header().Set(SessionIDHeader, s.id)
	res, err := s.client.write.CallUnary(ctx, req)
	if err != nil {
		return 0, fromConnectError(err)
	}
	return int(res.Msg.GetValue()), nil
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
	req := connect.NewRequest(wrapperspb.UInt32(limit))
	req.Header().Set(SessionIDHeader, s.id)
	res, err := s.client.read.CallUnary(ctx, req)
	if err != nil {
		return nil, fromConnectError(err)
	}
	return res.Msg.GetValue(), nil
}

// Close ends the session on the server.
func (s *Session) Close(ctx context.Context) error {
	req := connect.NewRequest(&emptypb.Empty{})
	req.Header().Set(SessionIDHeader, s.id)
	if _, err := s.client.close.CallUnary(ctx, req); err != nil {
		return fromConnectError(err)
	}
	return nil
}
