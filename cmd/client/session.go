package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	kvconnect "github.com/i-melnichenko/kvchan/internal/transport/connect/kv"
	kvgrpc "github.com/i-melnichenko/kvchan/internal/transport/grpc/kv"
)

const (
	transportGRPC    = "grpc"
	transportConnect = "connect"
)

// session is the part of a channel session the commands need.
// *kvgrpc.Session and *kvconnect.Session satisfy it.
type session interface {
	Write(ctx context.Context, p []byte) (int, error)
	Read(ctx context.Context, maxLen int) ([]byte, error)
	Close(ctx context.Context) error
}

// openSession dials addr with the selected transport and opens one session.
// The returned func closes the session and the connection.
func openSession(ctx context.Context, transport, addr string) (session, func(), error) {
	switch transport {
	case transportGRPC:
		client, err := kvgrpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, nil, err
		}
		sess, err := client.Open(ctx)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return sess, func() {
			closeSession(sess)
			_ = client.Close()
		}, nil

	case transportConnect:
		client := kvconnect.NewClient(http.DefaultClient, baseURL(addr))
		sess, err := client.Open(ctx)
		if err != nil {
			return nil, nil, err
		}
		return sess, func() { closeSession(sess) }, nil

	default:
		return nil, nil, fmt.Errorf("unknown transport %q (want %s or %s)", transport, transportGRPC, transportConnect)
	}
}

func openSessionWithTimeout(transport, addr string, timeout time.Duration) (session, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return openSession(ctx, transport, addr)
}

func closeSession(s session) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.Close(ctx)
}

func baseURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}
	return "http://" + addr
}
