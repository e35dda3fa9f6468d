package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// httpEndpoint is an optional HTTP listener run alongside the gRPC server.
type httpEndpoint struct {
	name string
	srv  *http.Server
	lis  net.Listener
}

// listenHTTP binds addr for handler. An empty addr disables the endpoint and
// yields a nil server.
func listenHTTP(name, addr string, handler http.Handler) (httpEndpoint, error) {
	ep := httpEndpoint{name: name}
	if addr == "" {
		return ep, nil
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return ep, fmt.Errorf("listen %s %s: %w", name, addr, err)
	}
	ep.lis = lis
	ep.srv = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return ep, nil
}

func (ep httpEndpoint) serve(errCh chan<- error) {
	if ep.srv == nil {
		return
	}
	if err := ep.srv.Serve(ep.lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("%s serve: %w", ep.name, err)
	}
}

func (ep httpEndpoint) shutdown(logger Logger) {
	if ep.srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ep.srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn(ep.name+" shutdown failed", "error", err)
	}
}

func (ep httpEndpoint) closeListener() error {
	if ep.lis == nil {
		return nil
	}
	return ep.lis.Close()
}
