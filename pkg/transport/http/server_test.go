package http

import (
	"context"
	"io"
	"net"
	gohttp "net/http"
	"strings"
	"testing"
	"time"

	"github.com/kanal-dev/kanal/pkg/api"
	"github.com/kanal-dev/kanal/pkg/transport"
)

func startServer(t *testing.T, handler transport.CompletionHandler, opts ...ServerOption) (string, *Server) {
	t.Helper()

	srv := NewServer(handler, nil, opts...)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	addr := ln.Addr().String()

	go srv.ServeOn(ln)
	time.Sleep(50 * time.Millisecond)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	return addr, srv
}

func TestServerStartsAndAcceptsRequests(t *testing.T) {
	addr, _ := startServer(t, respondingHandler())

	resp, err := gohttp.Post("http://"+addr+"/v1/chat/completions", "application/json",
		strings.NewReader(`{"model":"gpt-4o","messages":[{"role":"user","content":"Hi"}]}`))
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != gohttp.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "chatcmpl-n") {
		t.Errorf("body missing response id: %q", body)
	}
}

func TestServerGracefulShutdown(t *testing.T) {
	slowHandler := transport.CompletionHandlerFunc(func(ctx context.Context, _ *api.ChatRequest, w transport.ResponseWriter) error {
		select {
		case <-time.After(200 * time.Millisecond):
			return w.WriteResponse(ctx, &api.ChatResponse{ID: "chatcmpl-slow"})
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	addr, srv := startServer(t, slowHandler, WithShutdownTimeout(5*time.Second))

	responseCh := make(chan int, 1)
	go func() {
		resp, err := gohttp.Post("http://"+addr+"/v1/chat/completions", "application/json",
			strings.NewReader(`{"model":"gpt-4o","messages":[{"role":"user","content":"Hi"}]}`))
		if err != nil {
			responseCh <- 0
			return
		}
		defer resp.Body.Close()
		responseCh <- resp.StatusCode
	}()

	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(ctx)

	// The in-flight request completes before shutdown finishes.
	if status := <-responseCh; status != gohttp.StatusOK {
		t.Errorf("slow request status = %d, want 200", status)
	}
}

func TestServerFunctionalOptions(t *testing.T) {
	srv := NewServer(respondingHandler(), nil,
		WithAddr(":9999"),
		WithMaxBodySize(1024),
		WithShutdownTimeout(10*time.Second),
	)

	if srv.config.Addr != ":9999" {
		t.Errorf("addr = %q, want :9999", srv.config.Addr)
	}
	if srv.config.MaxBodySize != 1024 {
		t.Errorf("max body size = %d, want 1024", srv.config.MaxBodySize)
	}
	if srv.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v, want 10s", srv.config.ShutdownTimeout)
	}
}
