package kit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func TestChain_Order(t *testing.T) {
	var trace []string
	mw := func(name string) Middleware {
		return func(next Endpoint) Endpoint {
			return func(ctx context.Context, req any) (any, error) {
				trace = append(trace, name)
				return next(ctx, req)
			}
		}
	}
	ep := Chain(mw("a"), mw("b"), mw("c"))(func(context.Context, any) (any, error) {
		trace = append(trace, "endpoint")
		return nil, nil
	})
	ep(context.Background(), nil)

	if got := strings.Join(trace, ","); got != "a,b,c,endpoint" {
		t.Errorf("trace = %q", got)
	}
}

func TestRecover(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ep := Chain(Logging(logger, "status"), Recover())(func(context.Context, any) (any, error) {
		panic("nil plan")
	})
	resp, err := ep(context.Background(), nil)
	if resp != nil || err == nil || !strings.Contains(err.Error(), "nil plan") {
		t.Fatalf("resp = %v, err = %v", resp, err)
	}
	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Errorf("panic not logged as failure: %s", buf.String())
	}
}

func TestContextDefaults(t *testing.T) {
	ctx := context.Background()
	if got := GetTransport(ctx); got != "http" {
		t.Errorf("default transport = %q", got)
	}
	ctx = WithRequestID(WithTransport(ctx, "mcp"), "req-1")
	if GetTransport(ctx) != "mcp" || GetRequestID(ctx) != "req-1" {
		t.Errorf("context values not propagated")
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ok := Logging(logger, "status")(func(context.Context, any) (any, error) { return "done", nil })
	resp, err := ok(WithRequestID(context.Background(), "abc"), nil)
	if err != nil || resp != "done" {
		t.Fatalf("resp = %v, err = %v", resp, err)
	}
	if !strings.Contains(buf.String(), "endpoint=status") || !strings.Contains(buf.String(), "request_id=abc") {
		t.Errorf("log line missing attrs: %s", buf.String())
	}

	buf.Reset()
	failing := Logging(logger, "localize")(func(context.Context, any) (any, error) { return nil, errors.New("boom") })
	if _, err := failing(context.Background(), nil); err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(buf.String(), "level=ERROR") || !strings.Contains(buf.String(), "error=boom") {
		t.Errorf("error log missing: %s", buf.String())
	}
}

func TestRegisterMCPTool_Transport(t *testing.T) {
	srv := server.NewMCPServer("kit-test", "0", server.WithToolCapabilities(false))
	RegisterMCPTool(srv, mcp.NewTool("transport"),
		func(ctx context.Context, _ any) (any, error) {
			return map[string]string{"transport": GetTransport(ctx)}, nil
		},
		func(mcp.CallToolRequest) (*MCPDecodeResult, error) { return &MCPDecodeResult{}, nil },
	)
	srv.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":0,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"t","version":"0"}}}`))

	call := json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"transport","arguments":{}}}`)
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"plain", context.Background(), "mcp"},
		{"over http", WithTransport(context.Background(), "http"), "mcp"},
		{"over quic", WithTransport(context.Background(), "mcp_quic"), "mcp_quic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(srv.HandleMessage(tt.ctx, call))
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(raw), `\"transport\": \"`+tt.want+`\"`) {
				t.Errorf("response = %s, want transport %q", raw, tt.want)
			}
		})
	}
}
