package mcpquic

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestPreamble(t *testing.T) {
	var buf bytes.Buffer
	if err := writePreamble(&buf); err != nil {
		t.Fatalf("writePreamble: %v", err)
	}
	if buf.String() != "MCP1" {
		t.Fatalf("preamble = %q", buf.String())
	}
	if err := readPreamble(&buf); err != nil {
		t.Fatalf("readPreamble: %v", err)
	}
}

func TestReadPreamble_Rejects(t *testing.T) {
	err := readPreamble(strings.NewReader("GET / HTTP/1.1"))
	if !errors.Is(err, ErrBadPreamble) {
		t.Fatalf("err = %v, want ErrBadPreamble", err)
	}
	if err := readPreamble(strings.NewReader("MC")); err == nil || errors.Is(err, ErrBadPreamble) {
		t.Fatalf("short read: err = %v", err)
	}
}

func TestSessionSend(t *testing.T) {
	var buf bytes.Buffer
	s := &session{id: "quic_test"}
	if err := s.send(&buf, map[string]any{"jsonrpc": "2.0", "id": 1}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := buf.String(); got != `{"id":1,"jsonrpc":"2.0"}`+"\n" {
		t.Errorf("line = %q", got)
	}
	s.Initialize()
	if !s.Initialized() || s.SessionID() != "quic_test" {
		t.Error("session state")
	}
}

func TestClient_NotConnected(t *testing.T) {
	c := NewClient("127.0.0.1:1", nil)
	if _, err := c.ListTools(t.Context()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("ListTools err = %v", err)
	}
	if _, err := c.CallTool(t.Context(), "x", nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("CallTool err = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
