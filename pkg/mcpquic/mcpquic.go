// CLAUDE:SUMMARY MCP over raw QUIC streams: ALPN folio-mcp-v1, MCP1 preamble, newline-delimited JSON-RPC; shares the chassis UDP port with HTTP/3.

// Package mcpquic carries MCP sessions over QUIC. A client negotiates the
// folio-mcp-v1 ALPN, opens one bidirectional stream, sends the 4-byte
// preamble "MCP1", then exchanges one JSON-RPC message per line.
package mcpquic

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/quic-go/quic-go"
)

const (
	ALPN             = "folio-mcp-v1"
	Preamble         = "MCP1"
	MaxMessageSize   = 4 << 20
	HandshakeTimeout = 10 * time.Second
	IdleTimeout      = 5 * time.Minute
	KeepAlive        = 30 * time.Second
)

// Stream and connection error codes.
const (
	streamErrProtocol quic.StreamErrorCode      = 0x02
	streamErrTooLarge quic.StreamErrorCode      = 0x03
	connErrNone       quic.ApplicationErrorCode = 0x00
	connErrALPN       quic.ApplicationErrorCode = 0x01
	connErrProtocol   quic.ApplicationErrorCode = 0x03
)

var (
	ErrBadPreamble     = errors.New("mcpquic: bad stream preamble")
	ErrUnsupportedALPN = errors.New("mcpquic: " + ALPN + " not negotiated")
	ErrNotConnected    = errors.New("mcpquic: client not connected")
)

// QUICConfig is the transport configuration used by both ends.
func QUICConfig() *quic.Config {
	return &quic.Config{
		HandshakeIdleTimeout:       HandshakeTimeout,
		MaxIdleTimeout:             IdleTimeout,
		KeepAlivePeriod:            KeepAlive,
		MaxStreamReceiveWindow:     MaxMessageSize,
		MaxConnectionReceiveWindow: 4 * MaxMessageSize,
	}
}

// ClientTLSConfig offers only the MCP ALPN. insecure skips certificate
// verification, for development certificates.
func ClientTLSConfig(insecure bool) *tls.Config {
	return &tls.Config{
		NextProtos:         []string{ALPN},
		MinVersion:         tls.VersionTLS13,
		InsecureSkipVerify: insecure,
	}
}

func readPreamble(r io.Reader) error {
	got := make([]byte, len(Preamble))
	if _, err := io.ReadFull(r, got); err != nil {
		return fmt.Errorf("read preamble: %w", err)
	}
	if !bytes.Equal(got, []byte(Preamble)) {
		return fmt.Errorf("%w: %q", ErrBadPreamble, got)
	}
	return nil
}

func writePreamble(w io.Writer) error {
	if _, err := io.WriteString(w, Preamble); err != nil {
		return fmt.Errorf("write preamble: %w", err)
	}
	return nil
}
