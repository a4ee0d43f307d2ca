// Package chassis runs the folio HTTP surface.
//
// Without TLS it is a plain HTTP/1.1 server. With TLS (cert files or a
// generated development cert) the same port serves:
//   - TCP -> HTTP/1.1 + HTTP/2
//   - UDP -> QUIC with ALPN demux:
//     "h3" -> HTTP/3, when HTTP3 is enabled
//     "folio-mcp-v1" -> MCP over raw QUIC streams, when an MCP handler is set
//
// When HTTP/3 is on, responses carry an Alt-Svc header advertising it.
package chassis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"

	"github.com/hazyhaar/folio/pkg/mcpquic"
)

// Config holds configuration for the chassis server.
type Config struct {
	Addr     string // listen address, e.g. ":8420"; TCP and UDP share the port
	CertFile string // production cert path
	KeyFile  string // production key path
	DevTLS   bool   // generate a self-signed cert when no cert files are set
	HTTP3    bool   // also serve HTTP/3 on UDP (TLS only)
	Handler  http.Handler
	MCP      *mcpquic.Handler // MCP-over-QUIC sessions on UDP (TLS only), optional
	Logger   *slog.Logger
}

// Server is the folio chassis.
type Server struct {
	addr       string
	logger     *slog.Logger
	tlsCfg     *tls.Config
	http3      bool
	mcp        *mcpquic.Handler
	handler    http.Handler
	httpServer *http.Server
	h3Server   *http3.Server
	tcpLn      net.Listener
	quicLn     *quic.Listener
	mu         sync.Mutex
}

func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Handler == nil {
		return nil, errors.New("chassis: nil handler")
	}

	var tlsCfg *tls.Config
	switch {
	case cfg.CertFile != "" && cfg.KeyFile != "":
		var err error
		tlsCfg, err = ProductionTLSConfig(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load TLS cert: %w", err)
		}
		cfg.Logger.Info("TLS: production certs loaded")
	case cfg.DevTLS:
		var err error
		tlsCfg, err = DevelopmentTLSConfig()
		if err != nil {
			return nil, fmt.Errorf("generate dev TLS: %w", err)
		}
		cfg.Logger.Info("TLS: self-signed dev cert generated")
	}

	s := &Server{
		addr:    cfg.Addr,
		logger:  cfg.Logger,
		tlsCfg:  tlsCfg,
		http3:   cfg.HTTP3 && tlsCfg != nil,
		handler: cfg.Handler,
	}
	if tlsCfg != nil {
		s.mcp = cfg.MCP
	}
	return s, nil
}

// securityHeaders wraps an http.Handler and adds standard security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// altSvcMiddleware advertises HTTP/3 on the given UDP port.
func altSvcMiddleware(port string, next http.Handler) http.Handler {
	altSvc := fmt.Sprintf(`h3=":%s"; ma=86400`, port)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Alt-Svc", altSvc)
		next.ServeHTTP(w, r)
	})
}

// Listen binds the TCP (and, with HTTP/3, UDP) listeners. Start calls it
// when needed; calling it first lets the caller learn the bound Addr.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tcpLn != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("TCP listen: %w", err)
	}
	_, port, _ := net.SplitHostPort(ln.Addr().String())

	handler := securityHeaders(s.handler)
	if s.http3 {
		handler = altSvcMiddleware(port, handler)
	}
	s.httpServer = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.tlsCfg != nil {
		tcpTLS := s.tlsCfg.Clone()
		tcpTLS.NextProtos = []string{"h2", "http/1.1"}
		s.httpServer.TLSConfig = tcpTLS
		ln = tls.NewListener(ln, tcpTLS)
	}
	s.tcpLn = ln

	if protos := s.quicProtos(); len(protos) > 0 {
		quicTLS := s.tlsCfg.Clone()
		quicTLS.NextProtos = protos
		host, _, _ := net.SplitHostPort(s.addr)
		qln, err := quic.ListenAddr(net.JoinHostPort(host, port), quicTLS, mcpquic.QUICConfig())
		if err != nil {
			ln.Close()
			s.tcpLn = nil
			return fmt.Errorf("QUIC listen: %w", err)
		}
		s.quicLn = qln
		if s.http3 {
			s.h3Server = &http3.Server{Handler: handler}
		}
	}
	return nil
}

// quicProtos lists the ALPN protocols served on UDP, empty when none.
func (s *Server) quicProtos() []string {
	var protos []string
	if s.http3 {
		protos = append(protos, http3.NextProtoH3)
	}
	if s.mcp != nil {
		protos = append(protos, mcpquic.ALPN)
	}
	return protos
}

// Addr is the bound TCP address, nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tcpLn == nil {
		return nil
	}
	return s.tcpLn.Addr()
}

// Start serves until ctx is cancelled or a listener fails. It does not shut
// the server down; call Stop for that.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	tcpLn, quicLn, httpServer, h3Server := s.tcpLn, s.quicLn, s.httpServer, s.h3Server
	s.mu.Unlock()

	proto := "HTTP/1.1"
	if s.tlsCfg != nil {
		proto = "HTTP/1.1+HTTP/2 (TLS)"
	}
	s.logger.Info("chassis started", "addr", tcpLn.Addr().String(), "tcp", proto, "http3", h3Server != nil, "mcp_quic", s.mcp != nil && quicLn != nil)

	errCh := make(chan error, 2)
	go func() {
		if err := httpServer.Serve(tcpLn); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("TCP: %w", err)
		}
	}()

	if quicLn != nil {
		go func() {
			for {
				conn, err := quicLn.Accept(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					errCh <- fmt.Errorf("QUIC accept: %w", err)
					return
				}
				switch alpn := conn.ConnectionState().TLS.NegotiatedProtocol; {
				case alpn == http3.NextProtoH3 && h3Server != nil:
					go func() {
						if err := h3Server.ServeQUICConn(conn); err != nil {
							s.logger.Debug("HTTP/3 conn done", "remote", conn.RemoteAddr(), "error", err)
						}
					}()
				case alpn == mcpquic.ALPN && s.mcp != nil:
					go s.mcp.ServeConn(ctx, conn)
				default:
					s.logger.Warn("unknown ALPN, closing", "alpn", alpn, "remote", conn.RemoteAddr())
					conn.CloseWithError(quic.ApplicationErrorCode(0x11), "unsupported ALPN: "+alpn)
				}
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Stop gracefully shuts down the listeners.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("chassis stopping")

	var firstErr error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.quicLn != nil {
		if err := s.quicLn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.h3Server != nil {
		if err := s.h3Server.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.logger.Info("chassis stopped")
	return firstErr
}
