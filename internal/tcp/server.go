package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"gitlab.com/dutbench.net/internal/core/ports/primary"
	"gitlab.com/dutbench.net/internal/core/ports/secondary"
	"gitlab.com/dutbench.net/internal/tcp/codec"
	"gitlab.com/dutbench.net/internal/tcp/connectionmanager"
	"gitlab.com/dutbench.net/internal/tcp/defs"
	"gitlab.com/dutbench.net/internal/tcp/handlers"
)

// TCPServer serves the DUT control protocol
type TCPServer struct {
	address        string
	readBufferSize int
	driver         secondary.Driver
	logger         primary.Logger
	listener       net.Listener
	connectionMgr  *connectionmanager.ConnectionManager
	stopCh         chan struct{}
	stopOnce       sync.Once
	sessions       sync.WaitGroup
	handlers       map[string]primary.MessageHandler
	metrics        primary.ControlMetrics
}

// TCPServerOption configures a TCPServer
type TCPServerOption func(*TCPServer)

// WithAddress sets the server address
func WithAddress(address string) TCPServerOption {
	return func(s *TCPServer) {
		s.address = address
	}
}

// WithReadBufferSize sets the single-read budget per request
func WithReadBufferSize(size int) TCPServerOption {
	return func(s *TCPServer) {
		if size > 0 {
			s.readBufferSize = size
		}
	}
}

// WithMetrics records per-command and per-session activity
func WithMetrics(metrics primary.ControlMetrics) TCPServerOption {
	return func(s *TCPServer) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// NewTCPServer creates a new TCP server
func NewTCPServer(
	driver secondary.Driver,
	logger primary.Logger,
	options ...TCPServerOption,
) *TCPServer {
	server := &TCPServer{
		address:        fmt.Sprintf(":%d", defs.DefaultPort),
		readBufferSize: defs.MaxMessageSize,
		driver:         driver,
		logger:         logger,
		connectionMgr:  connectionmanager.NewConnectionManager(logger),
		stopCh:         make(chan struct{}),
		metrics:        nopMetrics{},
	}

	// Apply options
	for _, option := range options {
		option(server)
	}

	// Register message handlers
	server.setupMessageHandlers()

	return server
}

// setupMessageHandlers registers all message handlers
func (s *TCPServer) setupMessageHandlers() {
	s.handlers = map[string]primary.MessageHandler{
		defs.OpWrite: handlers.NewWriteHandler(s.driver, s.logger),
		defs.OpRead:  handlers.NewReadHandler(s.driver, s.logger),
	}
}

// Start starts the TCP server
func (s *TCPServer) Start() error {
	var err error
	s.listener, err = net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start TCP server: %w", err)
	}

	s.logger.Info("DUT server listening", "address", s.listener.Addr().String())

	// Accept connections in a goroutine
	go s.acceptConnections()

	return nil
}

// Addr returns the bound listener address, nil before Start
func (s *TCPServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and every open session, then waits for the
// session goroutines until ctx expires.
func (s *TCPServer) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })

	// Close listener
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			s.logger.Error("Failed to close listener", "error", err)
		}
	}

	// Close all connections
	s.connectionMgr.CloseAll()

	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// acceptConnections accepts incoming connections
func (s *TCPServer) acceptConnections() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				s.logger.Error("Failed to accept connection", "error", err)
				time.Sleep(defs.ConnectionRetryDelay) // Avoid tight loop on error
				continue
			}
		}

		s.sessions.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection serves one client session: one read is one request and
// gets exactly one response, until the peer disconnects.
func (s *TCPServer) handleConnection(conn net.Conn) {
	defer s.sessions.Done()
	defer conn.Close()

	key := s.connectionMgr.Add(conn)
	defer s.connectionMgr.Remove(key)

	s.logger.Info("Client connected", "client", key)
	s.metrics.SessionOpened()
	defer s.metrics.SessionClosed()

	buf := make([]byte, s.readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n == 0 || err != nil {
			if err != nil && !errors.Is(err, io.EOF) && !s.stopping() {
				s.logger.Error("Failed to read request", "client", key, "error", err)
			}
			s.logger.Info("Client disconnected", "client", key)
			return
		}

		resp := s.dispatch(context.Background(), buf[:n])
		if err := connectionmanager.SendResponse(conn, resp); err != nil {
			s.logger.Error("Failed to send response", "client", key, "error", err)
			return
		}
	}
}

// dispatch decodes a request and routes it to the handler for its op
func (s *TCPServer) dispatch(ctx context.Context, data []byte) defs.Response {
	req, err := codec.DecodeRequest(data)
	if err != nil {
		s.logger.Warn("Malformed command", "command", string(data), "error", err)
		resp := codec.ErrorResponse(err)
		label := "invalid"
		var perr *defs.ProtocolError
		if errors.As(err, &perr) && perr.UnknownOp != "" {
			label = "unknown"
		}
		s.metrics.CommandHandled(label, resp.Kind.String())
		return resp
	}

	handler := s.handlers[req.Op]
	s.logger.Debug("Handling command", "op", req.Op, "slave", req.Slave, "reg", req.Reg)
	resp := handler.HandleMessage(ctx, req)
	s.metrics.CommandHandled(req.Op, resp.Kind.String())
	return resp
}

func (s *TCPServer) stopping() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

type nopMetrics struct{}

func (nopMetrics) CommandHandled(string, string) {}
func (nopMetrics) SessionOpened()                 {}
func (nopMetrics) SessionClosed()                 {}
