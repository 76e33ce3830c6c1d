package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
)

// Handler processes IPC messages and returns responses.
// Implementations should be safe for concurrent use.
type Handler interface {
	// HandleGetSnapshot returns a SnapshotMessage.
	HandleGetSnapshot(ctx context.Context, msg *GetSnapshotMessage) any

	// HandleAwaitStatus waits for the requested status.
	// Returns a SnapshotMessage or ErrorMessage.
	HandleAwaitStatus(ctx context.Context, msg *AwaitStatusMessage) any

	// HandleControl delivers a step-mode signal.
	// Returns an AckMessage or ErrorMessage.
	HandleControl(ctx context.Context, msg *ControlMessage) any
}

// Server listens for IPC messages on a Unix domain socket.
type Server struct {
	socketPath string
	handler    Handler
	logger     *slog.Logger

	listener net.Listener
	wg       sync.WaitGroup

	mu       sync.Mutex
	shutdown bool
	cancel   context.CancelFunc
	conns    map[net.Conn]struct{}
}

// NewServer creates a new IPC server listening on socketPath.
func NewServer(socketPath string, handler Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		socketPath: socketPath,
		handler:    handler,
		logger:     logger.With("component", "ipc-server"),
		conns:      make(map[net.Conn]struct{}),
	}
}

// Path returns the path to the Unix socket.
func (s *Server) Path() string {
	return s.socketPath
}

// Start begins listening for connections.
// This method blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if err := s.StartAsync(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Shutdown()
}

// StartAsync starts the server in the background and returns immediately.
// Use Shutdown() to stop the server.
func (s *Server) StartAsync(ctx context.Context) error {
	// Remove any existing socket file
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create socket: %w", err)
	}
	s.listener = listener

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Info("IPC server started", "socket", s.socketPath)

	go s.acceptLoop(ctx)
	return nil
}

// Shutdown stops accepting connections, closes open ones and removes the
// socket file.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil
	}
	s.shutdown = true
	if s.cancel != nil {
		s.cancel()
	}
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	s.logger.Info("IPC server shutting down")

	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Error("error closing listener", "error", err)
		}
	}

	s.wg.Wait()

	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		s.logger.Error("error removing socket", "error", err)
	}

	s.logger.Info("IPC server stopped")
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			shutdown := s.shutdown
			s.mu.Unlock()

			if shutdown {
				return
			}

			select {
			case <-ctx.Done():
				return
			default:
			}

			s.logger.Error("accept error", "error", err)
			continue
		}

		s.mu.Lock()
		if s.shutdown {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go func() {
			defer s.wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	reader := bufio.NewReader(conn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				s.logger.Error("read error", "error", err)
			}
			return
		}

		response := s.handleMessage(ctx, line)

		if err := s.sendResponse(conn, response); err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.logger.Error("write error", "error", err)
			}
			return
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, data []byte) any {
	msg, err := ParseMessage(data)
	if err != nil {
		s.logger.Error("parse error", "error", err, "data", string(data))
		return &ErrorMessage{
			Type:    MsgError,
			Message: fmt.Sprintf("failed to parse message: %v", err),
		}
	}

	switch m := msg.(type) {
	case *GetSnapshotMessage:
		s.logger.Debug("handling get_snapshot")
		return s.handler.HandleGetSnapshot(ctx, m)

	case *AwaitStatusMessage:
		s.logger.Debug("handling await_status", "status", m.Status, "day", m.Day, "timeout", m.Timeout)
		return s.handler.HandleAwaitStatus(ctx, m)

	case *ControlMessage:
		s.logger.Debug("handling control", "signal", m.Signal, "wait", m.Wait)
		return s.handler.HandleControl(ctx, m)

	default:
		s.logger.Error("unexpected message type", "type", fmt.Sprintf("%T", msg))
		return &ErrorMessage{
			Type:    MsgError,
			Message: fmt.Sprintf("unexpected message type: %T", msg),
		}
	}
}

func (s *Server) sendResponse(conn net.Conn, response any) error {
	data, err := Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	data = append(data, '\n')

	_, err = conn.Write(data)
	return err
}
