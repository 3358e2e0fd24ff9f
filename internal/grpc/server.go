package grpc

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/aurumchain/go-aurum/internal/storage/recordstore"
)

// RecordServiceInterface defines the node operations needed by gRPC
// handlers. The node package implements it.
type RecordServiceInterface interface {
	// LatestEntry returns the highest stored entry, or
	// recordstore.ErrEmptyStore when nothing is stored yet.
	LatestEntry() (*recordstore.Entry, error)

	// EntryAt returns the entry at height, or recordstore.ErrNotFound.
	EntryAt(height uint64) (*recordstore.Entry, error)

	// EntryRange returns stored entries in [from, to] in ascending height
	// order, at most limit of them.
	EntryRange(from, to uint64, limit int) ([]*recordstore.Entry, error)

	// Status reports a point-in-time snapshot of the node.
	Status() NodeStatus
}

// NodeStatus is the gRPC view of node identity and progress.
type NodeStatus struct {
	// Version is the build version string
	Version string

	// Network is the chain name (mainnet, testnet, stagenet)
	Network string

	// ForkVersion is the active hard fork version
	ForkVersion uint64

	// LatestHeight is the height of the newest stored entry
	LatestHeight uint64

	// HasEntries reports whether anything is stored yet
	HasEntries bool

	// StoredRecords is the number of stored entries
	StoredRecords uint64

	// UptimeSeconds is how long the node has been running
	UptimeSeconds int64
}

// Server represents the gRPC server for record operations.
type Server struct {
	mu sync.RWMutex

	// grpcServer is the underlying gRPC server
	grpcServer *grpc.Server

	// recordService provides access to stored entries
	recordService RecordServiceInterface

	// config holds the server configuration
	config *ServerConfig

	// log receives per-call debug lines from the interceptor
	log zerolog.Logger

	// listener is the network listener
	listener net.Listener

	// running indicates if the server is currently running
	running bool
}

// NewServer creates a new gRPC server with the given configuration.
func NewServer(cfg *ServerConfig, recordSvc RecordServiceInterface, log zerolog.Logger) (*Server, error) {
	if cfg == nil {
		cfg = DefaultServerConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	server := &Server{
		recordService: recordSvc,
		config:        cfg,
		log:           log,
		running:       false,
	}

	opts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(cfg.MaxRecvMsgSize),
		grpc.MaxSendMsgSize(cfg.MaxSendMsgSize),
		grpc.UnaryInterceptor(server.unaryInterceptor()),
	}
	server.grpcServer = grpc.NewServer(opts...)

	return server, nil
}

// Start starts the gRPC server and begins accepting connections.
// This method blocks until the server is stopped or an error occurs.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server is already running")
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.listener = listener
	s.running = true
	s.mu.Unlock()

	s.log.Info().Str("address", listener.Addr().String()).Msg("grpc server listening")

	return s.grpcServer.Serve(listener)
}

// StartAsync starts the gRPC server in a goroutine and returns immediately.
// Returns an error if the server is already running or fails to listen.
func (s *Server) StartAsync() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server is already running")
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.listener = listener
	s.running = true
	s.mu.Unlock()

	s.log.Info().Str("address", listener.Addr().String()).Msg("grpc server listening")

	go func() {
		if err := s.grpcServer.Serve(listener); err != nil {
			s.log.Error().Err(err).Msg("grpc server stopped")
		}
	}()

	return nil
}

// Stop gracefully stops the gRPC server. It stops accepting new connections
// and waits for existing calls to complete.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.grpcServer.GracefulStop()
	s.running = false
}

// StopNow immediately stops the gRPC server without waiting for calls.
func (s *Server) StopNow() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.grpcServer.Stop()
	s.running = false
}

// IsRunning returns true if the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Address returns the address the server is listening on.
// Returns empty string if the server is not running.
func (s *Server) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// GetGRPCServer returns the underlying grpc.Server.
// This can be used to register additional services.
func (s *Server) GetGRPCServer() *grpc.Server {
	return s.grpcServer
}

// unaryInterceptor logs every call with its duration and outcome.
func (s *Server) unaryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		s.log.Debug().
			Str("method", info.FullMethod).
			Dur("elapsed", time.Since(start)).
			Bool("ok", err == nil).
			Msg("grpc call handled")

		return resp, err
	}
}
