// Package node assembles a running record node: the validated record store,
// the optional history index, the oracle validator, and the RPC and gRPC
// surfaces, under a single lifecycle.
package node

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aurumchain/go-aurum/internal/config"
	"github.com/aurumchain/go-aurum/internal/core/oracle"
	"github.com/aurumchain/go-aurum/internal/core/protocol"
	"github.com/aurumchain/go-aurum/internal/grpc"
	"github.com/aurumchain/go-aurum/internal/rpc"
	"github.com/aurumchain/go-aurum/internal/storage/historydb"
	"github.com/aurumchain/go-aurum/internal/storage/recordstore"
)

const (
	// rpcTimeout bounds a single RPC method call.
	rpcTimeout = 30 * time.Second

	// shutdownTimeout bounds the HTTP drain on shutdown.
	shutdownTimeout = 5 * time.Second

	// statusInterval is the heartbeat period of the status stream.
	statusInterval = 10 * time.Second
)

// Node wires the record store, history index, validator and serving
// surfaces together. Create with New, drive with Run, release with Close.
type Node struct {
	cfg     *config.Config
	log     zerolog.Logger
	network protocol.Network
	params  protocol.Params

	store     *recordstore.Store
	history   *historydb.DB
	validator *oracle.Validator

	rpcServer  *rpc.Server
	grpcServer *grpc.Server

	// submitMu serialises tip checks against writes.
	submitMu sync.Mutex

	startedAt time.Time
}

// New builds a node from configuration. The record store, and the history
// database when enabled, are opened here and stay open until Close.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Node, error) {
	network, err := cfg.Network()
	if err != nil {
		return nil, err
	}

	keys, err := cfg.OracleKeys()
	if err != nil {
		return nil, err
	}

	store, err := recordstore.Open(recordstore.Options{
		Type: cfg.Store.Backend,
		Path: cfg.StorePath(),
	}, cfg.Store.CacheSize, log)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}

	n := &Node{
		cfg:       cfg,
		log:       log,
		network:   network,
		params:    protocol.NetworkParams(network),
		store:     store,
		validator: oracle.NewValidator(keys, log),
		startedAt: time.Now(),
	}

	if cfg.History.Enabled {
		history, err := historydb.Open(ctx, historydb.Config{
			Driver:          cfg.History.Driver,
			DSN:             cfg.History.DSN,
			MaxOpenConns:    cfg.History.MaxOpenConns,
			MaxIdleConns:    cfg.History.MaxIdleConns,
			ConnMaxLifetime: cfg.History.ConnMaxLifetime,
		}, log)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("open history database: %w", err)
		}
		n.history = history
	}

	n.rpcServer = rpc.NewServer(n, log, rpcTimeout)

	if cfg.GRPC.Enabled {
		grpcCfg := grpc.DefaultServerConfig()
		grpcCfg.Address = cfg.GRPCAddress(n.params)
		grpcServer, err := grpc.NewServer(grpcCfg, n, log)
		if err != nil {
			n.Close()
			return nil, fmt.Errorf("create grpc server: %w", err)
		}
		n.grpcServer = grpcServer
	}

	log.Info().
		Stringer("network", network).
		Str("backend", store.Backend()).
		Uint64("stored_records", store.Count()).
		Msg("node initialised")

	return n, nil
}

// RPCHandler returns the JSON-RPC HTTP handler, for embedding in tests or
// external servers.
func (n *Node) RPCHandler() *rpc.Server {
	return n.rpcServer
}

// Run starts the enabled serving surfaces and blocks until the context is
// cancelled or a surface fails.
func (n *Node) Run(ctx context.Context) error {
	if !n.cfg.RPC.Enabled && n.grpcServer == nil {
		return errors.New("no serving surface enabled")
	}

	g, gCtx := errgroup.WithContext(ctx)

	if n.cfg.RPC.Enabled {
		g.Go(func() error { return n.serveHTTP(gCtx) })

		if n.cfg.RPC.EnableWebsocket {
			g.Go(func() error { return n.statusLoop(gCtx) })
		}
	}

	if n.grpcServer != nil {
		g.Go(func() error { return n.serveGRPC(gCtx) })
	}

	return g.Wait()
}

// Close releases the store and history handles. Call after Run returns.
func (n *Node) Close() error {
	var firstErr error
	if n.history != nil {
		if err := n.history.Close(); err != nil {
			firstErr = err
		}
	}
	if err := n.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// serveHTTP runs the JSON-RPC and websocket listener until ctx is done.
func (n *Node) serveHTTP(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/", n.rpcServer)
	mux.Handle("/rpc", n.rpcServer)
	if n.cfg.RPC.EnableWebsocket {
		mux.Handle("/ws", n.rpcServer.Hub())
	}
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"aurumd"}`))
	})

	server := &http.Server{
		Addr:    n.cfg.RPCAddress(n.params),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		n.log.Info().Str("address", server.Addr).Msg("rpc server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		n.rpcServer.Hub().Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			n.log.Warn().Err(err).Msg("rpc server shutdown failed")
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// serveGRPC runs the gRPC listener until ctx is done.
func (n *Node) serveGRPC(ctx context.Context) error {
	if err := n.grpcServer.StartAsync(); err != nil {
		return err
	}

	<-ctx.Done()
	n.grpcServer.Stop()
	return ctx.Err()
}

// statusLoop pushes a periodic status heartbeat to websocket subscribers.
func (n *Node) statusLoop(ctx context.Context) error {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n.rpcServer.Hub().BroadcastStatus(n.serverStatus())
		}
	}
}

func (n *Node) serverStatus() rpc.ServerStatus {
	info := n.Info()
	return rpc.ServerStatus{
		Network:      info.Network.String(),
		LatestHeight: info.LatestHeight,
		ForkVersion:  info.ForkVersion,
	}
}
