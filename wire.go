package wire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgtype"

	psqlerr "github.com/splitgraph/convergence/errors"
	"github.com/splitgraph/convergence/pkg/buffer"
	"github.com/splitgraph/convergence/pkg/types"
)

// ListenAndServe starts a server backed by engine/parser on address with
// default configuration. Convenient for small embeddings that don't need
// any OptionFn tuning.
func ListenAndServe(address string, engine Engine, parser Parser) error {
	srv, err := NewServer(engine, parser)
	if err != nil {
		return err
	}

	return srv.ListenAndServe(address)
}

// NewServer constructs a Server around the given Engine/Parser pair,
// applying any OptionFns in order.
func NewServer(engine Engine, parser Parser, options ...OptionFn) (*Server, error) {
	srv := &Server{
		Engine:          engine,
		Parser:          parser,
		logger:          slog.Default(),
		closer:          make(chan struct{}),
		types:           pgtype.NewMap(),
		BufferedMsgSize: buffer.DefaultBufferSize,
	}

	for _, option := range options {
		if err := option(srv); err != nil {
			return nil, fmt.Errorf("configuring server: %w", err)
		}
	}

	return srv, nil
}

// Server accepts PostgreSQL wire-protocol connections and drives them
// against an Engine/Parser pair.
type Server struct {
	closing         atomic.Bool
	wg              sync.WaitGroup
	logger          *slog.Logger
	types           *pgtype.Map
	closer          chan struct{}

	Engine          Engine
	Parser          Parser
	BufferedMsgSize int
	Parameters      Parameters
	Version         string
}

// ListenAndServe opens a TCP listener on address and serves connections
// until Close is called.
func (srv *Server) ListenAndServe(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}

	return srv.Serve(listener)
}

// Serve accepts and serves connections from listener, closing it once the
// server is gracefully closed via Close.
func (srv *Server) Serve(listener net.Listener) error {
	defer srv.logger.Info("server closed")

	srv.logger.Info("serving incoming connections", slog.String("addr", listener.Addr().String()))
	srv.wg.Add(1)

	go func() {
		defer srv.wg.Done()
		<-srv.closer

		if err := listener.Close(); err != nil {
			srv.logger.Error("closing listener", "err", err)
		}
	}()

	for {
		conn, err := listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			return nil
		}

		if err != nil {
			return err
		}

		go func() {
			ctx := context.Background()
			if err := srv.serve(ctx, conn); err != nil {
				srv.logger.Error("serving connection", "err", err)
			}
		}()
	}
}

func (srv *Server) serve(ctx context.Context, conn net.Conn) error {
	ctx = setTypeInfo(ctx, srv.types)
	defer conn.Close()

	srv.logger.Debug("serving a new client connection")

	writer := buffer.NewWriter(srv.logger, conn)

	version, reader, err := srv.Handshake(conn)
	if err != nil {
		if version != types.VersionCancel {
			_ = writeErrorResponse(writer, psqlerr.WithSeverity(err, psqlerr.LevelFatal))
		}
		return err
	}

	if version == types.VersionCancel {
		return nil
	}

	ctx, err = srv.readClientParameters(ctx, reader)
	if err != nil {
		_ = writeErrorResponse(writer, psqlerr.WithSeverity(err, psqlerr.LevelFatal))
		return err
	}

	if err := writeAuthenticationOk(writer); err != nil {
		return err
	}

	ctx, err = srv.writeParameters(ctx, writer, srv.Parameters)
	if err != nil {
		return err
	}

	return srv.consumeCommands(ctx, conn, reader, writer)
}

// Close gracefully closes the server: stops accepting new connections and
// waits for in-flight ones to finish their current command.
func (srv *Server) Close() error {
	if srv.closing.Load() {
		return nil
	}

	srv.closing.Store(true)
	close(srv.closer)
	srv.wg.Wait()
	return nil
}
