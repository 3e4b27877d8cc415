// Package transport hosts the two network surfaces of spec.md §6: the
// control-channel TCP listener and the UDP multicast sample-packet
// receiver.
package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/opensonata/dxcore/internal/dxerr"
	"github.com/opensonata/dxcore/internal/logging"
	"github.com/opensonata/dxcore/internal/wire"
)

// ControlHandler processes one received control message. Returning an
// error with dxerr.KindTransport closes the connection; any other kind
// is logged and the connection stays open. A failed read also closes the
// connection; reads are not retried and the process keeps running.
type ControlHandler func(conn net.Conn, msg wire.Message) error

// ControlServer accepts control-channel TCP connections and dispatches
// each framed message to a handler, one goroutine per connection.
type ControlServer struct {
	log     *logging.Logger
	handler ControlHandler

	mu        sync.Mutex
	listener  net.Listener
	wg        sync.WaitGroup
}

// NewControlServer constructs a server dispatching received messages to
// handler; Serve binds it to an address (e.g. ":2703").
func NewControlServer(log *logging.Logger, handler ControlHandler) *ControlServer {
	return &ControlServer{log: log, handler: handler}
}

// Serve listens on addr and accepts connections until ctx is cancelled or
// a fatal accept error occurs.
func (s *ControlServer) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return dxerr.Wrap(dxerr.KindTransport, err, "listening on %s", addr)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			return dxerr.Wrap(dxerr.KindTransport, err, "accepting control connection")
		}
		s.wg.Add(1)
		go s.serveConn(ctx, conn)
	}
}

func (s *ControlServer) serveConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	log := s.log.With("remote", conn.RemoteAddr())
	for {
		if ctx.Err() != nil {
			return
		}
		msg, err := wire.ReadMessage(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			log.Warn("control read failed", "err", err)
			return
		}
		if err := s.handler(conn, msg); err != nil {
			if dxerr.IsKind(err, dxerr.KindTransport) {
				log.Error("control handler fatal error, closing connection", "err", err)
				return
			}
			log.Warn("control handler error", "err", err)
		}
	}
}

// Close stops accepting new connections.
func (s *ControlServer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}
