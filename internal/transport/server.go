// Package transport implements the Session Server described in spec.md
// §4.1: a TCP endpoint that can either accept an inbound peer or dial one
// outbound, exchange length-prefixed wireproto frames with whichever peer
// is currently active, and surface transport failures through a callback
// rather than an error return (the read/write loops run on their own
// goroutine, mirroring the accept loop in the DJI adapter this package is
// descended from).
package transport

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/ivgtz/idrone-platform/internal/wireproto"
)

// ErrorKind enumerates the transport failure classes from §4.1.
type ErrorKind string

const (
	ErrConnecting ErrorKind = "CONNECTING"
	ErrReading    ErrorKind = "READING"
	ErrSending    ErrorKind = "SENDING"
	ErrUnknown    ErrorKind = "UNKNOWN"
)

// Handlers is the callback surface a Server drives: connect, message, and
// error. They are invoked from the server's internal goroutines, and
// OnConnect/OnError also synchronously from Listen, Connect and Deliver;
// they must not block for long.
type Handlers struct {
	OnConnect func()
	OnMessage func(*wireproto.Message)
	OnError   func(kind ErrorKind, err error)
}

// Server is a single-peer TCP endpoint: at most one connection is active
// at a time, and a fresh accept/dial only happens after an explicit call
// following an error (§4.1).
type Server struct {
	handlers Handlers

	mu       sync.Mutex
	listener net.Listener
	conn     net.Conn
	connID   string
	endpoint string
	isListen bool

	sendMu sync.Mutex

	shuttingDown atomic.Bool
	wg           sync.WaitGroup
}

// New creates a Server bound to the given callback surface.
func New(handlers Handlers) *Server {
	return &Server{handlers: handlers}
}

// Listen binds endpoint with SO_REUSEADDR and begins a single pending
// accept (§4.1). Only one peer is active at a time; once a peer connects,
// no further accepts are posted until AcceptNewConnection is called.
func (s *Server) Listen(endpoint string) error {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}

	listener, err := lc.Listen(context.Background(), "tcp", endpoint)
	if err != nil {
		s.raise(ErrConnecting, fmt.Errorf("listening on %s: %w", endpoint, err))
		return err
	}

	s.mu.Lock()
	s.listener = listener
	s.endpoint = endpoint
	s.isListen = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.acceptOnce()

	return nil
}

// Connect dials endpoint outbound and begins serving it, using the same
// callback surface as Listen.
func (s *Server) Connect(endpoint string) error {
	conn, err := net.Dial("tcp", endpoint)
	if err != nil {
		s.raise(ErrConnecting, fmt.Errorf("dialing %s: %w", endpoint, err))
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.connID = uuid.NewString()
	s.endpoint = endpoint
	s.isListen = false
	s.mu.Unlock()

	if s.handlers.OnConnect != nil {
		s.handlers.OnConnect()
	}

	s.wg.Add(1)
	go s.readLoop(conn)

	return nil
}

// AcceptNewConnection posts a new pending accept on an existing listener.
// Spec §4.1: "a new accept is posted only on explicit accept_new_connection()
// after error."
func (s *Server) AcceptNewConnection() error {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()

	if listener == nil {
		return fmt.Errorf("transport: AcceptNewConnection called without an active listener")
	}

	s.wg.Add(1)
	go s.acceptOnce()
	return nil
}

func (s *Server) acceptOnce() {
	defer s.wg.Done()

	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()

	if listener == nil || s.shuttingDown.Load() {
		return
	}

	conn, err := listener.Accept()
	if err != nil {
		if s.shuttingDown.Load() {
			return
		}
		s.raise(ErrConnecting, fmt.Errorf("accepting connection: %w", err))
		return
	}

	s.mu.Lock()
	s.conn = conn
	s.connID = uuid.NewString()
	s.mu.Unlock()

	if s.handlers.OnConnect != nil {
		s.handlers.OnConnect()
	}

	s.wg.Add(1)
	go s.readLoop(conn)
}

// readLoop performs the strict two-stage framed read until EOF, error, or
// shutdown, decoding each frame and handing it to OnMessage. Unparseable
// payloads decode to TagUnknown rather than aborting the loop (§4.1).
func (s *Server) readLoop(conn net.Conn) {
	defer s.wg.Done()

	for {
		payload, err := wireproto.ReadFrame(conn)
		if err != nil {
			s.releasePeer(conn)
			if s.shuttingDown.Load() {
				return
			}
			s.raise(ErrReading, err)
			return
		}

		msg := wireproto.Decode(payload)
		if s.handlers.OnMessage != nil {
			s.handlers.OnMessage(msg)
		}
	}
}

// releasePeer drops conn as the active peer if it still is one, so a
// subsequent Listen/Connect/AcceptNewConnection can take over.
func (s *Server) releasePeer(conn net.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
		s.connID = ""
	}
	s.mu.Unlock()
	conn.Close()
}

// Deliver serializes send behind a mutex and writes msg to the active peer
// socket. On failure it raises SENDING via the error handler (§4.1).
func (s *Server) Deliver(msg *wireproto.Message) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		err := fmt.Errorf("transport: no active peer to deliver to")
		s.raise(ErrSending, err)
		return err
	}

	payload, err := wireproto.Encode(msg)
	if err != nil {
		s.raise(ErrSending, err)
		return err
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if err := wireproto.WriteFrame(conn, payload); err != nil {
		s.raise(ErrSending, err)
		return err
	}
	return nil
}

// Close idempotently tears the server down: the active peer, the listener,
// and any pending accept goroutine.
func (s *Server) Close() error {
	if !s.shuttingDown.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	conn := s.conn
	listener := s.listener
	s.conn = nil
	s.listener = nil
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if listener != nil {
		listener.Close()
	}

	s.wg.Wait()
	return nil
}

func (s *Server) raise(kind ErrorKind, err error) {
	log.Printf("[Transport] %s error on %s (conn %s): %v", kind, s.endpointOrUnknown(), s.connIDOrUnknown(), err)
	if s.handlers.OnError != nil {
		s.handlers.OnError(kind, err)
	}
}

func (s *Server) endpointOrUnknown() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.endpoint == "" {
		return "<unbound>"
	}
	return s.endpoint
}

// connIDOrUnknown returns the correlation ID assigned to the active peer
// connection, so log lines from the same TCP session can be grepped
// together even across reconnects to the same endpoint.
func (s *Server) connIDOrUnknown() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connID == "" {
		return "<none>"
	}
	return s.connID
}

// HasPeer reports whether a peer connection is currently active.
func (s *Server) HasPeer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}
