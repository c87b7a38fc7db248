// Package smsctest provides a scripted SMSC peer for tests and local simulation.
//
// A Server accepts transceiver binds on a loopback listener and answers every request
// the way a well-behaved SMSC does. Per-command handlers replace the default
// behavior, and Conn.Send pushes unsolicited frames such as deliver_sm or unbind.
package smsctest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-smpp/pdu"
)

// Handler answers one inbound frame.
type Handler func(c *Conn, f *pdu.Frame)

// Server is a minimal SMSC.
type Server struct {
	cfg   *serverConfig
	codec pdu.Codec
	ln    net.Listener

	mu     sync.Mutex
	frames []*pdu.Frame
	conns  []*Conn

	frameCh chan *pdu.Frame
	connCh  chan *Conn

	submitCount atomic.Uint64

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewServer starts a server on an ephemeral loopback port.
func NewServer(opts ...Option) (*Server, error) {
	cfg := newServerConfig(opts...)

	ln, err := net.Listen("tcp", cfg.addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", cfg.addr, err)
	}

	s := &Server{
		cfg:     cfg,
		codec:   pdu.Codec{MaxFrameSize: cfg.maxFrameSize},
		ln:      ln,
		frameCh: make(chan *pdu.Frame, 1024),
		connCh:  make(chan *Conn, 16),
	}

	s.wg.Add(1)
	go s.acceptLoop()

	return s, nil
}

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Close stops accepting, closes every connection and waits for the server goroutines.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.ln.Close()

		s.mu.Lock()
		for _, c := range s.conns {
			_ = c.Close()
		}
		s.mu.Unlock()

		s.wg.Wait()
	})

	return err
}

// Frames returns every frame received so far, in arrival order.
func (s *Server) Frames() []*pdu.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*pdu.Frame, len(s.frames))
	copy(out, s.frames)

	return out
}

// FramesOf returns the received frames carrying id.
func (s *Server) FramesOf(id pdu.CommandID) []*pdu.Frame {
	var out []*pdu.Frame
	for _, f := range s.Frames() {
		if f.Header.CommandID == id {
			out = append(out, f)
		}
	}

	return out
}

// Next returns the next received frame.
func (s *Server) Next(ctx context.Context) (*pdu.Frame, error) {
	select {
	case f := <-s.frameCh:
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// NextOf skips received frames until one carrying id arrives.
func (s *Server) NextOf(ctx context.Context, id pdu.CommandID) (*pdu.Frame, error) {
	for {
		f, err := s.Next(ctx)
		if err != nil {
			return nil, err
		}
		if f.Header.CommandID == id {
			return f, nil
		}
	}
}

// WaitConn returns the next accepted connection.
func (s *Server) WaitConn(ctx context.Context) (*Conn, error) {
	select {
	case c := <-s.connCh:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		nc, err := s.ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.cfg.logger.Warn("smsc accept failed", "error", err)
			}
			return
		}

		c := &Conn{conn: nc, srv: s}
		c.seq.Store(s.cfg.firstSeq - 1)

		s.mu.Lock()
		s.conns = append(s.conns, c)
		s.mu.Unlock()

		select {
		case s.connCh <- c:
		default:
		}

		s.wg.Add(1)
		go c.serve()
	}
}

func (s *Server) record(f *pdu.Frame) {
	s.mu.Lock()
	s.frames = append(s.frames, f)
	s.mu.Unlock()

	select {
	case s.frameCh <- f:
	default:
	}
}

// Conn is one ESME connection accepted by the server.
type Conn struct {
	conn net.Conn
	srv  *Server
	wmu  sync.Mutex
	seq  atomic.Uint32
}

// NextSeq returns a sequence number for a server-originated request.
func (c *Conn) NextSeq() uint32 {
	return c.seq.Add(1)
}

// Send encodes and writes one frame.
func (c *Conn) Send(status pdu.CommandStatus, seq uint32, body pdu.Body) error {
	data, err := c.srv.codec.Encode(pdu.NewFrame(status, seq, body))
	if err != nil {
		return err
	}

	return c.WriteRaw(data)
}

// Reply answers f with body and status.
func (c *Conn) Reply(f *pdu.Frame, status pdu.CommandStatus, body pdu.Body) error {
	return c.Send(status, f.Header.Sequence, body)
}

// WriteRaw writes bytes as they are, for malformed frame tests.
func (c *Conn) WriteRaw(data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_, err := c.conn.Write(data)

	return err
}

// Close closes the connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

func (c *Conn) serve() {
	defer c.srv.wg.Done()
	defer c.conn.Close()

	r := bufio.NewReader(c.conn)
	hdr := make([]byte, pdu.HeaderLen)
	l := c.srv.cfg.logger

	for {
		if _, err := io.ReadFull(r, hdr); err != nil {
			return
		}

		h, err := c.srv.codec.DecodeHeader(hdr)
		if err != nil {
			l.Warn("smsc received bad header", "error", err)
			return
		}

		buf := make([]byte, h.Length)
		copy(buf, hdr)
		if _, err := io.ReadFull(r, buf[pdu.HeaderLen:]); err != nil {
			return
		}

		f, _, err := c.srv.codec.Decode(buf)
		if err != nil {
			l.Warn("smsc received malformed frame", "error", err)
			_ = c.Send(pdu.StatusInvMsgLen, h.Sequence, &pdu.GenericNack{})

			continue
		}

		l.Debug("smsc received frame", "frame", f)
		c.srv.record(f)

		if handler, ok := c.srv.cfg.handlers[f.Header.CommandID]; ok {
			handler(c, f)
		} else {
			c.srv.defaultHandle(c, f)
		}
	}
}
