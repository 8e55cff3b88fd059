package netcore

import (
	"errors"
	"io"
	"net"
	"sync"
)

// maxFrameSize is the read buffer size of a Server.  It is large enough that
// no frame is truncated before HandlePacket decides whether it can be answered.
const maxFrameSize = 1 << 16

// A Server reads Ethernet frames from a network interface and hands each one
// to a Responder.
type Server struct {
	// Iface is the network interface on which this server should listen.
	Iface *net.Interface

	// Config configures the Responder used by this server.  If
	// Config.Transmitter is nil, replies are written back to the
	// connection the server reads from.
	Config Config

	mu     sync.Mutex
	p      net.PacketConn
	closed bool
}

// ListenAndServe listens for frames using a raw Ethernet socket on the
// specified interface and answers them using cfg.
func ListenAndServe(iface string, cfg Config) error {
	// Verify network interface exists
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return err
	}

	return (&Server{
		Iface:  ifi,
		Config: cfg,
	}).ListenAndServe()
}

// ListenAndServe listens for frames using a raw Ethernet socket on the
// network interface specified by s.Iface.  Serve is called to handle
// traffic once ListenAndServe opens the socket.
func (s *Server) ListenAndServe() error {
	p, err := Listen(s.Iface)
	if err != nil {
		return err
	}

	return s.Serve(p)
}

// Serve reads frames from p until it returns io.EOF, is closed, or Close is
// called, handing each one to a Responder in turn.  Frames are handled one
// at a time on the calling goroutine.
func (s *Server) Serve(p net.PacketConn) error {
	defer p.Close()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.p = p
	s.mu.Unlock()

	cfg := s.Config
	if cfg.Transmitter == nil {
		cfg.Transmitter = NewLink(p, cfg.Logger)
	}
	r, err := NewResponder(cfg)
	if err != nil {
		return err
	}

	// Loop and read frames until exit
	buf := make([]byte, maxFrameSize)
	for {
		n, _, err := p.ReadFrom(buf)
		if err != nil {
			// Treat EOF and a closed connection as an exit signal.  Raw
			// sockets report EAGAIN rather than net.ErrClosed once closed,
			// so any error after Close is a clean exit too.
			if s.isClosed() || err == io.EOF || errors.Is(err, net.ErrClosed) {
				return nil
			}

			return err
		}

		r.HandlePacket(buf[:n])
	}
}

// Close stops a running Serve by closing its connection.  Serve then returns
// nil whatever error the connection reports.  Calling Close before Serve
// makes Serve return immediately.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.p == nil {
		return nil
	}
	return s.p.Close()
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
