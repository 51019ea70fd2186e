package listeners

import (
	"net"
	"sync"
)

// Suspendable is a TCP listener that can be suspended and later resumed on
// the same address. While suspended the socket is fully released (mobile
// platforms reclaim it on app pause); Accept blocks across the gap instead
// of failing, so an http.Server serving on it survives the cycle.
type Suspendable struct {
	mu       sync.Mutex
	addr     string // rebind target, fixed at first listen
	lastAddr net.Addr
	ln       net.Listener
	resumed  chan struct{} // open only while suspended
	closed   bool
}

// Listen binds addr and returns a suspendable listener for it.
func Listen(addr string) (*Suspendable, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	close(done)

	return &Suspendable{
		addr:     ln.Addr().String(),
		lastAddr: ln.Addr(),
		ln:       ln,
		resumed:  done,
	}, nil
}

// Accept waits for the next connection. During suspension it blocks until
// Resume or Close rather than returning an error.
func (s *Suspendable) Accept() (net.Conn, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, net.ErrClosed
		}
		ln := s.ln
		resumed := s.resumed
		s.mu.Unlock()

		if ln == nil {
			<-resumed
			continue
		}

		conn, err := ln.Accept()
		if err == nil {
			return conn, nil
		}

		s.mu.Lock()
		stale := s.ln != ln // the inner socket was closed by Suspend
		closed := s.closed
		s.mu.Unlock()

		if closed {
			return nil, net.ErrClosed
		}
		if stale {
			continue
		}
		return nil, err
	}
}

// Suspend releases the bound socket. Idempotent.
func (s *Suspendable) Suspend() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return net.ErrClosed
	}
	if s.ln == nil {
		return nil
	}

	err := s.ln.Close()
	s.ln = nil
	s.resumed = make(chan struct{})
	return err
}

// Resume rebinds the original address. Idempotent.
func (s *Suspendable) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return net.ErrClosed
	}
	if s.ln != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.ln = ln
	s.lastAddr = ln.Addr()
	close(s.resumed)
	return nil
}

// Close shuts the listener down for good.
func (s *Suspendable) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.ln != nil {
		err := s.ln.Close()
		s.ln = nil
		return err
	}

	// Wake Accept callers parked on the suspension gap.
	close(s.resumed)
	return nil
}

// Addr returns the bound address, or the last bound address while suspended.
func (s *Suspendable) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln != nil {
		return s.ln.Addr()
	}
	return s.lastAddr
}
