package transport

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/NESSBZID/bncho/internal/bancho"
	"github.com/NESSBZID/bncho/internal/packet"
	"github.com/NESSBZID/bncho/internal/state"
)

// Config holds TCP listener settings.
type Config struct {
	// Addr is the listen address, host:port.
	Addr string

	// LoginTimeout bounds how long a fresh connection may take to
	// deliver its credentials before being dropped.
	LoginTimeout time.Duration

	// WriteTimeout bounds a single flush to a client socket.
	WriteTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Addr:         ":13381",
		LoginTimeout: 10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server accepts client connections and pumps their frames through the
// protocol dispatcher.
type Server struct {
	cfg    Config
	log    *slog.Logger
	bancho *bancho.Server

	mu       sync.Mutex
	listener net.Listener
	conns    sync.WaitGroup
}

func NewServer(cfg Config, logger *slog.Logger, b *bancho.Server) *Server {
	return &Server{cfg: cfg, log: logger, bancho: b}
}

// Addr reports the bound listen address, or "" before ListenAndServe
// has opened the socket.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// ListenAndServe accepts connections until the context is cancelled,
// then waits for per-connection goroutines to drain.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.log.Info("listening", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.conns.Wait()
				return nil
			}
			return err
		}
		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// handleConn owns one client socket: login handshake, then a read loop
// dispatching frames while a writer goroutine flushes the session's
// outbound buffer.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	ip := remote
	if host, _, err := net.SplitHostPort(remote); err == nil {
		ip = host
	}

	conn.SetReadDeadline(time.Now().Add(s.cfg.LoginTimeout))
	br := bufio.NewReader(conn)
	body, err := readLoginBody(br)
	if err != nil {
		s.log.Debug("handshake read failed", "remote", remote, "error", err)
		return
	}

	token, response := s.bancho.Login(ctx, body, ip)

	conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if _, err := conn.Write(append([]byte(token+"\n"), response...)); err != nil {
		s.log.Debug("handshake write failed", "remote", remote, "error", err)
		if token != bancho.FailedLoginToken {
			if p, ok := s.bancho.LookupSession(token); ok {
				s.bancho.TearDown(p)
			}
		}
		return
	}
	if token == bancho.FailedLoginToken {
		return
	}
	p, ok := s.bancho.LookupSession(token)
	if !ok {
		return
	}
	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var flushers sync.WaitGroup
	flushers.Add(1)
	go func() {
		defer flushers.Done()
		s.writeLoop(connCtx, conn, p)
	}()

	s.readLoop(br, p)

	s.bancho.TearDown(p)
	cancel()
	conn.Close()
	flushers.Wait()
	s.log.Info("connection closed", "player", p.Name, "remote", remote)
}

// readLoop pulls frames off the socket until it fails.
func (s *Server) readLoop(r io.Reader, p *state.Player) {
	for {
		f, err := packet.ReadFrame(r)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Debug("read loop ended", "player", p.Name, "error", err)
			}
			return
		}
		s.bancho.Dispatch(p, f)
	}
}

// writeLoop flushes the session's outbound buffer whenever it signals
// readiness. Bytes still queued when the connection dies are discarded;
// the client re-syncs on its next login.
func (s *Server) writeLoop(ctx context.Context, conn net.Conn, p *state.Player) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.OutboundReady():
		}
		buf := p.Drain()
		if len(buf) == 0 {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		if _, err := conn.Write(buf); err != nil {
			s.log.Debug("flush failed", "player", p.Name, "error", err)
			// Kill the read side too; the session is torn down there.
			conn.Close()
			return
		}
	}
}

// readLoginBody reads the three newline-terminated credential lines of
// the handshake.
func readLoginBody(r *bufio.Reader) ([]byte, error) {
	var sb strings.Builder
	for i := 0; i < 3; i++ {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		sb.WriteString(line)
	}
	return []byte(sb.String()), nil
}
