// Package transport implements the framed message transport (L0): a
// loopback TCP listener that accepts document-process connections, performs
// a small pid-carrying handshake, and exposes raw, retrying send/receive
// primitives that the typed channel layer (package channel) builds on.
package transport

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/webxrhost/runtime/applog"
)

// handshakeMagic are the two bytes a client sends before its pid to start
// the connection handshake; the server echoes the same shape back.
var handshakeMagic = [2]byte{0x03, 0x07}

const handshakeTimeout = time.Second

// Server listens on one loopback TCP port and hands off handshaked peers.
type Server struct {
	ln   net.Listener
	port int
}

// Listen binds a free loopback TCP port and returns a Server. The port is
// picked by the OS (bind to port 0) exactly once per server; future clients
// connect to it by number, discovered out-of-band through a config channel
// (the hive daemon's startup JSON, in this runtime — see package hive).
func Listen() (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, errors.Wrap(err, "transport: listen")
	}
	port := ln.Addr().(*net.TCPAddr).Port
	return &Server{ln: ln, port: port}, nil
}

// Port returns the bound port, to be published to document processes.
func (s *Server) Port() int { return s.port }

// Close stops accepting new connections.
func (s *Server) Close() error { return s.ln.Close() }

// TryAccept polls the listener for up to timeout for an incoming connection.
// On success it performs the handshake and invokes onClient with the
// resulting Peer. It tolerates EINTR-equivalent transient errors by
// returning (false, nil) so the caller's poll loop simply tries again.
func (s *Server) TryAccept(ctx context.Context, timeout time.Duration, onClient func(*Peer)) (bool, error) {
	tcpLn, ok := s.ln.(*net.TCPListener)
	if !ok {
		return false, errors.New("transport: listener is not TCP")
	}
	if err := tcpLn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return false, errors.Wrap(err, "transport: set accept deadline")
	}
	conn, err := tcpLn.Accept()
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return false, nil
		}
		return false, errors.Wrap(err, "transport: accept")
	}

	if err := configureAcceptedConn(conn); err != nil {
		applog.W(ctx, "transport: failed to configure accepted connection: %v", err)
	}

	peer := &Peer{conn: conn}
	if err := peer.serverHandshake(); err != nil {
		conn.Close()
		return false, errors.Wrap(err, "transport: handshake")
	}
	onClient(peer)
	return true, nil
}

// configureAcceptedConn sets SO_LINGER(on=1, t=30s) and non-blocking mode on
// the accepted socket, per §4.1.
func configureAcceptedConn(conn net.Conn) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	raw, err := tcpConn.SyscallConn()
	if err != nil {
		return errors.Wrap(err, "syscall conn")
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptLinger(int(fd), unix.SOL_SOCKET, unix.SO_LINGER, &unix.Linger{
			Onoff:  1,
			Linger: 30,
		})
	})
	if err != nil {
		return errors.Wrap(err, "control")
	}
	if sockErr != nil {
		return errors.Wrap(sockErr, "setsockopt SO_LINGER")
	}
	return tcpConn.SetDeadline(time.Time{})
}

// Dial connects to a server previously returned by Listen, performing the
// client side of the handshake with the given pid.
func Dial(ctx context.Context, port int, pid uint32) (*Peer, error) {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", itoa(port)), 5*time.Second)
	if err != nil {
		return nil, errors.Wrap(err, "transport: dial")
	}
	peer := &Peer{conn: conn}
	if err := peer.clientHandshake(pid); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "transport: handshake")
	}
	return peer, nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Peer is one handshaked connection, either server- or client-side.
type Peer struct {
	conn  net.Conn
	pid   uint32
	valid int32 // atomic bool; 0 == valid
}

// Pid returns the peer pid exchanged during the handshake.
func (p *Peer) Pid() uint32 { return p.pid }

// Valid reports whether the peer is still usable; a transport error latches
// this false permanently (§4.1 "Failure semantics").
func (p *Peer) Valid() bool { return atomic.LoadInt32(&p.valid) == 0 }

func (p *Peer) invalidate() { atomic.StoreInt32(&p.valid, 1) }

// Close closes the underlying connection.
func (p *Peer) Close() error { return p.conn.Close() }

func (p *Peer) serverHandshake() error {
	p.conn.SetDeadline(time.Now().Add(handshakeTimeout))
	defer p.conn.SetDeadline(time.Time{})

	var hello [6]byte
	if _, err := readFull(p.conn, hello[:]); err != nil {
		return err
	}
	if hello[0] != handshakeMagic[0] || hello[1] != handshakeMagic[1] {
		return errors.New("bad handshake magic")
	}
	p.pid = be32(hello[2:])
	if _, err := p.conn.Write(hello[:]); err != nil {
		return err
	}
	return nil
}

func (p *Peer) clientHandshake(pid uint32) error {
	p.conn.SetDeadline(time.Now().Add(handshakeTimeout))
	defer p.conn.SetDeadline(time.Time{})

	var hello [6]byte
	hello[0], hello[1] = handshakeMagic[0], handshakeMagic[1]
	putBE32(hello[2:], pid)
	if _, err := p.conn.Write(hello[:]); err != nil {
		return err
	}
	var echo [6]byte
	if _, err := readFull(p.conn, echo[:]); err != nil {
		return err
	}
	if echo != hello {
		return errors.New("handshake echo mismatch")
	}
	p.pid = pid
	return nil
}

// SendRaw writes the full buffer, looping on short writes. ECONNRESET/EPIPE
// style terminal errors mark the peer invalid; anything retryable is looped
// on internally and never surfaced.
func (p *Peer) SendRaw(buf []byte) error {
	for len(buf) > 0 {
		n, err := p.conn.Write(buf)
		if err != nil {
			if isRetryable(err) {
				continue
			}
			p.invalidate()
			return errors.Wrap(err, "transport: send")
		}
		buf = buf[n:]
	}
	return nil
}

// TryRecvRaw polls for readability then loops until exactly len(dst) bytes
// have been read. A zero-byte read (peer closed) invalidates the peer and
// returns io.EOF-wrapped error.
func (p *Peer) TryRecvRaw(dst []byte, timeout time.Duration) error {
	if timeout > 0 {
		p.conn.SetReadDeadline(time.Now().Add(timeout))
		defer p.conn.SetReadDeadline(time.Time{})
	}
	_, err := readFull(p.conn, dst)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return err
		}
		p.invalidate()
		return errors.Wrap(err, "transport: recv")
	}
	return nil
}

func readFull(conn net.Conn, dst []byte) (int, error) {
	total := 0
	for total < len(dst) {
		n, err := conn.Read(dst[total:])
		if n == 0 && err == nil {
			return total, errors.New("transport: peer closed (zero-byte read)")
		}
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func isRetryable(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func putBE32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
