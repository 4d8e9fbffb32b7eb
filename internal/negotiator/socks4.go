package negotiator

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
)

// SOCKS4 hand-rolls the SOCKS4 client handshake directly over net.Conn. No SOCKS4 client library
// appears anywhere in the retrieved corpus - see DESIGN.md for why this one negotiator is built on
// the standard library alone rather than an imported client.
type SOCKS4 struct {
	proxyAddr string
	conn       net.Conn
	br         *bufio.Reader
	tracker    *tracker
	targetHost string
}

// NewSOCKS4 constructs a SOCKS4 negotiator dialing proxyAddr.
func NewSOCKS4(proxyAddr string) *SOCKS4 {
	return &SOCKS4{proxyAddr: proxyAddr, tracker: newTracker()}
}

func (s *SOCKS4) State() State { return s.tracker.State() }

// Negotiate sends the SOCKS4 CONNECT request: 0x04 0x01 <port be16> <ipv4> 0x00 (empty userid).
// targetHost must already be a dotted-quad IPv4 literal - SOCKS4 has no hostname support in this
// implementation (the SOCKS4A extension is out of scope) - a bare hostname is rejected with
// ErrUnsupportedTarget rather than silently resolved here, since resolution is the caller's (the
// Proxy entity's) responsibility via the Resolver.
func (s *SOCKS4) Negotiate(ctx context.Context, targetHost string, targetPort int) error {
	ip4 := net.ParseIP(targetHost).To4()
	if ip4 == nil {
		s.tracker.transition(HandshakeFailed)
		return ErrUnsupportedTarget
	}

	conn, err := dialProxy(ctx, s.proxyAddr)
	if err != nil {
		s.tracker.transition(DialFailed)
		return fmt.Errorf("negotiator: dial %s: %w", s.proxyAddr, err)
	}
	if err := s.tracker.transition(Connected); err != nil {
		conn.Close()
		return err
	}

	applyDeadline(conn, ctx)

	req := make([]byte, 0, 9)
	req = append(req, 0x04, 0x01)
	req = append(req, byte(targetPort>>8), byte(targetPort))
	req = append(req, ip4...)
	req = append(req, 0x00) // empty userid, null-terminated

	if _, err := conn.Write(req); err != nil {
		conn.Close()
		s.tracker.transition(Timeout)
		return fmt.Errorf("negotiator: write SOCKS4 request: %w", err)
	}

	reply := make([]byte, 8)
	if _, err := fullRead(conn, reply); err != nil {
		conn.Close()
		s.tracker.transition(HandshakeFailed)
		return fmt.Errorf("negotiator: read SOCKS4 reply: %w", err)
	}
	if reply[1] != 0x5A {
		conn.Close()
		s.tracker.transition(HandshakeFailed)
		return fmt.Errorf("negotiator: SOCKS4 request rejected, code 0x%02x", reply[1])
	}

	s.conn = conn
	s.br = bufio.NewReader(conn)
	s.targetHost = targetHost
	return s.tracker.transition(Negotiated)
}

// SendRequest speaks origin-form HTTP/1.1 over the established SOCKS4 connection.
func (s *SOCKS4) SendRequest(ctx context.Context, path string, headers http.Header) (*Response, error) {
	applyDeadline(s.conn, ctx)

	req, err := http.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header = headers
	req.Host = s.targetHost

	if err := req.Write(s.conn); err != nil {
		s.tracker.transition(Timeout)
		return nil, fmt.Errorf("negotiator: write request: %w", err)
	}
	if err := s.tracker.transition(RequestSent); err != nil {
		return nil, err
	}

	resp, err := readResponse(s.br, http.MethodGet)
	if err != nil {
		s.tracker.transition(Timeout)
		return nil, fmt.Errorf("negotiator: read response: %w", err)
	}
	if err := s.tracker.transition(ResponseRead); err != nil {
		return nil, err
	}

	return resp, nil
}

func (s *SOCKS4) Close() error {
	s.tracker.transition(Closed)
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// fullRead reads exactly len(buf) bytes from r, looping over short reads.
func fullRead(r net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
