package negotiator

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/txthinking/socks5"
)

// SOCKS5 negotiates via github.com/txthinking/socks5's client helper, which owns the greeting
// (0x05 0x01 0x00), the no-auth handshake, and the CONNECT request (preferring atyp=0x03, domain
// name) internally - the library is present in the corpus via the firestack tunnel's dependency
// graph, so this negotiator reuses its client rather than re-implementing SOCKS5's (rather more
// involved) handshake by hand the way SOCKS4's is.
type SOCKS5 struct {
	proxyAddr  string
	conn       net.Conn
	br         *bufio.Reader
	tracker    *tracker
	targetHost string
}

// NewSOCKS5 constructs a SOCKS5 negotiator dialing proxyAddr.
func NewSOCKS5(proxyAddr string) *SOCKS5 {
	return &SOCKS5{proxyAddr: proxyAddr, tracker: newTracker()}
}

func (s *SOCKS5) State() State { return s.tracker.State() }

// Negotiate asks the socks5.Client to CONNECT to targetHost:targetPort, which performs the
// greeting and request bytes described in the design notes and returns a net.Conn already tunneled
// to the target on success, or an error wrapping the server's non-zero reply code on rejection.
func (s *SOCKS5) Negotiate(ctx context.Context, targetHost string, targetPort int) error {
	client, err := socks5.NewClient(s.proxyAddr, "", "", 0, 0)
	if err != nil {
		s.tracker.transition(DialFailed)
		return fmt.Errorf("negotiator: socks5 client for %s: %w", s.proxyAddr, err)
	}

	if err := s.tracker.transition(Connected); err != nil {
		return err
	}

	target := fmt.Sprintf("%s:%d", targetHost, targetPort)
	conn, err := client.Dial("tcp", target)
	if err != nil {
		s.tracker.transition(HandshakeFailed)
		return fmt.Errorf("negotiator: socks5 connect to %s: %w", target, err)
	}

	if dl, ok := ctx.Deadline(); ok {
		conn.SetDeadline(dl)
	}

	s.conn = conn
	s.br = bufio.NewReader(conn)
	s.targetHost = targetHost
	return s.tracker.transition(Negotiated)
}

// SendRequest speaks origin-form HTTP/1.1 over the tunnel socks5.Client.Dial established.
func (s *SOCKS5) SendRequest(ctx context.Context, path string, headers http.Header) (*Response, error) {
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

func (s *SOCKS5) Close() error {
	s.tracker.transition(Closed)
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
