package negotiator

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"

	"github.com/trustproxy/proxysentry/internal/tlsutil"
)

// ConnectTunnel negotiates an HTTP CONNECT tunnel through a proxy, optionally upgrading the
// tunnel to TLS (the HTTPS variant). The same type serves CONNECT:80, CONNECT:25 and HTTPS - only
// the tls flag and verifySSL setting differ between them.
type ConnectTunnel struct {
	proxyAddr string
	tls       bool
	verifySSL bool

	conn       net.Conn
	br         *bufio.Reader
	tracker    *tracker
	targetHost string
}

// NewConnectTunnel constructs a CONNECT negotiator. Set tls for the HTTPS variant (CONNECT:443);
// verifySSL controls certificate validation when tls is set.
func NewConnectTunnel(proxyAddr string, tls bool, verifySSL bool) *ConnectTunnel {
	return &ConnectTunnel{proxyAddr: proxyAddr, tls: tls, verifySSL: verifySSL, tracker: newTracker()}
}

func (c *ConnectTunnel) State() State { return c.tracker.State() }

// Negotiate dials the proxy, issues CONNECT target_host:target_port, and (for the HTTPS variant)
// performs a TLS handshake over the resulting tunnel with SNI set to targetHost.
func (c *ConnectTunnel) Negotiate(ctx context.Context, targetHost string, targetPort int) error {
	conn, err := dialProxy(ctx, c.proxyAddr)
	if err != nil {
		c.tracker.transition(DialFailed)
		return fmt.Errorf("negotiator: dial %s: %w", c.proxyAddr, err)
	}
	if err := c.tracker.transition(Connected); err != nil {
		conn.Close()
		return err
	}

	applyDeadline(conn, ctx)

	target := fmt.Sprintf("%s:%d", targetHost, targetPort)
	if _, err := fmt.Fprintf(conn, "CONNECT %s HTTP/1.1\r\nHost: %s\r\n\r\n", target, target); err != nil {
		conn.Close()
		c.tracker.transition(Timeout)
		return fmt.Errorf("negotiator: write CONNECT: %w", err)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, nil)
	if err != nil {
		conn.Close()
		c.tracker.transition(HandshakeFailed)
		return fmt.Errorf("negotiator: read CONNECT response: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		conn.Close()
		c.tracker.transition(HandshakeFailed)
		return fmt.Errorf("negotiator: CONNECT refused: %s", resp.Status)
	}

	if c.tls {
		tlsConn := tls.Client(conn, tlsutil.NewNegotiatorTLSConfig(c.verifySSL, targetHost))
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			c.tracker.transition(HandshakeFailed)
			return fmt.Errorf("negotiator: TLS handshake: %w", err)
		}
		conn = tlsConn
		br = bufio.NewReader(conn)
	}

	c.conn = conn
	c.br = br
	c.targetHost = targetHost
	return c.tracker.transition(Negotiated)
}

// SendRequest speaks origin-form HTTP/1.1 over the established tunnel.
func (c *ConnectTunnel) SendRequest(ctx context.Context, path string, headers http.Header) (*Response, error) {
	applyDeadline(c.conn, ctx)

	req, err := http.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header = headers
	req.Host = c.targetHost

	if err := req.Write(c.conn); err != nil {
		c.tracker.transition(Timeout)
		return nil, fmt.Errorf("negotiator: write request: %w", err)
	}
	if err := c.tracker.transition(RequestSent); err != nil {
		return nil, err
	}

	resp, err := readResponse(c.br, http.MethodGet)
	if err != nil {
		c.tracker.transition(Timeout)
		return nil, fmt.Errorf("negotiator: read response: %w", err)
	}
	if err := c.tracker.transition(ResponseRead); err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *ConnectTunnel) Close() error {
	c.tracker.transition(Closed)
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
