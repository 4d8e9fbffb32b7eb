package negotiator

import (
	"context"
	"net"
	"testing"
	"time"
)

// fakeSOCKS5Proxy speaks just enough of RFC 1928 to satisfy txthinking/socks5's client: accept
// whatever auth methods are offered and pick no-auth, then grant (or refuse) the CONNECT request.
func fakeSOCKS5Proxy(t *testing.T, grant bool) (addr string, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		greeting := make([]byte, 2)
		if _, err := fullRead(conn, greeting); err != nil {
			return
		}
		nmethods := int(greeting[1])
		methods := make([]byte, nmethods)
		if _, err := fullRead(conn, methods); err != nil {
			return
		}
		conn.Write([]byte{0x05, 0x00}) // version 5, no-auth selected

		// Fixed-size prefix of the request: VER CMD RSV ATYP.
		prefix := make([]byte, 4)
		if _, err := fullRead(conn, prefix); err != nil {
			return
		}
		switch prefix[3] {
		case 0x01: // IPv4
			rest := make([]byte, 4+2)
			fullRead(conn, rest)
		case 0x03: // domain name
			l := make([]byte, 1)
			fullRead(conn, l)
			rest := make([]byte, int(l[0])+2)
			fullRead(conn, rest)
		case 0x04: // IPv6
			rest := make([]byte, 16+2)
			fullRead(conn, rest)
		}

		rep := byte(0x01) // general failure
		if grant {
			rep = 0x00
		}
		conn.Write([]byte{0x05, rep, 0x00, 0x01, 0, 0, 0, 0, 0, 0})

		if !grant {
			return
		}

		// Act as a transparent relay from here: echo back a canned HTTP response to whatever
		// HTTP/1.1 request SendRequest writes over the tunnel.
		buf := make([]byte, 4096)
		conn.Read(buf)
		conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok"))
	}()
	return ln.Addr().String(), func() { ln.Close() }
}

func TestSOCKS5NegotiateGranted(t *testing.T) {
	addr, stop := fakeSOCKS5Proxy(t, true)
	defer stop()

	n := NewSOCKS5(addr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := n.Negotiate(ctx, "judge.example.com", 80); err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if n.State() != Negotiated {
		t.Errorf("expected Negotiated, got %v", n.State())
	}
	if n.targetHost != "judge.example.com" {
		t.Errorf("targetHost = %q, want judge.example.com", n.targetHost)
	}
	n.Close()
}

func TestSOCKS5NegotiateRejected(t *testing.T) {
	addr, stop := fakeSOCKS5Proxy(t, false)
	defer stop()

	n := NewSOCKS5(addr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := n.Negotiate(ctx, "judge.example.com", 80); err == nil {
		t.Fatal("expected connect failure")
	}
	if n.State() != HandshakeFailed {
		t.Errorf("expected HandshakeFailed, got %v", n.State())
	}
}
