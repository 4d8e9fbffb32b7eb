package negotiator

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"testing"
	"time"
)

// fakeHTTPProxy accepts one connection, reads the request line, and replies with a canned 200 OK
// echoing a marker body - enough to exercise HTTPRelay.SendRequest's absolute-URI framing without
// a real proxy.
func fakeHTTPProxy(t *testing.T) (addr string, stop func()) {
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
		br := bufio.NewReader(conn)
		req, err := http.ReadRequest(br)
		if err != nil {
			return
		}
		req.Body.Close()
		body := `{"origin":"203.0.113.9"}`
		conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: " + itoa(len(body)) + "\r\n\r\n" + body))
	}()
	return ln.Addr().String(), func() { ln.Close() }
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestHTTPRelayNegotiateAndSendRequest(t *testing.T) {
	addr, stop := fakeHTTPProxy(t)
	defer stop()

	n := NewHTTPRelay(addr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := n.Negotiate(ctx, "judge.example.com", 80); err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if n.State() != Negotiated {
		t.Errorf("expected Negotiated, got %v", n.State())
	}

	resp, err := n.SendRequest(ctx, "/get", http.Header{"User-Agent": []string{"test"}})
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	if resp.Status != 200 {
		t.Errorf("expected 200, got %d", resp.Status)
	}
	if n.State() != ResponseRead {
		t.Errorf("expected ResponseRead, got %v", n.State())
	}

	n.Close()
	if n.State() != Closed {
		t.Errorf("expected Closed, got %v", n.State())
	}
}
