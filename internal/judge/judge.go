/*
Package judge implements the Judge Registry (4.C): a fixed set of trusted external echo endpoints,
partitioned by scheme, that the checker dials through each candidate proxy to see what comes back.

A Judge starts out unverified. VerifyAll issues a direct (non-proxied) GET at each judge and marks
verified only those whose response contains both configured markers and the process's own
externally observed IP address; Registry.Rebuild then keeps only the verified ones. Everything
after verification is immutable except for the round-robin bookkeeping
used by Best/Result, ported from trustydns' internal/bestserver "traditional" algorithm: the first
judge of a scheme is used until a Result(..., false, ...) report against the current judge rotates
the registry on to the next one.
*/
package judge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/trustproxy/proxysentry/internal/constants"
)

// Scheme identifies which transport a Judge listens on, which in turn determines which ProtoTags it
// can serve (4.C: HTTP-scheme judges serve HTTP/CONNECT:80/SOCKS*, HTTPS-scheme judges serve
// HTTPS/CONNECT:443).
type Scheme int

const (
	HTTP Scheme = iota
	HTTPS
)

func (s Scheme) String() string {
	if s == HTTPS {
		return "https"
	}
	return "http"
}

// Markers is the pair of substrings a verified judge's response body must contain: one that reveals
// an echoed IP address and one that reveals echoed request headers. Both the direct verification GET
// and every proxied check require the same markers, so a proxied body is only handed to
// classify.Classify when it has the shape the judge verified with.
type Markers struct {
	IPMarker     string // e.g. "origin" - precedes the echoed IP in the body
	HeaderMarker string // e.g. "headers" - precedes the echoed request headers in the body
}

// DefaultMarkers are sensible for judges that echo JSON shaped like {"origin": "1.2.3.4", "headers":
// {...}}, the shape httpbin.org/get and most purpose-built "judge" endpoints use.
var DefaultMarkers = Markers{IPMarker: "origin", HeaderMarker: "headers"}

// Judge is one trusted echo endpoint.
type Judge struct {
	URL     string
	Scheme  Scheme
	Host    string // host:port extracted from URL, used by negotiators to dial
	Path    string
	Markers Markers

	mu             sync.RWMutex
	verified       bool
	externalIPSeen string
}

// Verified reports whether the startup verification pass accepted this judge.
func (j *Judge) Verified() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.verified
}

func (j *Judge) setVerified(v bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.verified = v
}

// New parses a judge URL into a *Judge. The scheme is derived from the URL (http or https, adding
// port 80 or 443 when the URL has none). If markers.IPMarker is empty, DefaultMarkers is used.
func New(rawURL string, markers Markers) (*Judge, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("judge: bad URL %q: %w", rawURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("judge: URL %q has no host", rawURL)
	}

	sc := HTTP
	host := u.Host
	switch strings.ToLower(u.Scheme) {
	case "https":
		sc = HTTPS
		if !strings.Contains(host, ":") {
			host += ":443"
		}
	case "http", "":
		if !strings.Contains(host, ":") {
			host += ":80"
		}
	default:
		return nil, fmt.Errorf("judge: unsupported scheme %q in %q", u.Scheme, rawURL)
	}

	if markers.IPMarker == "" {
		markers = DefaultMarkers
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	return &Judge{URL: rawURL, Scheme: sc, Host: host, Path: path, Markers: markers}, nil
}

// httpClientDo is the seam used for testing, modeled directly on
// internal/resolver/doh.HTTPClientDo - the one method of *http.Client this package needs.
type httpClientDo interface {
	Do(*http.Request) (*http.Response, error)
}

// ErrNotVerified is returned by Registry.Best when no judge of the requested scheme verified.
var ErrNotVerified = errors.New("judge: no verified judge for requested scheme")

// VerifyAll issues a direct GET against every judge in judges and marks each verified iff its body
// contains both markers and externalIP. verifyClient is normally an *http.Client configured per
// --verify-ssl; timeout bounds each individual GET. Judges that fail to verify are left unverified
// (not removed) so callers can log which ones were rejected and why.
func VerifyAll(ctx context.Context, client httpClientDo, judges []*Judge, externalIP string, timeout time.Duration) {
	for _, j := range judges {
		verifyOne(ctx, client, j, externalIP, timeout)
	}
}

func verifyOne(ctx context.Context, client httpClientDo, j *Judge, externalIP string, timeout time.Duration) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, j.URL, nil)
	if err != nil {
		j.setVerified(false)
		return
	}

	resp, err := client.Do(req)
	if err != nil {
		j.setVerified(false)
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, constants.Get().MaxJudgeBodyBytes))
	text := string(bytes.TrimSpace(body))

	ok := resp.StatusCode == http.StatusOK &&
		strings.Contains(text, j.Markers.IPMarker) &&
		strings.Contains(text, j.Markers.HeaderMarker) &&
		strings.Contains(text, externalIP)

	j.mu.Lock()
	j.verified = ok
	if ok {
		j.externalIPSeen = externalIP
	}
	j.mu.Unlock()
}
