/*
Package proxy defines the Proxy entity (data model, section 3): a candidate host:port plus the
per-protocol results accumulated by checking it, the resolved exit IP, and an optional geolocation.

A Proxy is deliberately a plain struct with exported fields rather than an interface - the teacher
does the same for its small data-holding types (bestserver.Server, connectiontracker's session
records) - with invariant enforcement concentrated in the handful of methods that mutate it, so a
reader only has to look in one place to see what "at most one result per tag" and "is_working iff
some tag succeeded" actually mean.
*/
package proxy

import (
	"fmt"
	"time"

	"github.com/trustproxy/proxysentry/internal/classify"
	"github.com/trustproxy/proxysentry/internal/resolver"
)

// ProtoTag identifies one of the protocols a candidate is checked against: plain HTTP relay, a
// CONNECT tunnel to a plaintext port 80 or SMTP port 25 target, a CONNECT tunnel upgraded to TLS
// (HTTPS), or a SOCKS4/SOCKS5 handshake.
type ProtoTag int

const (
	HTTPTag ProtoTag = iota
	Connect80Tag
	Connect25Tag
	HTTPSTag
	SOCKS4Tag
	SOCKS5Tag
)

func (t ProtoTag) String() string {
	switch t {
	case HTTPTag:
		return "http"
	case Connect80Tag:
		return "connect:80"
	case Connect25Tag:
		return "connect:25"
	case HTTPSTag:
		return "https"
	case SOCKS4Tag:
		return "socks4"
	case SOCKS5Tag:
		return "socks5"
	default:
		return "unknown"
	}
}

// ParseProtoTag maps a --types flag value to a ProtoTag. ok is false for unrecognized input.
func ParseProtoTag(s string) (ProtoTag, bool) {
	switch s {
	case "http":
		return HTTPTag, true
	case "connect:80":
		return Connect80Tag, true
	case "connect:25":
		return Connect25Tag, true
	case "https":
		return HTTPSTag, true
	case "socks4":
		return SOCKS4Tag, true
	case "socks5":
		return SOCKS5Tag, true
	default:
		return 0, false
	}
}

// ProtocolResult holds the outcome of checking a Proxy against one ProtoTag.
type ProtocolResult struct {
	Anonymity     classify.Level
	Attempts      int
	Errors        int
	totalLatency  time.Duration
	successes     int
}

// recordAttempt accounts for one attempt at this protocol. On success, anonymity is the
// classification observed and latency is folded into the running mean. On failure, anonymity
// should be classify.None and latency is ignored.
func (pr *ProtocolResult) recordAttempt(success bool, anonymity classify.Level, latency time.Duration) {
	pr.Attempts++
	if !success {
		pr.Errors++
		return
	}
	pr.successes++
	pr.totalLatency += latency
	pr.Anonymity = anonymity
}

// AvgResponseMs is the mean latency, in milliseconds, over successful attempts only. Zero if there
// were no successes.
func (pr *ProtocolResult) AvgResponseMs() float64 {
	if pr.successes == 0 {
		return 0
	}
	return float64(pr.totalLatency.Milliseconds()) / float64(pr.successes)
}

// Proxy is one candidate exit node plus everything learned about it by checking.
type Proxy struct {
	Host string
	Port int

	IP  string // resolved exit IP, empty if resolution failed
	Geo resolver.Geo

	Declared map[ProtoTag]struct{} // the protocols this candidate was asked to be checked against

	results   map[ProtoTag]*ProtocolResult
	RuntimeMs int64
}

// New constructs a Proxy for host:port, declared against the given set of protocols.
func New(host string, port int, declared []ProtoTag) *Proxy {
	decl := make(map[ProtoTag]struct{}, len(declared))
	for _, tag := range declared {
		decl[tag] = struct{}{}
	}
	return &Proxy{
		Host:     host,
		Port:     port,
		Declared: decl,
		results:  make(map[ProtoTag]*ProtocolResult),
	}
}

// Addr renders "host:port", the candidate queue's dedup key and the text sink's leading column.
func (p *Proxy) Addr() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// RecordAttempt records one check attempt for tag, creating its ProtocolResult on first use. This
// is the only way a caller should touch a Proxy's per-protocol state - it is what keeps "at most
// one ProtocolResult per declared tag" true by construction.
func (p *Proxy) RecordAttempt(tag ProtoTag, success bool, anonymity classify.Level, latency time.Duration) {
	pr, ok := p.results[tag]
	if !ok {
		pr = &ProtocolResult{}
		p.results[tag] = pr
	}
	pr.recordAttempt(success, anonymity, latency)
}

// Result returns the accumulated result for tag, if any attempt has been recorded.
func (p *Proxy) Result(tag ProtoTag) (*ProtocolResult, bool) {
	pr, ok := p.results[tag]
	return pr, ok
}

// Results returns every protocol this proxy has a recorded result for.
func (p *Proxy) Results() map[ProtoTag]*ProtocolResult {
	return p.results
}

// IsWorking reports whether at least one protocol's result carries a non-None anonymity
// classification - i.e. whether this proxy is worth reporting at all.
func (p *Proxy) IsWorking() bool {
	for _, pr := range p.results {
		if pr.Anonymity != classify.None {
			return true
		}
	}
	return false
}
