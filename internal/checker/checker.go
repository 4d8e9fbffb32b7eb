/*
Package checker implements the Checker (4.F): the outer batch loop and per-proxy routine that turn
queued candidates into validated Proxy records. The outer loop mirrors the teacher's own worker-pool
shape - a bounded fan-out per batch awaited before the next batch starts - generalized from
golang.org/x/sync/semaphore.Weighted (already an indirect dependency of the teacher's stack, and
promoted here to a direct one) for concurrency bounding and golang.org/x/sync/errgroup for
structured cancellation across a batch's goroutines.
*/
package checker

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/trustproxy/proxysentry/internal/classify"
	"github.com/trustproxy/proxysentry/internal/concurrencytracker"
	"github.com/trustproxy/proxysentry/internal/judge"
	"github.com/trustproxy/proxysentry/internal/log"
	"github.com/trustproxy/proxysentry/internal/metrics"
	"github.com/trustproxy/proxysentry/internal/negotiator"
	"github.com/trustproxy/proxysentry/internal/proxy"
	"github.com/trustproxy/proxysentry/internal/queue"
	"github.com/trustproxy/proxysentry/internal/reporter"
	"github.com/trustproxy/proxysentry/internal/resolver"
)

// ErrNoJudgeAvailable is logged (and the tag skipped, never retried) when a ProtoTag's required
// judge scheme never verified at all.
var ErrNoJudgeAvailable = &noJudgeError{}

type noJudgeError struct{}

func (*noJudgeError) Error() string { return "checker: no verified judge available for this scheme" }

const batchSize = 5000

// Config is the Checker's tunable behavior, matching 4.F's enumerated configuration.
type Config struct {
	MaxTries          uint
	Timeout           time.Duration
	MaxConn           int
	ExpectedTypes     map[proxy.ProtoTag]struct{} // empty set means "all declared tags"
	ExpectedLevels    map[classify.Level]struct{} // empty set means "any non-None level"
	ExpectedCountries map[string]struct{}         // empty set means "no country filter"
	SupportCookies    bool
	SupportReferer    bool
	VerifySSL         bool
	Limit             int    // 0 = unlimited
	ExternalIP        string // this process's own externally-observed IP, used by Classify's Transparent check
}

// schemeFor maps a ProtoTag to the judge.Scheme it must be checked against, per 4.C's partitioning.
func schemeFor(tag proxy.ProtoTag) judge.Scheme {
	if tag == proxy.HTTPSTag {
		return judge.HTTPS
	}
	return judge.HTTP
}

// newNegotiator constructs a fresh negotiator of the kind tag requires, dialing proxyAddr.
func newNegotiator(tag proxy.ProtoTag, proxyAddr string, verifySSL bool) negotiator.Negotiator {
	switch tag {
	case proxy.HTTPTag:
		return negotiator.NewHTTPRelay(proxyAddr)
	case proxy.Connect80Tag, proxy.Connect25Tag:
		return negotiator.NewConnectTunnel(proxyAddr, false, verifySSL)
	case proxy.HTTPSTag:
		return negotiator.NewConnectTunnel(proxyAddr, true, verifySSL)
	case proxy.SOCKS4Tag:
		return negotiator.NewSOCKS4(proxyAddr)
	case proxy.SOCKS5Tag:
		return negotiator.NewSOCKS5(proxyAddr)
	default:
		return nil
	}
}

// Checker draws candidates from a queue, resolves and checks each one, and emits working proxies.
type Checker struct {
	cfg      Config
	queue    *queue.Queue
	registry *judge.Registry
	resolver *resolver.Resolver
	metrics  *metrics.Metrics
	tracker  *metrics.CheckTracker
	concur   concurrencytracker.Counter
	logger   *log.Logger
	emit     func(*proxy.Proxy)

	stop     atomic.Bool
	emitted  atomic.Int64
}

// New constructs a Checker. emit is called once per working proxy that passes the configured
// filters; it must be safe for concurrent use.
func New(cfg Config, q *queue.Queue, registry *judge.Registry, res *resolver.Resolver, m *metrics.Metrics, logger *log.Logger, emit func(*proxy.Proxy)) *Checker {
	return &Checker{
		cfg:      cfg,
		queue:    q,
		registry: registry,
		resolver: res,
		metrics:  m,
		tracker:  metrics.NewCheckTracker("checker"),
		logger:   logger,
		emit:     emit,
	}
}

// Tracker exposes the Checker's reporter for periodic status lines.
func (c *Checker) Tracker() *metrics.CheckTracker { return c.tracker }

// Reporters returns every reporter.Reporter this Checker maintains, for callers that want to fold
// the checker's own status lines into a wider periodic report alongside the judge registry and
// candidate queue.
func (c *Checker) Reporters() []reporter.Reporter {
	return []reporter.Reporter{c.tracker}
}

// Stop sets the outer loop's stop flag, observed before the next check starts.
func (c *Checker) Stop() { c.stop.Store(true) }

// Run drains the queue in batches of up to 5000 until ctx is cancelled or the stop flag is set. An
// empty queue is polled again every 200ms rather than ending the run. The stop flag is checked
// before each new check starts and at batch boundaries, so once --limit is reached only checks
// already in flight (at most max_conn-1 besides the one that hit the limit) can still emit.
func (c *Checker) Run(ctx context.Context, declared map[string][]proxy.ProtoTag) error {
	sem := semaphore.NewWeighted(int64(c.cfg.MaxConn))

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.stop.Load() {
			return nil
		}

		batch := c.queue.PopBatch(batchSize)
		if len(batch) == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(200 * time.Millisecond):
				continue
			}
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, addr := range batch {
			addr := addr
			if err := sem.Acquire(gctx, 1); err != nil {
				break
			}
			if c.stop.Load() {
				sem.Release(1)
				break
			}
			if c.metrics != nil {
				c.metrics.InflightChecks.Inc()
			}
			c.concur.Add()
			g.Go(func() error {
				defer sem.Release(1)
				defer c.concur.Done()
				defer func() {
					if c.metrics != nil {
						c.metrics.InflightChecks.Dec()
					}
				}()
				c.checkOne(gctx, addr, declared[addr])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			c.logger.Warnf("checker: batch error: %v", err)
		}

		if c.logger != nil {
			c.logger.Infof("checker: %s (peak concurrent checks %d)", c.tracker.Report(true), c.concur.Peak(true))
		}
	}
}

// checkOne resolves addr into a Proxy and drives checkProxy against every requested tag.
func (c *Checker) checkOne(ctx context.Context, addr string, tags []proxy.ProtoTag) {
	host, port, ok := splitAddr(addr)
	if !ok {
		return
	}

	c.tracker.CheckStarted(addr, time.Now())
	defer c.tracker.CheckFinished(addr, time.Now())

	if len(tags) == 0 {
		tags = defaultTags
	}
	tags = intersectExpected(tags, c.cfg.ExpectedTypes)
	if len(tags) == 0 {
		return
	}

	p := proxy.New(host, port, tags)

	ip, err := c.resolver.Resolve(ctx, host)
	if err != nil {
		return // 4.E: unresolved host discards the candidate outright
	}
	p.IP = ip.String()

	if geo, err := c.resolver.Geolocate(ctx, ip); err == nil {
		p.Geo = geo
	}

	start := time.Now()
	for _, tag := range tags {
		c.checkProxyTag(ctx, p, addr, tag)
	}
	p.RuntimeMs = time.Since(start).Milliseconds()

	if c.metrics != nil {
		c.metrics.ProxiesChecked.Inc()
	}

	if p.IsWorking() && c.passesFilters(p) {
		if c.metrics != nil {
			c.metrics.ProxiesWorking.Inc()
		}
		c.emit(p)
		if c.cfg.Limit > 0 && c.emitted.Add(1) >= int64(c.cfg.Limit) {
			c.Stop()
		}
	}
}

var defaultTags = []proxy.ProtoTag{proxy.HTTPTag, proxy.Connect80Tag, proxy.Connect25Tag, proxy.HTTPSTag, proxy.SOCKS4Tag, proxy.SOCKS5Tag}

func intersectExpected(tags []proxy.ProtoTag, expected map[proxy.ProtoTag]struct{}) []proxy.ProtoTag {
	if len(expected) == 0 {
		return tags
	}
	out := make([]proxy.ProtoTag, 0, len(tags))
	for _, t := range tags {
		if _, ok := expected[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// checkProxyTag implements the per-proxy routine's inner loop for one tag: up to MaxTries attempts
// against the round-robin judge of the required scheme, recording each attempt and breaking on the
// first success.
func (c *Checker) checkProxyTag(ctx context.Context, p *proxy.Proxy, addr string, tag proxy.ProtoTag) {
	scheme := schemeFor(tag)
	if c.registry.VerifiedCount(scheme) == 0 {
		if c.logger != nil {
			c.logger.Debugf("checker: %s %s: %v", addr, tag, ErrNoJudgeAvailable)
		}
		return // NoJudgeAvailable: per-tag, not retried
	}

	for attempt := uint(0); attempt < c.cfg.MaxTries; attempt++ {
		j, err := c.registry.Best(scheme)
		if err != nil {
			return
		}

		start := time.Now()
		success, level, err := c.attemptOnce(ctx, p, addr, tag, j)
		latency := time.Since(start)

		p.RecordAttempt(tag, success, level, latency)
		c.registry.Result(j, success, start, latency)

		outcome := "error"
		if success {
			outcome = "success"
		}
		if c.metrics != nil {
			c.metrics.Attempts.WithLabelValues(tag.String(), outcome).Inc()
		}
		if c.logger != nil {
			if success {
				c.logger.Debugf("checker: %s %s attempt %d ok level=%s latency=%s", addr, tag, attempt+1, level, latency)
			} else {
				c.logger.Debugf("checker: %s %s attempt %d failed: %v", addr, tag, attempt+1, err)
			}
		}

		if success {
			return
		}
	}
}

// attemptOnce drives one negotiate/send_request cycle against judge j through the proxy at addr.
func (c *Checker) attemptOnce(ctx context.Context, p *proxy.Proxy, addr string, tag proxy.ProtoTag, j *judge.Judge) (bool, classify.Level, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	n := newNegotiator(tag, addr, c.cfg.VerifySSL)
	defer n.Close()

	judgeHost, judgePort, ok := splitAddr(j.Host)
	if !ok {
		return false, classify.None, errStatus(0)
	}

	// SOCKS4 has no hostname support (negotiator.SOCKS4.Negotiate requires a dotted-quad IPv4
	// literal per 4.D); pre-resolve a hostname judge through the same Resolver Run uses for the
	// candidate's own host, rather than letting every SOCKS4 attempt fail against URL-based judges.
	if tag == proxy.SOCKS4Tag {
		ip, err := c.resolver.Resolve(attemptCtx, judgeHost)
		if err != nil {
			return false, classify.None, err
		}
		ip4 := ip.To4()
		if ip4 == nil {
			return false, classify.None, negotiator.ErrUnsupportedTarget
		}
		judgeHost = ip4.String()
	}

	if err := n.Negotiate(attemptCtx, judgeHost, judgePort); err != nil {
		return false, classify.None, err
	}

	headers := c.shapeHeaders()
	resp, err := n.SendRequest(attemptCtx, j.Path, headers)
	if err != nil {
		return false, classify.None, err
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return false, classify.None, errStatus(resp.Status)
	}

	// A 2xx whose body lacks the judge's markers counts as reachable but unclassified.
	body := string(resp.Body)
	if !strings.Contains(body, j.Markers.IPMarker) || !strings.Contains(body, j.Markers.HeaderMarker) {
		return true, classify.None, nil
	}

	level := classify.Classify(body, resp.Headers, c.cfg.ExternalIP)
	return true, level, nil
}

// shapeHeaders builds the request headers sent to the judge: a fixed User-Agent and Accept, plus a
// Referer when SupportReferer is set. No Cookie header is sent whether or not SupportCookies is set.
func (c *Checker) shapeHeaders() http.Header {
	h := http.Header{}
	h.Set("User-Agent", "proxysentry-checker/1.0")
	h.Set("Accept", "*/*")
	if !c.cfg.SupportCookies {
		h.Del("Cookie")
	}
	if c.cfg.SupportReferer {
		h.Set("Referer", "http://www.example.com/")
	}
	return h
}

func (c *Checker) passesFilters(p *proxy.Proxy) bool {
	if len(c.cfg.ExpectedLevels) > 0 {
		ok := false
		for _, pr := range p.Results() {
			if _, want := c.cfg.ExpectedLevels[pr.Anonymity]; want {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	if len(c.cfg.ExpectedCountries) > 0 {
		if _, ok := c.cfg.ExpectedCountries[p.Geo.CountryCode]; !ok {
			return false
		}
	}

	return true
}

type errStatus int

func (e errStatus) Error() string {
	return "checker: unexpected HTTP status"
}

func splitAddr(addr string) (host string, port int, ok bool) {
	ix := lastColon(addr)
	if ix < 0 {
		return "", 0, false
	}
	host = addr[:ix]
	p, err := parsePort(addr[ix+1:])
	if err != nil {
		return "", 0, false
	}
	return host, p, true
}

func lastColon(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ':' {
			return i
		}
	}
	return -1
}

func parsePort(s string) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errStatus(0)
		}
		n = n*10 + int(r-'0')
	}
	if n <= 0 || n > 65535 {
		return 0, errStatus(0)
	}
	return n, nil
}
