/*
Package provider implements the candidate sources (4.H): components that feed "host:port" strings
into the candidate queue. A file provider rereads a static candidate list on a fixed cadence; a
watching variant instead reacts to filesystem change events via github.com/fsnotify/fsnotify
(picked up from the retrieved corpus's file-driven configuration examples) so an operator editing
the candidate list sees it picked up immediately instead of waiting for the next tick.

The file provider's cadence mirrors the teacher's own status-report loop in cmd/trustydns-proxy:
each tick waits for the next interval boundary computed by nextInterval on a select loop, rather
than using a time.Ticker.
*/
package provider

import (
	"bufio"
	"context"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/trustproxy/proxysentry/internal/constants"
	"github.com/trustproxy/proxysentry/internal/queue"
)

// candidateLine matches a "host:port" candidate where host is a dotted-quad IPv4 literal, per the
// strict format the line-oriented candidate files use.
var candidateLine = regexp.MustCompile(`^(?:(?:25[0-5]|2[0-4]\d|[01]?\d?\d)\.){3}(?:25[0-5]|2[0-4]\d|[01]?\d?\d):\d{1,5}$`)

// Provider feeds candidate addresses into q until ctx is cancelled.
type Provider interface {
	Run(ctx context.Context, q *queue.Queue) error
}

// FileProvider rereads one or more candidate files on each Run tick and pushes every well-formed,
// not-yet-seen address into the queue.
type FileProvider struct {
	paths   []string
	cadence time.Duration
}

// NewFileProvider constructs a FileProvider over the given candidate file paths, reloading every
// cadence. A zero cadence defaults to the provider's default reload cadence.
func NewFileProvider(paths []string, cadence time.Duration) *FileProvider {
	if cadence <= 0 {
		cadence = constants.Get().DefaultProviderCadence
	}
	return &FileProvider{paths: paths, cadence: cadence}
}

// LoadOnce reads every configured file a single time, pushing well-formed candidates into q. It
// returns the count of newly admitted (not already queued) addresses.
func (f *FileProvider) LoadOnce(q *queue.Queue) (int, error) {
	admitted := 0
	for _, path := range f.paths {
		n, err := loadFile(path, q)
		if err != nil {
			return admitted, err
		}
		admitted += n
	}
	return admitted, nil
}

func loadFile(path string, q *queue.Queue) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	admitted := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !candidateLine.MatchString(line) {
			continue
		}
		if !validPort(line) {
			continue
		}
		if q.PushUnique(line) {
			admitted++
		}
	}
	return admitted, scanner.Err()
}

// validPort rejects "host:port" lines whose port is outside 1-65535, a check the regex alone
// cannot express (it bounds digit count, not numeric range).
func validPort(addr string) bool {
	ix := strings.LastIndex(addr, ":")
	if ix < 0 {
		return false
	}
	port, err := strconv.Atoi(addr[ix+1:])
	return err == nil && port > 0 && port <= 65535
}

// Run implements Provider by loading once at startup and then again on every cadence boundary,
// aligned via nextInterval the way the teacher's status-report loop aligns its own ticks, until ctx
// is cancelled.
func (f *FileProvider) Run(ctx context.Context, q *queue.Queue) error {
	if _, err := f.LoadOnce(q); err != nil {
		return err
	}
	tickForever(ctx, f.cadence, func() {
		f.LoadOnce(q)
	})
	return ctx.Err()
}
