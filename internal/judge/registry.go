package judge

import (
	"fmt"
	"sync"
	"time"
)

// Registry partitions verified judges by scheme and picks one per check via a round-robin-on-
// failure algorithm - the "traditional" selection from trustydns' bestserver package, applied here
// to judges instead of DoH servers: the first judge of the requested scheme is used until a failed
// Result() against the current judge rotates the registry on to the next one of that scheme.
type Registry struct {
	all []*Judge

	mu        sync.Mutex
	byScheme  map[Scheme][]*Judge
	bestIndex map[Scheme]int
}

// NewRegistry builds a Registry from a list of not-yet-verified judges. Call Verify (via VerifyAll)
// before Best is of any use - an unverified judge is never returned by Best.
func NewRegistry(judges []*Judge) *Registry {
	return &Registry{all: judges}
}

// Judges returns every judge known to the registry, verified or not, in construction order.
func (r *Registry) Judges() []*Judge {
	out := make([]*Judge, len(r.all))
	copy(out, r.all)
	return out
}

// Rebuild partitions the (now-verified) judges by scheme. Call once after VerifyAll.
func (r *Registry) Rebuild() {
	byScheme := map[Scheme][]*Judge{}
	for _, j := range r.all {
		if !j.Verified() {
			continue
		}
		byScheme[j.Scheme] = append(byScheme[j.Scheme], j)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byScheme = byScheme
	r.bestIndex = map[Scheme]int{}
}

// Best returns the current round-robin judge for scheme, or ErrNotVerified if none of that scheme
// verified. Mirrors bestserver.Manager.Best: repeated calls with no intervening Result() return the
// same judge.
func (r *Registry) Best(scheme Scheme) (*Judge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.byScheme[scheme]
	if len(list) == 0 {
		return nil, ErrNotVerified
	}

	return list[r.bestIndex[scheme]], nil
}

// Result records the outcome of using judge j for a check. A failure against the current "best"
// judge of its scheme rotates the registry to the next judge of that scheme; success, or a report
// about a non-best judge, has no effect on rotation. now and latency are accepted for interface
// symmetry with a future latency-weighted algorithm but are otherwise unused by this round-robin
// implementation.
func (r *Registry) Result(j *Judge, success bool, now time.Time, latency time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.byScheme[j.Scheme]
	if len(list) == 0 {
		return false
	}

	ix := -1
	for i, cand := range list {
		if cand == j {
			ix = i
			break
		}
	}
	if ix == -1 {
		return false
	}

	if success {
		return true
	}

	if ix == r.bestIndex[j.Scheme] {
		r.bestIndex[j.Scheme] = (ix + 1) % len(list)
	}

	return true
}

// VerifiedCount returns how many judges of scheme verified, used by the checker to decide whether
// NoJudgeAvailable should short-circuit a whole ProtoTag up front.
func (r *Registry) VerifiedCount(scheme Scheme) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byScheme[scheme])
}

// Name implements reporter.Reporter.
func (r *Registry) Name() string { return "judges" }

// Report implements reporter.Reporter. resetCounters has no effect - verified counts and rotation
// position are current state, not accumulators.
func (r *Registry) Report(resetCounters bool) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("judges: %d http verified, %d https verified", len(r.byScheme[HTTP]), len(r.byScheme[HTTPS]))
}
