package metrics

import (
	"testing"
	"time"
)

func TestCheckTrackerPeakConcurrency(t *testing.T) {
	tr := NewCheckTracker("test")
	now := time.Now()

	tr.CheckStarted("a:1", now)
	tr.CheckStarted("b:2", now)
	if tr.peakConcurrent != 2 {
		t.Errorf("peakConcurrent = %d, want 2", tr.peakConcurrent)
	}

	tr.CheckFinished("a:1", now.Add(time.Second))
	tr.CheckStarted("c:3", now.Add(time.Second))
	if tr.peakConcurrent != 2 {
		t.Errorf("peakConcurrent should stay at 2, got %d", tr.peakConcurrent)
	}
	if len(tr.inFlight) != 2 {
		t.Errorf("expected 2 in flight, got %d", len(tr.inFlight))
	}
}

func TestCheckTrackerFinishWithoutStartCountsError(t *testing.T) {
	tr := NewCheckTracker("test")
	tr.CheckFinished("ghost:1", time.Now())
	if tr.errors != 1 {
		t.Errorf("expected 1 error, got %d", tr.errors)
	}
}

func TestCheckTrackerReportResetsOnRequest(t *testing.T) {
	tr := NewCheckTracker("test")
	now := time.Now()
	tr.CheckStarted("a:1", now)
	tr.CheckFinished("a:1", now.Add(time.Millisecond))

	tr.Report(true)
	if tr.totalChecks != 0 || tr.peakConcurrent != 0 {
		t.Error("expected counters to reset after Report(true)")
	}
}

func TestCheckTrackerName(t *testing.T) {
	tr := NewCheckTracker("checker-1")
	if tr.Name() != "checker-1" {
		t.Errorf("Name() = %q", tr.Name())
	}
}
