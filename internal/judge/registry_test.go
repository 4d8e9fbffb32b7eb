package judge

import (
	"testing"
	"time"
)

func verifiedJudge(t *testing.T, rawURL string) *Judge {
	t.Helper()
	j, err := New(rawURL, DefaultMarkers)
	if err != nil {
		t.Fatalf("New(%q): %v", rawURL, err)
	}
	j.setVerified(true)
	return j
}

func TestRegistryRoundRobin(t *testing.T) {
	first := verifiedJudge(t, "http://judge1.example.com/get")
	second := verifiedJudge(t, "http://judge2.example.com/get")
	third := verifiedJudge(t, "http://judge3.example.com/get")

	r := NewRegistry([]*Judge{first, second, third})
	r.Rebuild()

	now := time.Now()

	j, err := r.Best(HTTP)
	if err != nil || j != first {
		t.Fatalf("expected first judge, got %v err=%v", j, err)
	}

	r.Result(first, true, now, time.Millisecond)
	j, _ = r.Best(HTTP)
	if j != first {
		t.Error("success on current best should not rotate, got", j.URL)
	}

	r.Result(second, false, now, 0) // Failure on a non-best judge must not rotate
	j, _ = r.Best(HTTP)
	if j != first {
		t.Error("failure on non-best should not rotate, got", j.URL)
	}

	r.Result(first, false, now, 0) // Failure on the current best rotates to the next
	j, _ = r.Best(HTTP)
	if j != second {
		t.Error("expected rotation to second judge, got", j.URL)
	}
}

func TestRegistryNoVerifiedJudges(t *testing.T) {
	j, err := New("https://judge.example.com/get", DefaultMarkers) // Never verified
	if err != nil {
		t.Fatal(err)
	}
	r := NewRegistry([]*Judge{j})
	r.Rebuild()

	if _, err := r.Best(HTTPS); err != ErrNotVerified {
		t.Error("expected ErrNotVerified, got", err)
	}
}

func TestRegistrySchemeSeparation(t *testing.T) {
	httpJudge := verifiedJudge(t, "http://judge1.example.com/get")
	httpsJudge := verifiedJudge(t, "https://judge2.example.com/get")

	r := NewRegistry([]*Judge{httpJudge, httpsJudge})
	r.Rebuild()

	j, err := r.Best(HTTP)
	if err != nil || j != httpJudge {
		t.Fatalf("expected httpJudge, got %v err=%v", j, err)
	}

	j, err = r.Best(HTTPS)
	if err != nil || j != httpsJudge {
		t.Fatalf("expected httpsJudge, got %v err=%v", j, err)
	}
}

func TestRegistryReport(t *testing.T) {
	httpJudge := verifiedJudge(t, "http://judge1.example.com/get")
	r := NewRegistry([]*Judge{httpJudge})
	r.Rebuild()

	if r.Name() != "judges" {
		t.Errorf("Name() = %q, want %q", r.Name(), "judges")
	}
	if got := r.Report(false); got == "" {
		t.Error("Report() returned empty string")
	}
}
