package proxy

import (
	"testing"
	"time"

	"github.com/trustproxy/proxysentry/internal/classify"
)

func TestRecordAttemptAccumulates(t *testing.T) {
	p := New("203.0.113.9", 8080, []ProtoTag{HTTPTag})

	p.RecordAttempt(HTTPTag, true, classify.HighAnonymous, 100*time.Millisecond)
	p.RecordAttempt(HTTPTag, true, classify.Anonymous, 300*time.Millisecond)
	p.RecordAttempt(HTTPTag, false, classify.None, 0)

	pr, ok := p.Result(HTTPTag)
	if !ok {
		t.Fatal("expected a result for HTTPTag")
	}
	if pr.Attempts != 3 || pr.Errors != 1 {
		t.Errorf("got attempts=%d errors=%d", pr.Attempts, pr.Errors)
	}
	if pr.Anonymity != classify.Anonymous {
		t.Errorf("expected last-success anonymity Anonymous, got %v", pr.Anonymity)
	}
	if got := pr.AvgResponseMs(); got != 200 {
		t.Errorf("AvgResponseMs() = %v, want 200 (mean over successes only)", got)
	}
}

func TestIsWorkingRequiresNonNoneAnonymity(t *testing.T) {
	p := New("203.0.113.9", 1080, []ProtoTag{SOCKS5Tag})
	if p.IsWorking() {
		t.Error("fresh proxy should not be working")
	}

	p.RecordAttempt(SOCKS5Tag, false, classify.None, 0)
	if p.IsWorking() {
		t.Error("proxy with only failed attempts should not be working")
	}

	p.RecordAttempt(SOCKS5Tag, true, classify.Transparent, 50*time.Millisecond)
	if !p.IsWorking() {
		t.Error("proxy with a successful attempt should be working")
	}
}

func TestAddrFormat(t *testing.T) {
	p := New("198.51.100.5", 3128, nil)
	if p.Addr() != "198.51.100.5:3128" {
		t.Errorf("got %q", p.Addr())
	}
}

func TestParseProtoTag(t *testing.T) {
	cases := map[string]ProtoTag{
		"http": HTTPTag, "https": HTTPSTag, "socks4": SOCKS4Tag, "socks5": SOCKS5Tag,
		"connect:80": Connect80Tag, "connect:25": Connect25Tag,
	}
	for s, want := range cases {
		got, ok := ParseProtoTag(s)
		if !ok || got != want {
			t.Errorf("ParseProtoTag(%q) = %v, %v; want %v, true", s, got, ok, want)
		}
	}
	if _, ok := ParseProtoTag("bogus"); ok {
		t.Error("expected ok=false for unrecognized tag")
	}
}
