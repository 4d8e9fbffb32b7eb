package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Warn)

	l.Debugf("debug line")
	l.Infof("info line")
	l.Warnf("warn line %d", 1)
	l.Errorf("error line")

	out := buf.String()
	if strings.Contains(out, "debug line") || strings.Contains(out, "info line") {
		t.Error("expected debug/info to be filtered out, got", out)
	}
	if !strings.Contains(out, "warn line 1") {
		t.Error("expected warn line to be emitted, got", out)
	}
	if !strings.Contains(out, "error line") {
		t.Error("expected error line to be emitted, got", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{"debug": Debug, "info": Info, "warn": Warn, "error": Error, "bogus": Info}
	for s, want := range cases {
		if got := ParseLevel(s); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", s, got, want)
		}
	}
}
