package classify

import (
	"net/http"
	"testing"
)

func TestClassifyTransparent(t *testing.T) {
	body := `{"origin":"203.0.113.9"}`
	lvl := Classify(body, http.Header{}, "203.0.113.9")
	if lvl != Transparent {
		t.Errorf("got %v, want Transparent", lvl)
	}
}

func TestClassifyAnonymousViaHeader(t *testing.T) {
	h := http.Header{}
	h.Set("Via", "1.1 proxy")
	lvl := Classify(`{"origin":"198.51.100.5"}`, h, "203.0.113.9")
	if lvl != Anonymous {
		t.Errorf("got %v, want Anonymous", lvl)
	}
}

func TestClassifyAnonymousBodyMarker(t *testing.T) {
	body := `{"headers":{"X-Forwarded-For":"198.51.100.5"}}`
	lvl := Classify(body, http.Header{}, "203.0.113.9")
	if lvl != Anonymous {
		t.Errorf("got %v, want Anonymous", lvl)
	}
}

func TestClassifyHighAnonymous(t *testing.T) {
	body := `{"origin":"198.51.100.5"}`
	lvl := Classify(body, http.Header{}, "203.0.113.9")
	if lvl != HighAnonymous {
		t.Errorf("got %v, want HighAnonymous", lvl)
	}
}

func TestLevelString(t *testing.T) {
	cases := map[Level]string{None: "none", Transparent: "transparent", Anonymous: "anonymous", HighAnonymous: "high_anonymous"}
	for lvl, want := range cases {
		if got := lvl.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", lvl, got, want)
		}
	}
}
