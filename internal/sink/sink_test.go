package sink

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/trustproxy/proxysentry/internal/classify"
	"github.com/trustproxy/proxysentry/internal/proxy"
)

func sampleProxy() *proxy.Proxy {
	p := proxy.New("203.0.113.9", 8080, []proxy.ProtoTag{proxy.HTTPTag})
	p.RecordAttempt(proxy.HTTPTag, true, classify.HighAnonymous, 120*time.Millisecond)
	p.Geo.CountryCode = "US"
	p.RuntimeMs = 150
	return p
}

func TestWriteTextFormat(t *testing.T) {
	var buf bytes.Buffer
	ch := make(chan *proxy.Proxy, 1)
	ch <- sampleProxy()
	close(ch)

	if err := Write(&buf, Text, ch); err != nil {
		t.Fatal(err)
	}
	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, "203.0.113.9:8080") || !strings.Contains(line, "http:high_anonymous") || !strings.Contains(line, "US") {
		t.Errorf("unexpected text output: %q", line)
	}
}

func TestWriteJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	ch := make(chan *proxy.Proxy, 1)
	ch <- sampleProxy()
	close(ch)

	if err := Write(&buf, JSON, ch); err != nil {
		t.Fatal(err)
	}

	var records []map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &records); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if len(records) != 1 || records[0]["addr"] != "203.0.113.9:8080" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestParseFormat(t *testing.T) {
	if f, ok := ParseFormat("text"); !ok || f != Text {
		t.Errorf("ParseFormat(text) = %v, %v", f, ok)
	}
	if f, ok := ParseFormat("json"); !ok || f != JSON {
		t.Errorf("ParseFormat(json) = %v, %v", f, ok)
	}
	if _, ok := ParseFormat("xml"); ok {
		t.Error("expected ok=false for unrecognized format")
	}
}
