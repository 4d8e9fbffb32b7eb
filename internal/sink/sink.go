/*
Package sink implements the output sink (4.G): it drains a channel of validated proxies and writes
them as either newline-delimited text or a JSON array, using the same io.Writer-based style the
teacher's cmd/* main.go uses for stdout/stderr rather than a buffered file-writer abstraction.

The sink distinguishes normal completion from an upstream stall via an explicit end-of-stream
signal (the record channel being closed) rather than a sentinel value threaded through the record
type itself - simpler to reason about and impossible to confuse with a real record.
*/
package sink

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/trustproxy/proxysentry/internal/classify"
	"github.com/trustproxy/proxysentry/internal/proxy"
)

// Format selects the sink's output encoding.
type Format int

const (
	Text Format = iota
	JSON
)

// ParseFormat maps a --format flag value to a Format. ok is false for unrecognized input.
func ParseFormat(s string) (Format, bool) {
	switch s {
	case "text":
		return Text, true
	case "json":
		return JSON, true
	default:
		return 0, false
	}
}

// record is the JSON shape emitted for one proxy; text output renders the same fields
// space-separated.
type record struct {
	Addr      string `json:"addr"`
	Type      string `json:"type"`
	Level     string `json:"level"`
	Country   string `json:"country,omitempty"`
	RuntimeMs int64  `json:"runtime_ms"`
}

// Write drains records from ch and writes them to w in the requested format until ch is closed. A
// write error aborts immediately and is returned - the caller is expected to treat this as fatal,
// matching the teacher's fatal() convention, since a partial write means silent data loss
// downstream.
func Write(w io.Writer, format Format, ch <-chan *proxy.Proxy) error {
	switch format {
	case JSON:
		return writeJSON(w, ch)
	default:
		return writeText(w, ch)
	}
}

func writeText(w io.Writer, ch <-chan *proxy.Proxy) error {
	for p := range ch {
		for _, rec := range recordsFor(p) {
			country := rec.Country
			if country == "" {
				country = "--" // keeps the text column matching [A-Z-]{2,}, never a lone "-"
			}
			if _, err := fmt.Fprintf(w, "%s %s:%s %s %dms\n", rec.Addr, rec.Type, rec.Level, country, rec.RuntimeMs); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeJSON(w io.Writer, ch <-chan *proxy.Proxy) error {
	if _, err := w.Write([]byte("[")); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	first := true
	for p := range ch {
		for _, rec := range recordsFor(p) {
			if !first {
				if _, err := w.Write([]byte(",")); err != nil {
					return err
				}
			}
			first = false
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
	}
	_, err := w.Write([]byte("]\n"))
	return err
}

// recordsFor flattens a Proxy's per-tag results into one record per tag that actually succeeded,
// since a single candidate can be working on more than one protocol.
func recordsFor(p *proxy.Proxy) []record {
	var out []record
	for tag, pr := range p.Results() {
		if pr.Anonymity == classify.None { // nothing to report for this tag
			continue
		}
		out = append(out, record{
			Addr:      p.Addr(),
			Type:      tag.String(),
			Level:     pr.Anonymity.String(),
			Country:   p.Geo.CountryCode,
			RuntimeMs: p.RuntimeMs,
		})
	}
	return out
}
