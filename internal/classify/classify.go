/*
Package classify implements anonymity classification (section 3): given a judge's echoed response body
and headers plus the checking machine's own external IP, decide whether a proxy is Transparent,
Anonymous, or HighAnonymous.

The header names scanned are the usual proxy-identifying set gathered from the proxy-pool
validator examples retrieved alongside the teacher (Via, X-Forwarded-For, Proxy-Connection,
X-Proxy-Id and friends); net/http.Header lookups are already case-insensitive so no extra
normalization is needed on the judge's response headers.
*/
package classify

import (
	"net/http"
	"strings"
)

// Level is a proxy's anonymity classification.
type Level int

const (
	// None means the proxy could not be verified against any judge.
	None Level = iota
	Transparent
	Anonymous
	HighAnonymous
)

func (l Level) String() string {
	switch l {
	case Transparent:
		return "transparent"
	case Anonymous:
		return "anonymous"
	case HighAnonymous:
		return "high_anonymous"
	default:
		return "none"
	}
}

// proxyHeaders are header names a judge might see added or forwarded by an intermediate proxy.
// Presence of any of these (without the real IP also appearing in the body) marks a proxy
// Anonymous rather than HighAnonymous.
var proxyHeaders = []string{
	"Via",
	"X-Forwarded-For",
	"X-Forwarded",
	"Forwarded-For",
	"Forwarded",
	"Proxy-Connection",
	"X-Proxy-Id",
	"X-Proxy-Connection",
	"Client-Ip",
	"X-Client-Ip",
}

// Classify determines the anonymity level of a proxy from the judge's response. body is the raw
// response body the judge returned (e.g. the echoed request headers/origin page); headers are the
// judge response's HTTP headers; externalIP is the checking machine's own public IP address, as
// fetched once at startup from the external IP echo service.
func Classify(body string, headers http.Header, externalIP string) Level {
	trimmed := strings.TrimSpace(body)

	if externalIP != "" && strings.Contains(trimmed, externalIP) {
		return Transparent
	}

	for _, name := range proxyHeaders {
		if headers.Get(name) != "" {
			return Anonymous
		}
	}
	if bodyMentionsProxyMarker(trimmed) {
		return Anonymous
	}

	return HighAnonymous
}

// bodyMentionsProxyMarker catches judges that echo proxy-identifying headers back into the
// response body rather than (or in addition to) the response headers.
func bodyMentionsProxyMarker(body string) bool {
	lower := strings.ToLower(body)
	for _, name := range proxyHeaders {
		if strings.Contains(lower, strings.ToLower(name)) {
			return true
		}
	}
	return false
}
