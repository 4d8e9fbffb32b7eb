/*
Package constants provides common values used across all proxysentry packages. Usage is to call the
global Get() function which returns the Constants by value ensuring that any modifications made
(accidental or otherwise) will not affect other modules when they call Get().

Typical usage:

    consts := constants.Get()
    fmt.Println("I am", consts.FindProgramName, "based on", consts.PackageURL)

The primary reason for making this a constructed struct rather than the more typical const () block
is so that it can be fed directly into templating packages for printing usage messages.
*/
package constants

import "time"

// Constants contains the system-wide constants
type Constants struct {
	GrabProgramName string // cmd related constants
	FindProgramName string
	Version         string
	PackageName     string
	PackageURL      string

	DefaultBatchSize       int // Candidates drained from the queue per Checker iteration
	DefaultMaxTries        uint
	DefaultMaxConn         int
	DefaultTimeout         time.Duration
	DefaultProviderCadence time.Duration

	JudgeVerifyTimeout time.Duration
	MaxJudgeBodyBytes  int64 // Cap on bytes read from any judge/proxy response

	ExternalIPEchoURL string // Used once at startup to learn our own egress IP
	GeoAPIURLTemplate string // printf template with one %s for the IP, used by the resolver's Geolocate

	ConnectionHeader      string // HTTP header names, canonical form per net/http
	ViaHeader             string
	XForwardedForHeader   string
	ProxyConnectionHeader string
	XProxyIDHeader        string
	UserAgentHeader       string
	AcceptHeader          string

	UserAgentValue string

	StatusInterval time.Duration
}

var readOnlyConstants *Constants

// createReadOnlyConstants creates a read-only copy of the Constants which is copied whenever a
// caller asks for the constants set. The main reason for returning a struct is so that callers can
// inspect and/or use packages that introspect - particularly */template packages.
func createReadOnlyConstants() {
	readOnlyConstants = &Constants{
		GrabProgramName: "proxysentry-grab",
		FindProgramName: "proxysentry-find",
		Version:         "v0.1.0",
		PackageName:     "Proxy Sentry",
		PackageURL:      "https://github.com/trustproxy/proxysentry",

		DefaultBatchSize:       5000,
		DefaultMaxTries:        2,
		DefaultMaxConn:         64,
		DefaultTimeout:         8 * time.Second,
		DefaultProviderCadence: 10 * time.Second,

		JudgeVerifyTimeout: 5 * time.Second,
		MaxJudgeBodyBytes:  64 * 1024, // 64 KiB cap per the read-to-EOF-or-cap rule

		ExternalIPEchoURL: "https://api.ipify.org",
		GeoAPIURLTemplate: "http://ip-api.com/json/%s",

		ConnectionHeader:      "Connection",
		ViaHeader:             "Via",
		XForwardedForHeader:   "X-Forwarded-For",
		ProxyConnectionHeader: "Proxy-Connection",
		XProxyIDHeader:        "X-Proxy-Id",
		UserAgentHeader:       "User-Agent",
		AcceptHeader:          "Accept",

		UserAgentValue: "proxysentry/v0.1.0 (+https://github.com/trustproxy/proxysentry)",

		StatusInterval: 30 * time.Second,
	}
}

func init() {
	createReadOnlyConstants()
}

// Get returns a copy of the Constants struct. Return by value so internal values cannot be
// inadvertently changed by callers.
func Get() Constants {
	return *readOnlyConstants
}
