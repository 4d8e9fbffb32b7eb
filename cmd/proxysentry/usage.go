package main

import (
	"fmt"
	"io"

	"github.com/trustproxy/proxysentry/internal/config"
)

const usageMessage = `
NAME
          proxysentry -- discover, validate, and classify open network proxies

SYNOPSIS
          proxysentry grab [options]
          proxysentry find [options]

DESCRIPTION
          proxysentry harvests (host, port) proxy candidates from file-based providers, optionally
          validates them against a set of trusted judge endpoints, classifies their anonymity level,
          and emits the working ones as text or JSON.

          grab scrapes providers and prints raw, unvalidated candidates - useful for seeding a
          candidate file or inspecting what a provider would feed into find.

          find scrapes (or reads) candidates, validates each one against the configured judges for
          every requested protocol, and emits only those that pass the configured anonymity and
          country filters. find checks --limit before starting each check, so checks already in
          flight when the limit is reached may still emit up to --max-conn minus one more records.

OPTIONS
          Run 'proxysentry grab -help' or 'proxysentry find -help' for the flags specific to each
          subcommand.
`

func usage(w io.Writer) {
	fmt.Fprint(w, usageMessage)
}

// grabUsage prints the top-level blurb plus grab's own flag defaults, for 'proxysentry grab -help'.
func grabUsage(w io.Writer) {
	fmt.Fprint(w, usageMessage)
	fmt.Fprintln(w, "GRAB OPTIONS")
	config.DescribeGrabFlags(w)
}

// findUsage prints the top-level blurb plus find's own flag defaults, for 'proxysentry find -help'.
func findUsage(w io.Writer) {
	fmt.Fprint(w, usageMessage)
	fmt.Fprintln(w, "FIND OPTIONS")
	config.DescribeFindFlags(w)
}
