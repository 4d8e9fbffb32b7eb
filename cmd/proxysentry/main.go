// proxysentry discovers, validates, and classifies open network proxies.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/trustproxy/proxysentry/internal/constants"
	"github.com/trustproxy/proxysentry/internal/reporter"
)

var (
	consts = constants.Get()

	stdout io.Writer // All I/O goes via these writers, as in the teacher's cmd/* binaries
	stderr io.Writer

	startTime   = time.Now()
	stopChannel chan os.Signal

	programName = consts.FindProgramName // set by runGrab/runFind so fatal() names the right binary
)

func fatal(args ...interface{}) int {
	io.WriteString(stderr, "Fatal: "+programName+": ")
	for i, a := range args {
		if i > 0 {
			io.WriteString(stderr, " ")
		}
		io.WriteString(stderr, toString(a))
	}
	io.WriteString(stderr, "\n")
	return 1
}

func toString(v interface{}) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// mainInit resets process-wide state so mainExecute can be invoked repeatedly within one test
// binary, mirroring the teacher's mainInit/mainExecute split.
func mainInit(out, err io.Writer) {
	stdout = out
	stderr = err
	stopChannel = make(chan os.Signal, 4)
	signal.Notify(stopChannel, syscall.SIGINT, syscall.SIGTERM)
}

func main() {
	mainInit(os.Stdout, os.Stderr)
	os.Exit(mainExecute(os.Args))
}

func mainExecute(args []string) int {
	if len(args) < 2 {
		usage(stderr)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-stopChannel
		cancel()
	}()

	switch args[1] {
	case "grab":
		return runGrab(ctx, args[2:])
	case "find":
		return runFind(ctx, args[2:])
	case "-help", "--help", "help":
		usage(stdout)
		return 0
	default:
		usage(stderr)
		return 1
	}
}

func uptime() time.Duration {
	return time.Since(startTime).Round(time.Second)
}

// nextInterval calculates the duration to the next modulo boundary of interval. If now is 00:01:17
// and interval is 30s, the result is 13s (the duration to 00:01:30).
func nextInterval(now time.Time, interval time.Duration) time.Duration {
	return now.Truncate(interval).Add(interval).Sub(now)
}

// statusReport prints one status line per reporter, prefixed with what (e.g. "Status").
func statusReport(what string, resetCounters bool, reporters []reporter.Reporter) {
	for _, r := range reporters {
		for _, line := range strings.Split(r.Report(resetCounters), "\n") {
			if len(line) > 0 {
				fmt.Fprintf(stderr, "%s %s: %s\n", what, r.Name(), line)
			}
		}
	}
}
