package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/trustproxy/proxysentry/internal/config"
	"github.com/trustproxy/proxysentry/internal/provider"
	"github.com/trustproxy/proxysentry/internal/queue"
)

// runGrab implements the grab subcommand: scrape providers and emit raw candidates without
// validation.
func runGrab(ctx context.Context, args []string) int {
	programName = consts.GrabProgramName

	cfg, err := config.ParseGrab(args)
	if err != nil {
		return 1 // flag package already printed the error
	}
	if cfg.Help {
		grabUsage(stdout)
		return 0
	}
	if err := cfg.Validate(); err != nil {
		return fatal(err)
	}
	if cfg.Files.NArg() == 0 {
		return fatal("grab requires at least one --files PATH")
	}

	logger := cfg.NewLogger()

	out := stdout
	if cfg.Outfile != "" {
		f, err := os.Create(cfg.Outfile)
		if err != nil {
			return fatal(err)
		}
		defer f.Close()
		out = f
	}

	q := queue.New()

	if cfg.Watch {
		wp := provider.NewWatchFileProvider(cfg.Files.Args(), logger)
		go wp.Run(ctx, q)
	} else {
		fp := provider.NewFileProvider(cfg.Files.Args(), 0)
		if _, err := fp.LoadOnce(q); err != nil {
			return fatal(err)
		}
	}

	emitted := 0
	for {
		addr, ok := q.Pop()
		if !ok {
			if !cfg.Watch {
				break
			}
			select {
			case <-ctx.Done():
				return 0
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		if cfg.Format == "json" {
			fmt.Fprintf(out, "{\"addr\":%q}\n", addr)
		} else {
			fmt.Fprintln(out, addr)
		}

		emitted++
		if cfg.Limit > 0 && emitted >= cfg.Limit {
			break
		}
	}

	return 0
}
