package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/gops/agent"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/http2"

	"github.com/trustproxy/proxysentry/internal/checker"
	"github.com/trustproxy/proxysentry/internal/classify"
	"github.com/trustproxy/proxysentry/internal/config"
	"github.com/trustproxy/proxysentry/internal/judge"
	"github.com/trustproxy/proxysentry/internal/log"
	"github.com/trustproxy/proxysentry/internal/metrics"
	"github.com/trustproxy/proxysentry/internal/osutil"
	"github.com/trustproxy/proxysentry/internal/proxy"
	"github.com/trustproxy/proxysentry/internal/provider"
	"github.com/trustproxy/proxysentry/internal/queue"
	"github.com/trustproxy/proxysentry/internal/reporter"
	"github.com/trustproxy/proxysentry/internal/resolver"
	"github.com/trustproxy/proxysentry/internal/sink"
	"github.com/trustproxy/proxysentry/internal/tlsutil"
)

// runFind implements the find subcommand: scrape (or read files), validate every candidate against
// the configured judges, and emit the working ones.
func runFind(ctx context.Context, args []string) int {
	programName = consts.FindProgramName

	cfg, err := config.ParseFind(args)
	if err != nil {
		return 1
	}
	if cfg.Help {
		findUsage(stdout)
		return 0
	}
	if err := cfg.Validate(); err != nil {
		return fatal(err)
	}

	logger := cfg.NewLogger()

	if cfg.Gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			logger.Warnf("find: gops agent: %v", err)
		}
	}

	if err := osutil.Constrain(cfg.SetuidName, cfg.SetgidName, cfg.ChrootDir); err != nil {
		return fatal(err)
	}

	judges, err := loadJudges(cfg)
	if err != nil {
		return fatal(err)
	}
	if len(judges) == 0 {
		return fatal("find requires at least one judge: --judges URL or --judges-file PATH")
	}

	res := resolver.New(cfg.DNSServer, consts.GeoAPIURLTemplate, nil)

	externalIP, err := fetchExternalIP(ctx, consts.ExternalIPEchoURL)
	if err != nil {
		logger.Warnf("find: could not determine external IP: %v", err)
	}

	verifyTLSConfig, err := judgeVerifyTLSConfig(cfg)
	if err != nil {
		return fatal(err)
	}
	verifyClient := &http.Client{Timeout: consts.JudgeVerifyTimeout}
	tr := &http.Transport{TLSClientConfig: verifyTLSConfig}
	if err := http2.ConfigureTransport(tr); err != nil {
		logger.Warnf("find: http2.ConfigureTransport: %v", err)
	} else {
		verifyClient.Transport = tr
	}
	judge.VerifyAll(ctx, verifyClient, judges, externalIP, consts.JudgeVerifyTimeout)

	registry := judge.NewRegistry(judges)
	registry.Rebuild()
	if registry.VerifiedCount(judge.HTTP) == 0 && registry.VerifiedCount(judge.HTTPS) == 0 {
		return fatal("find: no judges verified")
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	q := queue.New()
	for _, p := range buildFindProviders(cfg, logger) {
		go p.Run(ctx, q)
	}

	out := stdout
	if cfg.Outfile != "" {
		f, err := os.Create(cfg.Outfile)
		if err != nil {
			return fatal(err)
		}
		defer f.Close()
		out = f
	}

	format, ok := sink.ParseFormat(cfg.Format)
	if !ok {
		return fatal(fmt.Sprintf("find: unrecognized --format %q", cfg.Format))
	}

	recordCh := make(chan *proxy.Proxy, 64)

	chk := checker.New(checkerConfig(cfg, externalIP), q, registry, res, m, logger, func(p *proxy.Proxy) {
		recordCh <- p
	})

	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, reg)
		go srv.ListenAndServe(ctx)
	}

	reporters := append([]reporter.Reporter{registry, q}, chk.Reporters()...)
	go runStatusReports(ctx, reporters)

	go func() {
		chk.Run(ctx, nil)
		close(recordCh)
	}()

	if err := sink.Write(out, format, recordCh); err != nil {
		return fatal(err)
	}

	statusReport("Status", true, reporters) // one last report prior to exiting
	fmt.Fprintln(stderr, consts.FindProgramName, consts.Version, "exiting after", uptime())

	return 0
}

// runStatusReports prints a periodic status line (per the teacher's nextInterval/statusReport
// convention in cmd/trustydns-proxy) until ctx is cancelled.
func runStatusReports(ctx context.Context, reporters []reporter.Reporter) {
	next := nextInterval(time.Now(), consts.StatusInterval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(next):
			statusReport("Status", true, reporters)
			next = nextInterval(time.Now(), consts.StatusInterval)
		}
	}
}

func buildFindProviders(cfg *config.Config, logger *log.Logger) []provider.Provider {
	if cfg.Files.NArg() == 0 {
		return nil
	}
	if cfg.Watch {
		return []provider.Provider{provider.NewWatchFileProvider(cfg.Files.Args(), logger)}
	}
	return []provider.Provider{provider.NewFileProvider(cfg.Files.Args(), 0)}
}

func loadJudges(cfg *config.Config) ([]*judge.Judge, error) {
	var judges []*judge.Judge
	for _, u := range cfg.Judges.Args() {
		j, err := judge.New(u, judge.DefaultMarkers)
		if err != nil {
			return nil, err
		}
		judges = append(judges, j)
	}
	if cfg.JudgesFile != "" {
		fromFile, err := config.LoadJudgesFile(cfg.JudgesFile)
		if err != nil {
			return nil, err
		}
		judges = append(judges, fromFile...)
	}
	return judges, nil
}

func checkerConfig(cfg *config.Config, externalIP string) checker.Config {
	expectedTypes := map[proxy.ProtoTag]struct{}{}
	for _, s := range cfg.Types.Args() {
		if tag, ok := proxy.ParseProtoTag(s); ok {
			expectedTypes[tag] = struct{}{}
		}
	}

	expectedLevels := map[classify.Level]struct{}{}
	for _, s := range cfg.Levels.Args() {
		switch s {
		case "transparent":
			expectedLevels[classify.Transparent] = struct{}{}
		case "anonymous":
			expectedLevels[classify.Anonymous] = struct{}{}
		case "high_anonymous":
			expectedLevels[classify.HighAnonymous] = struct{}{}
		}
	}

	expectedCountries := map[string]struct{}{}
	for _, s := range cfg.Countries.Args() {
		expectedCountries[s] = struct{}{}
	}

	return checker.Config{
		MaxTries:          cfg.MaxTries,
		Timeout:           cfg.Timeout,
		MaxConn:           cfg.MaxConn,
		ExpectedTypes:     expectedTypes,
		ExpectedLevels:    expectedLevels,
		ExpectedCountries: expectedCountries,
		SupportCookies:    cfg.SupportCookies,
		SupportReferer:    cfg.SupportReferer,
		VerifySSL:         cfg.VerifySSL,
		Limit:             cfg.Limit,
		ExternalIP:        externalIP,
	}
}

// judgeVerifyTLSConfig builds the tls.Config for the client that verifies https:// judges at
// startup. With --verify-ssl it defers to tlsutil.NewClientTLSConfig, loading --tls-other-roots and
// presenting --tls-cert/--tls-key the same way the teacher's trustydns-proxy builds its DoH client's
// TLS config. Without --verify-ssl, judge certificates are never checked, matching the negotiator's
// own --verify-ssl=false handling of self-signed judges at check time.
func judgeVerifyTLSConfig(cfg *config.Config) (*tls.Config, error) {
	if !cfg.VerifySSL {
		return tlsutil.NewNegotiatorTLSConfig(false, ""), nil
	}
	return tlsutil.NewClientTLSConfig(cfg.TLSUseSystemRoots, cfg.TLSOtherRootsFiles.Args(),
		cfg.TLSClientCertFile, cfg.TLSClientKeyFile)
}

// fetchExternalIP performs a single plain-text GET against an IP-echo service (api.ipify.org with
// no query params returns just the address) to learn this process's own egress IP, used both for
// judge verification and the Transparent anonymity check.
func fetchExternalIP(ctx context.Context, echoURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, echoURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
