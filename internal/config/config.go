/*
Package config parses the CLI flags shared by the grab and find subcommands, plus the optional
--judges-file YAML document. Flag parsing reuses internal/flagutil.StringValue and CSVValue
verbatim for every repeated/multi-valued flag, the same way the teacher's cmd/trustydns-proxy shares
that package between --listen and --local-domains.
*/
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/trustproxy/proxysentry/internal/constants"
	"github.com/trustproxy/proxysentry/internal/flagutil"
	"github.com/trustproxy/proxysentry/internal/log"
)

// Config holds every flag recognized by the find subcommand. grab uses a strict subset (see
// newGrabFlagSet).
type Config struct {
	Help    bool
	Version bool
	Gops    bool

	Format  string // "text" or "json"
	Limit   int    // 0 = unlimited
	Outfile string
	Watch   bool

	Files  flagutil.StringValue
	Judges flagutil.StringValue

	JudgesFile string

	Types     flagutil.CSVValue
	Levels    flagutil.CSVValue
	Countries flagutil.CSVValue

	SupportCookies bool
	SupportReferer bool
	VerifySSL      bool

	TLSClientCertFile  string
	TLSClientKeyFile   string
	TLSOtherRootsFiles flagutil.StringValue
	TLSUseSystemRoots  bool

	MaxTries uint
	MaxConn  int
	Timeout  time.Duration

	LogLevel string

	MetricsAddr string
	DNSServer   string

	SetuidName string
	SetgidName string
	ChrootDir  string
}

// ParseGrab parses the flags recognized by the grab subcommand: a small subset of Config's full
// flag set, since grab never validates candidates and so never needs judges, retries, or anonymity
// filters.
func ParseGrab(args []string) (*Config, error) {
	cfg := &Config{}
	fs := newGrabFlagSet(cfg)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newGrabFlagSet(cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("grab", flag.ContinueOnError)
	bindCommonFlags(fs, cfg)
	fs.Var(&cfg.Files, "files", "candidate file `path` (repeatable)")
	fs.BoolVar(&cfg.Watch, "watch", false, "reload candidate files on change via fsnotify")
	return fs
}

// DescribeGrabFlags writes the grab subcommand's flag defaults to w, for the grab -help path.
func DescribeGrabFlags(w io.Writer) {
	fs := newGrabFlagSet(&Config{})
	fs.SetOutput(w)
	fs.PrintDefaults()
}

// ParseFind parses the full flag set recognized by the find subcommand.
func ParseFind(args []string) (*Config, error) {
	cfg := defaultFindConfig()
	fs := newFindFlagSet(cfg)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultFindConfig() *Config {
	c := constants.Get()
	return &Config{
		MaxTries: c.DefaultMaxTries,
		MaxConn:  c.DefaultMaxConn,
		Timeout:  c.DefaultTimeout,
		LogLevel: "info",
	}
}

func newFindFlagSet(cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("find", flag.ContinueOnError)
	bindCommonFlags(fs, cfg)

	fs.Var(&cfg.Files, "files", "candidate file `path` (repeatable)")
	fs.BoolVar(&cfg.Watch, "watch", false, "reload candidate files on change via fsnotify")
	fs.Var(&cfg.Judges, "judges", "judge `URL` (repeatable)")
	fs.StringVar(&cfg.JudgesFile, "judges-file", "", "YAML `path` listing judge URLs and marker overrides")

	fs.Var(&cfg.Types, "types", "comma-separated protocol tags to accept (http,https,socks4,socks5)")
	fs.Var(&cfg.Levels, "levels", "comma-separated anonymity levels to accept (transparent,anonymous,high_anonymous)")
	fs.Var(&cfg.Countries, "countries", "comma-separated ISO country codes to accept")

	fs.BoolVar(&cfg.SupportCookies, "support-cookies", false, "has no effect: judge requests carry no Cookie header either way")
	fs.BoolVar(&cfg.SupportReferer, "support-referer", false, "send a Referer header on judge requests")
	fs.BoolVar(&cfg.VerifySSL, "verify-ssl", true, "validate judge/target certificates against the system root pool")

	fs.StringVar(&cfg.TLSClientCertFile, "tls-cert", "", "TLS client certificate `file` presented to HTTPS judges")
	fs.StringVar(&cfg.TLSClientKeyFile, "tls-key", "", "TLS client key `file` matching --tls-cert")
	fs.Var(&cfg.TLSOtherRootsFiles, "tls-other-roots", "non-system root CA `file` used to validate HTTPS judges (repeatable)")
	fs.BoolVar(&cfg.TLSUseSystemRoots, "tls-use-system-roots", true, "trust the system root CA pool in addition to --tls-other-roots")

	fs.UintVar(&cfg.MaxTries, "max-tries", cfg.MaxTries, "maximum attempts per protocol tag")
	fs.IntVar(&cfg.MaxConn, "max-conn", cfg.MaxConn, "maximum concurrent in-flight checks")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-attempt `timeout`")

	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "minimum log level: debug, info, warn, error")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "listen `address` for the Prometheus /metrics endpoint")

	fs.StringVar(&cfg.DNSServer, "dns-server", "", "nameserver `host:port` to query directly (default: first server in /etc/resolv.conf)")

	fs.StringVar(&cfg.SetuidName, "setuid", "", "drop privileges to this user after startup")
	fs.StringVar(&cfg.SetgidName, "setgid", "", "drop privileges to this group after startup")
	fs.StringVar(&cfg.ChrootDir, "chroot", "", "chroot to this directory after startup")

	return fs
}

// DescribeFindFlags writes the find subcommand's flag defaults to w, for the find -help path.
func DescribeFindFlags(w io.Writer) {
	fs := newFindFlagSet(defaultFindConfig())
	fs.SetOutput(w)
	fs.PrintDefaults()
}

func bindCommonFlags(fs *flag.FlagSet, cfg *Config) {
	fs.BoolVar(&cfg.Help, "help", false, "print usage and exit")
	fs.BoolVar(&cfg.Version, "version", false, "print version and exit")
	fs.BoolVar(&cfg.Gops, "gops", false, "start the gops diagnostic agent")

	fs.StringVar(&cfg.Format, "format", "text", "output format: text or json")
	fs.IntVar(&cfg.Limit, "limit", 0, "stop after emitting this many records (0 = unlimited)")
	fs.StringVar(&cfg.Outfile, "outfile", "", "write output to this file instead of stdout")
}

// NewLogger builds the package-wide logger for cfg.LogLevel, writing to stderr as the teacher's
// cmd/* binaries do for anything that isn't the primary output stream.
func (cfg *Config) NewLogger() *log.Logger {
	return log.New(os.Stderr, log.ParseLevel(cfg.LogLevel))
}

// Validate reports the first structural problem with cfg, or nil if it is well-formed enough to
// run. It does not check that judges actually verify - that's the judge registry's job at startup.
func (cfg *Config) Validate() error {
	if cfg.Format != "text" && cfg.Format != "json" {
		return fmt.Errorf("config: --format must be text or json, got %q", cfg.Format)
	}
	if cfg.Limit < 0 {
		return fmt.Errorf("config: --limit must not be negative")
	}
	return nil
}
