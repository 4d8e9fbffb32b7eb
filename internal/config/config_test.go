package config

import (
	"strings"
	"testing"
)

func TestParseFindDefaults(t *testing.T) {
	cfg, err := ParseFind(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Format != "text" || cfg.MaxConn <= 0 || cfg.MaxTries == 0 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestParseFindFlags(t *testing.T) {
	cfg, err := ParseFind([]string{
		"-types", "http,socks5",
		"-levels", "anonymous,high_anonymous",
		"-max-conn", "32",
		"-judges", "http://judge1.example.com/get",
		"-judges", "https://judge2.example.com/get",
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Types.NArg() != 2 {
		t.Errorf("Types.NArg() = %d, want 2", cfg.Types.NArg())
	}
	if cfg.MaxConn != 32 {
		t.Errorf("MaxConn = %d, want 32", cfg.MaxConn)
	}
	if cfg.Judges.NArg() != 2 {
		t.Errorf("Judges.NArg() = %d, want 2", cfg.Judges.NArg())
	}
}

func TestValidateRejectsBadFormat(t *testing.T) {
	cfg := &Config{Format: "xml"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unrecognized format")
	}
}

func TestValidateRejectsNegativeLimit(t *testing.T) {
	cfg := &Config{Format: "text", Limit: -1}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative limit")
	}
}

func TestParseFindTLSFlags(t *testing.T) {
	cfg, err := ParseFind([]string{
		"-verify-ssl",
		"-tls-cert", "client.pem",
		"-tls-key", "client.key",
		"-tls-other-roots", "ca1.pem",
		"-tls-other-roots", "ca2.pem",
		"-tls-use-system-roots=false",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.VerifySSL {
		t.Error("expected VerifySSL = true")
	}
	if cfg.TLSClientCertFile != "client.pem" || cfg.TLSClientKeyFile != "client.key" {
		t.Errorf("unexpected client cert/key: %+v", cfg)
	}
	if cfg.TLSOtherRootsFiles.NArg() != 2 {
		t.Errorf("TLSOtherRootsFiles.NArg() = %d, want 2", cfg.TLSOtherRootsFiles.NArg())
	}
	if cfg.TLSUseSystemRoots {
		t.Error("expected TLSUseSystemRoots = false")
	}
}

func TestDescribeFlagsListsEveryFlag(t *testing.T) {
	var grab, find strings.Builder
	DescribeGrabFlags(&grab)
	DescribeFindFlags(&find)

	if !strings.Contains(grab.String(), "-watch") {
		t.Error("grab flag description missing -watch")
	}
	for _, name := range []string{"-judges", "-tls-cert", "-tls-other-roots", "-verify-ssl"} {
		if !strings.Contains(find.String(), name) {
			t.Errorf("find flag description missing %s", name)
		}
	}
}
