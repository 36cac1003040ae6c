package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestDefault_MatchesDocumentedValues(t *testing.T) {
	cfg := Default()
	if len(cfg.Addresses) != 14 || cfg.Addresses[0] != "1.1.1.1" {
		t.Fatalf("default addresses wrong: %v", cfg.Addresses)
	}
	if cfg.Output != "ping.csv" || cfg.TimeToWait != 10*time.Second || cfg.Warn || cfg.MinimumTimeUp != 60*time.Second {
		t.Fatalf("defaults wrong: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	// callers must not be able to mutate the package defaults
	cfg.Addresses[0] = "changed"
	if DefaultAddresses[0] != "1.1.1.1" {
		t.Fatalf("Default leaked the shared slice")
	}
}

func TestFromEnv_ParsesAndDefaults(t *testing.T) {
	t.Setenv("LOG_DIR", "./_testlogs")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("API_ADDR", ":9090")
	t.Setenv("API_KEYS", "key_a, key_b,")
	t.Setenv("API_RATE_LIMIT", "30")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}

	if cfg.APIAddr != ":9090" || cfg.LogDir != "./_testlogs" || cfg.LogLevel != "debug" {
		t.Fatalf("addr/logdir/level wrong: %+v", cfg)
	}
	if len(cfg.APIKeys) != 2 || cfg.APIKeys[1] != "key_b" {
		t.Fatalf("api keys wrong: %+v", cfg.APIKeys)
	}
	if cfg.APIRateLimit != 30 || cfg.APIBurst != 60 {
		t.Fatalf("rate limit wrong: %d/%d", cfg.APIRateLimit, cfg.APIBurst)
	}

	// unset env falls back to the default
	os.Unsetenv("API_ADDR")
	if got, _ := FromEnv(); got.APIAddr != "127.0.0.1:8080" {
		t.Fatalf("default API addr: %q", got.APIAddr)
	}
}

func TestApplyEnv_BadRateLimitFails(t *testing.T) {
	t.Setenv("API_RATE_LIMIT", "fast")
	if _, err := ApplyEnv(Default()); !errors.Is(err, ErrInvalidRateLimit) {
		t.Fatalf("want ErrInvalidRateLimit, got %v", err)
	}

	// parses, but Validate rejects it
	t.Setenv("API_RATE_LIMIT", "-5")
	cfg, err := ApplyEnv(Default())
	if err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidRateLimit) {
		t.Fatalf("want ErrInvalidRateLimit from Validate, got %v", err)
	}
}

func TestLoadFile_NegativeBurstRejectedByValidate(t *testing.T) {
	cfg, err := LoadFile(writeFile(t, "api_burst: -1\n"), Default())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidRateLimit) {
		t.Fatalf("want ErrInvalidRateLimit, got %v", err)
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "infiping.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadFile_OverlaysSetKeysOnly(t *testing.T) {
	p := writeFile(t, `
addresses: ["10.0.0.1", "10.0.0.2"]
time_to_wait: 2.5
warn: true
method: tcp
`)
	cfg, err := LoadFile(p, Default())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !reflect.DeepEqual(cfg.Addresses, []string{"10.0.0.1", "10.0.0.2"}) {
		t.Fatalf("addresses: %v", cfg.Addresses)
	}
	if cfg.TimeToWait != 2500*time.Millisecond || !cfg.Warn || cfg.Method != "tcp" {
		t.Fatalf("overlay wrong: %+v", cfg)
	}
	// untouched keys keep the base values
	if cfg.Output != "ping.csv" || cfg.MinimumTimeUp != 60*time.Second {
		t.Fatalf("base values lost: %+v", cfg)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), Default()); err == nil {
		t.Fatalf("expected error for a missing file")
	}
	if _, err := LoadFile(writeFile(t, "interval: 5\n"), Default()); err == nil {
		t.Fatalf("expected error for an unknown key")
	}
	_, err := LoadFile(writeFile(t, "minimum_time_up: -1\n"), Default())
	if !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("want ErrInvalidDuration, got %v", err)
	}
}

func TestLoadFile_EmptyFileKeepsBase(t *testing.T) {
	cfg, err := LoadFile(writeFile(t, ""), Default())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Fatalf("empty file changed config: %+v", cfg)
	}
}

func TestNormalizeAddresses(t *testing.T) {
	cases := []struct {
		in   []string
		want []string
	}{
		{[]string{"1.1.1.1"}, []string{"1.1.1.1"}},
		{[]string{"1.1.1.1,8.8.8.8"}, []string{"1.1.1.1", "8.8.8.8"}},
		{[]string{"[1.1.1.1,", "8.8.8.8,", "9.9.9.9]"}, []string{"1.1.1.1", "8.8.8.8", "9.9.9.9"}},
		{[]string{"[1.1.1.1]"}, []string{"1.1.1.1"}},
		{[]string{" ", ",", "[]"}, []string{}},
	}
	for _, c := range cases {
		if got := NormalizeAddresses(c.in); !reflect.DeepEqual(got, c.want) {
			t.Fatalf("NormalizeAddresses(%q)=%q want %q", c.in, got, c.want)
		}
	}
}

func TestValidate(t *testing.T) {
	mod := func(f func(*Config)) Config {
		c := Default()
		f(&c)
		return c
	}
	cases := []struct {
		name string
		cfg  Config
		want error
	}{
		{"no addresses", mod(func(c *Config) { c.Addresses = nil }), ErrNoAddresses},
		{"option injection", mod(func(c *Config) { c.Addresses = []string{"-f"} }), ErrInvalidAddress},
		{"whitespace", mod(func(c *Config) { c.Addresses = []string{"1.1.1.1 8.8.8.8"} }), ErrInvalidAddress},
		{"empty address", mod(func(c *Config) { c.Addresses = []string{""} }), ErrInvalidAddress},
		{"negative wait", mod(func(c *Config) { c.TimeToWait = -time.Second }), ErrInvalidDuration},
		{"negative cooldown", mod(func(c *Config) { c.MinimumTimeUp = -time.Second }), ErrInvalidDuration},
		{"method", mod(func(c *Config) { c.Method = "icmp" }), ErrUnknownMethod},
		{"negative rate limit", mod(func(c *Config) { c.APIRateLimit = -1 }), ErrInvalidRateLimit},
	}
	for _, c := range cases {
		if err := c.cfg.Validate(); !errors.Is(err, c.want) {
			t.Fatalf("%s: want %v, got %v", c.name, c.want, err)
		}
	}

	if err := mod(func(c *Config) { c.LogLevel = "loud" }).Validate(); err == nil {
		t.Fatalf("expected error for unknown log level")
	}
	if err := mod(func(c *Config) { c.Output = " " }).Validate(); err == nil {
		t.Fatalf("expected error for empty output")
	}
	if err := mod(func(c *Config) { c.TimeToWait = 0; c.MinimumTimeUp = 0 }).Validate(); err != nil {
		t.Fatalf("zero durations are valid: %v", err)
	}
}

func TestSeconds(t *testing.T) {
	if d, err := Seconds(1.5); err != nil || d != 1500*time.Millisecond {
		t.Fatalf("Seconds(1.5)=%v, %v", d, err)
	}
	for _, bad := range []float64{-1, math.NaN(), math.Inf(1), 1e300} {
		if _, err := Seconds(bad); !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("Seconds(%v): want ErrInvalidDuration, got %v", bad, err)
		}
	}
}
