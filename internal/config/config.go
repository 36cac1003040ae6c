package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/hamed0406/infiping/internal/probe"
)

var (
	ErrNoAddresses      = errors.New("no addresses to monitor")
	ErrInvalidAddress   = errors.New("invalid address")
	ErrInvalidDuration  = errors.New("duration must be a finite, non-negative number of seconds")
	ErrUnknownMethod    = errors.New("unknown probe method")
	ErrInvalidRateLimit = errors.New("rate limit must be a non-negative integer")
)

// DefaultAddresses are public DNS resolvers that tolerate frequent pings.
var DefaultAddresses = []string{
	"1.1.1.1", "1.0.0.1",
	"8.8.8.8", "8.8.4.4",
	"9.9.9.9", "149.112.112.112",
	"208.67.222.222", "208.67.220.220",
	"185.228.168.9", "185.228.169.9",
	"76.76.19.19", "76.223.122.150",
	"94.140.14.14", "94.140.15.15",
}

type Config struct {
	Addresses     []string      // probed in this order, every cycle
	Output        string        // CSV record store
	TimeToWait    time.Duration // target time between consecutive probes
	Warn          bool          // raise a console alert on failure
	MinimumTimeUp time.Duration // alert cooldown since the previous failure
	Method        string        // "ping" or "tcp"
	ProbeTimeout  time.Duration // tcp dial timeout
	Quiet         bool          // discard ping command output
	LogDir        string        // logs directory
	LogLevel      string        // debug|info|warn|error
	APIAddr       string        // bind address for `serve`
	APIKeys       []string      // optional keys guarding the read API
	APIRateLimit  int           // requests per minute per client, 0 disables
	APIBurst      int
}

func Default() Config {
	addrs := make([]string, len(DefaultAddresses))
	copy(addrs, DefaultAddresses)
	return Config{
		Addresses:     addrs,
		Output:        "ping.csv",
		TimeToWait:    10 * time.Second,
		Warn:          false,
		MinimumTimeUp: 60 * time.Second,
		Method:        probe.MethodPing,
		ProbeTimeout:  4 * time.Second,
		LogDir:        "logs",
		LogLevel:      "info",
		APIAddr:       "127.0.0.1:8080",
		APIRateLimit:  120,
		APIBurst:      60,
	}
}

// FromEnv is Default with environment overrides applied.
func FromEnv() (Config, error) {
	return ApplyEnv(Default())
}

// ApplyEnv overlays LOG_DIR, LOG_LEVEL, API_ADDR, API_KEYS and
// API_RATE_LIMIT onto c.
func ApplyEnv(c Config) (Config, error) {
	if v := strings.TrimSpace(os.Getenv("LOG_DIR")); v != "" {
		c.LogDir = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("API_ADDR")); v != "" {
		c.APIAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("API_KEYS")); v != "" {
		c.APIKeys = splitList(v)
	}
	if v := strings.TrimSpace(os.Getenv("API_RATE_LIMIT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("API_RATE_LIMIT %q: %w", v, ErrInvalidRateLimit)
		}
		c.APIRateLimit = n
	}
	return c, nil
}

type fileConfig struct {
	Addresses     []string `yaml:"addresses"`
	Output        *string  `yaml:"output"`
	TimeToWait    *float64 `yaml:"time_to_wait"`
	Warn          *bool    `yaml:"warn"`
	MinimumTimeUp *float64 `yaml:"minimum_time_up"`
	Method        *string  `yaml:"method"`
	ProbeTimeout  *float64 `yaml:"probe_timeout"`
	Quiet         *bool    `yaml:"quiet"`
	LogDir        *string  `yaml:"log_dir"`
	LogLevel      *string  `yaml:"log_level"`
	APIAddr       *string  `yaml:"api_addr"`
	APIKeys       []string `yaml:"api_keys"`
	APIRateLimit  *int     `yaml:"api_rate_limit"`
	APIBurst      *int     `yaml:"api_burst"`
}

// LoadFile overlays the YAML file at path onto base. Durations are seconds.
// Unknown keys are rejected.
func LoadFile(path string, base Config) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	c := base
	if fc.Addresses != nil {
		c.Addresses = NormalizeAddresses(fc.Addresses)
	}
	if fc.Output != nil {
		c.Output = *fc.Output
	}
	if fc.Warn != nil {
		c.Warn = *fc.Warn
	}
	if fc.Method != nil {
		c.Method = *fc.Method
	}
	if fc.Quiet != nil {
		c.Quiet = *fc.Quiet
	}
	if fc.LogDir != nil {
		c.LogDir = *fc.LogDir
	}
	if fc.LogLevel != nil {
		c.LogLevel = *fc.LogLevel
	}
	if fc.APIAddr != nil {
		c.APIAddr = *fc.APIAddr
	}
	if fc.APIKeys != nil {
		c.APIKeys = fc.APIKeys
	}
	if fc.APIRateLimit != nil {
		c.APIRateLimit = *fc.APIRateLimit
	}
	if fc.APIBurst != nil {
		c.APIBurst = *fc.APIBurst
	}
	for _, d := range []struct {
		name string
		in   *float64
		out  *time.Duration
	}{
		{"time_to_wait", fc.TimeToWait, &c.TimeToWait},
		{"minimum_time_up", fc.MinimumTimeUp, &c.MinimumTimeUp},
		{"probe_timeout", fc.ProbeTimeout, &c.ProbeTimeout},
	} {
		if d.in == nil {
			continue
		}
		v, err := Seconds(*d.in)
		if err != nil {
			return Config{}, fmt.Errorf("config %s: %s: %w", path, d.name, err)
		}
		*d.out = v
	}
	return c, nil
}

// Seconds converts a non-negative, finite number of seconds to a Duration.
func Seconds(s float64) (time.Duration, error) {
	if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidDuration, s)
	}
	if s > float64(math.MaxInt64)/float64(time.Second) {
		return 0, fmt.Errorf("%w: %v is too large", ErrInvalidDuration, s)
	}
	return time.Duration(s * float64(time.Second)), nil
}

// NormalizeAddresses splits comma separated entries and strips the brackets
// of the "[a, b, c]" list form. Empty entries are dropped.
func NormalizeAddresses(in []string) []string {
	out := make([]string, 0, len(in))
	for _, raw := range in {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			part = strings.TrimPrefix(part, "[")
			part = strings.TrimSuffix(part, "]")
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate fails on values the monitor cannot run with.
func (c Config) Validate() error {
	if len(c.Addresses) == 0 {
		return ErrNoAddresses
	}
	for _, a := range c.Addresses {
		if err := validateAddress(a); err != nil {
			return err
		}
	}
	if strings.TrimSpace(c.Output) == "" {
		return errors.New("output path is empty")
	}
	if c.TimeToWait < 0 {
		return fmt.Errorf("time-to-wait: %w", ErrInvalidDuration)
	}
	if c.MinimumTimeUp < 0 {
		return fmt.Errorf("minimum-time-up: %w", ErrInvalidDuration)
	}
	if c.ProbeTimeout < 0 {
		return fmt.Errorf("probe-timeout: %w", ErrInvalidDuration)
	}
	switch c.Method {
	case probe.MethodPing, probe.MethodTCP:
	default:
		return fmt.Errorf("%w %q (want ping or tcp)", ErrUnknownMethod, c.Method)
	}
	if c.APIRateLimit < 0 {
		return fmt.Errorf("api rate limit %d: %w", c.APIRateLimit, ErrInvalidRateLimit)
	}
	if c.APIBurst < 0 {
		return fmt.Errorf("api burst %d: %w", c.APIBurst, ErrInvalidRateLimit)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

func validateAddress(a string) error {
	if a == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	// a leading dash would be read as a ping option
	if strings.HasPrefix(a, "-") {
		return fmt.Errorf("%w %q: must not start with '-'", ErrInvalidAddress, a)
	}
	for _, r := range a {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == ',' {
			return fmt.Errorf("%w %q: contains whitespace, control character or comma", ErrInvalidAddress, a)
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
