package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/infiping/internal/config"
	"github.com/hamed0406/infiping/internal/logging"
)

// flags holds raw command-line values. They are folded into a config.Config
// by resolve, only where the user actually set them.
type flags struct {
	configPath string
	logDir     string
	logLevel   string
	output     string

	addresses     []string
	timeToWait    float64
	warn          bool
	minimumTimeUp float64
	method        string
	probeTimeout  float64
	quiet         bool
}

// NewRootCmd builds the infiping command tree. Running the root command
// starts the monitor loop.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&flags{})
}

func newRootCmd(f *flags) *cobra.Command {
	def := config.Default()

	rootCmd := &cobra.Command{
		Use:   "infiping [address...]",
		Short: "Ping a set of addresses forever and log every result",
		Long: `infiping probes each address in turn, appends one row per probe to a CSV
file and, with --warn, raises a console alert when an address fails after
having been up for at least --minimum-time-up seconds.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd, args)
			if err != nil {
				return err
			}
			return runMonitor(cmd, cfg)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "YAML config file")
	pf.StringVar(&f.logDir, "log-dir", def.LogDir, "directory for the rotating JSON log")
	pf.StringVar(&f.logLevel, "log-level", def.LogLevel, "log level: debug, info, warn or error")
	pf.StringVarP(&f.output, "output", "o", def.Output, "CSV file the probe records are appended to")

	// monitor settings, persistent so every subcommand resolves the same configuration
	pf.StringSliceVarP(&f.addresses, "addresses", "a", def.Addresses, "addresses to probe, in order")
	pf.Float64VarP(&f.timeToWait, "time-to-wait", "t", def.TimeToWait.Seconds(), "seconds between the start of consecutive probes")
	pf.BoolVarP(&f.warn, "warn", "w", def.Warn, "raise a console alert when a probe fails")
	pf.Float64VarP(&f.minimumTimeUp, "minimum-time-up", "m", def.MinimumTimeUp.Seconds(), "seconds since the previous failure before alerting again")
	pf.StringVar(&f.method, "method", def.Method, "probe method: ping or tcp")
	pf.Float64Var(&f.probeTimeout, "probe-timeout", def.ProbeTimeout.Seconds(), "dial timeout in seconds for --method tcp")
	pf.BoolVarP(&f.quiet, "quiet", "q", def.Quiet, "discard the ping command output")

	rootCmd.AddCommand(&cobra.Command{
		Use:    "h",
		Short:  "Show help",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Root().Help()
		},
	})
	rootCmd.AddCommand(newReportCmd(f))
	rootCmd.AddCommand(newServeCmd(f))
	rootCmd.AddCommand(newPreflightCmd(f))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the command tree and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderr, "infiping:", err)
		return 1
	}
	return 0
}

// resolve layers defaults, the config file, the environment and flags, then
// validates the result.
func (f *flags) resolve(cmd *cobra.Command, args []string) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(f.configPath, cfg); err != nil {
			return config.Config{}, err
		}
	}
	cfg, err := config.ApplyEnv(cfg)
	if err != nil {
		return config.Config{}, err
	}

	set := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}
	if set("log-dir") {
		cfg.LogDir = f.logDir
	}
	if set("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if set("output") {
		cfg.Output = f.output
	}
	if set("addresses") {
		cfg.Addresses = config.NormalizeAddresses(f.addresses)
	}
	if len(args) > 0 {
		extra := config.NormalizeAddresses(args)
		if set("addresses") {
			cfg.Addresses = append(cfg.Addresses, extra...)
		} else {
			cfg.Addresses = extra
		}
	}
	if set("warn") {
		cfg.Warn = f.warn
	}
	if set("method") {
		cfg.Method = f.method
	}
	if set("quiet") {
		cfg.Quiet = f.quiet
	}
	for _, d := range []struct {
		name string
		in   float64
		out  *time.Duration
	}{
		{"time-to-wait", f.timeToWait, &cfg.TimeToWait},
		{"minimum-time-up", f.minimumTimeUp, &cfg.MinimumTimeUp},
		{"probe-timeout", f.probeTimeout, &cfg.ProbeTimeout},
	} {
		if !set(d.name) {
			continue
		}
		v, err := config.Seconds(d.in)
		if err != nil {
			return config.Config{}, fmt.Errorf("--%s: %w", d.name, err)
		}
		*d.out = v
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	return logger, nil
}

// stdoutFile returns w as a file when it is one, so terminal sizing works.
func stdoutFile(w io.Writer) (*os.File, bool) {
	f, ok := w.(*os.File)
	return f, ok
}
