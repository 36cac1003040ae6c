package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/hamed0406/infiping/internal/config"
	"github.com/hamed0406/infiping/internal/probe"
	"github.com/hamed0406/infiping/internal/report"
	"github.com/hamed0406/infiping/internal/repo/csvfile"
)

var errPreflight = errors.New("preflight failed")

// lookPath is swapped in tests.
var lookPath = exec.LookPath

func newPreflightCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight [address...]",
		Short: "Check configuration and environment without probing",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd, args)
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "✖", err)
				return errPreflight
			}
			return preflight(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}
}

// preflight prints one line per check and fails if any check failed.
func preflight(ctx context.Context, w io.Writer, cfg config.Config) error {
	failed := false
	fail := func(msg string) {
		failed = true
		fmt.Fprintln(w, "✖", msg)
	}
	warn := func(msg string) { fmt.Fprintln(w, "⚠", msg) }
	ok := func(msg string) { fmt.Fprintln(w, "✔", msg) }

	ok(fmt.Sprintf("%d addresses, one probe every %s", len(cfg.Addresses), cfg.TimeToWait))

	if cfg.Method == probe.MethodPing {
		if path, err := lookPath("ping"); err != nil {
			fail("ping not found in PATH; every probe would fail (try --method tcp)")
		} else {
			ok("ping=" + path)
		}
	} else {
		ok(fmt.Sprintf("tcp probes, timeout %s", cfg.ProbeTimeout))
	}

	info, err := os.Stat(cfg.Output)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := writableDir(filepath.Dir(cfg.Output)); err != nil {
			fail(fmt.Sprintf("cannot create %s: %v", cfg.Output, err))
		} else {
			ok(cfg.Output + " will be created")
		}
	case err != nil:
		fail(err.Error())
	case info.IsDir():
		fail(cfg.Output + " is a directory")
	default:
		summaries, err := report.Summarize(ctx, csvfile.New(cfg.Output, nil))
		if err != nil {
			fail(fmt.Sprintf("%s is unreadable: %v", cfg.Output, err))
		} else {
			ok(fmt.Sprintf("%s holds records for %d addresses", cfg.Output, len(summaries)))
		}
	}

	if err := writableDir(cfg.LogDir); err != nil {
		fail(fmt.Sprintf("log dir %s: %v", cfg.LogDir, err))
	} else {
		ok("log dir " + cfg.LogDir)
	}

	if !cfg.Warn {
		warn("alerts disabled; pass --warn to be notified of failures")
	}
	// consecutive probes of one address are a full cycle apart
	if cycle := cfg.TimeToWait * time.Duration(len(cfg.Addresses)); cfg.Warn && cfg.MinimumTimeUp <= cycle {
		warn(fmt.Sprintf("minimum-time-up %s does not exceed one cycle (%s); every failure will alert", cfg.MinimumTimeUp, cycle))
	}
	if len(cfg.APIKeys) == 0 {
		warn("API_KEYS empty; serve will answer unauthenticated requests")
	}

	if failed {
		return errPreflight
	}
	ok("preflight passed")
	return nil
}

// writableDir creates dir if needed and checks a file can be created in it.
func writableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".infiping-preflight-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
