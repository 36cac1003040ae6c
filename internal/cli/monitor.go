package cli

import (
	"fmt"
	"io"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/infiping/internal/config"
	"github.com/hamed0406/infiping/internal/notify"
	"github.com/hamed0406/infiping/internal/probe"
	"github.com/hamed0406/infiping/internal/repo/csvfile"
	"github.com/hamed0406/infiping/internal/scheduler"
)

func runMonitor(cmd *cobra.Command, cfg config.Config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	store := csvfile.New(cfg.Output, logger)

	var evaluator *scheduler.Evaluator
	if cfg.Warn {
		// one scan of the existing file, then kept current by the loop
		if evaluator, err = scheduler.NewCachedEvaluator(ctx, store); err != nil {
			logger.Error("cooldown_rebuild_error", zap.String("output", cfg.Output), zap.Error(err))
			return fmt.Errorf("read %s: %w", cfg.Output, err)
		}
	}

	m := scheduler.NewMonitor(logger,
		scheduler.MonitorConfig{
			Addresses:     cfg.Addresses,
			TimeToWait:    cfg.TimeToWait,
			Warn:          cfg.Warn,
			MinimumTimeUp: cfg.MinimumTimeUp,
		},
		newProber(cfg, cmd.OutOrStdout(), logger),
		store,
		evaluator,
		newConsole(cmd.OutOrStdout()),
		clock.New(),
	)
	return m.Run(ctx)
}

func newProber(cfg config.Config, out io.Writer, logger *zap.Logger) probe.Prober {
	if cfg.Method == probe.MethodTCP {
		return probe.NewTCPProber(cfg.ProbeTimeout)
	}
	if cfg.Quiet {
		out = nil
	}
	return probe.NewCommandProber(out, logger)
}

func newConsole(w io.Writer) *notify.Console {
	if f, ok := stdoutFile(w); ok {
		return notify.NewConsole(f)
	}
	return &notify.Console{Out: w}
}
