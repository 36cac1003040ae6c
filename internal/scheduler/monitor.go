package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/infiping/internal/domain"
	"github.com/hamed0406/infiping/internal/notify"
	"github.com/hamed0406/infiping/internal/probe"
	"github.com/hamed0406/infiping/internal/repo"
)

// Clock is the part of github.com/benbjohnson/clock the loop needs.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// MonitorConfig is fixed for the lifetime of a Monitor.
type MonitorConfig struct {
	Addresses     []string
	TimeToWait    time.Duration
	Warn          bool
	MinimumTimeUp time.Duration
}

// Outcome describes one probe step.
type Outcome struct {
	Record  domain.ProbeRecord
	Result  probe.Result
	Alerted bool
	Slept   time.Duration
}

// Monitor probes its addresses one at a time, forever, in configured order.
type Monitor struct {
	Logger    *zap.Logger
	Prober    probe.Prober
	Store     repo.RecordAppender
	Evaluator *Evaluator
	Notifier  notify.Notifier
	Clock     Clock

	cfg MonitorConfig
}

func NewMonitor(
	logger *zap.Logger,
	cfg MonitorConfig,
	prober probe.Prober,
	store repo.RecordAppender,
	evaluator *Evaluator,
	notifier notify.Notifier,
	clk Clock,
) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if cfg.TimeToWait < 0 {
		cfg.TimeToWait = 0
	}
	addrs := make([]string, len(cfg.Addresses))
	copy(addrs, cfg.Addresses)
	cfg.Addresses = addrs

	return &Monitor{
		Logger:    logger,
		Prober:    prober,
		Store:     store,
		Evaluator: evaluator,
		Notifier:  notifier,
		Clock:     clk,
		cfg:       cfg,
	}
}

// ErrNoAddresses is returned by Run when there is nothing to probe.
var ErrNoAddresses = errors.New("monitor: no addresses configured")

// Run repeats full cycles until the store fails or ctx is cancelled. It never
// returns nil.
func (m *Monitor) Run(ctx context.Context) error {
	if len(m.cfg.Addresses) == 0 {
		return ErrNoAddresses
	}
	m.Logger.Info("monitor_started",
		zap.Strings("addresses", m.cfg.Addresses),
		zap.Duration("time_to_wait", m.cfg.TimeToWait),
		zap.Bool("warn", m.cfg.Warn),
		zap.Duration("minimum_time_up", m.cfg.MinimumTimeUp),
	)
	for {
		if err := m.RunCycle(ctx); err != nil {
			m.Logger.Error("monitor_stopped", zap.Error(err))
			return err
		}
	}
}

// RunCycle probes every configured address once.
func (m *Monitor) RunCycle(ctx context.Context) error {
	for _, addr := range m.cfg.Addresses {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := m.Step(ctx, addr); err != nil {
			return err
		}
	}
	return nil
}

// Step runs start, probe, persist, alert-check and pace for one address.
// The alert decision is taken against the history before this probe's
// record, so the first failure after a quiet period always alerts.
func (m *Monitor) Step(ctx context.Context, address string) (Outcome, error) {
	start := m.Clock.Now()
	res := m.Prober.Probe(ctx, address)
	rec := domain.NewProbeRecord(start, address, !res.Reachable)
	out := Outcome{Record: rec, Result: res}

	if rec.Failed && m.cfg.Warn && m.Evaluator != nil {
		ok, err := m.Evaluator.ShouldAlert(ctx, address, m.Clock.Now(), m.cfg.MinimumTimeUp)
		if err != nil {
			return out, fmt.Errorf("evaluate cooldown for %s: %w", address, err)
		}
		out.Alerted = ok
	}

	if err := m.Store.Append(ctx, rec); err != nil {
		m.Logger.Error("store_append_error",
			zap.String("address", address),
			zap.Error(err),
		)
		return out, fmt.Errorf("persist probe record: %w", err)
	}
	if m.Evaluator != nil {
		m.Evaluator.Observe(rec)
	}

	m.Logger.Debug("probe_done",
		zap.String("address", address),
		zap.Bool("failed", rec.Failed),
		zap.Float64("timestamp", rec.Timestamp),
		zap.Duration("latency", res.Latency),
		zap.String("reason", res.Message),
	)

	if out.Alerted {
		m.Logger.Info("alert_raised", zap.String("address", address), zap.String("reason", res.Message))
		if err := m.Notifier.Send(ctx, AlertTitle(address), res.Message); err != nil {
			m.Logger.Warn("alert_send_error", zap.String("address", address), zap.Error(err))
		}
	}

	out.Slept = PaceDelay(m.cfg.TimeToWait, m.Clock.Now().Sub(start))
	if out.Slept > 0 {
		m.Clock.Sleep(out.Slept)
	}
	return out, nil
}

// AlertTitle is the notification headline for a failed address.
func AlertTitle(address string) string {
	return "Ping to " + address + " failed!"
}

// PaceDelay is how long to wait so that a step takes timeToWait in total.
// Never negative.
func PaceDelay(timeToWait, elapsed time.Duration) time.Duration {
	if d := timeToWait - elapsed; d > 0 {
		return d
	}
	return 0
}
