package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/hamed0406/infiping/internal/domain"
	"github.com/hamed0406/infiping/internal/repo"
)

// Evaluator decides whether a failed probe should raise an alert.
//
// The last failure of an address is the failed record for that address met
// last in a forward scan of the store (file order, not the largest
// timestamp). With a cache the value is kept per address and updated by
// Observe; it always equals what a full scan would return as long as every
// appended record is observed.
type Evaluator struct {
	store  repo.RecordScanner
	cached bool
	last   map[string]float64
}

// NewScanEvaluator rescans the whole store on every lookup.
func NewScanEvaluator(store repo.RecordScanner) *Evaluator {
	return &Evaluator{store: store}
}

// NewCachedEvaluator builds the per-address cache with one full scan.
func NewCachedEvaluator(ctx context.Context, store repo.RecordScanner) (*Evaluator, error) {
	e := &Evaluator{store: store, cached: true}
	if err := e.Rebuild(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Rebuild replaces the cache with a fresh scan. No-op for scan evaluators.
func (e *Evaluator) Rebuild(ctx context.Context) error {
	if !e.cached {
		return nil
	}
	last, err := lastFailures(ctx, e.store)
	if err != nil {
		return err
	}
	e.last = last
	return nil
}

// Observe folds a freshly appended record into the cache.
func (e *Evaluator) Observe(r domain.ProbeRecord) {
	if !e.cached || !r.Failed {
		return
	}
	e.last[r.Address] = r.Timestamp
}

// LastFailure returns the last failure timestamp for address. ok is false
// when the address has never failed.
func (e *Evaluator) LastFailure(ctx context.Context, address string) (ts float64, ok bool, err error) {
	if e.cached {
		ts, ok = e.last[address]
		return ts, ok, nil
	}
	for r, err := range e.store.Scan(ctx) {
		if err != nil {
			return 0, false, fmt.Errorf("scan failures: %w", err)
		}
		if r.Failed && r.Address == address {
			ts, ok = r.Timestamp, true
		}
	}
	return ts, ok, nil
}

// ShouldAlert reports whether minimumTimeUp has passed since the previous
// failure of address. An address that has never failed always alerts.
func (e *Evaluator) ShouldAlert(ctx context.Context, address string, now time.Time, minimumTimeUp time.Duration) (bool, error) {
	last, ok, err := e.LastFailure(ctx, address)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return CooledDown(domain.EpochSeconds(now), last, minimumTimeUp), nil
}

// CooledDown is the cooldown rule: now >= lastFailure + minimumTimeUp, all in
// epoch seconds.
func CooledDown(now, lastFailure float64, minimumTimeUp time.Duration) bool {
	return now >= lastFailure+minimumTimeUp.Seconds()
}

func lastFailures(ctx context.Context, store repo.RecordScanner) (map[string]float64, error) {
	last := make(map[string]float64)
	for r, err := range store.Scan(ctx) {
		if err != nil {
			return nil, fmt.Errorf("scan failures: %w", err)
		}
		if r.Failed {
			last[r.Address] = r.Timestamp
		}
	}
	return last, nil
}
