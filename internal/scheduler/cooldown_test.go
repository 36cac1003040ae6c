package scheduler

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/hamed0406/infiping/internal/domain"
	"github.com/hamed0406/infiping/internal/repo/memory"
)

func rec(ts float64, addr string, failed bool) domain.ProbeRecord {
	return domain.ProbeRecord{Timestamp: ts, Address: addr, Failed: failed}
}

func at(sec float64) time.Time {
	return time.Unix(0, int64(sec*1e9))
}

func evaluators(t *testing.T, store *memory.Store) map[string]*Evaluator {
	t.Helper()
	cached, err := NewCachedEvaluator(context.Background(), store)
	if err != nil {
		t.Fatalf("NewCachedEvaluator: %v", err)
	}
	return map[string]*Evaluator{
		"scan":   NewScanEvaluator(store),
		"cached": cached,
	}
}

func TestShouldAlert_Cooldown(t *testing.T) {
	store := memory.New(rec(100, "X", true))
	for name, e := range evaluators(t, store) {
		ctx := context.Background()
		got, err := e.ShouldAlert(ctx, "X", at(150), 60*time.Second)
		if err != nil || got {
			t.Fatalf("%s: now=150 want false, got %v err=%v", name, got, err)
		}
		got, err = e.ShouldAlert(ctx, "X", at(161), 60*time.Second)
		if err != nil || !got {
			t.Fatalf("%s: now=161 want true, got %v err=%v", name, got, err)
		}
		got, _ = e.ShouldAlert(ctx, "X", at(160), 60*time.Second)
		if !got {
			t.Fatalf("%s: boundary now=lastFailure+minimumTimeUp must alert", name)
		}
	}
}

func TestShouldAlert_FailureAtEpochZeroStillCoolsDown(t *testing.T) {
	store := memory.New(rec(0, "X", true))
	for name, e := range evaluators(t, store) {
		got, _ := e.ShouldAlert(context.Background(), "X", at(5), 60*time.Second)
		if got {
			t.Fatalf("%s: a real failure at t=0 must suppress alerts until t=60", name)
		}
	}
}

func TestShouldAlert_FirstFailureAlwaysAlerts(t *testing.T) {
	store := memory.New(rec(10, "X", false), rec(20, "Y", true))
	for name, e := range evaluators(t, store) {
		for _, now := range []float64{0, 1, 1e9} {
			got, err := e.ShouldAlert(context.Background(), "X", at(now), time.Hour)
			if err != nil || !got {
				t.Fatalf("%s: never-failed address must alert at now=%v, got %v err=%v", name, now, got, err)
			}
		}
	}
}

func TestLastFailure_FileOrderWins(t *testing.T) {
	// out-of-order timestamps: the last failure met in the scan wins,
	// not the largest timestamp
	store := memory.New(
		rec(500, "X", true),
		rec(200, "X", true),
		rec(900, "X", false),
		rec(999, "Y", true),
	)
	for name, e := range evaluators(t, store) {
		got, ok, err := e.LastFailure(context.Background(), "X")
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !ok || got != 200 {
			t.Fatalf("%s: want 200, got %v", name, got)
		}
	}
}

func TestCachedEvaluator_MatchesFullScanAfterObserve(t *testing.T) {
	ctx := context.Background()
	store := memory.New(rec(1, "a", true), rec(2, "b", false))
	cached, err := NewCachedEvaluator(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	scan := NewScanEvaluator(store)

	addrs := []string{"a", "b", "c"}
	for i := 0; i < 40; i++ {
		r := rec(float64(10+i), addrs[i%3], i%2 == 0 || i%5 == 0)
		if err := store.Append(ctx, r); err != nil {
			t.Fatal(err)
		}
		cached.Observe(r)

		for _, a := range addrs {
			want, wantOK, _ := scan.LastFailure(ctx, a)
			got, gotOK, _ := cached.LastFailure(ctx, a)
			if got != want || gotOK != wantOK {
				t.Fatalf("after %d appends, %s: cached=%v/%v scan=%v/%v", i+1, a, got, gotOK, want, wantOK)
			}
		}
	}

	// a rebuilt cache (cold start) agrees too
	if err := cached.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}
	for _, a := range addrs {
		want, wantOK, _ := scan.LastFailure(ctx, a)
		got, gotOK, _ := cached.LastFailure(ctx, a)
		if got != want || gotOK != wantOK {
			t.Fatalf("rebuilt %s: cached=%v/%v scan=%v/%v", a, got, gotOK, want, wantOK)
		}
	}
}

type brokenScanner struct{ err error }

func (b brokenScanner) Scan(ctx context.Context) iter.Seq2[domain.ProbeRecord, error] {
	return func(yield func(domain.ProbeRecord, error) bool) {
		yield(domain.ProbeRecord{}, b.err)
	}
}

func TestEvaluator_PropagatesScanErrors(t *testing.T) {
	boom := errors.New("read failed")
	if _, err := NewCachedEvaluator(context.Background(), brokenScanner{boom}); !errors.Is(err, boom) {
		t.Fatalf("cached: want %v, got %v", boom, err)
	}
	_, err := NewScanEvaluator(brokenScanner{boom}).ShouldAlert(context.Background(), "X", at(1), time.Second)
	if !errors.Is(err, boom) {
		t.Fatalf("scan: want %v, got %v", boom, err)
	}
}

func TestCooledDown(t *testing.T) {
	cases := []struct {
		now, last float64
		min       time.Duration
		want      bool
	}{
		{0, 0, 60 * time.Second, false},
		{0, 0, 0, true},
		{5, 0, 60 * time.Second, false},
		{65, 5, 60 * time.Second, true},
		{64.999, 5, 60 * time.Second, false},
	}
	for _, c := range cases {
		if got := CooledDown(c.now, c.last, c.min); got != c.want {
			t.Fatalf("CooledDown(%v, %v, %v)=%v want %v", c.now, c.last, c.min, got, c.want)
		}
	}
}
