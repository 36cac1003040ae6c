package metrics

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamed0406/infiping/internal/domain"
	"github.com/hamed0406/infiping/internal/repo/memory"
)

func TestCollector_ExposesStoreCounts(t *testing.T) {
	store := memory.New(
		domain.ProbeRecord{Timestamp: 0, Address: "10.0.0.1", Failed: true},
		domain.ProbeRecord{Timestamp: 5, Address: "10.0.0.1", Failed: false},
		domain.ProbeRecord{Timestamp: 10, Address: "10.0.0.2", Failed: false},
	)
	c := NewCollector(store, nil)

	// up + 2 probes + 2 failures + 1 last failure
	assert.Equal(t, 6, testutil.CollectAndCount(c))

	want := `
# HELP infiping_probe_failures_total Failed probe records in the store.
# TYPE infiping_probe_failures_total counter
infiping_probe_failures_total{address="10.0.0.1"} 1
infiping_probe_failures_total{address="10.0.0.2"} 0
# HELP infiping_last_failure_timestamp_seconds Timestamp of the last failed probe, in file order.
# TYPE infiping_last_failure_timestamp_seconds gauge
infiping_last_failure_timestamp_seconds{address="10.0.0.1"} 0
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(want),
		"infiping_probe_failures_total", "infiping_last_failure_timestamp_seconds"))
}

func TestCollector_RescansOnEachScrape(t *testing.T) {
	store := memory.New()
	c := NewCollector(store, nil)
	assert.Equal(t, 1, testutil.CollectAndCount(c, "infiping_store_up"))
	assert.Equal(t, 0, testutil.CollectAndCount(c, "infiping_probes_total"))

	require.NoError(t, store.Append(context.Background(), domain.ProbeRecord{Timestamp: 1, Address: "a"}))
	assert.Equal(t, 1, testutil.CollectAndCount(c, "infiping_probes_total"))
}

type brokenStore struct{}

func (brokenStore) Scan(context.Context) iter.Seq2[domain.ProbeRecord, error] {
	return func(yield func(domain.ProbeRecord, error) bool) {
		yield(domain.ProbeRecord{}, errors.New("bad row"))
	}
}

func TestCollector_ScanErrorReportsStoreDown(t *testing.T) {
	c := NewCollector(brokenStore{}, nil)
	want := `
# HELP infiping_store_up Whether the last scan of the record store succeeded.
# TYPE infiping_store_up gauge
infiping_store_up 0
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(want)))
}

func TestNewRegistry_Gathers(t *testing.T) {
	reg := NewRegistry(memory.New(), nil)
	mfs, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, mf := range mfs {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "infiping_store_up")
	assert.Contains(t, names, "go_goroutines")
}
