// Package metrics exposes the record store as Prometheus metrics.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hamed0406/infiping/internal/report"
	"github.com/hamed0406/infiping/internal/repo"
)

const namespace = "infiping"

var (
	probesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "probes_total"),
		"Probe records in the store.",
		[]string{"address"}, nil,
	)
	failuresDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "probe_failures_total"),
		"Failed probe records in the store.",
		[]string{"address"}, nil,
	)
	lastFailureDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "last_failure_timestamp_seconds"),
		"Timestamp of the last failed probe, in file order.",
		[]string{"address"}, nil,
	)
	upDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "store_up"),
		"Whether the last scan of the record store succeeded.",
		nil, nil,
	)
)

// Collector rescans the store on every scrape. The store is owned by the
// monitor process, so nothing is cached here.
type Collector struct {
	store   repo.RecordScanner
	logger  *zap.Logger
	timeout time.Duration
}

func NewCollector(store repo.RecordScanner, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{store: store, logger: logger, timeout: 10 * time.Second}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- probesDesc
	ch <- failuresDesc
	ch <- lastFailureDesc
	ch <- upDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	summaries, err := report.Summarize(ctx, c.store)
	if err != nil {
		c.logger.Warn("metrics_scan_error", zap.Error(err))
		ch <- prometheus.MustNewConstMetric(upDesc, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(upDesc, prometheus.GaugeValue, 1)
	for _, s := range summaries {
		ch <- prometheus.MustNewConstMetric(probesDesc, prometheus.CounterValue, float64(s.Probes), s.Address)
		ch <- prometheus.MustNewConstMetric(failuresDesc, prometheus.CounterValue, float64(s.Failures), s.Address)
		if s.HasFailed() {
			ch <- prometheus.MustNewConstMetric(lastFailureDesc, prometheus.GaugeValue, s.LastFailure, s.Address)
		}
	}
}

// NewRegistry returns a registry holding the store collector plus the Go and
// process collectors.
func NewRegistry(store repo.RecordScanner, logger *zap.Logger) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		NewCollector(store, logger),
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return reg
}
