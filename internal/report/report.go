// Package report folds the record store into per-address summaries.
package report

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/hamed0406/infiping/internal/domain"
	"github.com/hamed0406/infiping/internal/repo"
)

// Summary describes every recorded probe of one address.
type Summary struct {
	Address     string  `json:"address"`
	Probes      int     `json:"probes"`
	Failures    int     `json:"failures"`
	Uptime      float64 `json:"uptime"` // share of successful probes, 0..1
	FirstSeen   float64 `json:"first_seen"`
	LastSeen    float64 `json:"last_seen"`
	LastFailure float64 `json:"last_failure,omitempty"` // 0 when the address never failed
}

// HasFailed reports whether any probe of the address failed.
func (s Summary) HasFailed() bool { return s.Failures > 0 }

// Summarize scans the store once. Summaries come out in order of first
// appearance; LastFailure follows file order like the alert evaluator.
func Summarize(ctx context.Context, store repo.RecordScanner) ([]Summary, error) {
	var (
		order []string
		byKey = map[string]*Summary{}
	)
	for r, err := range store.Scan(ctx) {
		if err != nil {
			return nil, fmt.Errorf("summarize: %w", err)
		}
		s, ok := byKey[r.Address]
		if !ok {
			s = &Summary{Address: r.Address, FirstSeen: r.Timestamp}
			byKey[r.Address] = s
			order = append(order, r.Address)
		}
		s.Probes++
		s.LastSeen = r.Timestamp
		if r.Failed {
			s.Failures++
			s.LastFailure = r.Timestamp
		}
	}

	out := make([]Summary, 0, len(order))
	for _, a := range order {
		s := byKey[a]
		s.Uptime = float64(s.Probes-s.Failures) / float64(s.Probes)
		out = append(out, *s)
	}
	return out, nil
}

// Filter keeps the summaries whose address is in addresses. An empty list
// keeps everything.
func Filter(in []Summary, addresses []string) []Summary {
	if len(addresses) == 0 {
		return in
	}
	want := make(map[string]bool, len(addresses))
	for _, a := range addresses {
		want[a] = true
	}
	var out []Summary
	for _, s := range in {
		if want[s.Address] {
			out = append(out, s)
		}
	}
	return out
}

// WriteTable prints summaries as an aligned table. Times are rendered in loc.
func WriteTable(w io.Writer, summaries []Summary, loc *time.Location) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tPROBES\tFAILURES\tUPTIME\tFIRST SEEN\tLAST SEEN\tLAST FAILURE")
	for _, s := range summaries {
		lastFailure := "never"
		if s.HasFailed() {
			lastFailure = stamp(s.LastFailure, loc)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f%%\t%s\t%s\t%s\n",
			s.Address, s.Probes, s.Failures, s.Uptime*100,
			stamp(s.FirstSeen, loc), stamp(s.LastSeen, loc), lastFailure)
	}
	return tw.Flush()
}

func stamp(sec float64, loc *time.Location) string {
	r := domain.ProbeRecord{Timestamp: sec}
	return r.Time().In(loc).Format(time.DateTime)
}
