package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Header is the fixed column row of the record store.
var Header = []string{"timestamp", "address", "failed"}

// Target is a configured address to monitor. Its failure history lives in the
// record store, not here.
type Target struct {
	Address string `json:"address"`
}

// ProbeRecord is one row of the record store: the outcome of a single probe.
// Timestamp is the probe start time in seconds since the Unix epoch.
type ProbeRecord struct {
	Timestamp float64 `json:"timestamp"`
	Address   string  `json:"address"`
	Failed    bool    `json:"failed"`
}

// NewProbeRecord stamps a record with the given probe start time.
func NewProbeRecord(start time.Time, address string, failed bool) ProbeRecord {
	return ProbeRecord{
		Timestamp: EpochSeconds(start),
		Address:   address,
		Failed:    failed,
	}
}

// Time converts the record timestamp back into a time.Time.
func (r ProbeRecord) Time() time.Time {
	sec, frac := math.Modf(r.Timestamp)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9)))
}

// EpochSeconds returns t as fractional seconds since the Unix epoch.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// FormatTimestamp renders seconds in shortest round-trip form, always with a
// fractional part ("0.0", "5.0", "1700000000.25").
func FormatTimestamp(sec float64) string {
	s := strconv.FormatFloat(sec, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// ParseTimestamp is the inverse of FormatTimestamp. It also accepts integer
// and exponent forms.
func ParseTimestamp(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// FormatFailed renders the failed column.
func FormatFailed(failed bool) string {
	if failed {
		return "1"
	}
	return "0"
}
