package probe

import (
	"context"
	"time"
)

// Result is the outcome of a single reachability probe.
//
// Fields:
// - Reachable: the only field the monitor acts on; false covers both an
//   unreachable target and a probe mechanism that could not run.
// - Message: short human-readable reason, used in logs only.
type Result struct {
	Reachable bool
	Latency   time.Duration
	Message   string
}

// Prober performs exactly one reachability check against address.
// Implementations never retry.
type Prober interface {
	Probe(ctx context.Context, address string) Result
}

// Methods understood by the CLI and config file.
const (
	MethodPing = "ping"
	MethodTCP  = "tcp"
)
