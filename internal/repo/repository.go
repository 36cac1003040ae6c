package repo

import (
	"context"
	"iter"

	"github.com/hamed0406/infiping/internal/domain"
)

// Ports (interfaces). The monitor only ever appends and scans.
type RecordAppender interface {
	// Append durably writes one record. The store is created on first use.
	Append(ctx context.Context, r domain.ProbeRecord) error
}

type RecordScanner interface {
	// Scan yields every persisted record in file order. Each call starts a
	// fresh pass; a non-nil error ends the sequence.
	Scan(ctx context.Context) iter.Seq2[domain.ProbeRecord, error]
}

type RecordStore interface {
	RecordAppender
	RecordScanner
}
