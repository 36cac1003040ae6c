package memory

import (
	"context"
	"iter"
	"sync"

	"github.com/hamed0406/infiping/internal/domain"
)

// Store keeps records in a slice. It backs tests and dry runs; nothing
// survives the process.
type Store struct {
	mu      sync.RWMutex
	records []domain.ProbeRecord

	// FailAppend, when set, is returned by every Append.
	FailAppend error
}

func New(seed ...domain.ProbeRecord) *Store {
	records := make([]domain.ProbeRecord, 0, 128)
	records = append(records, seed...)
	return &Store{records: records}
}

func (m *Store) Append(ctx context.Context, r domain.ProbeRecord) error {
	if m.FailAppend != nil {
		return m.FailAppend
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

func (m *Store) Scan(ctx context.Context) iter.Seq2[domain.ProbeRecord, error] {
	return func(yield func(domain.ProbeRecord, error) bool) {
		for _, r := range m.Records() {
			if err := ctx.Err(); err != nil {
				yield(domain.ProbeRecord{}, err)
				return
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}

// Records returns a copy of everything appended so far.
func (m *Store) Records() []domain.ProbeRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.ProbeRecord, len(m.records))
	copy(out, m.records)
	return out
}
