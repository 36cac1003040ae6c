// Package csvfile is the durable record store: a CSV log with a fixed header
// and CRLF line endings, appended to and never rewritten.
package csvfile

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/infiping/internal/domain"
	"github.com/hamed0406/infiping/internal/repo"
)

var _ repo.RecordStore = (*Store)(nil)

// ErrMalformedRow is wrapped by scan errors for rows that do not match the
// header schema.
var ErrMalformedRow = errors.New("malformed record row")

type Store struct {
	path string
	log  *zap.Logger
}

func New(path string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: path, log: log}
}

func (s *Store) Path() string { return s.path }

// Append writes the row (and the header, when the file is new or empty) in a
// single write and fsyncs before returning.
func (s *Store) Append(ctx context.Context, r domain.ProbeRecord) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, needHeader, err := s.open()
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = true
	if needHeader {
		_ = w.Write(domain.Header)
	}
	_ = w.Write([]string{
		domain.FormatTimestamp(r.Timestamp),
		r.Address,
		domain.FormatFailed(r.Failed),
	})
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("append record to %s: %w", s.path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", s.path, err)
	}
	if needHeader {
		s.log.Info("record_store_created", zap.String("path", s.path))
	}
	return nil
}

// open returns an append-only handle and whether the header still has to be
// written.
func (s *Store) open() (*os.File, bool, error) {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, false, fmt.Errorf("ensure record store directory: %w", err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE|os.O_EXCL, 0o644)
	if err == nil {
		return f, true, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return nil, false, fmt.Errorf("create record store %s: %w", s.path, err)
	}

	f, err = os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, false, fmt.Errorf("open record store %s: %w", s.path, err)
	}
	st, err := f.Stat()
	if err != nil {
		return nil, false, multierr.Append(fmt.Errorf("stat record store %s: %w", s.path, err), f.Close())
	}
	return f, st.Size() == 0, nil
}

// Scan reads the file lazily from the start on every iteration. A missing
// file is an empty store. A final row without a line terminator is still
// being written by the monitor and is not yielded.
func (s *Store) Scan(ctx context.Context) iter.Seq2[domain.ProbeRecord, error] {
	return func(yield func(domain.ProbeRecord, error) bool) {
		f, err := os.Open(s.path)
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		if err != nil {
			yield(domain.ProbeRecord{}, fmt.Errorf("open record store %s: %w", s.path, err))
			return
		}
		defer f.Close()

		r := csv.NewReader(&completeLines{r: bufio.NewReader(f)})
		r.FieldsPerRecord = -1
		r.ReuseRecord = true

		first := true
		for {
			if err := ctx.Err(); err != nil {
				yield(domain.ProbeRecord{}, err)
				return
			}
			fields, err := r.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(domain.ProbeRecord{}, fmt.Errorf("read record store %s: %w", s.path, err))
				return
			}
			if first {
				first = false
				if slices.Equal(fields, domain.Header) {
					continue
				}
			}

			rec, err := parseRow(fields)
			if err != nil {
				line, _ := r.FieldPos(0)
				yield(domain.ProbeRecord{}, fmt.Errorf("record store %s line %d: %w", s.path, line, err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// completeLines passes bytes through up to the last '\n' seen and drops an
// unterminated tail at EOF.
type completeLines struct {
	r       io.Reader
	ready   []byte
	pending []byte
	err     error
}

func (c *completeLines) Read(p []byte) (int, error) {
	for len(c.ready) == 0 {
		if c.err != nil {
			return 0, c.err
		}
		buf := make([]byte, 32*1024)
		n, err := c.r.Read(buf)
		c.pending = append(c.pending, buf[:n]...)
		if i := bytes.LastIndexByte(c.pending, '\n'); i >= 0 {
			c.ready = c.pending[:i+1]
			c.pending = slices.Clone(c.pending[i+1:])
		}
		if err != nil {
			c.err = err
		}
	}
	n := copy(p, c.ready)
	c.ready = c.ready[n:]
	return n, nil
}

func parseRow(fields []string) (domain.ProbeRecord, error) {
	if len(fields) != len(domain.Header) {
		return domain.ProbeRecord{}, fmt.Errorf("%w: want %d fields, got %d", ErrMalformedRow, len(domain.Header), len(fields))
	}
	ts, err := domain.ParseTimestamp(fields[0])
	if err != nil {
		return domain.ProbeRecord{}, fmt.Errorf("%w: timestamp %q", ErrMalformedRow, fields[0])
	}
	var failed bool
	switch fields[2] {
	case "0":
	case "1":
		failed = true
	default:
		return domain.ProbeRecord{}, fmt.Errorf("%w: failed flag %q", ErrMalformedRow, fields[2])
	}
	return domain.ProbeRecord{Timestamp: ts, Address: fields[1], Failed: failed}, nil
}
