package entry

import (
	"fmt"
	"os"
)

const DefaultSegmentSize = 64 << 20

type Config struct {
	Dir         string
	SegmentSize int64
}

// WAL journals the command stream into size-rotated segments. It is
// single-writer; Sync flushes buffered frames to disk.
type WAL struct {
	dir     string
	segSize int64
	current *segment
	buf     []byte
	lastSeq uint64
}

// Open prepares dir for appending. An existing journal is continued: new
// frames go to its newest segment and LastSeq reports where it ended.
func Open(cfg Config) (*WAL, error) {
	if cfg.SegmentSize <= 0 {
		cfg.SegmentSize = DefaultSegmentSize
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("entry: create dir: %w", err)
	}

	files, err := listSegments(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("entry: list segments: %w", err)
	}

	w := &WAL{dir: cfg.Dir, segSize: cfg.SegmentSize}
	index := 0

	if n := len(files); n > 0 {
		newest := files[n-1]
		if index, err = segmentIndex(newest); err != nil {
			return nil, fmt.Errorf("entry: bad segment name %s: %w", newest, err)
		}
		if w.lastSeq, err = lastSeqInSegment(newest); err != nil {
			return nil, fmt.Errorf("entry: scan %s: %w", newest, err)
		}
	}

	if w.current, err = openSegment(cfg.Dir, index); err != nil {
		return nil, fmt.Errorf("entry: open segment: %w", err)
	}
	return w, nil
}

// LastSeq returns the sequence of the last appended (or recovered) frame.
func (w *WAL) LastSeq() uint64 {
	return w.lastSeq
}

func (w *WAL) Append(r *Record) error {
	if r.Seq <= w.lastSeq {
		return fmt.Errorf("%w: %d after %d", ErrNonMonotonic, r.Seq, w.lastSeq)
	}

	w.buf = appendFrame(w.buf[:0], r)
	if err := w.current.append(w.buf); err != nil {
		return fmt.Errorf("entry: append: %w", err)
	}
	w.lastSeq = r.Seq

	if w.current.offset >= w.segSize {
		return w.rotate()
	}
	return nil
}

func (w *WAL) rotate() error {
	if err := w.current.close(); err != nil {
		return fmt.Errorf("entry: close segment: %w", err)
	}

	seg, err := openSegment(w.dir, w.current.index+1)
	if err != nil {
		return fmt.Errorf("entry: rotate: %w", err)
	}
	w.current = seg
	return nil
}

func (w *WAL) Sync() error {
	return w.current.sync()
}

func (w *WAL) Close() error {
	if err := w.current.sync(); err != nil {
		_ = w.current.close()
		return err
	}
	return w.current.close()
}
