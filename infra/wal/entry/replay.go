package entry

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Reader iterates the frames of a journal directory in order, verifying
// checksums and sequence order.
type Reader struct {
	files   []string
	next    int
	file    *os.File
	r       *bufio.Reader
	hdr     []byte
	lastSeq uint64
}

func OpenReader(dir string) (*Reader, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("entry: open journal: %w", err)
	}
	files, err := listSegments(dir)
	if err != nil {
		return nil, fmt.Errorf("entry: list segments: %w", err)
	}
	return &Reader{files: files, hdr: make([]byte, headerSize)}, nil
}

// Next returns the next record, or io.EOF after the last segment.
func (r *Reader) Next() (*Record, error) {
	for {
		if r.file == nil {
			if r.next >= len(r.files) {
				return nil, io.EOF
			}
			f, err := os.Open(r.files[r.next])
			if err != nil {
				return nil, fmt.Errorf("entry: open segment: %w", err)
			}
			r.next++
			r.file = f
			r.r = bufio.NewReaderSize(f, 64<<10)
		}

		rec, err := r.readRecord()
		if errors.Is(err, io.EOF) {
			_ = r.file.Close()
			r.file = nil
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.files[r.next-1], err)
		}

		if rec.Seq <= r.lastSeq {
			return nil, fmt.Errorf("%w: %d after %d", ErrNonMonotonic, rec.Seq, r.lastSeq)
		}
		r.lastSeq = rec.Seq
		return rec, nil
	}
}

// LastSeq returns the sequence of the last record returned by Next.
func (r *Reader) LastSeq() uint64 {
	return r.lastSeq
}

func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func (r *Reader) readRecord() (*Record, error) {
	if _, err := io.ReadFull(r.r, r.hdr); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTornRecord
		}
		return nil, err
	}
	h := parseHeader(r.hdr)

	frame := make([]byte, headerSize+int(h.size)+trailerSize)
	copy(frame, r.hdr)
	if _, err := io.ReadFull(r.r, frame[headerSize:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTornRecord
		}
		return nil, err
	}

	body := frame[:headerSize+int(h.size)]
	if checksum(body) != binary.BigEndian.Uint32(frame[len(body):]) {
		return nil, ErrCRCMismatch
	}

	return &Record{
		Type: h.typ,
		Seq:  h.seq,
		Time: h.time,
		Data: body[headerSize:],
	}, nil
}

// ReplayHandler receives each journaled record in order.
type ReplayHandler func(*Record) error

// Replay feeds every record of dir to fn and returns the last sequence seen.
func Replay(dir string, fn ReplayHandler) (lastSeq uint64, err error) {
	r, err := OpenReader(dir)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return r.LastSeq(), nil
		}
		if err != nil {
			return r.LastSeq(), err
		}
		if err := fn(rec); err != nil {
			return r.LastSeq(), err
		}
	}
}
