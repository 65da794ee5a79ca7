// Package transport turns an input (standard input, a file, a memory-mapped
// file or a command journal) into a command.Source.
package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"askbook/domain/command"
)

const (
	KindStdin   = "stdin"
	KindFile    = "file"
	KindMmap    = "mmap"
	KindJournal = "journal"
)

var (
	ErrUnknownKind = errors.New("transport: unknown kind")
	ErrNoPath      = errors.New("transport: path required")
)

const readBufferSize = 1 << 16

// Stream is a command source bound to the resource that feeds it.
type Stream struct {
	command.Source
	close func() error
}

func (s *Stream) Close() error {
	if s.close == nil {
		return nil
	}
	err := s.close()
	s.close = nil
	return err
}

// Open opens the stream of the given kind. path is ignored for stdin.
// Journals are read through NewJournalSource, which keeps their sequence
// numbers.
func Open(kind, path string) (*Stream, error) {
	switch kind {
	case KindStdin, "":
		return NewReaderStream(os.Stdin), nil
	case KindFile:
		if path == "" {
			return nil, ErrNoPath
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("transport: open %s: %w", path, err)
		}
		s := NewReaderStream(f)
		s.close = f.Close
		return s, nil
	case KindMmap:
		if path == "" {
			return nil, ErrNoPath
		}
		return openMapped(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// NewReaderStream decodes the line protocol from r through a buffer.
func NewReaderStream(r io.Reader) *Stream {
	return &Stream{Source: command.NewDecoder(bufio.NewReaderSize(r, readBufferSize))}
}
