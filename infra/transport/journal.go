package transport

import (
	"fmt"

	"askbook/domain/command"
	"askbook/infra/wal/entry"
)

// JournalSource replays the commands recorded in a journal directory.
type JournalSource struct {
	r *entry.Reader
}

func NewJournalSource(dir string) (*JournalSource, error) {
	r, err := entry.OpenReader(dir)
	if err != nil {
		return nil, err
	}
	return &JournalSource{r: r}, nil
}

// Next returns io.EOF after the last record.
func (s *JournalSource) Next() (command.Command, error) {
	rec, err := s.r.Next()
	if err != nil {
		return command.Command{}, err
	}
	c, err := command.DecodeBinary(KindOf(rec.Type), rec.Data)
	if err != nil {
		return command.Command{}, fmt.Errorf("transport: journal seq %d: %w", rec.Seq, err)
	}
	return c, nil
}

// LastSeq is the sequence number of the last record returned.
func (s *JournalSource) LastSeq() uint64 {
	return s.r.LastSeq()
}

func (s *JournalSource) Close() error {
	return s.r.Close()
}

// KindOf maps a journal record type to its command kind.
func KindOf(t entry.RecordType) command.Kind {
	switch t {
	case entry.RecordAdd:
		return command.Add
	case entry.RecordRemove:
		return command.Remove
	case entry.RecordBuy:
		return command.Buy
	default:
		return 0
	}
}

// RecordTypeOf maps a command kind to its journal record type.
func RecordTypeOf(k command.Kind) entry.RecordType {
	switch k {
	case command.Add:
		return entry.RecordAdd
	case command.Remove:
		return entry.RecordRemove
	case command.Buy:
		return entry.RecordBuy
	default:
		return 0
	}
}
