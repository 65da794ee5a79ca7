package exit

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/cockroachdb/pebble"
)

// -------------------- State --------------------

type ExitState uint8

const (
	StateNew ExitState = iota
	StateSent
	StateAcked
	StateFailed
)

func (s ExitState) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

var (
	ErrNotFound      = errors.New("exit: record not found")
	ErrInvalidRecord = errors.New("exit: invalid record")
	ErrKeyTooLong    = errors.New("exit: key too long")
)

// -------------------- Record --------------------

// ExitRecord is one fill event waiting to leave the process.
type ExitRecord struct {
	Seq         uint64
	State       ExitState
	Retries     uint32
	LastAttempt int64
	Key         []byte
	Payload     []byte
}

const recordHeader = 1 + 4 + 8 + 2

// binary encoding: [state:1][retries:4][lastAttempt:8][keyLen:2][key][payload]
func encodeRecord(r ExitRecord) []byte {
	buf := make([]byte, recordHeader, recordHeader+len(r.Key)+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	binary.BigEndian.PutUint16(buf[13:15], uint16(len(r.Key)))
	buf = append(buf, r.Key...)
	return append(buf, r.Payload...)
}

func decodeRecord(seq uint64, b []byte) (ExitRecord, error) {
	if len(b) < recordHeader {
		return ExitRecord{}, ErrInvalidRecord
	}
	keyEnd := recordHeader + int(binary.BigEndian.Uint16(b[13:15]))
	if len(b) < keyEnd {
		return ExitRecord{}, ErrInvalidRecord
	}
	return ExitRecord{
		Seq:         seq,
		State:       ExitState(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Key:         bytes.Clone(b[recordHeader:keyEnd]),
		Payload:     bytes.Clone(b[keyEnd:]),
	}, nil
}

// -------------------- WAL --------------------

// ExitWAL is a pebble-backed outbox of fill events, keyed by fill sequence.
// Entries live until the broadcaster acknowledges them.
type ExitWAL struct {
	db   *pebble.DB
	sync *pebble.WriteOptions
}

// Open opens (or creates) the outbox in dir. With durable set every write
// is fsynced before returning.
func Open(dir string, durable bool) (*ExitWAL, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("exit: open %s: %w", dir, err)
	}
	opts := pebble.NoSync
	if durable {
		opts = pebble.Sync
	}
	return &ExitWAL{db: db, sync: opts}, nil
}

func (w *ExitWAL) Close() error {
	return w.db.Close()
}

// -------------------- API --------------------

// PutNew stores a fresh event. key is the message key it is published under.
func (w *ExitWAL) PutNew(seq uint64, key, payload []byte) error {
	if len(key) > math.MaxUint16 {
		return ErrKeyTooLong
	}
	rec := ExitRecord{State: StateNew, Key: key, Payload: payload}
	return w.db.Set(keyFor(seq), encodeRecord(rec), w.sync)
}

// MarkSent records a delivery attempt in progress.
func (w *ExitWAL) MarkSent(seq uint64) error {
	return w.update(seq, func(r *ExitRecord) {
		r.State = StateSent
		r.LastAttempt = time.Now().UnixNano()
	})
}

// MarkFailed records a failed attempt and the retry count so far.
func (w *ExitWAL) MarkFailed(seq uint64, retries uint32) error {
	return w.update(seq, func(r *ExitRecord) {
		r.State = StateFailed
		r.Retries = retries
		r.LastAttempt = time.Now().UnixNano()
	})
}

// Ack removes a delivered event.
func (w *ExitWAL) Ack(seq uint64) error {
	return w.db.Delete(keyFor(seq), w.sync)
}

// Get returns the current record for seq.
func (w *ExitWAL) Get(seq uint64) (ExitRecord, error) {
	val, closer, err := w.db.Get(keyFor(seq))
	if errors.Is(err, pebble.ErrNotFound) {
		return ExitRecord{}, ErrNotFound
	}
	if err != nil {
		return ExitRecord{}, err
	}
	defer closer.Close()

	return decodeRecord(seq, val)
}

func (w *ExitWAL) update(seq uint64, fn func(*ExitRecord)) error {
	rec, err := w.Get(seq)
	if err != nil {
		return err
	}
	fn(&rec)
	return w.db.Set(keyFor(seq), encodeRecord(rec), w.sync)
}

// LastSeq returns the highest sequence still stored, or 0 when empty.
func (w *ExitWAL) LastSeq() (uint64, error) {
	iter, err := w.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, iter.Error()
	}
	return parseKey(iter.Key())
}

// -------------------- Scan --------------------

// ScanByState iterates, in sequence order, all records in the given state.
func (w *ExitWAL) ScanByState(state ExitState, fn func(rec ExitRecord) error) error {
	return w.scan(func(rec ExitRecord) (bool, error) {
		if rec.State != state {
			return true, nil
		}
		return true, fn(rec)
	})
}

// Pending iterates records that still need delivery: NEW ones, plus FAILED
// and SENT ones whose retry count is below maxRetries. A SENT record found
// here was interrupted mid-delivery.
func (w *ExitWAL) Pending(maxRetries uint32, fn func(rec ExitRecord) error) error {
	return w.scan(func(rec ExitRecord) (bool, error) {
		switch rec.State {
		case StateNew:
		case StateFailed, StateSent:
			if rec.Retries >= maxRetries {
				return true, nil
			}
		default:
			return true, nil
		}
		return true, fn(rec)
	})
}

// Count returns the number of records per state.
func (w *ExitWAL) Count() (map[ExitState]int, error) {
	out := make(map[ExitState]int)
	err := w.scan(func(rec ExitRecord) (bool, error) {
		out[rec.State]++
		return true, nil
	})
	return out, err
}

func (w *ExitWAL) scan(fn func(rec ExitRecord) (bool, error)) error {
	iter, err := w.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		rec, err := decodeRecord(seq, iter.Value())
		if err != nil {
			return err
		}
		more, err := fn(rec)
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return iter.Error()
}

// -------------------- Helpers --------------------

const keyPrefix = "fill/"

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyPrefix, seq))
}

func parseKey(b []byte) (uint64, error) {
	return strconv.ParseUint(string(bytes.TrimPrefix(b, []byte(keyPrefix))), 10, 64)
}
