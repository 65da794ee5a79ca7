package entry

import "time"

// RecordType identifies the journaled command.
type RecordType uint8

const (
	RecordAdd RecordType = iota + 1
	RecordRemove
	RecordBuy
)

func (t RecordType) String() string {
	switch t {
	case RecordAdd:
		return "add"
	case RecordRemove:
		return "remove"
	case RecordBuy:
		return "buy"
	default:
		return "unknown"
	}
}

// Record is one journaled command.
type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}

func NewRecord(t RecordType, seq uint64, data []byte) *Record {
	return &Record{
		Type: t,
		Seq:  seq,
		Time: time.Now().UnixNano(),
		Data: data,
	}
}
