package codec

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownCodec = errors.New("codec: unknown codec")
	ErrMalformed    = errors.New("codec: malformed event")
)

// FillEvent is the outbound record of one fill.
type FillEvent struct {
	RunID      string    `json:"run_id"`
	Seq        uint64    `json:"seq"`
	CommandSeq uint64    `json:"command_seq"`
	Position   int       `json:"position"`
	Price      int64     `json:"price"`
	Size       int64     `json:"size"`
	Exhausted  bool      `json:"exhausted"`
	Time       time.Time `json:"time"`
}

// Key is the partition key used when publishing the event.
func (e FillEvent) Key() []byte {
	return fmt.Appendf(nil, "%s/%d", e.RunID, e.Seq)
}

type Codec interface {
	Encode(FillEvent) ([]byte, error)
	Decode([]byte) (FillEvent, error)
	Name() string
}

func ByName(name string) (Codec, error) {
	switch name {
	case "json", "":
		return JSON{}, nil
	case "proto":
		return Proto{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}
