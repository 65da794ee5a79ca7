package codec

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// ---------- Protobuf ----------

// Proto encodes events in protobuf wire format without generated code:
//
//	message FillEvent {
//	  string run_id      = 1;
//	  uint64 seq         = 2;
//	  uint64 command_seq = 3;
//	  int64  position    = 4;
//	  sint64 price       = 5;
//	  int64  size        = 6;
//	  bool   exhausted   = 7;
//	  int64  time_unix_nano = 8;
//	}
type Proto struct{}

const (
	fieldRunID protowire.Number = iota + 1
	fieldSeq
	fieldCommandSeq
	fieldPosition
	fieldPrice
	fieldSize
	fieldExhausted
	fieldTime
)

func (Proto) Name() string { return "proto" }

func (Proto) Encode(e FillEvent) ([]byte, error) {
	b := make([]byte, 0, 64+len(e.RunID))

	b = protowire.AppendTag(b, fieldRunID, protowire.BytesType)
	b = protowire.AppendString(b, e.RunID)
	b = protowire.AppendTag(b, fieldSeq, protowire.VarintType)
	b = protowire.AppendVarint(b, e.Seq)
	b = protowire.AppendTag(b, fieldCommandSeq, protowire.VarintType)
	b = protowire.AppendVarint(b, e.CommandSeq)
	b = protowire.AppendTag(b, fieldPosition, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Position))
	b = protowire.AppendTag(b, fieldPrice, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(e.Price))
	b = protowire.AppendTag(b, fieldSize, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Size))
	b = protowire.AppendTag(b, fieldExhausted, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeBool(e.Exhausted))
	if !e.Time.IsZero() {
		b = protowire.AppendTag(b, fieldTime, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e.Time.UnixNano()))
	}
	return b, nil
}

func (Proto) Decode(data []byte) (FillEvent, error) {
	var e FillEvent
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return FillEvent{}, malformed(protowire.ParseError(n))
		}
		data = data[n:]

		if num == fieldRunID && typ == protowire.BytesType {
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return FillEvent{}, malformed(protowire.ParseError(n))
			}
			e.RunID = s
			data = data[n:]
			continue
		}

		if typ != protowire.VarintType || num < fieldSeq || num > fieldTime {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return FillEvent{}, malformed(protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}

		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return FillEvent{}, malformed(protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case fieldSeq:
			e.Seq = v
		case fieldCommandSeq:
			e.CommandSeq = v
		case fieldPosition:
			e.Position = int(v)
		case fieldPrice:
			e.Price = protowire.DecodeZigZag(v)
		case fieldSize:
			e.Size = int64(v)
		case fieldExhausted:
			e.Exhausted = protowire.DecodeBool(v)
		case fieldTime:
			e.Time = time.Unix(0, int64(v)).UTC()
		}
	}
	return e, nil
}

func malformed(err error) error {
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}
