// Package command defines the typed command stream that drives the book:
// add, remove and buy records, a tokenizer for the line protocol, and the
// binary payloads used by the command journal.
package command

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

type Kind uint8

const (
	Add Kind = iota + 1
	Remove
	Buy
)

// Token returns the protocol character for k.
func (k Kind) Token() byte {
	switch k {
	case Add:
		return '+'
	case Remove:
		return '-'
	case Buy:
		return '='
	default:
		return '?'
	}
}

func (k Kind) String() string {
	switch k {
	case Add:
		return "add"
	case Remove:
		return "remove"
	case Buy:
		return "buy"
	default:
		return "unknown"
	}
}

// Command is one decoded record. Only the fields of its Kind are set.
type Command struct {
	Kind   Kind
	Price  int64
	Size   int64
	Pos    int
	Shares int64
}

func NewAdd(price, size int64) Command {
	return Command{Kind: Add, Price: price, Size: size}
}

func NewRemove(pos int) Command {
	return Command{Kind: Remove, Pos: pos}
}

func NewBuy(shares int64) Command {
	return Command{Kind: Buy, Shares: shares}
}

// String renders c as a protocol line without the trailing newline.
func (c Command) String() string {
	switch c.Kind {
	case Add:
		return fmt.Sprintf("+ %d %d", c.Price, c.Size)
	case Remove:
		return fmt.Sprintf("- %d", c.Pos)
	case Buy:
		return fmt.Sprintf("= %d", c.Shares)
	default:
		return fmt.Sprintf("? kind=%d", c.Kind)
	}
}

// ---- binary payloads ----

var ErrShortPayload = errors.New("command: short payload")

// AppendBinary appends the journal payload of c to dst:
// add [price:8][size:8], remove [pos:8], buy [shares:8], big-endian.
func (c Command) AppendBinary(dst []byte) []byte {
	switch c.Kind {
	case Add:
		dst = binary.BigEndian.AppendUint64(dst, uint64(c.Price))
		dst = binary.BigEndian.AppendUint64(dst, uint64(c.Size))
	case Remove:
		dst = binary.BigEndian.AppendUint64(dst, uint64(int64(c.Pos)))
	case Buy:
		dst = binary.BigEndian.AppendUint64(dst, uint64(c.Shares))
	}
	return dst
}

// DecodeBinary is the inverse of AppendBinary.
func DecodeBinary(k Kind, payload []byte) (Command, error) {
	switch k {
	case Add:
		if len(payload) < 16 {
			return Command{}, ErrShortPayload
		}
		return NewAdd(
			int64(binary.BigEndian.Uint64(payload[0:8])),
			int64(binary.BigEndian.Uint64(payload[8:16])),
		), nil
	case Remove:
		if len(payload) < 8 {
			return Command{}, ErrShortPayload
		}
		return NewRemove(int(int64(binary.BigEndian.Uint64(payload)))), nil
	case Buy:
		if len(payload) < 8 {
			return Command{}, ErrShortPayload
		}
		return NewBuy(int64(binary.BigEndian.Uint64(payload))), nil
	default:
		return Command{}, fmt.Errorf("command: unknown kind %d", k)
	}
}

// ---- sources ----

// Source yields commands in stream order. Next returns io.EOF once the
// stream is exhausted.
type Source interface {
	Next() (Command, error)
}

// SliceSource replays a fixed list of commands.
type SliceSource struct {
	cmds []Command
	i    int
}

func NewSliceSource(cmds ...Command) *SliceSource {
	return &SliceSource{cmds: cmds}
}

func (s *SliceSource) Next() (Command, error) {
	if s.i >= len(s.cmds) {
		return Command{}, io.EOF
	}
	c := s.cmds[s.i]
	s.i++
	return c, nil
}

// ReadAll drains src.
func ReadAll(src Source) ([]Command, error) {
	var out []Command
	for {
		c, err := src.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
}
