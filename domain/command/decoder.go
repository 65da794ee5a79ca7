package command

import (
	"errors"
	"fmt"
	"io"
	"math"
)

var (
	ErrUnknownOp = errors.New("unknown operation")
	ErrSyntax    = errors.New("malformed number")
	ErrOverflow  = errors.New("number out of range")
	ErrTruncated = errors.New("truncated record")
)

// DecodeError reports a malformed record and the line it started on.
type DecodeError struct {
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("command: line %d: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decoder tokenizes the line protocol:
//
//	+ <price> <size>
//	- <pos>
//	= <shares>
//
// Fields are separated by any ASCII whitespace and the operator may touch
// its first field ("+10 5"). Price is signed; the other fields are not.
// Every transport feeds the same Decoder, so a memory-mapped file and a
// buffered pipe decode identically.
type Decoder struct {
	r    io.ByteReader
	line int

	// one byte of pushback for the start of a record found mid-field
	peek    byte
	hasPeek bool
}

func NewDecoder(r io.ByteReader) *Decoder {
	return &Decoder{r: r, line: 1}
}

// Line returns the current 1-based line.
func (d *Decoder) Line() int {
	return d.line
}

// Next decodes the next record. It returns io.EOF at a clean end of input.
// After a *DecodeError the decoder resynchronizes at the next line, so
// callers may keep reading.
func (d *Decoder) Next() (Command, error) {
	op, err := d.skipSpace()
	if err != nil {
		return Command{}, err
	}
	start := d.line

	var c Command
	switch op {
	case '+':
		c.Kind = Add
		if c.Price, err = d.readInt(true); err == nil {
			c.Size, err = d.readInt(false)
		}
	case '-':
		c.Kind = Remove
		var pos int64
		if pos, err = d.readInt(false); err == nil {
			if pos > math.MaxInt {
				err = ErrOverflow
			}
			c.Pos = int(pos)
		}
	case '=':
		c.Kind = Buy
		c.Shares, err = d.readInt(false)
	default:
		err = ErrUnknownOp
	}

	if err != nil {
		if errors.Is(err, io.EOF) {
			err = ErrTruncated
		} else if isDecodeFault(err) {
			d.skipLine(start)
		}
		if isDecodeFault(err) {
			return Command{}, &DecodeError{Line: start, Err: err}
		}
		return Command{}, err
	}
	return c, nil
}

func isDecodeFault(err error) bool {
	return errors.Is(err, ErrUnknownOp) ||
		errors.Is(err, ErrSyntax) ||
		errors.Is(err, ErrOverflow) ||
		errors.Is(err, ErrTruncated)
}

func (d *Decoder) readByte() (byte, error) {
	if d.hasPeek {
		d.hasPeek = false
		return d.peek, nil
	}
	return d.r.ReadByte()
}

func (d *Decoder) unreadByte(b byte) {
	d.peek, d.hasPeek = b, true
}

// skipSpace consumes whitespace and returns the first other byte.
func (d *Decoder) skipSpace() (byte, error) {
	for {
		b, err := d.readByte()
		if err != nil {
			return 0, err
		}
		if b == '\n' {
			d.line++
			continue
		}
		if isSpace(b) {
			continue
		}
		return b, nil
	}
}

// skipLine drops the rest of the line a bad record started on.
func (d *Decoder) skipLine(start int) {
	if d.line > start {
		return
	}
	for {
		b, err := d.readByte()
		if err != nil {
			return
		}
		if b == '\n' {
			d.line++
			return
		}
	}
}

// readInt reads one base-10 field terminated by whitespace or end of input.
// A field may continue on a later line, but a byte there that cannot start
// it is left for the next record and the current one is truncated.
func (d *Decoder) readInt(signed bool) (int64, error) {
	line := d.line
	b, err := d.skipSpace()
	if err != nil {
		return 0, err
	}
	if d.line > line && !isDigit(b) && !(signed && (b == '-' || b == '+')) {
		d.unreadByte(b)
		return 0, ErrTruncated
	}

	neg := false
	if signed && (b == '-' || b == '+') {
		neg = b == '-'
		if b, err = d.readByte(); err != nil {
			return 0, err
		}
	}
	if !isDigit(b) {
		d.unreadByte(b)
		return 0, ErrSyntax
	}

	var v int64
	for {
		digit := int64(b - '0')
		if v > (math.MaxInt64-digit)/10 {
			return 0, ErrOverflow
		}
		v = v*10 + digit

		b, err = d.readByte()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
		if isDigit(b) {
			continue
		}
		if b == '\n' {
			d.line++
			break
		}
		if isSpace(b) {
			break
		}
		return 0, ErrSyntax
	}

	if neg {
		v = -v
	}
	return v, nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\v', '\f':
		return true
	}
	return false
}
