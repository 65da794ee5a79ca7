package command

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeAll(t *testing.T, input string) ([]Command, error) {
	t.Helper()
	return ReadAll(NewDecoder(bufio.NewReader(strings.NewReader(input))))
}

func TestDecodeProtocol(t *testing.T) {
	cmds, err := decodeAll(t, "+ 10 5\n+ 9 3\n+ 10 5\n= 6\n- 2\n")
	require.NoError(t, err)
	assert.Equal(t, []Command{
		NewAdd(10, 5),
		NewAdd(9, 3),
		NewAdd(10, 5),
		NewBuy(6),
		NewRemove(2),
	}, cmds)
}

func TestDecodeLayoutVariants(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Command
	}{
		{"operator touching field", "+10 5\n-3\n=7\n", []Command{NewAdd(10, 5), NewRemove(3), NewBuy(7)}},
		{"no trailing newline", "= 12", []Command{NewBuy(12)}},
		{"crlf line endings", "+ 1 2\r\n= 3\r\n", []Command{NewAdd(1, 2), NewBuy(3)}},
		{"tabs and blank lines", "\n\t+\t4\t5\n\n\n=\t1\n", []Command{NewAdd(4, 5), NewBuy(1)}},
		{"fields split across lines", "+ 4\n5 = 1", []Command{NewAdd(4, 5), NewBuy(1)}},
		{"signed prices", "+ -7 1\n+ +8 2\n", []Command{NewAdd(-7, 1), NewAdd(8, 2)}},
		{"empty input", "", nil},
		{"only whitespace", " \n\n  ", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmds, err := decodeAll(t, tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, cmds)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
		line  int
	}{
		{"unknown operator", "+ 1 1\n* 4\n", ErrUnknownOp, 2},
		{"letters in number", "= 1x\n", ErrSyntax, 1},
		{"signed size", "+ 10 -5\n", ErrSyntax, 1},
		{"signed position", "\n\n- -1\n", ErrSyntax, 3},
		{"overflow", "= 99999999999999999999\n", ErrOverflow, 1},
		{"truncated add", "+ 10", ErrTruncated, 1},
		{"bare operator", "=", ErrTruncated, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeAll(t, tc.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)

			var de *DecodeError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tc.line, de.Line)
		})
	}
}

func TestDecoderResynchronizesAfterBadLine(t *testing.T) {
	d := NewDecoder(bufio.NewReader(strings.NewReader("+ 1 1\n? junk here\n= 1\n")))

	c, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, NewAdd(1, 1), c)

	_, err = d.Next()
	assert.ErrorIs(t, err, ErrUnknownOp)

	c, err = d.Next()
	require.NoError(t, err)
	assert.Equal(t, NewBuy(1), c)

	_, err = d.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoderKeepsRecordAfterBadLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Command
		errs  []error
	}{
		{"sign then newline", "+ -\n= 5\n= 7\n", []Command{NewBuy(5), NewBuy(7)}, []error{ErrSyntax}},
		{"operator where field expected", "+ 10\n- 3\n= 7\n", []Command{NewRemove(3), NewBuy(7)}, []error{ErrSyntax}},
		{"record ends at line end", "+ 10 \n- 3\n", []Command{NewRemove(3)}, []error{ErrTruncated}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDecoder(bufio.NewReader(strings.NewReader(tc.input)))

			var got []Command
			var errs []error
			for {
				c, err := d.Next()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					var de *DecodeError
					require.True(t, errors.As(err, &de))
					assert.Equal(t, 1, de.Line)
					errs = append(errs, de.Err)
					continue
				}
				got = append(got, c)
			}

			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.errs, errs)
		})
	}
}

func TestDecodeRoundTripsString(t *testing.T) {
	in := []Command{NewAdd(-4, 9), NewRemove(0), NewBuy(1000)}

	var sb strings.Builder
	for _, c := range in {
		sb.WriteString(c.String())
		sb.WriteByte('\n')
	}

	out, err := decodeAll(t, sb.String())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestBinaryPayloads(t *testing.T) {
	for _, c := range []Command{NewAdd(-4, 9), NewRemove(17), NewBuy(1000)} {
		got, err := DecodeBinary(c.Kind, c.AppendBinary(nil))
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	_, err := DecodeBinary(Add, []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrShortPayload)

	_, err = DecodeBinary(Kind(42), nil)
	assert.Error(t, err)
}

func TestSliceSource(t *testing.T) {
	src := NewSliceSource(NewBuy(1), NewRemove(2))

	cmds, err := ReadAll(src)
	require.NoError(t, err)
	assert.Len(t, cmds, 2)

	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}
