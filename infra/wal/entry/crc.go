package entry

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// Frame:
// [type:1][seq:8][time:8][len:4][payload][crc:4]
const (
	headerSize  = 1 + 8 + 8 + 4
	trailerSize = 4
)

var (
	ErrCRCMismatch  = errors.New("entry: crc mismatch")
	ErrTornRecord   = errors.New("entry: torn record")
	ErrNonMonotonic = errors.New("entry: non-monotonic sequence")
)

func checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// appendFrame appends the framed encoding of r to dst.
func appendFrame(dst []byte, r *Record) []byte {
	start := len(dst)
	dst = append(dst, byte(r.Type))
	dst = binary.BigEndian.AppendUint64(dst, r.Seq)
	dst = binary.BigEndian.AppendUint64(dst, uint64(r.Time))
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(r.Data)))
	dst = append(dst, r.Data...)
	return binary.BigEndian.AppendUint32(dst, checksum(dst[start:]))
}

type header struct {
	typ  RecordType
	seq  uint64
	time int64
	size uint32
}

func parseHeader(b []byte) header {
	return header{
		typ:  RecordType(b[0]),
		seq:  binary.BigEndian.Uint64(b[1:9]),
		time: int64(binary.BigEndian.Uint64(b[9:17])),
		size: binary.BigEndian.Uint32(b[17:21]),
	}
}
