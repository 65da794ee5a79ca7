package entry

import (
	"bufio"
	"errors"
	"io"
	"os"
)

// lastSeqInSegment scans a segment's headers and returns the highest
// sequence found. Payloads are skipped, not verified.
func lastSeqInSegment(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	hdr := make([]byte, headerSize)
	var last uint64

	for {
		if _, err := io.ReadFull(r, hdr); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return last, nil
			}
			return last, err
		}

		h := parseHeader(hdr)
		last = max(last, h.seq)

		if _, err := r.Discard(int(h.size) + trailerSize); err != nil {
			if errors.Is(err, io.EOF) {
				return last, nil
			}
			return last, err
		}
	}
}
