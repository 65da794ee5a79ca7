//go:build linux || darwin

package transport

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"askbook/domain/command"

	"golang.org/x/sys/unix"
)

// openMapped maps the whole file read-only and decodes it in place.
func openMapped(path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("transport: stat %s: %w", path, err)
	}
	size := fi.Size()
	if size == 0 {
		return &Stream{Source: command.NewSliceSource()}, nil
	}
	if int64(int(size)) != size {
		return nil, fmt.Errorf("transport: %s: file too large to map", path)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("transport: mmap %s: %w", path, err)
	}
	if err := unix.Madvise(data, unix.MADV_SEQUENTIAL); err != nil && !errors.Is(err, unix.ENOSYS) {
		_ = unix.Munmap(data)
		return nil, fmt.Errorf("transport: madvise %s: %w", path, err)
	}

	return &Stream{
		Source: command.NewDecoder(bytes.NewReader(data)),
		close:  func() error { return unix.Munmap(data) },
	}, nil
}
