//go:build !linux && !darwin

package transport

import (
	"bytes"
	"fmt"
	"os"

	"askbook/domain/command"
)

// openMapped reads the whole file where mmap is unavailable.
func openMapped(path string) (*Stream, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("transport: read %s: %w", path, err)
	}
	return &Stream{Source: command.NewDecoder(bytes.NewReader(data))}, nil
}
