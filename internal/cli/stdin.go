package cli

import (
	"io"
	"strings"
)

// MaxStdinBytes caps stdin path ingestion.
const MaxStdinBytes = 1 << 20

// ReadPaths reads whitespace-separated paths from r, up to MaxStdinBytes.
// Input over the cap is a usage error rather than a silent truncation.
func ReadPaths(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxStdinBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxStdinBytes {
		return nil, usagef("stdin input exceeds 1 MiB")
	}
	return strings.Fields(string(data)), nil
}
