package sheets

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// FileChecksum returns the hex xxhash64 of a file's content.
func FileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Checksum(f)
}

// Checksum returns the hex xxhash64 of everything read from r.
func Checksum(r io.Reader) (string, error) {
	hasher := xxhash.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// GridChecksum hashes cell grids so that sources without a file (remote
// spreadsheets, in-memory tables) still get a content identity.
func GridChecksum(grids ...[][]string) string {
	digest := xxhash.New()
	for gi, grid := range grids {
		fmt.Fprintf(digest, "#%d\x1e", gi)
		for _, row := range grid {
			for _, cell := range row {
				digest.WriteString(cell)
				digest.WriteString("\x1f")
			}
			digest.WriteString("\x1e")
		}
	}
	return hex.EncodeToString(digest.Sum(nil))
}
