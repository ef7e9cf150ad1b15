package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint creates a SHA256 hash over the cell texts of a table rendering.
// Two renderings with the same rows in the same order share a fingerprint.
func Fingerprint(rows [][]string) string {
	h := sha256.New()
	for _, row := range rows {
		for _, cell := range row {
			h.Write([]byte(cell))
			h.Write([]byte{0x1f}) // unit separator
		}
		h.Write([]byte{0x1e}) // record separator
	}
	return hex.EncodeToString(h.Sum(nil))
}
