// Package fileid derives deterministic identifiers for note files and sections.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"
)

// NoteID returns a stable identifier for a file from its path and modification
// time. The ID changes if and only if path or mtime changes; this is the
// best-effort "file changed" signal used by the incremental indexer, not a
// content hash. A zero mtime (stat failed) falls back to the path alone.
func NoteID(path string, mtime time.Time) string {
	normalized := filepath.Clean(path)
	base := normalized
	if !mtime.IsZero() {
		base = fmt.Sprintf("%s:%d", normalized, mtime.UnixNano())
	}
	return digest(base)
}

// SectionID returns a stable identifier for one section of a multi-section
// file, derived from path, section title, and date. Sections from the same
// file get distinct IDs as long as their titles differ.
func SectionID(path, title, date string) string {
	normalized := filepath.Clean(path)
	return digest(fmt.Sprintf("%s:%s:%s", normalized, title, date))
}

// ChunkID returns the ID for the i-th chunk of a record. Consumers rely on
// the record's fileID being a prefix of its chunk IDs.
func ChunkID(fileID string, i int) string {
	return fmt.Sprintf("%s_%d", fileID, i)
}

func digest(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}
