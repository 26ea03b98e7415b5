// Package indexer provides incremental note scanning, chunking, and indexing.
package indexer

import (
	"strings"

	"github.com/globalfish/notes/internal/fileid"
	"github.com/globalfish/notes/internal/models"
)

// Chunker splits rendered note content into overlapping word-based chunks.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in words).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Chunk splits text into NoteChunks with overlapping windows. Chunk IDs are
// "<fileID>_<index>" so a record's chunks are recoverable from their prefix.
// Content that fits in a single chunk is kept verbatim, line structure intact.
func (c *Chunker) Chunk(fileID, text string) []*models.NoteChunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= c.chunkSize {
		return []*models.NoteChunk{{
			ID:         fileid.ChunkID(fileID, 0),
			FileID:     fileID,
			Content:    strings.TrimSpace(text),
			ChunkIndex: 0,
		}}
	}
	chunks := make([]*models.NoteChunk, 0)
	chunkIndex := 0
	step := c.chunkSize - c.chunkOverlap
	if step <= 0 {
		step = 1
	}
	for i := 0; i < len(words); i += step {
		end := i + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunk := &models.NoteChunk{
			ID:         fileid.ChunkID(fileID, chunkIndex),
			FileID:     fileID,
			Content:    strings.Join(words[i:end], " "),
			ChunkIndex: chunkIndex,
		}
		chunks = append(chunks, chunk)
		chunkIndex++
		if end >= len(words) {
			break
		}
	}
	return chunks
}
