// Package vector defines the vector store seam used for semantic retrieval.
package vector

import (
	"context"

	"github.com/globalfish/notes/internal/models"
)

// Entry is one stored vector with the chunk content it embeds and the
// record metadata used for filtering.
type Entry struct {
	ID       string
	Content  string
	Vector   []float32
	Metadata Metadata
}

// Metadata carries the record fields a query filter can match against.
type Metadata struct {
	Title     string
	Date      string
	Attendees []string
}

// Result is a single vector search hit. ID is the chunk ID.
type Result struct {
	ID      string
	Content string
	Score   float64 // Inner product or cosine similarity (0-1 for normalized)
}

// VectorStore defines vector storage and filtered similarity search.
// Implementations interpret the RecordFilter: attendee and topic are
// case-insensitive substring matches, date is exact.
type VectorStore interface {
	Add(ctx context.Context, entries []*Entry) error
	Query(ctx context.Context, query []float32, k int, filter models.RecordFilter) ([]*Result, error)
	Remove(ctx context.Context, ids []string) error
	Count() int
	Close() error
}
