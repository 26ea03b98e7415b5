// Package embedding defines the text embedding interface used by the
// indexing and question pipelines. Embedding computation itself is
// delegated to an external model; the pipelines degrade gracefully
// when no embedder is configured.
package embedding

import "context"

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
