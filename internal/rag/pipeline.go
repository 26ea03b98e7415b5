// Package rag answers questions over indexed meeting notes by retrieving
// relevant chunks and handing them to a chat model.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/globalfish/notes/internal/chat"
	"github.com/globalfish/notes/internal/embedding"
	"github.com/globalfish/notes/internal/models"
	"github.com/globalfish/notes/internal/vector"
)

// Sentinel errors for missing external drivers. Callers map these to
// degraded-mode responses rather than failures.
var (
	ErrEmbedderUnavailable    = errors.New("embedder not configured")
	ErrVectorStoreUnavailable = errors.New("vector store not configured")
	ErrChatUnavailable        = errors.New("chat model not configured")
)

const promptTemplate = "You are a helpful assistant.  Context: %s Question: %s Answer:"

// Pipeline embeds a question, retrieves matching chunks, and asks the
// chat model for an answer grounded on them.
type Pipeline struct {
	embedder embedding.Embedder
	store    vector.VectorStore
	model    chat.ChatModel
	logger   *zap.Logger
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline wires the retrieval and answering dependencies. Any of them
// may be nil; Ask reports the corresponding sentinel error.
func NewPipeline(embedder embedding.Embedder, store vector.VectorStore, model chat.ChatModel, opts ...Option) *Pipeline {
	p := &Pipeline{
		embedder: embedder,
		store:    store,
		model:    model,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ask answers the question from indexed note content. The request filter
// narrows retrieval by attendee, date, or topic.
func (p *Pipeline) Ask(ctx context.Context, req *models.AskRequest) (*models.AskResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	switch {
	case p.embedder == nil:
		return nil, ErrEmbedderUnavailable
	case p.store == nil:
		return nil, ErrVectorStoreUnavailable
	case p.model == nil:
		return nil, ErrChatUnavailable
	}

	requestID := uuid.New().String()
	start := time.Now()
	p.logger.Debug("answering question",
		zap.String("request_id", requestID),
		zap.String("question", req.Question),
		zap.Int("top_k", req.TopK))

	queryVec, err := p.embedder.Embed(ctx, req.Question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	var filter models.RecordFilter
	if req.Filters != nil {
		filter = *req.Filters
	}
	hits, err := p.store.Query(ctx, queryVec, req.TopK, filter)
	if err != nil {
		return nil, fmt.Errorf("querying vector store: %w", err)
	}

	contextText := assembleContext(hits)
	prompt := fmt.Sprintf(promptTemplate, contextText, req.Question)

	answer, err := p.model.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	sources := make([]*models.SourceChunk, 0, len(hits))
	for _, hit := range hits {
		sources = append(sources, &models.SourceChunk{
			Chunk: &models.NoteChunk{
				ID:      hit.ID,
				FileID:  fileIDFromChunkID(hit.ID),
				Content: hit.Content,
			},
			Score: hit.Score,
		})
	}

	elapsed := time.Since(start)
	p.logger.Debug("question answered",
		zap.String("request_id", requestID),
		zap.Int("sources", len(sources)),
		zap.Duration("elapsed", elapsed))

	return &models.AskResponse{
		Answer:    answer,
		Sources:   sources,
		Question:  req.Question,
		QueryTime: elapsed.Milliseconds(),
	}, nil
}

// assembleContext joins retrieved chunk contents in score order.
func assembleContext(hits []*vector.Result) string {
	parts := make([]string, 0, len(hits))
	for _, hit := range hits {
		if hit.Content != "" {
			parts = append(parts, hit.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// fileIDFromChunkID recovers the record's file ID from a "<fileID>_<index>" chunk ID.
func fileIDFromChunkID(chunkID string) string {
	if i := strings.LastIndex(chunkID, "_"); i > 0 {
		return chunkID[:i]
	}
	return chunkID
}
