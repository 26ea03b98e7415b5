package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/globalfish/notes/internal/config"
	"github.com/globalfish/notes/internal/embedding"
	"github.com/globalfish/notes/internal/fileid"
	"github.com/globalfish/notes/internal/models"
	"github.com/globalfish/notes/internal/notes"
	"github.com/globalfish/notes/internal/storage"
	"github.com/globalfish/notes/internal/vector"
)

// Indexer scans the notes directory and indexes new or modified meeting
// notes into storage and, when configured, the vector store.
type Indexer struct {
	storage  storage.Storage
	parser   *notes.Parser
	embedder embedding.Embedder
	store    vector.VectorStore
	chunker  *Chunker
	config   *config.Config
	logger   *zap.Logger
}

// ScanResult reports what a scan did.
type ScanResult struct {
	Files  int `json:"files"`
	Chunks int `json:"chunks"`
}

// Message renders the result the way the CLI and API report it.
func (r *ScanResult) Message() string {
	if r.Files == 0 {
		return "No new or modified files."
	}
	return fmt.Sprintf("Indexed %d docs → %d chunks.", r.Files, r.Chunks)
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for scan progress and warnings.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer with the given dependencies.
// embedder and store may be nil; records and chunks are still persisted,
// only the vector push is skipped.
func NewIndexer(
	st storage.Storage,
	parser *notes.Parser,
	embedder embedding.Embedder,
	store vector.VectorStore,
	cfg *config.Config,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		storage:  st,
		parser:   parser,
		embedder: embedder,
		store:    store,
		chunker:  NewChunker(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap),
		config:   cfg,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Scan walks the notes directory and indexes every note file whose ID has
// changed since the last scan. A missing directory yields an empty result,
// not an error. Files that cannot be read are skipped with a warning.
func (idx *Indexer) Scan(ctx context.Context) (*ScanResult, error) {
	result := &ScanResult{}

	dir := idx.config.Notes.Dir
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		idx.logger.Warn("notes directory not found, nothing to index", zap.String("dir", dir))
		return result, nil
	}

	seen, err := idx.storage.SeenFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading seen files: %w", err)
	}

	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			idx.logger.Warn("skipping unreadable path", zap.String("path", path), zap.Error(walkErr))
			return nil
		}
		if d.IsDir() || !idx.extensionAllowed(path) {
			return nil
		}
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}

		noteID := fileid.NoteID(path, finfo.ModTime())
		if seen[path] == noteID {
			return nil
		}

		chunks, indexErr := idx.IndexFile(ctx, path)
		if indexErr != nil {
			idx.logger.Warn("skipping file", zap.String("path", path), zap.Error(indexErr))
			return nil
		}
		result.Files++
		result.Chunks += chunks
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking notes directory: %w", err)
	}

	idx.logger.Info("scan complete",
		zap.Int("files", result.Files),
		zap.Int("chunks", result.Chunks))
	return result, nil
}

// IndexFile parses one note file, replaces its stored records and chunks,
// pushes embeddings when the drivers are configured, and records the file
// as seen. Returns the number of chunks produced.
func (idx *Indexer) IndexFile(ctx context.Context, path string) (int, error) {
	finfo, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat file: %w", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read file: %w", err)
	}

	records := idx.parser.Parse(notes.Source{
		Path:    path,
		ModTime: finfo.ModTime(),
		Raw:     string(raw),
	})

	if err := idx.storage.DeleteRecordsByPath(ctx, path); err != nil {
		return 0, fmt.Errorf("clearing stale records: %w", err)
	}

	total := 0
	for i := range records {
		rec := &records[i]
		if err := idx.storage.UpsertRecord(ctx, rec); err != nil {
			return total, fmt.Errorf("storing record: %w", err)
		}
		chunks := idx.chunker.Chunk(rec.FileID, rec.RenderedContent)
		if len(chunks) == 0 {
			continue
		}
		if err := idx.storage.BatchCreateChunks(ctx, chunks); err != nil {
			return total, fmt.Errorf("storing chunks: %w", err)
		}
		idx.pushToVectorStore(ctx, rec, chunks)
		total += len(chunks)
	}

	noteID := fileid.NoteID(path, finfo.ModTime())
	if err := idx.storage.MarkSeen(ctx, path, noteID); err != nil {
		return total, fmt.Errorf("marking file seen: %w", err)
	}

	idx.logger.Debug("file indexed",
		zap.String("path", path),
		zap.Int("records", len(records)),
		zap.Int("chunks", total))
	return total, nil
}

// pushToVectorStore embeds and stores a record's chunks. Failures degrade
// to a warning; the records and chunks are already persisted.
func (idx *Indexer) pushToVectorStore(ctx context.Context, rec *models.MeetingRecord, chunks []*models.NoteChunk) {
	if idx.embedder == nil || idx.store == nil {
		return
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = Preprocess(ch.Content)
	}
	embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		idx.logger.Warn("embedding failed, vector push skipped",
			zap.String("file_id", rec.FileID), zap.Error(err))
		return
	}

	entries := make([]*vector.Entry, len(chunks))
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ch.Embedding = embeddings[i]
		ids[i] = ch.ID
		entries[i] = &vector.Entry{
			ID:      ch.ID,
			Content: ch.Content,
			Vector:  embeddings[i],
			Metadata: vector.Metadata{
				Title:     rec.Title,
				Date:      rec.Date,
				Attendees: rec.Attendees,
			},
		}
	}

	// Replace rather than accumulate when a file is re-indexed.
	if err := idx.store.Remove(ctx, ids); err != nil {
		idx.logger.Warn("vector remove failed", zap.String("file_id", rec.FileID), zap.Error(err))
	}
	if err := idx.store.Add(ctx, entries); err != nil {
		idx.logger.Warn("vector push failed, records still persisted",
			zap.String("file_id", rec.FileID), zap.Error(err))
	}
}

func (idx *Indexer) extensionAllowed(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, a := range idx.config.Notes.Extensions {
		if strings.ToLower(a) == ext {
			return true
		}
	}
	return false
}
