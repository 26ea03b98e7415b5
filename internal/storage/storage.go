// Package storage defines the persistence interface for meeting records and chunks.
package storage

import (
	"context"

	"github.com/globalfish/notes/internal/models"
)

// Storage defines record and chunk persistence operations.
type Storage interface {
	// Record operations
	UpsertRecord(ctx context.Context, rec *models.MeetingRecord) error
	GetRecord(ctx context.Context, fileID string) (*models.MeetingRecord, error)
	ListRecords(ctx context.Context, filter models.RecordFilter, offset, limit int) ([]*models.MeetingRecord, error)
	DeleteRecordsByPath(ctx context.Context, path string) error

	// Chunk operations
	GetChunksByFileID(ctx context.Context, fileID string) ([]*models.NoteChunk, error)
	BatchCreateChunks(ctx context.Context, chunks []*models.NoteChunk) error

	// Seen-file tracking for incremental indexing. The map key is the
	// source path, the value the file ID recorded at last index time.
	SeenFiles(ctx context.Context) (map[string]string, error)
	MarkSeen(ctx context.Context, path, fileID string) error

	// Stats
	CountRecords(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
