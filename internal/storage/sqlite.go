// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/globalfish/notes/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		file_id TEXT PRIMARY KEY,
		source_path TEXT NOT NULL,
		source_basename TEXT,
		topic TEXT,
		title TEXT,
		date TEXT,
		attendees TEXT,
		notes TEXT,
		action_items TEXT,
		rendered_content TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_records_source_path ON records(source_path);
	CREATE INDEX IF NOT EXISTS idx_records_date ON records(date);

	CREATE TABLE IF NOT EXISTS note_chunks (
		id TEXT PRIMARY KEY,
		file_id TEXT NOT NULL,
		content TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (file_id) REFERENCES records(file_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_file_id ON note_chunks(file_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_file_chunk ON note_chunks(file_id, chunk_index);

	CREATE TABLE IF NOT EXISTS seen_files (
		path TEXT PRIMARY KEY,
		file_id TEXT NOT NULL,
		indexed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertRecord inserts a record or replaces the one with the same file ID.
func (s *SQLiteStorage) UpsertRecord(ctx context.Context, rec *models.MeetingRecord) error {
	attendeesJSON, err := json.Marshal(rec.Attendees)
	if err != nil {
		return fmt.Errorf("failed to marshal attendees: %w", err)
	}
	actionsJSON, err := json.Marshal(rec.ActionItems)
	if err != nil {
		return fmt.Errorf("failed to marshal action items: %w", err)
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (file_id, source_path, source_basename, topic, title, date,
			attendees, notes, action_items, rendered_content, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(file_id) DO UPDATE SET
			source_path = excluded.source_path,
			source_basename = excluded.source_basename,
			topic = excluded.topic,
			title = excluded.title,
			date = excluded.date,
			attendees = excluded.attendees,
			notes = excluded.notes,
			action_items = excluded.action_items,
			rendered_content = excluded.rendered_content,
			updated_at = excluded.updated_at`,
		rec.FileID, rec.SourcePath, rec.SourceBasename, rec.Topic, rec.Title, rec.Date,
		string(attendeesJSON), rec.Notes, string(actionsJSON), rec.RenderedContent, now, now,
	)
	return err
}

func scanRecord(attendeesJSON, actionsJSON string, rec *models.MeetingRecord) error {
	if attendeesJSON != "" {
		if err := json.Unmarshal([]byte(attendeesJSON), &rec.Attendees); err != nil {
			return fmt.Errorf("failed to unmarshal attendees: %w", err)
		}
	}
	if actionsJSON != "" {
		if err := json.Unmarshal([]byte(actionsJSON), &rec.ActionItems); err != nil {
			return fmt.Errorf("failed to unmarshal action items: %w", err)
		}
	}
	return nil
}

// GetRecord returns a record by file ID.
func (s *SQLiteStorage) GetRecord(ctx context.Context, fileID string) (*models.MeetingRecord, error) {
	var rec models.MeetingRecord
	var attendeesJSON, actionsJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT file_id, source_path, source_basename, topic, title, date,
			attendees, notes, action_items, rendered_content
		 FROM records WHERE file_id = ?`, fileID,
	).Scan(&rec.FileID, &rec.SourcePath, &rec.SourceBasename, &rec.Topic, &rec.Title,
		&rec.Date, &attendeesJSON, &rec.Notes, &actionsJSON, &rec.RenderedContent)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("record not found: %s", fileID)
	}
	if err != nil {
		return nil, err
	}
	if err := scanRecord(attendeesJSON, actionsJSON, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRecords returns records matching the filter, newest date first.
// Attendee and topic filters are case-insensitive substring matches;
// the date filter is an exact match.
func (s *SQLiteStorage) ListRecords(ctx context.Context, filter models.RecordFilter, offset, limit int) ([]*models.MeetingRecord, error) {
	query := `SELECT file_id, source_path, source_basename, topic, title, date,
		attendees, notes, action_items, rendered_content
	 FROM records WHERE 1=1`
	var args []any

	if filter.Attendee != "" {
		query += ` AND attendees LIKE ?`
		args = append(args, "%"+filter.Attendee+"%")
	}
	if filter.Date != "" {
		query += ` AND date = ?`
		args = append(args, filter.Date)
	}
	if filter.Topic != "" {
		query += ` AND (topic LIKE ? OR title LIKE ?)`
		args = append(args, "%"+filter.Topic+"%", "%"+filter.Topic+"%")
	}

	query += ` ORDER BY date DESC, title LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*models.MeetingRecord
	for rows.Next() {
		var rec models.MeetingRecord
		var attendeesJSON, actionsJSON string
		if err := rows.Scan(&rec.FileID, &rec.SourcePath, &rec.SourceBasename, &rec.Topic,
			&rec.Title, &rec.Date, &attendeesJSON, &rec.Notes, &actionsJSON, &rec.RenderedContent); err != nil {
			return nil, err
		}
		if err := scanRecord(attendeesJSON, actionsJSON, &rec); err != nil {
			return nil, err
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

// DeleteRecordsByPath removes all records and their chunks for a source file.
func (s *SQLiteStorage) DeleteRecordsByPath(ctx context.Context, path string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM note_chunks WHERE file_id IN (SELECT file_id FROM records WHERE source_path = ?)`,
		path,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE source_path = ?`, path); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM seen_files WHERE path = ?`, path); err != nil {
		return err
	}
	return tx.Commit()
}

// GetChunksByFileID returns all chunks for a record ordered by chunk_index.
func (s *SQLiteStorage) GetChunksByFileID(ctx context.Context, fileID string) ([]*models.NoteChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_id, content, chunk_index
		 FROM note_chunks WHERE file_id = ? ORDER BY chunk_index`,
		fileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*models.NoteChunk
	for rows.Next() {
		var chunk models.NoteChunk
		if err := rows.Scan(&chunk.ID, &chunk.FileID, &chunk.Content, &chunk.ChunkIndex); err != nil {
			return nil, err
		}
		chunks = append(chunks, &chunk)
	}
	return chunks, rows.Err()
}

// BatchCreateChunks inserts multiple chunks in a transaction.
func (s *SQLiteStorage) BatchCreateChunks(ctx context.Context, chunks []*models.NoteChunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO note_chunks (id, file_id, content, chunk_index, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.FileID, chunk.Content, chunk.ChunkIndex, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SeenFiles returns the path to file-ID map recorded by previous index runs.
func (s *SQLiteStorage) SeenFiles(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, file_id FROM seen_files`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[string]string)
	for rows.Next() {
		var path, fileID string
		if err := rows.Scan(&path, &fileID); err != nil {
			return nil, err
		}
		seen[path] = fileID
	}
	return seen, rows.Err()
}

// MarkSeen records that a file was indexed with the given file ID.
func (s *SQLiteStorage) MarkSeen(ctx context.Context, path, fileID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO seen_files (path, file_id, indexed_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET file_id = excluded.file_id, indexed_at = excluded.indexed_at`,
		path, fileID, time.Now(),
	)
	return err
}

// CountRecords returns the total number of records.
func (s *SQLiteStorage) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&count)
	return count, err
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM note_chunks`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
