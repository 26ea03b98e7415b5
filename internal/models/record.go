// Package models defines core data structures for meeting records, chunks, and questions.
package models

// ActionItem is a task/due-date pair extracted from a meeting note.
// DueDate is free text; the parser never validates or invents one.
type ActionItem struct {
	Task    string `json:"task"`
	DueDate string `json:"dueDate"`
}

// MeetingRecord is one normalized meeting extracted from a markdown file.
// A file may yield multiple records (one per level-2 section).
type MeetingRecord struct {
	FileID         string       `json:"file_id"`
	SourcePath     string       `json:"path"`
	SourceBasename string       `json:"source"`
	Topic          string       `json:"topic"`
	Title          string       `json:"title"`
	Date           string       `json:"date"`
	Attendees      []string     `json:"attendees"`
	Notes          string       `json:"notes"`
	ActionItems    []ActionItem `json:"action_items"`

	// RenderedContent is the human-readable rendition handed to the
	// chunking/embedding pipeline as the unit of semantic content.
	RenderedContent string `json:"rendered_content"`
}

// NoteChunk is a slice of a record's rendered content, sized for embedding.
// ID is "<fileID>_<index>" by convention so chunks share their record's prefix.
type NoteChunk struct {
	ID         string    `json:"id"`
	FileID     string    `json:"file_id"`
	Content    string    `json:"content"`
	ChunkIndex int       `json:"chunk_index"`
	Embedding  []float32 `json:"-"`
}

// NoteInput is a record-shaped structure composed by the authoring form
// (or the POST /api/v1/notes handler) before serialization to markdown.
type NoteInput struct {
	Title       string       `json:"meetingTitle"`
	Date        string       `json:"date"`
	Attendees   []string     `json:"attendees"`
	Notes       string       `json:"notes"`
	ActionItems []ActionItem `json:"actionItems"`

	// ActionLines is the authoring form's free-text alternative to
	// ActionItems: one "task | due" line per action, due date optional.
	ActionLines string `json:"actionLines"`
}
