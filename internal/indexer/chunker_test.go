package indexer

import (
	"fmt"
	"strings"
	"testing"
)

func TestChunk_empty(t *testing.T) {
	c := NewChunker(10, 2)
	if got := c.Chunk("f1", "   \n\t  "); got != nil {
		t.Errorf("expected nil for blank text, got %v", got)
	}
}

func TestChunk_singleChunkKeepsStructure(t *testing.T) {
	c := NewChunker(750, 100)
	text := "Meeting Title: Planning\n\nAttendees:\nAlice, Bob\n\nNotes:\n- Ship in June"

	chunks := c.Chunk("f1", text)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].ID != "f1_0" {
		t.Errorf("expected ID f1_0, got %q", chunks[0].ID)
	}
	if chunks[0].Content != text {
		t.Errorf("single chunk should keep line structure, got %q", chunks[0].Content)
	}
	if chunks[0].FileID != "f1" || chunks[0].ChunkIndex != 0 {
		t.Errorf("unexpected chunk fields: %+v", chunks[0])
	}
}

func TestChunk_overlappingWindows(t *testing.T) {
	c := NewChunker(10, 3)
	words := make([]string, 25)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	text := strings.Join(words, " ")

	chunks := c.Chunk("f1", text)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		wantID := fmt.Sprintf("f1_%d", i)
		if ch.ID != wantID || ch.ChunkIndex != i {
			t.Errorf("chunk %d: ID=%q index=%d", i, ch.ID, ch.ChunkIndex)
		}
	}
	// Step is size minus overlap, so the second window starts at word 7.
	if !strings.HasPrefix(chunks[1].Content, "w7 ") {
		t.Errorf("expected second chunk to start at w7, got %q", chunks[1].Content)
	}
	if !strings.HasSuffix(chunks[3].Content, "w24") {
		t.Errorf("expected last chunk to end at w24, got %q", chunks[3].Content)
	}
}

func TestChunk_overlapAtLeastOneStep(t *testing.T) {
	// Overlap >= size would loop forever without the step floor.
	c := NewChunker(2, 5)
	chunks := c.Chunk("f1", "a b c d")
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	if chunks[0].Content != "a b" {
		t.Errorf("unexpected first chunk: %q", chunks[0].Content)
	}
}

func TestPreprocess(t *testing.T) {
	got := Preprocess("  Meeting Title:\n\nPlanning\t session  ")
	want := "Meeting Title: Planning session"
	if got != want {
		t.Errorf("Preprocess = %q, want %q", got, want)
	}
}
