package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/globalfish/notes/internal/config"
	"github.com/globalfish/notes/internal/embedding"
	"github.com/globalfish/notes/internal/models"
	"github.com/globalfish/notes/internal/notes"
	"github.com/globalfish/notes/internal/storage"
	"github.com/globalfish/notes/internal/vector"
)

const sampleNote = `# Weekly Sync
**Date:** 2025-06-10
**Attendees:** Alice, Bob

## Notes
- Reviewed release checklist

## Action Items
- [ ] Publish changelog _(Due: 2025-06-12)_
`

func testConfig(dir string) *config.Config {
	cfg := &config.Config{}
	cfg.Notes.Dir = dir
	cfg.Notes.Extensions = []string{".md"}
	cfg.Index.ChunkSize = 750
	cfg.Index.ChunkOverlap = 100
	return cfg
}

func newTestIndexer(t *testing.T, dir string, withVector bool) (*Indexer, storage.Storage, *vector.MemoryStore) {
	t.Helper()
	st, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "notes.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	var embedder embedding.Embedder
	var store *vector.MemoryStore
	var vs vector.VectorStore
	if withVector {
		embedder = embedding.NewMockEmbedder(32)
		store, err = vector.NewMemoryStore(32)
		if err != nil {
			t.Fatal(err)
		}
		vs = store
	}

	idx := NewIndexer(st, notes.NewParser(), embedder, vs, testConfig(dir))
	return idx, st, store
}

func writeNote(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScan_indexesNewFiles(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "sync.md", sampleNote)
	writeNote(t, dir, "ignore.txt", "not a note")

	idx, st, store := newTestIndexer(t, dir, true)
	ctx := context.Background()

	result, err := idx.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if result.Files != 1 {
		t.Errorf("expected 1 file indexed, got %d", result.Files)
	}
	if result.Chunks < 1 {
		t.Errorf("expected at least 1 chunk, got %d", result.Chunks)
	}

	recs, err := st.ListRecords(ctx, models.RecordFilter{}, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Title != "Weekly Sync" || recs[0].Date != "2025-06-10" {
		t.Errorf("unexpected record: %+v", recs[0])
	}

	if store.Count() != result.Chunks {
		t.Errorf("vector store has %d entries, want %d", store.Count(), result.Chunks)
	}
}

func TestScan_secondScanIsIdle(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "sync.md", sampleNote)

	idx, _, _ := newTestIndexer(t, dir, false)
	ctx := context.Background()

	if _, err := idx.Scan(ctx); err != nil {
		t.Fatal(err)
	}
	result, err := idx.Scan(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.Files != 0 || result.Chunks != 0 {
		t.Errorf("expected idle second scan, got %+v", result)
	}
	if got := result.Message(); got != "No new or modified files." {
		t.Errorf("unexpected idle message: %q", got)
	}
}

func TestScan_reindexesModifiedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeNote(t, dir, "sync.md", sampleNote)

	idx, st, _ := newTestIndexer(t, dir, false)
	ctx := context.Background()

	if _, err := idx.Scan(ctx); err != nil {
		t.Fatal(err)
	}

	updated := "# Weekly Sync\n**Date:** 2025-06-10\n**Attendees:** Alice\n\n## Notes\n- Rescheduled release\n"
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}
	// Force a distinct mtime; write granularity can be coarse.
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}

	result, err := idx.Scan(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.Files != 1 {
		t.Fatalf("expected modified file to be re-indexed, got %+v", result)
	}

	recs, err := st.ListRecords(ctx, models.RecordFilter{}, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected stale records replaced, got %d", len(recs))
	}
	if recs[0].Notes != "Rescheduled release" {
		t.Errorf("expected updated notes, got %q", recs[0].Notes)
	}
}

func TestScan_missingDirIsNotAnError(t *testing.T) {
	idx, _, _ := newTestIndexer(t, filepath.Join(t.TempDir(), "absent"), false)

	result, err := idx.Scan(context.Background())
	if err != nil {
		t.Fatalf("missing dir should not error, got %v", err)
	}
	if result.Files != 0 || result.Chunks != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestScan_skipsNonRegularEntries(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "good.md", sampleNote)
	// A directory with a .md suffix must not be treated as a note.
	if err := os.Mkdir(filepath.Join(dir, "trap.md"), 0o755); err != nil {
		t.Fatal(err)
	}

	idx, _, _ := newTestIndexer(t, dir, false)
	result, err := idx.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Files != 1 {
		t.Errorf("expected only the good file indexed, got %+v", result)
	}
}

func TestScan_degradesWithoutVectorStore(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "sync.md", sampleNote)

	idx, st, _ := newTestIndexer(t, dir, false)
	ctx := context.Background()

	result, err := idx.Scan(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.Files != 1 {
		t.Fatalf("expected file indexed without vector store, got %+v", result)
	}
	count, err := st.CountChunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count == 0 {
		t.Error("chunks should persist even without a vector store")
	}
}

func TestIndexFile_multiSectionFile(t *testing.T) {
	dir := t.TempDir()
	multi := `## Standup
Date: 2025-06-10
Attendees: Alice

### Notes
- Quick status round

## Architecture Review
Date: 2025-06-11
Attendees: Bob

### Notes
- Debated storage schema
`
	path := writeNote(t, dir, "week.md", multi)

	idx, st, _ := newTestIndexer(t, dir, false)
	ctx := context.Background()

	if _, err := idx.IndexFile(ctx, path); err != nil {
		t.Fatalf("IndexFile failed: %v", err)
	}

	recs, err := st.ListRecords(ctx, models.RecordFilter{}, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records from multi-section file, got %d", len(recs))
	}
}

func TestScanResult_message(t *testing.T) {
	r := &ScanResult{Files: 3, Chunks: 7}
	if got := r.Message(); got != "Indexed 3 docs → 7 chunks." {
		t.Errorf("unexpected message: %q", got)
	}
}
