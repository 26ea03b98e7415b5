package vector

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/globalfish/notes/internal/models"
)

// MemoryStore is an in-memory vector store using brute-force inner product search.
// Suitable for tests and small personal note collections.
type MemoryStore struct {
	dimensions int
	entries    []*Entry
	mu         sync.RWMutex
}

// NewMemoryStore creates an in-memory vector store with the given dimension.
func NewMemoryStore(dimensions int) (*MemoryStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryStore{
		dimensions: dimensions,
		entries:    make([]*Entry, 0),
	}, nil
}

// Add appends entries to the store.
func (m *MemoryStore) Add(ctx context.Context, entries []*Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		if len(e.Vector) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(e.Vector), m.dimensions)
		}
		vec := make([]float32, m.dimensions)
		copy(vec, e.Vector)
		m.entries = append(m.entries, &Entry{ID: e.ID, Content: e.Content, Vector: vec, Metadata: e.Metadata})
	}
	return nil
}

// Query returns the top-k entries by inner product among those whose metadata
// matches the filter (assumes normalized vectors = cosine similarity).
func (m *MemoryStore) Query(ctx context.Context, query []float32, k int, filter models.RecordFilter) ([]*Result, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.entries) == 0 {
		return nil, nil
	}
	var scores []*Result
	for _, e := range m.entries {
		if !matchesFilter(e.Metadata, filter) {
			continue
		}
		scores = append(scores, &Result{ID: e.ID, Content: e.Content, Score: InnerProduct(query, e.Vector)})
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k], nil
}

func matchesFilter(meta Metadata, filter models.RecordFilter) bool {
	if filter.Attendee != "" {
		joined := strings.ToLower(strings.Join(meta.Attendees, ", "))
		if !strings.Contains(joined, strings.ToLower(filter.Attendee)) {
			return false
		}
	}
	if filter.Date != "" && meta.Date != filter.Date {
		return false
	}
	if filter.Topic != "" {
		if !strings.Contains(strings.ToLower(meta.Title), strings.ToLower(filter.Topic)) {
			return false
		}
	}
	return true
}

// Remove removes entries by ID.
func (m *MemoryStore) Remove(ctx context.Context, ids []string) error {
	removeSet := make(map[string]bool)
	for _, id := range ids {
		removeSet[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := make([]*Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if !removeSet[e.ID] {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	return nil
}

// entryPayload is the JSON blob persisted per entry alongside its vector.
type entryPayload struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Save persists the store to path. Directory is created if needed. Format:
// dimension (4), n (4), then per entry: idLen (4), id bytes, payloadLen (4),
// payload JSON, vector (dimension*4 bytes).
func (m *MemoryStore) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create store file: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(m.entries))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, e := range m.entries {
		metaBytes, err := json.Marshal(entryPayload{Content: e.Content, Metadata: e.Metadata})
		if err != nil {
			return fmt.Errorf("marshal entry payload: %w", err)
		}
		idBytes := []byte(e.ID)
		if err := binary.Write(f, binary.LittleEndian, uint32(len(idBytes))); err != nil {
			return fmt.Errorf("write id len: %w", err)
		}
		if _, err := f.Write(idBytes); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if err := binary.Write(f, binary.LittleEndian, uint32(len(metaBytes))); err != nil {
			return fmt.Errorf("write metadata len: %w", err)
		}
		if _, err := f.Write(metaBytes); err != nil {
			return fmt.Errorf("write metadata: %w", err)
		}
		if _, err := f.Write(float32SliceToBytes(e.Vector)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load reads the store from path and replaces the in-memory contents. Dimensions must match.
// If the file does not exist, no error is returned and the store is unchanged.
func (m *MemoryStore) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open store file: %w", err)
	}
	defer f.Close()
	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, store expects %d", dim, m.dimensions)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make([]*Entry, 0, n)
	vecBuf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var idLen uint32
		if err := binary.Read(f, binary.LittleEndian, &idLen); err != nil {
			return fmt.Errorf("read id len: %w", err)
		}
		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(f, idBytes); err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		var payloadLen uint32
		if err := binary.Read(f, binary.LittleEndian, &payloadLen); err != nil {
			return fmt.Errorf("read payload len: %w", err)
		}
		payloadBytes := make([]byte, payloadLen)
		if _, err := io.ReadFull(f, payloadBytes); err != nil {
			return fmt.Errorf("read payload: %w", err)
		}
		var payload entryPayload
		if err := json.Unmarshal(payloadBytes, &payload); err != nil {
			return fmt.Errorf("unmarshal entry payload: %w", err)
		}
		if _, err := io.ReadFull(f, vecBuf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		m.entries = append(m.entries, &Entry{
			ID:       string(idBytes),
			Content:  payload.Content,
			Vector:   bytesToFloat32Slice(vecBuf),
			Metadata: payload.Metadata,
		})
	}
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

// Count returns the number of entries in the store.
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}
