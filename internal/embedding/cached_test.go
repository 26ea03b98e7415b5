package embedding

import (
	"context"
	"testing"
)

// countingEmbedder counts Embed calls so cache hits are observable.
type countingEmbedder struct {
	*MockEmbedder
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.MockEmbedder.Embed(ctx, text)
}

func TestCachedEmbedder_servesRepeatsFromCache(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(16)}
	e := NewCachedEmbedder(inner, 8)
	ctx := context.Background()

	first, err := e.Embed(ctx, "standup notes")
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Embed(ctx, "standup notes")
	if err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls: got %d, want 1", inner.calls)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cached embedding differs at %d", i)
		}
	}
}

func TestCachedEmbedder_batchMixesHitsAndMisses(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(16)}
	e := NewCachedEmbedder(inner, 8)
	ctx := context.Background()

	if _, err := e.Embed(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	out, err := e.EmbedBatch(ctx, []string{"a", "b", "a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("batch size: got %d, want 3", len(out))
	}
	if inner.calls != 2 {
		t.Errorf("inner calls: got %d, want 2 (a cached, b computed once)", inner.calls)
	}
	if e.Dimensions() != 16 {
		t.Errorf("Dimensions: got %d, want 16", e.Dimensions())
	}
}
