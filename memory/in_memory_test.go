package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amandio-vaz/collab-mistral/core"
	"github.com/amandio-vaz/collab-mistral/model"
)

var _ core.VectorStore = (*InMemoryStore)(nil)

type failingEmbedder struct{ err error }

func (e failingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return nil, e.err
}

func TestInMemoryStore_UpsertAndQuery(t *testing.T) {
	store := NewInMemoryStore(model.NewMockEmbedder())
	ctx := context.Background()

	assert.NoError(t, store.Upsert(ctx, "runbook-1", "restart the checkout service with kubectl"))
	assert.NoError(t, store.Upsert(ctx, "menu", "the cafeteria serves lunch at noon"))

	chunks, err := store.Query(ctx, "how do I restart checkout", 1)
	assert.NoError(t, err)
	assert.Len(t, chunks, 1)
	assert.Equal(t, "runbook-1", chunks[0].SourceID)
	assert.Greater(t, chunks[0].Score, 0.0)
}

func TestInMemoryStore_UpsertReplaces(t *testing.T) {
	store := NewInMemoryStore(model.NewMockEmbedder())
	ctx := context.Background()

	assert.NoError(t, store.Upsert(ctx, "doc-1", "old text"))
	assert.NoError(t, store.Upsert(ctx, "doc-1", "new text"))
	assert.Equal(t, 1, store.Len())

	chunks, err := store.Query(ctx, "text", 5)
	assert.NoError(t, err)
	assert.Len(t, chunks, 1)
	assert.Equal(t, "new text", chunks[0].Text)
}

func TestInMemoryStore_TieBreakByRecency(t *testing.T) {
	store := NewInMemoryStore(model.NewMockEmbedder())
	ctx := context.Background()

	// Identical texts embed identically, so scores tie exactly.
	assert.NoError(t, store.Upsert(ctx, "older", "identical content"))
	assert.NoError(t, store.Upsert(ctx, "newer", "identical content"))

	chunks, err := store.Query(ctx, "identical content", 2)
	assert.NoError(t, err)
	assert.Len(t, chunks, 2)
	assert.Equal(t, "newer", chunks[0].SourceID)
	assert.Equal(t, "older", chunks[1].SourceID)
}

func TestInMemoryStore_EmptyIndex(t *testing.T) {
	store := NewInMemoryStore(model.NewMockEmbedder())

	chunks, err := store.Query(context.Background(), "anything", 5)
	assert.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestInMemoryStore_KLargerThanIndex(t *testing.T) {
	store := NewInMemoryStore(model.NewMockEmbedder())
	ctx := context.Background()
	assert.NoError(t, store.Upsert(ctx, "only", "single document"))

	chunks, err := store.Query(ctx, "single document", 10)
	assert.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestInMemoryStore_EmbedderFailure(t *testing.T) {
	boom := errors.New("embedding provider down")
	store := NewInMemoryStore(failingEmbedder{err: boom})

	err := store.Upsert(context.Background(), "doc", "text")
	assert.ErrorIs(t, err, boom)

	_, err = store.Query(context.Background(), "text", 3)
	assert.ErrorIs(t, err, boom)
}

func TestInMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewInMemoryStore(model.NewMockEmbedder())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("doc-%d", i%5)
			if err := store.Upsert(ctx, id, fmt.Sprintf("content %d", i)); err != nil {
				t.Errorf("upsert error: %v", err)
			}
			if _, err := store.Query(ctx, "content", 3); err != nil {
				t.Errorf("query error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, store.Len())
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float64{1, 2}, []float64{1, 2}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float64{1, 2}, []float64{1}))
	assert.Equal(t, 0.0, Cosine([]float64{0, 0}, []float64{1, 2}))
}
