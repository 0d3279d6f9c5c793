package history

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amandio-vaz/collab-mistral/core"
)

func respFor(i int) *core.Response {
	return &core.Response{
		RequestID:          fmt.Sprintf("req-%d", i),
		FinalText:          fmt.Sprintf("answer %d", i),
		ContributingAgents: []string{"infra"},
	}
}

func TestInMemoryStore_RecordAndRecent(t *testing.T) {
	store := NewInMemoryStore(10)
	for i := 0; i < 3; i++ {
		store.Record(fmt.Sprintf("question %d", i), respFor(i))
	}

	recent := store.Recent(2)
	assert.Len(t, recent, 2)
	// Newest first.
	assert.Equal(t, "req-2", recent[0].RequestID)
	assert.Equal(t, "req-1", recent[1].RequestID)
	assert.Equal(t, "question 2", recent[0].RequestText)
}

func TestInMemoryStore_EvictsOldest(t *testing.T) {
	store := NewInMemoryStore(2)
	for i := 0; i < 5; i++ {
		store.Record("q", respFor(i))
	}

	assert.Equal(t, 2, store.Len())
	recent := store.Recent(0)
	assert.Len(t, recent, 2)
	assert.Equal(t, "req-4", recent[0].RequestID)
	assert.Equal(t, "req-3", recent[1].RequestID)
}

func TestInMemoryStore_CopyIsolation(t *testing.T) {
	store := NewInMemoryStore(10)
	store.Record("q", respFor(0))

	recent := store.Recent(1)
	recent[0].ContributingAgents[0] = "changed"

	again := store.Recent(1)
	assert.Equal(t, []string{"infra"}, again[0].ContributingAgents)
}

func TestInMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewInMemoryStore(100)
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Record("q", respFor(i))
			store.Recent(5)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 25, store.Len())
}
