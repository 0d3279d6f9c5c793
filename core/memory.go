package core

import "context"

// VectorStore is the minimal vector memory contract the orchestrator
// depends on. Implementations own the index and similarity search;
// embedding computation is delegated to an external embedding provider.
//
// Query returns chunks ordered highest relevance first, ties broken by most
// recent upsert. A query against an empty index returns an empty slice,
// never an error. Implementations must support concurrent reads during
// concurrent upserts; a query reflects some consistent snapshot, not
// necessarily the most recent upsert.
type VectorStore interface {
	Upsert(ctx context.Context, sourceID, text string) error
	Query(ctx context.Context, text string, k int) ([]ContextChunk, error)
}
