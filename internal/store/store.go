// Package store provides durable persistence of one vector index per
// document, so the in-memory index table survives restarts. Persistence is
// peripheral: the retriever works fine with no store at all.
package store

import (
	"context"

	"rag-service/internal/index"
)

// IndexStore persists index entries keyed by document id. Save replaces the
// stored index wholesale, mirroring the in-memory replace semantics.
type IndexStore interface {
	Save(ctx context.Context, documentID string, entries []index.Entry) error
	Load(ctx context.Context, documentID string) ([]index.Entry, error)
	Delete(ctx context.Context, documentID string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}
