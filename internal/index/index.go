// Package index implements an in-memory brute-force vector index table
// keyed by document id. Each document's index is an immutable snapshot
// replaced wholesale on rebuild, so queries never observe a half-built
// index. Sizes are per-document (hundreds to low thousands of chunks), so a
// linear scan is sufficient; the interface leaves room for an ANN structure
// later.
package index

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"rag-service/internal/models"
)

var (
	// ErrNotFound is returned when no index exists for the requested
	// document(s).
	ErrNotFound = errors.New("document not indexed")
	// ErrDimensionMismatch is returned when embeddings in a batch (or a
	// query vector) disagree on dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Entry is one stored (chunk, embedding) pair.
type Entry struct {
	Chunk  models.Chunk
	Vector []float32
}

// docIndex is an immutable snapshot of one document's entries. Vectors are
// L2-normalized at build time so similarity is a plain dot product.
type docIndex struct {
	entries   []Entry
	dimension int
}

// Table owns all per-document indexes.
type Table struct {
	mu   sync.RWMutex
	docs map[string]*docIndex

	buildMu sync.Mutex
	builds  map[string]*sync.Mutex
}

func NewTable() *Table {
	return &Table{
		docs:   make(map[string]*docIndex),
		builds: make(map[string]*sync.Mutex),
	}
}

// BuildLock returns the mutex serializing index builds for one document.
// Concurrent builds for different documents proceed independently.
func (t *Table) BuildLock(documentID string) *sync.Mutex {
	t.buildMu.Lock()
	defer t.buildMu.Unlock()
	mu, ok := t.builds[documentID]
	if !ok {
		mu = &sync.Mutex{}
		t.builds[documentID] = mu
	}
	return mu
}

// Build replaces any existing index for documentID atomically. Embeddings
// must all share one dimension and pair 1:1 with chunks.
func (t *Table) Build(documentID string, chunks []models.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("%w: %d chunks vs %d embeddings", ErrDimensionMismatch, len(chunks), len(embeddings))
	}

	idx := &docIndex{entries: make([]Entry, 0, len(chunks))}
	for i, emb := range embeddings {
		if i == 0 {
			idx.dimension = len(emb)
		} else if len(emb) != idx.dimension {
			return fmt.Errorf("%w: embedding %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(emb), idx.dimension)
		}
		idx.entries = append(idx.entries, Entry{Chunk: chunks[i], Vector: normalize(emb)})
	}

	t.mu.Lock()
	t.docs[documentID] = idx
	t.mu.Unlock()
	return nil
}

// Drop removes a document's index. Idempotent.
func (t *Table) Drop(documentID string) {
	t.mu.Lock()
	delete(t.docs, documentID)
	t.mu.Unlock()
}

// Has reports whether documentID currently has an index.
func (t *Table) Has(documentID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.docs[documentID]
	return ok
}

// Entries returns a copy of the stored entries for documentID, for
// persistence. Fails with ErrNotFound when the document is not indexed.
func (t *Table) Entries(documentID string) ([]Entry, error) {
	t.mu.RLock()
	idx, ok := t.docs[documentID]
	t.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, documentID)
	}
	out := make([]Entry, len(idx.entries))
	copy(out, idx.entries)
	return out, nil
}

// Search scans every stored embedding of the documents in scope and returns
// the top k by cosine similarity (dot product over normalized vectors).
// Documents missing from a multi-document scope are skipped; ErrNotFound is
// returned only when none of the requested documents has an index. An
// existing but empty index yields an empty result, not an error.
//
// Ranking is cross-document: results are ordered by descending score with
// ties broken by ascending (document id, chunk id), so repeated queries
// against an unchanged index are bit-identical.
func (t *Table) Search(documentIDs []string, query []float32, k int) ([]models.ScoredChunk, error) {
	t.mu.RLock()
	scope := make(map[string]*docIndex, len(documentIDs))
	for _, id := range documentIDs {
		if idx, ok := t.docs[id]; ok {
			scope[id] = idx
		}
	}
	t.mu.RUnlock()

	if len(scope) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, documentIDs)
	}
	if k <= 0 {
		return nil, nil
	}

	q := normalize(query)
	var results []models.ScoredChunk
	for id, idx := range scope {
		if len(idx.entries) > 0 && idx.dimension != len(q) {
			return nil, fmt.Errorf("%w: query has %d dimensions, index %q has %d", ErrDimensionMismatch, len(q), id, idx.dimension)
		}
		for _, e := range idx.entries {
			results = append(results, models.ScoredChunk{
				DocumentID: id,
				Chunk:      e.Chunk,
				Score:      dot(e.Vector, q),
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].DocumentID != results[j].DocumentID {
			return results[i].DocumentID < results[j].DocumentID
		}
		return results[i].Chunk.ChunkID < results[j].Chunk.ChunkID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Stats summarizes the table for the stats endpoint.
func (t *Table) Stats() models.IndexStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := models.IndexStats{Documents: len(t.docs)}
	for id, idx := range t.docs {
		stats.TotalChunks += len(idx.entries)
		stats.PerDocument = append(stats.PerDocument, models.DocumentStats{
			DocumentID: id,
			Chunks:     len(idx.entries),
			Dimension:  idx.dimension,
		})
	}
	sort.Slice(stats.PerDocument, func(i, j int) bool {
		return stats.PerDocument[i].DocumentID < stats.PerDocument[j].DocumentID
	})
	return stats
}

// normalize returns an L2-normalized copy of v. A zero vector is returned
// as a zero copy rather than dividing by zero.
func normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
