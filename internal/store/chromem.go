package store

import (
	"context"
	"encoding/hex"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/philippgille/chromem-go"

	"rag-service/internal/index"
	"rag-service/internal/models"
)

const (
	collectionPrefix = "doc-"
	compress         = false
)

// ChromemStore persists indexes in an embedded chromem-go database, one
// collection per document. Collection names hex-encode the document id so
// arbitrary ids map to filesystem-safe names.
type ChromemStore struct {
	db *chromem.DB
}

func NewChromemStore(path string) (*ChromemStore, error) {
	db, err := chromem.NewPersistentDB(path, compress)
	if err != nil {
		return nil, fmt.Errorf("failed to open chromem database: %w", err)
	}
	return &ChromemStore{db: db}, nil
}

func (s *ChromemStore) Save(ctx context.Context, documentID string, entries []index.Entry) error {
	name := collectionName(documentID)

	// Replace wholesale: stale chunks from a previous version must not
	// survive a re-index.
	if err := s.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("failed to reset collection: %w", err)
	}
	col, err := s.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, chromem.Document{
			ID:        strconv.Itoa(e.Chunk.ChunkID),
			Content:   e.Chunk.Text,
			Metadata:  chunkMetadata(e.Chunk),
			Embedding: e.Vector,
		})
	}
	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

func (s *ChromemStore) Load(ctx context.Context, documentID string) ([]index.Entry, error) {
	col := s.db.GetCollection(collectionName(documentID), nil)
	if col == nil {
		return nil, nil
	}
	count := col.Count()
	if count == 0 {
		return nil, nil
	}

	// chromem has no list operation; chunk ids are the dense range
	// [0, count), so the first chunk tells us the dimension and a full-size
	// query enumerates the rest.
	first, err := col.GetByID(ctx, "0")
	if err != nil {
		return nil, fmt.Errorf("failed to read collection: %w", err)
	}
	probe := make([]float32, len(first.Embedding))
	if len(probe) > 0 {
		probe[0] = 1
	}
	results, err := col.QueryEmbedding(ctx, probe, count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate collection: %w", err)
	}

	entries := make([]index.Entry, 0, len(results))
	for _, r := range results {
		chunk, err := chunkFromMetadata(r.ID, r.Content, r.Metadata)
		if err != nil {
			return nil, err
		}
		entries = append(entries, index.Entry{Chunk: chunk, Vector: r.Embedding})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Chunk.ChunkID < entries[j].Chunk.ChunkID
	})
	return entries, nil
}

func (s *ChromemStore) Delete(ctx context.Context, documentID string) error {
	if err := s.db.DeleteCollection(collectionName(documentID)); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

func (s *ChromemStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	for name := range s.db.ListCollections() {
		if !strings.HasPrefix(name, collectionPrefix) {
			continue
		}
		raw, err := hex.DecodeString(strings.TrimPrefix(name, collectionPrefix))
		if err != nil {
			continue
		}
		ids = append(ids, string(raw))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *ChromemStore) Close() error { return nil }

func collectionName(documentID string) string {
	return collectionPrefix + hex.EncodeToString([]byte(documentID))
}

func chunkMetadata(c models.Chunk) map[string]string {
	return map[string]string{
		"token_count":  strconv.Itoa(c.TokenCount),
		"start_offset": strconv.Itoa(c.StartOffset),
		"end_offset":   strconv.Itoa(c.EndOffset),
		"section":      c.Section,
	}
}

func chunkFromMetadata(id, content string, meta map[string]string) (models.Chunk, error) {
	chunkID, err := strconv.Atoi(id)
	if err != nil {
		return models.Chunk{}, fmt.Errorf("unexpected chunk id %q: %w", id, err)
	}
	atoi := func(key string) int {
		v, _ := strconv.Atoi(meta[key])
		return v
	}
	return models.Chunk{
		ChunkID:     chunkID,
		Text:        content,
		TokenCount:  atoi("token_count"),
		StartOffset: atoi("start_offset"),
		EndOffset:   atoi("end_offset"),
		Section:     meta["section"],
	}, nil
}
