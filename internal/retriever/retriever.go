// Package retriever orchestrates the retrieval pipeline: extraction,
// chunking, embedding and index builds on the write path; query embedding,
// similarity search, context assembly and grounded generation on the read
// path.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"rag-service/internal/chunker"
	"rag-service/internal/config"
	"rag-service/internal/extractor"
	"rag-service/internal/index"
	"rag-service/internal/models"
	"rag-service/internal/provider"
	"rag-service/internal/store"
)

var (
	// ErrGenerationTimeout is returned when answer generation exceeds the
	// configured deadline. No partial answer is returned.
	ErrGenerationTimeout = errors.New("generation timed out")
	// ErrEmptyQuestion is returned for blank questions.
	ErrEmptyQuestion = errors.New("question cannot be empty")
	// ErrNoDocuments is returned when the ask operation receives no
	// document ids.
	ErrNoDocuments = errors.New("no documents provided")
)

const (
	contextSeparator   = "\n\n---\n\n"
	healthProbeTimeout = 5 * time.Second
	maxTagLen          = 50
)

// Retriever owns the index table and its lifecycle. All index mutation goes
// through IndexDocument and DropDocument.
type Retriever struct {
	cfg       *config.Config
	extractor *extractor.Extractor
	chunker   *chunker.Chunker
	table     *index.Table
	embedder  provider.EmbeddingProvider
	generator provider.AnswerGenerator
	store     store.IndexStore // nil disables persistence
}

// New wires the pipeline from configuration. st may be nil for a purely
// in-memory service.
func New(cfg *config.Config, embedder provider.EmbeddingProvider, generator provider.AnswerGenerator, st store.IndexStore) (*Retriever, error) {
	ch, err := chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap, cfg.RAG.UseTiktoken)
	if err != nil {
		return nil, err
	}
	return &Retriever{
		cfg:       cfg,
		extractor: extractor.New(cfg.RAG.MinTextChars),
		chunker:   ch,
		table:     index.NewTable(),
		embedder:  embedder,
		generator: generator,
		store:     st,
	}, nil
}

// Restore reloads persisted indexes into the in-memory table. Called once
// at startup; a document that fails to load is skipped with a warning.
func (r *Retriever) Restore(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	ids, err := r.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list persisted indexes: %w", err)
	}
	for _, id := range ids {
		entries, err := r.store.Load(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("document_id", id).Msg("skipping unloadable index")
			continue
		}
		chunks := make([]models.Chunk, len(entries))
		vectors := make([][]float32, len(entries))
		for i, e := range entries {
			chunks[i] = e.Chunk
			vectors[i] = e.Vector
		}
		if err := r.table.Build(id, chunks, vectors); err != nil {
			log.Warn().Err(err).Str("document_id", id).Msg("skipping corrupt index")
			continue
		}
		log.Info().Str("document_id", id).Int("chunks", len(entries)).Msg("restored index")
	}
	return nil
}

// IndexDocument extracts, chunks, embeds and indexes one document version,
// replacing any previous index for documentID. Any stage failure aborts the
// whole operation with no partial state committed. Returns the chunk count.
//
// Builds for the same document are serialized; builds for different
// documents proceed independently.
func (r *Retriever) IndexDocument(ctx context.Context, documentID string, raw []byte, format string) (int, error) {
	if strings.TrimSpace(documentID) == "" {
		return 0, errors.New("document id cannot be empty")
	}
	lock := r.table.BuildLock(documentID)
	lock.Lock()
	defer lock.Unlock()

	// Snapshot the committed index so a failed persist can restore it.
	prev, prevErr := r.table.Entries(documentID)

	text, err := r.extractor.Extract(raw, format)
	if err != nil {
		return 0, err
	}
	chunks, err := r.chunker.Chunk(text)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, extractor.ErrEmptyContent
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}

	if err := r.table.Build(documentID, chunks, embeddings); err != nil {
		return 0, err
	}
	if r.store != nil {
		entries, err := r.table.Entries(documentID)
		if err == nil {
			err = r.store.Save(ctx, documentID, entries)
		}
		if err != nil {
			// Roll back so callers never see an index the store lost. A
			// failed re-index restores the previous committed version,
			// which the store still holds.
			if prevErr == nil {
				r.restoreEntries(documentID, prev)
			} else {
				r.table.Drop(documentID)
			}
			return 0, fmt.Errorf("failed to persist index: %w", err)
		}
	}

	log.Info().Str("document_id", documentID).Str("format", format).Int("chunks", len(chunks)).Msg("indexed document")
	return len(chunks), nil
}

// restoreEntries rebuilds a document's index from a prior snapshot.
func (r *Retriever) restoreEntries(documentID string, entries []index.Entry) {
	chunks := make([]models.Chunk, len(entries))
	vectors := make([][]float32, len(entries))
	for i, e := range entries {
		chunks[i] = e.Chunk
		vectors[i] = e.Vector
	}
	if err := r.table.Build(documentID, chunks, vectors); err != nil {
		log.Error().Err(err).Str("document_id", documentID).Msg("failed to restore previous index")
	}
}

// Ask answers a question from the indexed content of one or more documents.
// Multi-document scope is ranked cross-document: a chunk from one document
// can outrank every chunk of another. A sentinel ("not found") response is
// a successful answer with Grounded=false, never an error.
func (r *Retriever) Ask(ctx context.Context, documentIDs []string, question string) (*models.Answer, error) {
	if len(documentIDs) == 0 {
		return nil, ErrNoDocuments
	}
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	vectors, err := r.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	results, err := r.table.Search(documentIDs, vectors[0], r.cfg.RAG.TopK)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &models.Answer{Text: models.GroundingSentinel, Grounded: false}, nil
	}

	kept := r.fitToBudget(results)
	contextText := buildContext(kept)
	policy := provider.GroundingPolicy{
		Sentinel:    models.GroundingSentinel,
		DocumentIDs: documentIDs,
	}

	answer, err := r.generate(ctx, func(genCtx context.Context) (string, error) {
		return r.generator.Generate(genCtx, question, contextText, policy)
	})
	if err != nil {
		return nil, err
	}

	sources := make([]models.Source, len(kept))
	for i, sc := range kept {
		sources[i] = models.Source{DocumentID: sc.DocumentID, ChunkID: sc.Chunk.ChunkID, Score: sc.Score}
	}
	return &models.Answer{
		Text:     answer,
		Grounded: !strings.Contains(answer, models.GroundingSentinel),
		Sources:  sources,
	}, nil
}

// GenerateDoc produces a derived document (summary, report, outline or key
// points) from a document's indexed chunks. With no query vector, chunks
// are selected by sequential coverage: the first chunk, then evenly spaced
// ones, up to the context budget.
func (r *Retriever) GenerateDoc(ctx context.Context, documentID string, kind models.DocKind) (string, error) {
	template, ok := models.DocKindTemplates[kind]
	if !ok {
		return "", fmt.Errorf("unknown document kind: %s", kind)
	}
	chunks, err := r.coverageChunks(documentID)
	if err != nil {
		return "", err
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	prompt := fmt.Sprintf(template, strings.Join(texts, "\n\n"))
	return r.generate(ctx, func(genCtx context.Context) (string, error) {
		return r.generator.Complete(genCtx, prompt)
	})
}

// Summarize is GenerateDoc with the summary kind, kept as its own operation
// to match the API surface.
func (r *Retriever) Summarize(ctx context.Context, documentID string) (string, error) {
	return r.GenerateDoc(ctx, documentID, models.DocKindSummary)
}

// AutoTag derives up to maxTags lowercase keyword labels from a document's
// representative chunks. Tags are deduplicated case-insensitively; maxTags
// is clamped to the configured maximum.
func (r *Retriever) AutoTag(ctx context.Context, documentID string, maxTags int) ([]string, error) {
	if maxTags <= 0 || maxTags > r.cfg.RAG.MaxTags {
		maxTags = r.cfg.RAG.MaxTags
	}
	chunks, err := r.coverageChunks(documentID)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	prompt := fmt.Sprintf(models.AutoTagPromptTemplate, maxTags, strings.Join(texts, "\n\n"))
	response, err := r.generate(ctx, func(genCtx context.Context) (string, error) {
		return r.generator.Complete(genCtx, prompt)
	})
	if err != nil {
		return nil, err
	}
	return parseTags(response, maxTags), nil
}

// DropDocument removes a document's index from memory and from the store.
// Idempotent: dropping an unknown document is not an error.
func (r *Retriever) DropDocument(ctx context.Context, documentID string) error {
	lock := r.table.BuildLock(documentID)
	lock.Lock()
	defer lock.Unlock()

	r.table.Drop(documentID)
	if r.store != nil {
		if err := r.store.Delete(ctx, documentID); err != nil {
			return err
		}
	}
	return nil
}

// HasDocument reports whether documentID is currently indexed.
func (r *Retriever) HasDocument(documentID string) bool {
	return r.table.Has(documentID)
}

// Stats summarizes the index table.
func (r *Retriever) Stats() models.IndexStats {
	return r.table.Stats()
}

// Health describes the service state for operational monitoring.
type Health struct {
	Status            string `json:"status"`
	EmbeddingModel    string `json:"embedding_model"`
	InferenceModel    string `json:"inference_model"`
	ProviderReachable bool   `json:"provider_reachable"`
	Documents         int    `json:"documents"`
	TotalChunks       int    `json:"total_chunks"`
}

// CheckHealth probes the embedding backend with a tiny request and reports
// index totals.
func (r *Retriever) CheckHealth(ctx context.Context) Health {
	probeCtx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()
	_, err := r.embedder.Embed(probeCtx, []string{"ping"})

	stats := r.table.Stats()
	h := Health{
		Status:            "healthy",
		EmbeddingModel:    r.embedder.Model(),
		InferenceModel:    r.generator.Model(),
		ProviderReachable: err == nil,
		Documents:         stats.Documents,
		TotalChunks:       stats.TotalChunks,
	}
	if err != nil {
		h.Status = "degraded"
	}
	return h
}

// generate runs fn under the configured generation deadline, translating a
// deadline hit into ErrGenerationTimeout.
func (r *Retriever) generate(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	timeout := time.Duration(r.cfg.RAG.GenerationTimeoutSecs) * time.Second
	genCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := fn(genCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrGenerationTimeout, timeout)
		}
		return "", err
	}
	return out, nil
}

// fitToBudget keeps the highest-scoring whole chunks that fit the context
// token budget. Chunks are never truncated mid-chunk; the top chunk is
// always kept so the context is never empty.
func (r *Retriever) fitToBudget(results []models.ScoredChunk) []models.ScoredChunk {
	budget := r.cfg.RAG.ContextBudget
	var kept []models.ScoredChunk
	used := 0
	for _, sc := range results {
		cost := sc.Chunk.TokenCount
		if len(kept) > 0 && used+cost > budget {
			break
		}
		kept = append(kept, sc)
		used += cost
	}
	return kept
}

// buildContext concatenates chunks in descending score order, each tagged
// with its source so answers can cite documents and chunks.
func buildContext(chunks []models.ScoredChunk) string {
	parts := make([]string, len(chunks))
	for i, sc := range chunks {
		parts[i] = fmt.Sprintf("[%s#%d] %s", sc.DocumentID, sc.Chunk.ChunkID, sc.Chunk.Text)
	}
	return strings.Join(parts, contextSeparator)
}

// coverageChunks selects representative chunks when there is no query
// vector: the first chunk, then evenly spaced chunks across the document,
// bounded by the context token budget.
func (r *Retriever) coverageChunks(documentID string) ([]models.Chunk, error) {
	entries, err := r.table.Entries(documentID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, extractor.ErrEmptyContent
	}

	total := 0
	for _, e := range entries {
		total += e.Chunk.TokenCount
	}
	budget := r.cfg.RAG.ContextBudget
	if total <= budget {
		chunks := make([]models.Chunk, len(entries))
		for i, e := range entries {
			chunks[i] = e.Chunk
		}
		return chunks, nil
	}

	want := budget / r.cfg.RAG.ChunkSize
	if want < 1 {
		want = 1
	}
	if want > len(entries) {
		want = len(entries)
	}
	chunks := make([]models.Chunk, 0, want)
	seen := make(map[int]bool, want)
	for i := 0; i < want; i++ {
		idx := 0
		if want > 1 {
			idx = i * (len(entries) - 1) / (want - 1)
		}
		if seen[idx] {
			continue
		}
		seen[idx] = true
		chunks = append(chunks, entries[idx].Chunk)
	}
	return chunks, nil
}

// parseTags splits a comma-separated model response into clean lowercase
// tags, deduplicated and capped.
func parseTags(response string, maxTags int) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, raw := range strings.Split(response, ",") {
		tag := strings.ToLower(strings.Trim(strings.TrimSpace(raw), `"'.`))
		if tag == "" || len(tag) >= maxTagLen || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}
