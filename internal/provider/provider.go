// Package provider defines the two narrow capability interfaces the
// retrieval core consumes: text embedding and grounded answer generation.
// Concrete backends live behind these interfaces so the core is testable
// with deterministic fakes.
package provider

import (
	"context"
	"errors"
)

// ErrUnavailable wraps transport failures reaching the embedding or
// generation backend. Callers may retry with backoff; the core never
// retries silently.
var ErrUnavailable = errors.New("provider unavailable")

// GroundingPolicy constrains answer generation to the supplied context.
// When the context does not contain the answer, the generator must respond
// with exactly Sentinel rather than fabricating content. DocumentIDs lists
// the documents the context was drawn from; more than one selects the
// multi-document prompt.
type GroundingPolicy struct {
	Sentinel    string
	DocumentIDs []string
}

// EmbeddingProvider maps texts to fixed-dimension vectors. The returned
// slice pairs 1:1 with the input and the dimensionality is constant for a
// given provider/model configuration. Index-time and query-time embeddings
// must come from the same provider/model; mismatched models produce
// meaningless similarities.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// AnswerGenerator produces natural-language text. Generate answers a
// question from retrieved context under a grounding policy; Complete runs a
// raw prompt (summaries, document generation, tagging).
type AnswerGenerator interface {
	Generate(ctx context.Context, question, contextText string, policy GroundingPolicy) (string, error)
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
}
