package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"rag-service/internal/config"
	"rag-service/internal/models"
)

// LangchainEmbedder implements EmbeddingProvider on top of a langchaingo
// embedder (ollama or any openai-compatible endpoint).
type LangchainEmbedder struct {
	embedder *embeddings.EmbedderImpl
	model    string
}

// NewEmbedder builds the embedding backend selected by cfg.
func NewEmbedder(cfg *config.ProviderConfig) (*LangchainEmbedder, error) {
	llm, err := newLLM(cfg, cfg.EmbeddingModel)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	log.Debug().
		Str("type", cfg.Type).
		Str("base_url", cfg.BaseURL).
		Str("embedding_model", cfg.EmbeddingModel).
		Msg("initialized embedder")
	return &LangchainEmbedder{embedder: embedder, model: cfg.EmbeddingModel}, nil
}

func (e *LangchainEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, wrapProviderErr(err, "embedding request failed")
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrUnavailable, len(vectors), len(texts))
	}
	return vectors, nil
}

func (e *LangchainEmbedder) Model() string { return e.model }

// LangchainGenerator implements AnswerGenerator via llms.GenerateContent.
type LangchainGenerator struct {
	llm   llms.Model
	model string
}

// NewGenerator builds the inference backend selected by cfg.
func NewGenerator(cfg *config.ProviderConfig) (*LangchainGenerator, error) {
	llm, err := newLLM(cfg, cfg.InferenceModel)
	if err != nil {
		return nil, err
	}
	return &LangchainGenerator{llm: llm, model: cfg.InferenceModel}, nil
}

func (g *LangchainGenerator) Generate(ctx context.Context, question, contextText string, policy GroundingPolicy) (string, error) {
	sentinel := policy.Sentinel
	if sentinel == "" {
		sentinel = models.GroundingSentinel
	}
	var prompt string
	if len(policy.DocumentIDs) > 1 {
		prompt = fmt.Sprintf(models.MultiDocAnswerPromptTemplate,
			strings.Join(policy.DocumentIDs, ", "), sentinel, contextText, question)
	} else {
		prompt = fmt.Sprintf(models.AnswerPromptTemplate, sentinel, contextText, question)
	}
	return g.Complete(ctx, prompt)
}

func (g *LangchainGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: "You are a helpful assistant that answers questions based on document content."}},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}

	res, err := g.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(0.3),
		llms.WithMaxTokens(1000),
	)
	if err != nil {
		return "", wrapProviderErr(err, "generation request failed")
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}
	return strings.TrimSpace(res.Choices[0].Content), nil
}

func (g *LangchainGenerator) Model() string { return g.model }

// llmClient is what both langchaingo backends provide: chat generation
// plus the embedding endpoint embeddings.NewEmbedder requires.
type llmClient interface {
	llms.Model
	embeddings.EmbedderClient
}

func newLLM(cfg *config.ProviderConfig, model string) (llmClient, error) {
	switch cfg.Type {
	case "ollama":
		llm, err := ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama client: %w", err)
		}
		return llm, nil
	case "openai":
		llm, err := openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.APIKey, "Bearer ")),
			openai.WithModel(model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai client: %w", err)
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// wrapProviderErr marks transport failures as ErrUnavailable while letting
// context cancellation and deadline errors pass through untouched, so the
// caller can distinguish a timeout from an unreachable backend.
func wrapProviderErr(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, msg, err)
}
