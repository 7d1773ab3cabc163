// Package chunkembed implements the Chunk Embedding Service (spec.md
// §4.7): turns a plugin's EmbeddableChunk values into persisted
// chunk/embedding pairs, honoring the configured ChunkEmbeddingMode.
package chunkembed

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"contextengine/internal/apperr"
	"contextengine/internal/db"
	"contextengine/internal/persistence"
	"contextengine/internal/pluginlib"
	"contextengine/internal/provider"
	"contextengine/internal/shard"
)

// Mode selects how a chunk's embedding text is derived.
type Mode int

const (
	// EmbeddableTextOnly embeds chunk.embeddable_text directly. Default.
	EmbeddableTextOnly Mode = iota
	// GeneratedDescriptionOnly embeds a provider-generated description
	// of the chunk instead of its raw text.
	GeneratedDescriptionOnly
	// EmbeddableTextAndGeneratedDescription embeds the description
	// followed by the raw embeddable text.
	EmbeddableTextAndGeneratedDescription
)

// Service converts plugin chunks into persisted embeddings.
type Service struct {
	// EmbedderName identifies the provider backend (e.g. "ollama"),
	// the `embedder` half of a shard's `(embedder, model_id)` identity;
	// Embedder.ModelID() supplies the other half.
	EmbedderName string
	Embedder     provider.EmbeddingProvider
	Describer    provider.DescriptionProvider // required only for modes that use it
	Resolver     *shard.Resolver
	Persistence  *persistence.Writer
	Mode         Mode
}

// New builds a Service. describer may be nil when mode is
// EmbeddableTextOnly.
func New(embedderName string, embedder provider.EmbeddingProvider, describer provider.DescriptionProvider, resolver *shard.Resolver, writer *persistence.Writer, mode Mode) *Service {
	return &Service{EmbedderName: embedderName, Embedder: embedder, Describer: describer, Resolver: resolver, Persistence: writer, Mode: mode}
}

// EmbedAndPersist computes display_text and an embedding for every
// chunk, embeds all of them, then resolves the shard and persists
// atomically with override=true for datasourceID. Per spec.md §4.7,
// embedding happens for every chunk before any persistence is
// attempted: a provider failure partway through must not leave a
// partial shard or chunk rows without vectors.
func (s *Service) EmbedAndPersist(ctx context.Context, fullType, datasourceID, contextYAML string, chunks []pluginlib.EmbeddableChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	embeddings := make([]persistence.ChunkEmbedding, 0, len(chunks))

	for _, c := range chunks {
		displayText, err := displayTextOf(c.Content)
		if err != nil {
			return fmt.Errorf("%w: computing display_text: %v", apperr.ErrValidation, err)
		}

		text, err := s.embeddingTextFor(ctx, displayText, c.EmbeddableText, contextYAML)
		if err != nil {
			return err
		}

		vec, err := s.Embedder.Embed(ctx, text)
		if err != nil {
			return err
		}
		if len(vec) != s.Embedder.Dim() {
			return fmt.Errorf("%w: embedder returned dim %d, want %d", apperr.ErrEmbeddingPermanent, len(vec), s.Embedder.Dim())
		}

		displayPtr := &displayText
		embeddings = append(embeddings, persistence.ChunkEmbedding{
			Chunk: db.Chunk{
				FullType:       fullType,
				DatasourceID:   datasourceID,
				DisplayText:    displayPtr,
				EmbeddableText: c.EmbeddableText,
			},
			Vector: vec,
		})
	}

	tableName, err := s.Resolver.ResolveOrCreate(ctx, s.EmbedderName, s.Embedder.ModelID(), s.Embedder.Dim())
	if err != nil {
		return err
	}

	return s.Persistence.WriteChunksAndEmbeddings(ctx, embeddings, tableName, datasourceID, true)
}

func (s *Service) embeddingTextFor(ctx context.Context, displayText, embeddableText, contextYAML string) (string, error) {
	switch s.Mode {
	case EmbeddableTextOnly:
		return embeddableText, nil

	case GeneratedDescriptionOnly:
		if s.Describer == nil {
			return "", fmt.Errorf("%w: GeneratedDescriptionOnly mode requires a DescriptionProvider", apperr.ErrValidation)
		}
		desc, err := s.Describer.Describe(ctx, displayText, contextYAML)
		if err != nil {
			return "", err
		}
		return desc, nil

	case EmbeddableTextAndGeneratedDescription:
		if s.Describer == nil {
			return "", fmt.Errorf("%w: EmbeddableTextAndGeneratedDescription mode requires a DescriptionProvider", apperr.ErrValidation)
		}
		desc, err := s.Describer.Describe(ctx, displayText, contextYAML)
		if err != nil {
			return "", err
		}
		return desc + "\n" + embeddableText, nil

	default:
		return "", fmt.Errorf("%w: unknown chunk embedding mode %d", apperr.ErrValidation, s.Mode)
	}
}

// displayTextOf returns content directly if it is already a string,
// else its YAML encoding, per spec.md §4.7.
func displayTextOf(content any) (string, error) {
	if s, ok := content.(string); ok {
		return s, nil
	}
	out, err := yaml.Marshal(content)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
