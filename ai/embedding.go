package ai

import (
	"context"
	"strings"

	"github.com/castoldi/stash/ai/vector"
)

// KeywordExtractor is the capability the embedding service needs from the
// enrichment layer: a ranked list of salient keywords, empty on any failure.
type KeywordExtractor interface {
	ExtractKeywords(ctx context.Context, text string) []string
}

// EmbeddingService produces fixed-dimension embeddings for free text.
type EmbeddingService interface {
	// Embed returns a unit-length vector for the text, or nil when no
	// embedding can be produced: empty/whitespace input, or text without a
	// single usable token (the codec then yields a zero vector, which is
	// absence, not a valid embedding). When keyword extraction is unavailable
	// it falls back to a pure hash embedding.
	Embed(ctx context.Context, text string) []float32

	// Dimensions returns the vector dimension.
	Dimensions() int
}

// keywordInputLimit bounds how much text is sent to the keyword extractor to
// bound prompt cost. The full text still feeds the vector codec.
const keywordInputLimit = 2000

type embeddingService struct {
	extractor KeywordExtractor
}

// NewEmbeddingService creates an EmbeddingService. A nil extractor is allowed;
// every embedding then takes the hash fallback path.
func NewEmbeddingService(extractor KeywordExtractor) EmbeddingService {
	return &embeddingService{extractor: extractor}
}

func (s *embeddingService) Embed(ctx context.Context, text string) []float32 {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var vec []float32
	if s.extractor != nil {
		prefix := text
		if runes := []rune(text); len(runes) > keywordInputLimit {
			prefix = string(runes[:keywordInputLimit])
		}
		if keywords := s.extractor.ExtractKeywords(ctx, prefix); len(keywords) > 0 {
			vec = vector.ConceptsToVector(keywords, text)
		}
	}
	if vec == nil {
		vec = vector.SimpleEmbedding(text)
	}

	// A zero vector carries no signal and breaks the unit-norm contract, so
	// report it as absent and let callers take their fallback path.
	if vector.Norm(vec) == 0 {
		return nil
	}
	return vec
}

func (s *embeddingService) Dimensions() int {
	return vector.Dimensions
}
