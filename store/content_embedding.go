package store

import (
	"context"

	"github.com/pkg/errors"
)

// ContentEmbedding is the stored vector of a content item. Absence is a valid
// state: items whose text was empty at write time simply have no row.
type ContentEmbedding struct {
	ContentID string
	Embedding []float32
	UpdatedTs int64
}

// ContentWithScore is a vector search result with its cosine similarity.
type ContentWithScore struct {
	Content *Content
	Score   float32 // 0-1, higher is more similar
}

// VectorSearchOptions are the options for content vector search.
type VectorSearchOptions struct {
	OwnerID int32
	Vector  []float32
	Limit   int
}

// Validate validates the VectorSearchOptions.
func (o *VectorSearchOptions) Validate() error {
	if o.OwnerID <= 0 {
		return errors.Errorf("invalid OwnerID: %d", o.OwnerID)
	}
	if len(o.Vector) == 0 {
		return errors.New("vector cannot be empty")
	}
	if o.Limit < 0 {
		return errors.Errorf("limit cannot be negative: %d", o.Limit)
	}
	if o.Limit == 0 {
		o.Limit = 20
	}
	if o.Limit > 1000 {
		return errors.Errorf("limit too large (max 1000): %d", o.Limit)
	}
	return nil
}

// TextSearchOptions are the options for the substring fallback search.
type TextSearchOptions struct {
	OwnerID int32
	// Query matches title, description, or body text case-insensitively, or a
	// tag exactly.
	Query string
	Limit int
}

// UpsertContentEmbedding inserts or replaces the embedding of a content item.
func (s *Store) UpsertContentEmbedding(ctx context.Context, embedding *ContentEmbedding) (*ContentEmbedding, error) {
	return s.driver.UpsertContentEmbedding(ctx, embedding)
}

// GetContentEmbedding returns the stored embedding or nil when absent.
func (s *Store) GetContentEmbedding(ctx context.Context, contentID string) (*ContentEmbedding, error) {
	return s.driver.GetContentEmbedding(ctx, contentID)
}

// VectorSearchContent performs cosine-similarity search over the owner's
// stored embeddings, most similar first.
func (s *Store) VectorSearchContent(ctx context.Context, opts *VectorSearchOptions) ([]*ContentWithScore, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return s.driver.VectorSearchContent(ctx, opts)
}

// SearchContentText performs the substring fallback search ordered by last
// access, most recent first.
func (s *Store) SearchContentText(ctx context.Context, opts *TextSearchOptions) ([]*Content, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	return s.driver.SearchContentText(ctx, opts)
}
