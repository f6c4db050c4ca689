package store

import "context"

// Driver is an interface for database drivers. Every operation that touches a
// content item is scoped by its owner.
type Driver interface {
	Migrate(ctx context.Context) error
	Close() error

	// Content
	CreateContent(ctx context.Context, create *Content) (*Content, error)
	ListContent(ctx context.Context, find *FindContent) ([]*Content, error)
	CountContent(ctx context.Context, find *FindContent) (int, error)
	UpdateContent(ctx context.Context, update *UpdateContent) (*Content, error)
	DeleteContent(ctx context.Context, delete *DeleteContent) error
	TouchContent(ctx context.Context, ownerID int32, id string) error
	ListCategories(ctx context.Context, ownerID int32, contains string, limit int) ([]string, error)

	// Embeddings
	UpsertContentEmbedding(ctx context.Context, embedding *ContentEmbedding) (*ContentEmbedding, error)
	GetContentEmbedding(ctx context.Context, contentID string) (*ContentEmbedding, error)
	VectorSearchContent(ctx context.Context, opts *VectorSearchOptions) ([]*ContentWithScore, error)
	SearchContentText(ctx context.Context, opts *TextSearchOptions) ([]*Content, error)

	// Tag usage
	IncrementTagUsage(ctx context.Context, ownerID int32, names []string) error
	DecrementTagUsage(ctx context.Context, ownerID int32, names []string) error
	ListTagUsage(ctx context.Context, find *FindTagUsage) ([]*TagUsage, error)
}
