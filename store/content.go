package store

import "context"

// ContentType is the closed enumeration of content kinds a user can capture.
type ContentType string

const (
	ContentTypeURL         ContentType = "URL"
	ContentTypeArticle     ContentType = "ARTICLE"
	ContentTypeProduct     ContentType = "PRODUCT"
	ContentTypeVideo       ContentType = "VIDEO"
	ContentTypeImage       ContentType = "IMAGE"
	ContentTypeNote        ContentType = "NOTE"
	ContentTypeTodo        ContentType = "TODO"
	ContentTypeCode        ContentType = "CODE"
	ContentTypePDF         ContentType = "PDF"
	ContentTypeScreenshot  ContentType = "SCREENSHOT"
	ContentTypeHandwritten ContentType = "HANDWRITTEN"
	ContentTypeAudio       ContentType = "AUDIO"
	ContentTypeBookmark    ContentType = "BOOKMARK"
)

var contentTypes = map[ContentType]bool{
	ContentTypeURL:         true,
	ContentTypeArticle:     true,
	ContentTypeProduct:     true,
	ContentTypeVideo:       true,
	ContentTypeImage:       true,
	ContentTypeNote:        true,
	ContentTypeTodo:        true,
	ContentTypeCode:        true,
	ContentTypePDF:         true,
	ContentTypeScreenshot:  true,
	ContentTypeHandwritten: true,
	ContentTypeAudio:       true,
	ContentTypeBookmark:    true,
}

// Valid reports whether t is a member of the closed enumeration.
func (t ContentType) Valid() bool {
	return contentTypes[t]
}

// Content is a single captured item owned by a user.
type Content struct {
	ID           string
	OwnerID      int32
	Type         ContentType
	Title        string
	Description  string
	BodyText     string
	URL          string
	ThumbnailURL string
	Source       string
	Tags         []string
	Category     string
	Metadata     map[string]any
	Priority     int
	IsFavorite   bool
	IsArchived   bool
	AccessCount  int
	CreatedTs    int64
	UpdatedTs    int64
	AccessedTs   int64
}

// FindContent is the find condition for contents. OwnerID is mandatory; every
// read is scoped to the owner.
type FindContent struct {
	OwnerID    int32
	ID         *string
	Type       *ContentType
	Category   *string
	TagsAny    []string
	IsFavorite *bool
	IsArchived *bool

	// Search matches title, description, or body text case-insensitively.
	Search *string
	// TitleOrDescriptionContains is the narrower match used by suggestions.
	TitleOrDescriptionContains *string

	OrderBy   string // created_ts, updated_ts, accessed_ts, title, priority
	SortOrder string // asc, desc
	Limit     *int
	Offset    *int
}

// UpdateContent is the owner-scoped patch for a content item. Nil fields are
// left untouched.
type UpdateContent struct {
	ID      string
	OwnerID int32

	Type         *ContentType
	Title        *string
	Description  *string
	BodyText     *string
	URL          *string
	ThumbnailURL *string
	Tags         *[]string
	Category     *string
	Metadata     *map[string]any
	Priority     *int
	IsFavorite   *bool
	IsArchived   *bool
}

// DeleteContent is the owner-scoped delete condition.
type DeleteContent struct {
	ID      string
	OwnerID int32
}

func (s *Store) CreateContent(ctx context.Context, create *Content) (*Content, error) {
	return s.driver.CreateContent(ctx, create)
}

// GetContent returns the matching content or nil when absent. A wrong-owner
// lookup is indistinguishable from a missing id.
func (s *Store) GetContent(ctx context.Context, find *FindContent) (*Content, error) {
	limit := 1
	find.Limit = &limit
	list, err := s.driver.ListContent(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) ListContent(ctx context.Context, find *FindContent) ([]*Content, error) {
	return s.driver.ListContent(ctx, find)
}

func (s *Store) CountContent(ctx context.Context, find *FindContent) (int, error) {
	return s.driver.CountContent(ctx, find)
}

func (s *Store) UpdateContent(ctx context.Context, update *UpdateContent) (*Content, error) {
	return s.driver.UpdateContent(ctx, update)
}

func (s *Store) DeleteContent(ctx context.Context, delete *DeleteContent) error {
	return s.driver.DeleteContent(ctx, delete)
}

// TouchContent atomically bumps the access counter and access timestamp of a
// content item on read-by-id.
func (s *Store) TouchContent(ctx context.Context, ownerID int32, id string) error {
	return s.driver.TouchContent(ctx, ownerID, id)
}

// ListCategories returns up to limit distinct categories of the owner whose
// name contains the given substring (case-insensitive).
func (s *Store) ListCategories(ctx context.Context, ownerID int32, contains string, limit int) ([]string, error) {
	return s.driver.ListCategories(ctx, ownerID, contains, limit)
}
