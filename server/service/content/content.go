// Package content implements the ingestion pipeline: validation, AI
// enrichment, embedding, and persistence of content items. Enrichment and
// embedding are best-effort; a provider failure never blocks the write.
package content

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/castoldi/stash/ai"
	"github.com/castoldi/stash/ai/enrichment"
	"github.com/castoldi/stash/store"
)

// NotFoundError marks an owner-scoped lookup miss. A wrong-owner id and a
// nonexistent id are deliberately indistinguishable.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return "content not found: " + e.ID
}

// ValidationError marks a malformed draft rejected before any enrichment or
// embedding work.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// CreateRequest is a draft content item as submitted by the caller.
type CreateRequest struct {
	Type         store.ContentType
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
}

// UpdateRequest is an owner-scoped patch. Nil fields are left untouched.
type UpdateRequest struct {
	Type         *store.ContentType
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

// Service is the content ingestion pipeline.
type Service struct {
	store     *store.Store
	enricher  *enrichment.Enricher
	embedding ai.EmbeddingService
}

// NewService creates the pipeline. enricher may be built over a nil generator;
// every enrichment then degrades to neutral defaults.
func NewService(st *store.Store, enricher *enrichment.Enricher, embedding ai.EmbeddingService) *Service {
	return &Service{
		store:     st,
		enricher:  enricher,
		embedding: embedding,
	}
}

// Create validates the draft, enriches and embeds it, and persists the result.
func (s *Service) Create(ctx context.Context, ownerID int32, req *CreateRequest) (*store.Content, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	content := &store.Content{
		ID:           shortuuid.New(),
		OwnerID:      ownerID,
		Type:         req.Type,
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		BodyText:     req.BodyText,
		URL:          req.URL,
		ThumbnailURL: req.ThumbnailURL,
		Source:       req.Source,
		Tags:         dedupe(req.Tags),
		Category:     req.Category,
		Metadata:     cloneMetadata(req.Metadata),
		Priority:     req.Priority,
	}

	aiText := joinText(content.Title, content.Description, content.BodyText)
	var embeddingVector []float32
	if aiText != "" {
		embeddingVector = s.embedding.Embed(ctx, aiText)
	}

	if req.URL != "" || req.BodyText != "" || req.Description != "" {
		enhancement := s.enricher.Enhance(ctx, &enrichment.Draft{
			Type:        req.Type,
			Title:       content.Title,
			Description: req.Description,
			URL:         req.URL,
			BodyText:    req.BodyText,
		})
		applyEnhancement(content, req, enhancement)
	}

	created, err := s.store.CreateContent(ctx, content)
	if err != nil {
		return nil, errors.Wrap(err, "failed to persist content")
	}

	if embeddingVector != nil {
		if _, err := s.store.UpsertContentEmbedding(ctx, &store.ContentEmbedding{
			ContentID: created.ID,
			Embedding: embeddingVector,
		}); err != nil {
			slog.Warn("failed to persist content embedding", "content_id", created.ID, "error", err)
		}
	}

	if len(created.Tags) > 0 {
		if err := s.store.IncrementTagUsage(ctx, ownerID, created.Tags); err != nil {
			return nil, errors.Wrap(err, "failed to increment tag usage")
		}
	}
	return created, nil
}

// Update applies an owner-scoped patch. Edits to title, description, or body
// text trigger a re-embed of the merged text; the category/tag enrichment is
// not re-run.
func (s *Service) Update(ctx context.Context, ownerID int32, id string, req *UpdateRequest) (*store.Content, error) {
	if err := validateUpdate(req); err != nil {
		return nil, err
	}

	existing, err := s.store.GetContent(ctx, &store.FindContent{OwnerID: ownerID, ID: &id})
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up content")
	}
	if existing == nil {
		return nil, &NotFoundError{ID: id}
	}

	update := &store.UpdateContent{
		ID:           id,
		OwnerID:      ownerID,
		Type:         req.Type,
		Description:  req.Description,
		BodyText:     req.BodyText,
		URL:          req.URL,
		ThumbnailURL: req.ThumbnailURL,
		Category:     req.Category,
		Metadata:     req.Metadata,
		Priority:     req.Priority,
		IsFavorite:   req.IsFavorite,
		IsArchived:   req.IsArchived,
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		update.Title = &title
	}
	if req.Tags != nil {
		tags := dedupe(*req.Tags)
		update.Tags = &tags
	}

	updated, err := s.store.UpdateContent(ctx, update)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update content")
	}
	if updated == nil {
		return nil, &NotFoundError{ID: id}
	}

	if req.Title != nil || req.Description != nil || req.BodyText != nil {
		aiText := joinText(updated.Title, updated.Description, updated.BodyText)
		if vector := s.embedding.Embed(ctx, aiText); vector != nil {
			if _, err := s.store.UpsertContentEmbedding(ctx, &store.ContentEmbedding{
				ContentID: updated.ID,
				Embedding: vector,
			}); err != nil {
				slog.Warn("failed to refresh content embedding", "content_id", updated.ID, "error", err)
			}
		}
	}

	if req.Tags != nil {
		added, removed := diffTags(existing.Tags, updated.Tags)
		if len(added) > 0 {
			if err := s.store.IncrementTagUsage(ctx, ownerID, added); err != nil {
				return nil, errors.Wrap(err, "failed to increment tag usage")
			}
		}
		if len(removed) > 0 {
			if err := s.store.DecrementTagUsage(ctx, ownerID, removed); err != nil {
				return nil, errors.Wrap(err, "failed to decrement tag usage")
			}
		}
	}
	return updated, nil
}

// Delete removes an owner's content item and releases its tag usage.
func (s *Service) Delete(ctx context.Context, ownerID int32, id string) error {
	existing, err := s.store.GetContent(ctx, &store.FindContent{OwnerID: ownerID, ID: &id})
	if err != nil {
		return errors.Wrap(err, "failed to look up content")
	}
	if existing == nil {
		return &NotFoundError{ID: id}
	}

	if err := s.store.DeleteContent(ctx, &store.DeleteContent{ID: id, OwnerID: ownerID}); err != nil {
		return errors.Wrap(err, "failed to delete content")
	}
	if len(existing.Tags) > 0 {
		if err := s.store.DecrementTagUsage(ctx, ownerID, existing.Tags); err != nil {
			return errors.Wrap(err, "failed to decrement tag usage")
		}
	}
	return nil
}

// GetByID returns an owner's content item and bumps its access counter.
func (s *Service) GetByID(ctx context.Context, ownerID int32, id string) (*store.Content, error) {
	content, err := s.store.GetContent(ctx, &store.FindContent{OwnerID: ownerID, ID: &id})
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up content")
	}
	if content == nil {
		return nil, &NotFoundError{ID: id}
	}
	if err := s.store.TouchContent(ctx, ownerID, id); err != nil {
		slog.Warn("failed to touch content", "content_id", id, "error", err)
	}
	content.AccessCount++
	return content, nil
}

// List returns an owner's content items matching the filter, with the total
// count before pagination.
func (s *Service) List(ctx context.Context, find *store.FindContent) ([]*store.Content, int, error) {
	list, err := s.store.ListContent(ctx, find)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list content")
	}
	total, err := s.store.CountContent(ctx, find)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to count content")
	}
	return list, total, nil
}

// applyEnhancement folds AI suggestions into the draft. Enhancement metadata
// wins on key collision; tags are a set union; the caller's category wins; the
// detected type only replaces an unset or generic URL type.
func applyEnhancement(content *store.Content, req *CreateRequest, enhancement *enrichment.Enhancement) {
	for k, v := range enhancement.Metadata {
		content.Metadata[k] = v
	}
	if enhancement.DetectedType != "" {
		content.Metadata["detectedType"] = string(enhancement.DetectedType)
	}
	content.Tags = setUnion(content.Tags, enhancement.SuggestedTags)
	if content.Category == "" {
		content.Category = enhancement.Category
	}
	if (req.Type == "" || req.Type == store.ContentTypeURL) && enhancement.DetectedType != "" {
		content.Type = enhancement.DetectedType
	}
}

func validateCreate(req *CreateRequest) error {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if len([]rune(title)) > 500 {
		return &ValidationError{Field: "title", Message: "title must be at most 500 characters"}
	}
	if req.Type != "" && !req.Type.Valid() {
		return &ValidationError{Field: "type", Message: "unknown content type"}
	}
	if err := validateURL("url", req.URL); err != nil {
		return err
	}
	if err := validateURL("thumbnailUrl", req.ThumbnailURL); err != nil {
		return err
	}
	if req.Priority < 0 || req.Priority > 5 {
		return &ValidationError{Field: "priority", Message: "priority must be between 0 and 5"}
	}
	return nil
}

func validateUpdate(req *UpdateRequest) error {
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return &ValidationError{Field: "title", Message: "title is required"}
		}
		if len([]rune(title)) > 500 {
			return &ValidationError{Field: "title", Message: "title must be at most 500 characters"}
		}
	}
	if req.Type != nil && !req.Type.Valid() {
		return &ValidationError{Field: "type", Message: "unknown content type"}
	}
	if req.URL != nil {
		if err := validateURL("url", *req.URL); err != nil {
			return err
		}
	}
	if req.ThumbnailURL != nil {
		if err := validateURL("thumbnailUrl", *req.ThumbnailURL); err != nil {
			return err
		}
	}
	if req.Priority != nil && (*req.Priority < 0 || *req.Priority > 5) {
		return &ValidationError{Field: "priority", Message: "priority must be between 0 and 5"}
	}
	return nil
}

func validateURL(field, raw string) error {
	if raw == "" {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return &ValidationError{Field: field, Message: "must be a valid URL"}
	}
	return nil
}

func joinText(parts ...string) string {
	nonEmpty := []string{}
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.TrimSpace(strings.Join(nonEmpty, " "))
}

// setUnion preserves the base order and appends unseen extras in order.
func setUnion(base, extra []string) []string {
	seen := map[string]bool{}
	union := []string{}
	for _, lists := range [][]string{base, extra} {
		for _, tag := range lists {
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			union = append(union, tag)
		}
	}
	return union
}

func dedupe(tags []string) []string {
	return setUnion(tags, nil)
}

func diffTags(before, after []string) (added, removed []string) {
	beforeSet := map[string]bool{}
	for _, tag := range before {
		beforeSet[tag] = true
	}
	afterSet := map[string]bool{}
	for _, tag := range after {
		afterSet[tag] = true
		if !beforeSet[tag] {
			added = append(added, tag)
		}
	}
	for _, tag := range before {
		if !afterSet[tag] {
			removed = append(removed, tag)
		}
	}
	return added, removed
}

func cloneMetadata(metadata map[string]any) map[string]any {
	cloned := map[string]any{}
	for k, v := range metadata {
		cloned[k] = v
	}
	return cloned
}
