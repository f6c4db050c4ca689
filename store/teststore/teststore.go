// Package teststore provides an in-memory store.Driver for service tests.
package teststore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/castoldi/stash/internal/profile"
	"github.com/castoldi/stash/store"
)

type driver struct {
	mu sync.Mutex

	contents   map[string]*store.Content
	embeddings map[string]*store.ContentEmbedding
	tagUsage   map[int32]map[string]*store.TagUsage
	nextTagID  int32
}

// New returns a store backed by an in-memory driver.
func New() *store.Store {
	return store.New(&driver{
		contents:   map[string]*store.Content{},
		embeddings: map[string]*store.ContentEmbedding{},
		tagUsage:   map[int32]map[string]*store.TagUsage{},
	}, &profile.Profile{Driver: "memory"})
}

func (d *driver) Migrate(context.Context) error { return nil }
func (d *driver) Close() error                  { return nil }

func (d *driver) CreateContent(_ context.Context, create *store.Content) (*store.Content, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now().Unix()
	create.AccessCount = 0
	create.CreatedTs = now
	create.UpdatedTs = now
	create.AccessedTs = now
	if create.Tags == nil {
		create.Tags = []string{}
	}
	if create.Metadata == nil {
		create.Metadata = map[string]any{}
	}
	stored := *create
	d.contents[create.ID] = &stored
	return create, nil
}

func (d *driver) ListContent(_ context.Context, find *store.FindContent) ([]*store.Content, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := []*store.Content{}
	for _, content := range d.contents {
		if matches(content, find) {
			copied := *content
			list = append(list, &copied)
		}
	}
	sortContents(list, find)

	if find.Offset != nil {
		if *find.Offset < len(list) {
			list = list[*find.Offset:]
		} else {
			list = []*store.Content{}
		}
	}
	if find.Limit != nil && *find.Limit < len(list) {
		list = list[:*find.Limit]
	}
	return list, nil
}

func (d *driver) CountContent(ctx context.Context, find *store.FindContent) (int, error) {
	scoped := *find
	scoped.Limit = nil
	scoped.Offset = nil
	list, err := d.ListContent(ctx, &scoped)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

func (d *driver) UpdateContent(_ context.Context, update *store.UpdateContent) (*store.Content, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	content, ok := d.contents[update.ID]
	if !ok || content.OwnerID != update.OwnerID {
		return nil, nil
	}
	if update.Type != nil {
		content.Type = *update.Type
	}
	if update.Title != nil {
		content.Title = *update.Title
	}
	if update.Description != nil {
		content.Description = *update.Description
	}
	if update.BodyText != nil {
		content.BodyText = *update.BodyText
	}
	if update.URL != nil {
		content.URL = *update.URL
	}
	if update.ThumbnailURL != nil {
		content.ThumbnailURL = *update.ThumbnailURL
	}
	if update.Tags != nil {
		content.Tags = append([]string{}, (*update.Tags)...)
	}
	if update.Category != nil {
		content.Category = *update.Category
	}
	if update.Metadata != nil {
		content.Metadata = *update.Metadata
	}
	if update.Priority != nil {
		content.Priority = *update.Priority
	}
	if update.IsFavorite != nil {
		content.IsFavorite = *update.IsFavorite
	}
	if update.IsArchived != nil {
		content.IsArchived = *update.IsArchived
	}
	content.UpdatedTs = time.Now().Unix()
	copied := *content
	return &copied, nil
}

func (d *driver) DeleteContent(_ context.Context, del *store.DeleteContent) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	content, ok := d.contents[del.ID]
	if ok && content.OwnerID == del.OwnerID {
		delete(d.contents, del.ID)
		delete(d.embeddings, del.ID)
	}
	return nil
}

func (d *driver) TouchContent(_ context.Context, ownerID int32, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	content, ok := d.contents[id]
	if ok && content.OwnerID == ownerID {
		content.AccessCount++
		content.AccessedTs = time.Now().Unix()
	}
	return nil
}

func (d *driver) ListCategories(_ context.Context, ownerID int32, contains string, limit int) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	seen := map[string]bool{}
	categories := []string{}
	for _, content := range d.contents {
		if content.OwnerID != ownerID || content.Category == "" || seen[content.Category] {
			continue
		}
		if contains != "" && !strings.Contains(strings.ToLower(content.Category), strings.ToLower(contains)) {
			continue
		}
		seen[content.Category] = true
		categories = append(categories, content.Category)
	}
	sort.Strings(categories)
	if limit > 0 && limit < len(categories) {
		categories = categories[:limit]
	}
	return categories, nil
}

func (d *driver) UpsertContentEmbedding(_ context.Context, upsert *store.ContentEmbedding) (*store.ContentEmbedding, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	upsert.UpdatedTs = time.Now().Unix()
	stored := *upsert
	stored.Embedding = append([]float32{}, upsert.Embedding...)
	d.embeddings[upsert.ContentID] = &stored
	return upsert, nil
}

func (d *driver) GetContentEmbedding(_ context.Context, contentID string) (*store.ContentEmbedding, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	embedding, ok := d.embeddings[contentID]
	if !ok {
		return nil, nil
	}
	copied := *embedding
	copied.Embedding = append([]float32{}, embedding.Embedding...)
	return &copied, nil
}

func (d *driver) VectorSearchContent(_ context.Context, opts *store.VectorSearchOptions) ([]*store.ContentWithScore, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	results := []*store.ContentWithScore{}
	for id, embedding := range d.embeddings {
		content, ok := d.contents[id]
		if !ok || content.OwnerID != opts.OwnerID || len(embedding.Embedding) != len(opts.Vector) {
			continue
		}
		var score float32
		for i := range opts.Vector {
			score += opts.Vector[i] * embedding.Embedding[i]
		}
		copied := *content
		results = append(results, &store.ContentWithScore{Content: &copied, Score: score})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if opts.Limit < len(results) {
		results = results[:opts.Limit]
	}
	return results, nil
}

func (d *driver) SearchContentText(_ context.Context, opts *store.TextSearchOptions) ([]*store.Content, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	query := strings.ToLower(opts.Query)
	list := []*store.Content{}
	for _, content := range d.contents {
		if content.OwnerID != opts.OwnerID {
			continue
		}
		if strings.Contains(strings.ToLower(content.Title), query) ||
			strings.Contains(strings.ToLower(content.Description), query) ||
			strings.Contains(strings.ToLower(content.BodyText), query) ||
			containsTag(content.Tags, opts.Query) {
			copied := *content
			list = append(list, &copied)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].AccessedTs > list[j].AccessedTs
	})
	if opts.Limit > 0 && opts.Limit < len(list) {
		list = list[:opts.Limit]
	}
	return list, nil
}

func (d *driver) IncrementTagUsage(_ context.Context, ownerID int32, names []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	usage := d.tagUsage[ownerID]
	if usage == nil {
		usage = map[string]*store.TagUsage{}
		d.tagUsage[ownerID] = usage
	}
	for _, name := range names {
		entry, ok := usage[name]
		if !ok {
			d.nextTagID++
			entry = &store.TagUsage{
				ID:        d.nextTagID,
				OwnerID:   ownerID,
				Name:      name,
				CreatedTs: time.Now().Unix(),
			}
			usage[name] = entry
		}
		entry.UsageCount++
	}
	return nil
}

func (d *driver) DecrementTagUsage(_ context.Context, ownerID int32, names []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, name := range names {
		if entry, ok := d.tagUsage[ownerID][name]; ok && entry.UsageCount > 0 {
			entry.UsageCount--
		}
	}
	return nil
}

func (d *driver) ListTagUsage(_ context.Context, find *store.FindTagUsage) ([]*store.TagUsage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := []*store.TagUsage{}
	for _, entry := range d.tagUsage[find.OwnerID] {
		// Match the case-insensitive LIKE semantics of the SQL drivers.
		if find.NameContains != nil && !strings.Contains(strings.ToLower(entry.Name), strings.ToLower(*find.NameContains)) {
			continue
		}
		copied := *entry
		list = append(list, &copied)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].UsageCount != list[j].UsageCount {
			return list[i].UsageCount > list[j].UsageCount
		}
		return list[i].Name < list[j].Name
	})
	if find.Limit != nil && *find.Limit < len(list) {
		list = list[:*find.Limit]
	}
	return list, nil
}

func matches(content *store.Content, find *store.FindContent) bool {
	if content.OwnerID != find.OwnerID {
		return false
	}
	if find.ID != nil && content.ID != *find.ID {
		return false
	}
	if find.Type != nil && content.Type != *find.Type {
		return false
	}
	if find.Category != nil && content.Category != *find.Category {
		return false
	}
	if find.IsFavorite != nil && content.IsFavorite != *find.IsFavorite {
		return false
	}
	if find.IsArchived != nil && content.IsArchived != *find.IsArchived {
		return false
	}
	if len(find.TagsAny) > 0 {
		found := false
		for _, want := range find.TagsAny {
			for _, tag := range content.Tags {
				if tag == want {
					found = true
				}
			}
		}
		if !found {
			return false
		}
	}
	if find.Search != nil {
		query := strings.ToLower(*find.Search)
		if !strings.Contains(strings.ToLower(content.Title), query) &&
			!strings.Contains(strings.ToLower(content.Description), query) &&
			!strings.Contains(strings.ToLower(content.BodyText), query) {
			return false
		}
	}
	if find.TitleOrDescriptionContains != nil {
		query := strings.ToLower(*find.TitleOrDescriptionContains)
		if !strings.Contains(strings.ToLower(content.Title), query) &&
			!strings.Contains(strings.ToLower(content.Description), query) {
			return false
		}
	}
	return true
}

func sortContents(list []*store.Content, find *store.FindContent) {
	asc := strings.EqualFold(find.SortOrder, "asc")
	sort.SliceStable(list, func(i, j int) bool {
		var less bool
		switch find.OrderBy {
		case "updated_ts":
			less = list[i].UpdatedTs < list[j].UpdatedTs
		case "accessed_ts":
			less = list[i].AccessedTs < list[j].AccessedTs
		case "title":
			less = list[i].Title < list[j].Title
		case "priority":
			less = list[i].Priority < list[j].Priority
		default:
			less = list[i].CreatedTs < list[j].CreatedTs
		}
		if asc {
			return less
		}
		return !less
	})
}

func containsTag(tags []string, query string) bool {
	for _, tag := range tags {
		if tag == query {
			return true
		}
	}
	return false
}
