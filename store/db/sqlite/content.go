package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/castoldi/stash/store"
)

const contentColumns = `id, owner_id, type, title, description, body_text, url, thumbnail_url, source, tags, category, metadata, priority, is_favorite, is_archived, access_count, created_ts, updated_ts, accessed_ts`

func (d *DB) CreateContent(ctx context.Context, create *store.Content) (*store.Content, error) {
	tags, metadata, err := marshalContentFields(create.Tags, create.Metadata)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	stmt := `
		INSERT INTO content (` + contentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		create.OwnerID,
		create.Type,
		create.Title,
		create.Description,
		create.BodyText,
		create.URL,
		create.ThumbnailURL,
		create.Source,
		tags,
		create.Category,
		metadata,
		create.Priority,
		create.IsFavorite,
		create.IsArchived,
		0,
		now,
		now,
		now,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create content")
	}

	create.AccessCount = 0
	create.CreatedTs = now
	create.UpdatedTs = now
	create.AccessedTs = now
	return create, nil
}

func (d *DB) ListContent(ctx context.Context, find *store.FindContent) ([]*store.Content, error) {
	where, args := []string{"owner_id = ?"}, []any{find.OwnerID}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.Type != nil {
		where, args = append(where, "type = ?"), append(args, *find.Type)
	}
	if find.Category != nil {
		where, args = append(where, "category = ?"), append(args, *find.Category)
	}
	if find.IsFavorite != nil {
		where, args = append(where, "is_favorite = ?"), append(args, *find.IsFavorite)
	}
	if find.IsArchived != nil {
		where, args = append(where, "is_archived = ?"), append(args, *find.IsArchived)
	}
	if find.Search != nil {
		pattern := "%" + strings.ToLower(*find.Search) + "%"
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(body_text) LIKE ?)")
		args = append(args, pattern, pattern, pattern)
	}
	if find.TitleOrDescriptionContains != nil {
		pattern := "%" + strings.ToLower(*find.TitleOrDescriptionContains) + "%"
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)")
		args = append(args, pattern, pattern)
	}

	query := `SELECT ` + contentColumns + ` FROM content WHERE ` + strings.Join(where, " AND ") + orderClause(find)

	// Tag filtering happens in the application layer, so pagination is also
	// deferred when tags are requested.
	applyLimitInSQL := len(find.TagsAny) == 0
	if applyLimitInSQL && find.Limit != nil {
		query += fmt.Sprintf(" LIMIT %d", *find.Limit)
		if find.Offset != nil {
			query += fmt.Sprintf(" OFFSET %d", *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list content")
	}
	defer rows.Close()

	list := []*store.Content{}
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		if len(find.TagsAny) > 0 && !hasAnyTag(content.Tags, find.TagsAny) {
			continue
		}
		list = append(list, content)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !applyLimitInSQL {
		if find.Offset != nil && *find.Offset < len(list) {
			list = list[*find.Offset:]
		} else if find.Offset != nil {
			list = []*store.Content{}
		}
		if find.Limit != nil && *find.Limit < len(list) {
			list = list[:*find.Limit]
		}
	}
	return list, nil
}

func (d *DB) CountContent(ctx context.Context, find *store.FindContent) (int, error) {
	found, err := d.ListContent(ctx, &store.FindContent{
		OwnerID:    find.OwnerID,
		Type:       find.Type,
		Category:   find.Category,
		TagsAny:    find.TagsAny,
		IsFavorite: find.IsFavorite,
		IsArchived: find.IsArchived,
		Search:     find.Search,
	})
	if err != nil {
		return 0, err
	}
	return len(found), nil
}

func (d *DB) UpdateContent(ctx context.Context, update *store.UpdateContent) (*store.Content, error) {
	set, args := []string{}, []any{}

	if update.Type != nil {
		set, args = append(set, "type = ?"), append(args, *update.Type)
	}
	if update.Title != nil {
		set, args = append(set, "title = ?"), append(args, *update.Title)
	}
	if update.Description != nil {
		set, args = append(set, "description = ?"), append(args, *update.Description)
	}
	if update.BodyText != nil {
		set, args = append(set, "body_text = ?"), append(args, *update.BodyText)
	}
	if update.URL != nil {
		set, args = append(set, "url = ?"), append(args, *update.URL)
	}
	if update.ThumbnailURL != nil {
		set, args = append(set, "thumbnail_url = ?"), append(args, *update.ThumbnailURL)
	}
	if update.Tags != nil {
		buf, err := json.Marshal(*update.Tags)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal tags")
		}
		set, args = append(set, "tags = ?"), append(args, string(buf))
	}
	if update.Category != nil {
		set, args = append(set, "category = ?"), append(args, *update.Category)
	}
	if update.Metadata != nil {
		buf, err := json.Marshal(*update.Metadata)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal metadata")
		}
		set, args = append(set, "metadata = ?"), append(args, string(buf))
	}
	if update.Priority != nil {
		set, args = append(set, "priority = ?"), append(args, *update.Priority)
	}
	if update.IsFavorite != nil {
		set, args = append(set, "is_favorite = ?"), append(args, *update.IsFavorite)
	}
	if update.IsArchived != nil {
		set, args = append(set, "is_archived = ?"), append(args, *update.IsArchived)
	}

	set, args = append(set, "updated_ts = ?"), append(args, time.Now().Unix())
	args = append(args, update.ID, update.OwnerID)

	stmt := `UPDATE content SET ` + strings.Join(set, ", ") + ` WHERE id = ? AND owner_id = ?`
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "failed to update content")
	}

	id := update.ID
	list, err := d.ListContent(ctx, &store.FindContent{OwnerID: update.OwnerID, ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (d *DB) DeleteContent(ctx context.Context, delete *store.DeleteContent) error {
	stmt := `DELETE FROM content WHERE id = ? AND owner_id = ?`
	if _, err := d.db.ExecContext(ctx, stmt, delete.ID, delete.OwnerID); err != nil {
		return errors.Wrap(err, "failed to delete content")
	}
	return nil
}

func (d *DB) TouchContent(ctx context.Context, ownerID int32, id string) error {
	stmt := `
		UPDATE content
		SET access_count = access_count + 1, accessed_ts = ?
		WHERE id = ? AND owner_id = ?
	`
	if _, err := d.db.ExecContext(ctx, stmt, time.Now().Unix(), id, ownerID); err != nil {
		return errors.Wrap(err, "failed to touch content")
	}
	return nil
}

func (d *DB) ListCategories(ctx context.Context, ownerID int32, contains string, limit int) ([]string, error) {
	query := `
		SELECT DISTINCT category FROM content
		WHERE owner_id = ? AND category <> '' AND LOWER(category) LIKE ?
		LIMIT ?
	`
	rows, err := d.db.QueryContext(ctx, query, ownerID, "%"+strings.ToLower(contains)+"%", limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list categories")
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, errors.Wrap(err, "failed to scan category")
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func orderClause(find *store.FindContent) string {
	orderBy := find.OrderBy
	switch orderBy {
	case "created_ts", "updated_ts", "accessed_ts", "title", "priority":
	default:
		orderBy = "created_ts"
	}
	order := "DESC"
	if strings.EqualFold(find.SortOrder, "asc") {
		order = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", orderBy, order)
}

func hasAnyTag(tags, wanted []string) bool {
	for _, w := range wanted {
		if slices.Contains(tags, w) {
			return true
		}
	}
	return false
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContent(row rowScanner) (*store.Content, error) {
	var content store.Content
	var tags, metadata string
	if err := row.Scan(
		&content.ID,
		&content.OwnerID,
		&content.Type,
		&content.Title,
		&content.Description,
		&content.BodyText,
		&content.URL,
		&content.ThumbnailURL,
		&content.Source,
		&tags,
		&content.Category,
		&metadata,
		&content.Priority,
		&content.IsFavorite,
		&content.IsArchived,
		&content.AccessCount,
		&content.CreatedTs,
		&content.UpdatedTs,
		&content.AccessedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan content")
	}

	if err := json.Unmarshal([]byte(tags), &content.Tags); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal content tags")
	}
	if err := json.Unmarshal([]byte(metadata), &content.Metadata); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal content metadata")
	}
	if content.Metadata == nil {
		content.Metadata = map[string]any{}
	}
	return &content, nil
}

func marshalContentFields(tags []string, metadata map[string]any) (string, string, error) {
	if tags == nil {
		tags = []string{}
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	tagsBuf, err := json.Marshal(tags)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to marshal tags")
	}
	metadataBuf, err := json.Marshal(metadata)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to marshal metadata")
	}
	return string(tagsBuf), string(metadataBuf), nil
}
