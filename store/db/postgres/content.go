package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/castoldi/stash/store"
)

const contentColumns = `id, owner_id, type, title, description, body_text, url, thumbnail_url, source, tags, category, metadata, priority, is_favorite, is_archived, access_count, created_ts, updated_ts, accessed_ts`

func (d *DB) CreateContent(ctx context.Context, create *store.Content) (*store.Content, error) {
	metadata, err := marshalMetadata(create.Metadata)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	stmt := `
		INSERT INTO content (` + contentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
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
		pq.Array(create.Tags),
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
	where, args := []string{"owner_id = " + placeholder(1)}, []any{find.OwnerID}

	next := func() string { return placeholder(len(args) + 1) }

	if find.ID != nil {
		where = append(where, "id = "+next())
		args = append(args, *find.ID)
	}
	if find.Type != nil {
		where = append(where, "type = "+next())
		args = append(args, *find.Type)
	}
	if find.Category != nil {
		where = append(where, "category = "+next())
		args = append(args, *find.Category)
	}
	if len(find.TagsAny) > 0 {
		where = append(where, "tags && "+next())
		args = append(args, pq.Array(find.TagsAny))
	}
	if find.IsFavorite != nil {
		where = append(where, "is_favorite = "+next())
		args = append(args, *find.IsFavorite)
	}
	if find.IsArchived != nil {
		where = append(where, "is_archived = "+next())
		args = append(args, *find.IsArchived)
	}
	if find.Search != nil {
		p := next()
		where = append(where, "(title ILIKE "+p+" OR description ILIKE "+p+" OR body_text ILIKE "+p+")")
		args = append(args, "%"+*find.Search+"%")
	}
	if find.TitleOrDescriptionContains != nil {
		p := next()
		where = append(where, "(title ILIKE "+p+" OR description ILIKE "+p+")")
		args = append(args, "%"+*find.TitleOrDescriptionContains+"%")
	}

	query := `SELECT ` + contentColumns + ` FROM content WHERE ` + strings.Join(where, " AND ") + orderClause(find)

	if find.Limit != nil {
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
		list = append(list, content)
	}
	return list, rows.Err()
}

func (d *DB) CountContent(ctx context.Context, find *store.FindContent) (int, error) {
	// Counting shares the filter semantics of ListContent minus ordering and
	// pagination.
	where, args := []string{"owner_id = " + placeholder(1)}, []any{find.OwnerID}
	next := func() string { return placeholder(len(args) + 1) }

	if find.Type != nil {
		where = append(where, "type = "+next())
		args = append(args, *find.Type)
	}
	if find.Category != nil {
		where = append(where, "category = "+next())
		args = append(args, *find.Category)
	}
	if len(find.TagsAny) > 0 {
		where = append(where, "tags && "+next())
		args = append(args, pq.Array(find.TagsAny))
	}
	if find.IsFavorite != nil {
		where = append(where, "is_favorite = "+next())
		args = append(args, *find.IsFavorite)
	}
	if find.IsArchived != nil {
		where = append(where, "is_archived = "+next())
		args = append(args, *find.IsArchived)
	}
	if find.Search != nil {
		p := next()
		where = append(where, "(title ILIKE "+p+" OR description ILIKE "+p+" OR body_text ILIKE "+p+")")
		args = append(args, "%"+*find.Search+"%")
	}

	var count int
	query := `SELECT COUNT(*) FROM content WHERE ` + strings.Join(where, " AND ")
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count content")
	}
	return count, nil
}

func (d *DB) UpdateContent(ctx context.Context, update *store.UpdateContent) (*store.Content, error) {
	set, args := []string{}, []any{}
	next := func() string { return placeholder(len(args) + 1) }

	if update.Type != nil {
		set, args = append(set, "type = "+next()), append(args, *update.Type)
	}
	if update.Title != nil {
		set, args = append(set, "title = "+next()), append(args, *update.Title)
	}
	if update.Description != nil {
		set, args = append(set, "description = "+next()), append(args, *update.Description)
	}
	if update.BodyText != nil {
		set, args = append(set, "body_text = "+next()), append(args, *update.BodyText)
	}
	if update.URL != nil {
		set, args = append(set, "url = "+next()), append(args, *update.URL)
	}
	if update.ThumbnailURL != nil {
		set, args = append(set, "thumbnail_url = "+next()), append(args, *update.ThumbnailURL)
	}
	if update.Tags != nil {
		set, args = append(set, "tags = "+next()), append(args, pq.Array(*update.Tags))
	}
	if update.Category != nil {
		set, args = append(set, "category = "+next()), append(args, *update.Category)
	}
	if update.Metadata != nil {
		metadata, err := marshalMetadata(*update.Metadata)
		if err != nil {
			return nil, err
		}
		set, args = append(set, "metadata = "+next()), append(args, metadata)
	}
	if update.Priority != nil {
		set, args = append(set, "priority = "+next()), append(args, *update.Priority)
	}
	if update.IsFavorite != nil {
		set, args = append(set, "is_favorite = "+next()), append(args, *update.IsFavorite)
	}
	if update.IsArchived != nil {
		set, args = append(set, "is_archived = "+next()), append(args, *update.IsArchived)
	}

	set, args = append(set, "updated_ts = "+next()), append(args, time.Now().Unix())

	stmt := `
		UPDATE content
		SET ` + strings.Join(set, ", ") + `
		WHERE id = ` + placeholder(len(args)+1) + ` AND owner_id = ` + placeholder(len(args)+2) + `
		RETURNING ` + contentColumns
	args = append(args, update.ID, update.OwnerID)

	content, err := scanContent(d.db.QueryRowContext(ctx, stmt, args...))
	if errors.Is(err, sql.ErrNoRows) {
		// Owner-scoped miss: indistinguishable from a missing id.
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to update content")
	}
	return content, nil
}

func (d *DB) DeleteContent(ctx context.Context, delete *store.DeleteContent) error {
	stmt := `DELETE FROM content WHERE id = $1 AND owner_id = $2`
	if _, err := d.db.ExecContext(ctx, stmt, delete.ID, delete.OwnerID); err != nil {
		return errors.Wrap(err, "failed to delete content")
	}
	return nil
}

func (d *DB) TouchContent(ctx context.Context, ownerID int32, id string) error {
	stmt := `
		UPDATE content
		SET access_count = access_count + 1, accessed_ts = $1
		WHERE id = $2 AND owner_id = $3
	`
	if _, err := d.db.ExecContext(ctx, stmt, time.Now().Unix(), id, ownerID); err != nil {
		return errors.Wrap(err, "failed to touch content")
	}
	return nil
}

func (d *DB) ListCategories(ctx context.Context, ownerID int32, contains string, limit int) ([]string, error) {
	query := `
		SELECT DISTINCT category FROM content
		WHERE owner_id = $1 AND category <> '' AND category ILIKE $2
		LIMIT $3
	`
	rows, err := d.db.QueryContext(ctx, query, ownerID, "%"+contains+"%", limit)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContent(row rowScanner) (*store.Content, error) {
	var content store.Content
	var tags pq.StringArray
	var metadata []byte
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

	content.Tags = []string(tags)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &content.Metadata); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal content metadata")
		}
	}
	if content.Metadata == nil {
		content.Metadata = map[string]any{}
	}
	return &content, nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	buf, err := json.Marshal(metadata)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal content metadata")
	}
	return buf, nil
}
