package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/castoldi/stash/store"
)

// UpsertContentEmbedding inserts or replaces the embedding of a content item.
func (d *DB) UpsertContentEmbedding(ctx context.Context, embedding *store.ContentEmbedding) (*store.ContentEmbedding, error) {
	stmt := `
		INSERT INTO content_embedding (content_id, embedding, updated_ts)
		VALUES ($1, $2, $3)
		ON CONFLICT (content_id)
		DO UPDATE SET
			embedding = EXCLUDED.embedding,
			updated_ts = EXCLUDED.updated_ts
	`
	embedding.UpdatedTs = time.Now().Unix()
	vector := pgvector.NewVector(embedding.Embedding)
	if _, err := d.db.ExecContext(ctx, stmt, embedding.ContentID, vector, embedding.UpdatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to upsert content embedding")
	}
	return embedding, nil
}

// GetContentEmbedding returns the stored embedding or nil when absent.
func (d *DB) GetContentEmbedding(ctx context.Context, contentID string) (*store.ContentEmbedding, error) {
	query := `SELECT content_id, embedding, updated_ts FROM content_embedding WHERE content_id = $1`

	var embedding store.ContentEmbedding
	var vector pgvector.Vector
	err := d.db.QueryRowContext(ctx, query, contentID).Scan(&embedding.ContentID, &vector, &embedding.UpdatedTs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get content embedding")
	}

	embedding.Embedding = vector.Slice()
	return &embedding, nil
}

// VectorSearchContent performs cosine-similarity search using pgvector.
// The <=> operator computes cosine distance (1 - cosine_similarity), so
// ordering by distance ascending yields most similar first.
func (d *DB) VectorSearchContent(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.ContentWithScore, error) {
	query := `
		SELECT
			c.id, c.owner_id, c.type, c.title, c.description, c.body_text, c.url, c.thumbnail_url, c.source,
			c.tags, c.category, c.metadata, c.priority, c.is_favorite, c.is_archived, c.access_count,
			c.created_ts, c.updated_ts, c.accessed_ts,
			1 - (e.embedding <=> $1) AS score
		FROM content c
		INNER JOIN content_embedding e ON c.id = e.content_id
		WHERE c.owner_id = $2
		ORDER BY e.embedding <=> $3
		LIMIT $4
	`

	vector := pgvector.NewVector(opts.Vector)
	rows, err := d.db.QueryContext(ctx, query, vector, opts.OwnerID, vector, opts.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search content")
	}
	defer rows.Close()

	results := []*store.ContentWithScore{}
	for rows.Next() {
		result, err := scanContentWithScore(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// SearchContentText is the substring fallback search: case-insensitive match
// on title, description, or body text, or exact tag membership, ordered by
// last access.
func (d *DB) SearchContentText(ctx context.Context, opts *store.TextSearchOptions) ([]*store.Content, error) {
	query := `
		SELECT ` + contentColumns + `
		FROM content
		WHERE owner_id = $1
			AND (title ILIKE $2 OR description ILIKE $2 OR body_text ILIKE $2 OR $3 = ANY(tags))
		ORDER BY accessed_ts DESC
		LIMIT $4
	`
	rows, err := d.db.QueryContext(ctx, query, opts.OwnerID, "%"+opts.Query+"%", opts.Query, opts.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to text search content")
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

func scanContentWithScore(rows *sql.Rows) (*store.ContentWithScore, error) {
	// The score column trails the standard content columns, so reuse of
	// scanContent is not possible here.
	var content store.Content
	var result store.ContentWithScore
	var tags pq.StringArray
	var metadata []byte

	if err := rows.Scan(
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
		&result.Score,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan vector search result")
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
	result.Content = &content
	return &result, nil
}
