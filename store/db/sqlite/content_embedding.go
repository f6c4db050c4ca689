package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/castoldi/stash/store"
)

func (d *DB) UpsertContentEmbedding(ctx context.Context, upsert *store.ContentEmbedding) (*store.ContentEmbedding, error) {
	now := time.Now().Unix()
	stmt := `
		INSERT INTO content_embedding (content_id, embedding, updated_ts)
		VALUES (?, ?, ?)
		ON CONFLICT (content_id) DO UPDATE SET embedding = excluded.embedding, updated_ts = excluded.updated_ts
	`
	if _, err := d.db.ExecContext(ctx, stmt, upsert.ContentID, float32ArrayToBlob(upsert.Embedding), now); err != nil {
		return nil, errors.Wrap(err, "failed to upsert content embedding")
	}
	upsert.UpdatedTs = now
	return upsert, nil
}

func (d *DB) GetContentEmbedding(ctx context.Context, contentID string) (*store.ContentEmbedding, error) {
	var embedding store.ContentEmbedding
	var blob []byte
	err := d.db.QueryRowContext(ctx, `
		SELECT content_id, embedding, updated_ts FROM content_embedding WHERE content_id = ?
	`, contentID).Scan(&embedding.ContentID, &blob, &embedding.UpdatedTs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get content embedding")
	}
	embedding.Embedding = blobToFloat32Array(blob)
	return &embedding, nil
}

// VectorSearchContent scores candidates in the application layer since SQLite
// has no native vector distance operator. Embeddings are unit vectors, so the
// dot product equals cosine similarity.
func (d *DB) VectorSearchContent(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.ContentWithScore, error) {
	query := `
		SELECT ` + prefixedContentColumns("c") + `, e.embedding
		FROM content_embedding e
		INNER JOIN content c ON c.id = e.content_id
		WHERE c.owner_id = ?
	`
	rows, err := d.db.QueryContext(ctx, query, opts.OwnerID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search content embeddings")
	}
	defer rows.Close()

	results := []*store.ContentWithScore{}
	for rows.Next() {
		content, blob, err := scanContentWithBlob(rows)
		if err != nil {
			return nil, err
		}
		candidate := blobToFloat32Array(blob)
		if len(candidate) != len(opts.Vector) {
			continue
		}
		results = append(results, &store.ContentWithScore{
			Content: content,
			Score:   dot(opts.Vector, candidate),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if opts.Limit < len(results) {
		results = results[:opts.Limit]
	}
	return results, nil
}

func (d *DB) SearchContentText(ctx context.Context, opts *store.TextSearchOptions) ([]*store.Content, error) {
	pattern := "%" + strings.ToLower(opts.Query) + "%"
	// Tags are stored as a JSON array, so exact membership is approximated by
	// matching the quoted tag value inside the serialized text.
	tagPattern := `%"` + opts.Query + `"%`
	query := `
		SELECT ` + contentColumns + ` FROM content
		WHERE owner_id = ?
			AND (LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(body_text) LIKE ? OR tags LIKE ?)
		ORDER BY accessed_ts DESC
		LIMIT ?
	`
	rows, err := d.db.QueryContext(ctx, query, opts.OwnerID, pattern, pattern, pattern, tagPattern, opts.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search content text")
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

func scanContentWithBlob(rows *sql.Rows) (*store.Content, []byte, error) {
	var content store.Content
	var tags, metadata string
	var blob []byte
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
		&blob,
	); err != nil {
		return nil, nil, errors.Wrap(err, "failed to scan content with embedding")
	}
	if err := unmarshalJSONField(tags, &content.Tags); err != nil {
		return nil, nil, err
	}
	if err := unmarshalJSONField(metadata, &content.Metadata); err != nil {
		return nil, nil, err
	}
	if content.Metadata == nil {
		content.Metadata = map[string]any{}
	}
	return &content, blob, nil
}

func unmarshalJSONField(raw string, dest any) error {
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return errors.Wrap(err, "failed to unmarshal content field")
	}
	return nil
}

func prefixedContentColumns(alias string) string {
	columns := strings.Split(contentColumns, ", ")
	for i, column := range columns {
		columns[i] = alias + "." + column
	}
	return strings.Join(columns, ", ")
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func float32ArrayToBlob(values []float32) []byte {
	blob := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

func blobToFloat32Array(blob []byte) []float32 {
	values := make([]float32, len(blob)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return values
}
