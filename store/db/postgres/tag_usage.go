package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/castoldi/stash/store"
)

// IncrementTagUsage bumps each tag's counter by one, creating it at 1 on
// first use. The upsert is a single atomic statement per tag so concurrent
// writers cannot lose updates.
func (d *DB) IncrementTagUsage(ctx context.Context, ownerID int32, names []string) error {
	stmt := `
		INSERT INTO tag_usage (owner_id, name, usage_count, created_ts)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (owner_id, name)
		DO UPDATE SET usage_count = tag_usage.usage_count + 1
	`
	now := time.Now().Unix()
	for _, name := range names {
		if _, err := d.db.ExecContext(ctx, stmt, ownerID, name, now); err != nil {
			return errors.Wrapf(err, "failed to increment tag usage for %q", name)
		}
	}
	return nil
}

// DecrementTagUsage lowers each tag's counter by one, never below zero.
func (d *DB) DecrementTagUsage(ctx context.Context, ownerID int32, names []string) error {
	stmt := `
		UPDATE tag_usage
		SET usage_count = GREATEST(usage_count - 1, 0)
		WHERE owner_id = $1 AND name = $2
	`
	for _, name := range names {
		if _, err := d.db.ExecContext(ctx, stmt, ownerID, name); err != nil {
			return errors.Wrapf(err, "failed to decrement tag usage for %q", name)
		}
	}
	return nil
}

func (d *DB) ListTagUsage(ctx context.Context, find *store.FindTagUsage) ([]*store.TagUsage, error) {
	where, args := []string{"owner_id = " + placeholder(1)}, []any{find.OwnerID}

	if find.NameContains != nil {
		where = append(where, "name ILIKE "+placeholder(len(args)+1))
		args = append(args, "%"+*find.NameContains+"%")
	}

	query := `
		SELECT id, owner_id, name, usage_count, created_ts
		FROM tag_usage
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY usage_count DESC, name ASC
	`
	if find.Limit != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tag usage")
	}
	defer rows.Close()

	list := []*store.TagUsage{}
	for rows.Next() {
		var usage store.TagUsage
		if err := rows.Scan(
			&usage.ID,
			&usage.OwnerID,
			&usage.Name,
			&usage.UsageCount,
			&usage.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan tag usage")
		}
		list = append(list, &usage)
	}
	return list, rows.Err()
}
