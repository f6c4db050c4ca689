package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/castoldi/stash/store"
)

func (d *DB) IncrementTagUsage(ctx context.Context, ownerID int32, names []string) error {
	stmt := `
		INSERT INTO tag_usage (owner_id, name, usage_count, created_ts)
		VALUES (?, ?, 1, ?)
		ON CONFLICT (owner_id, name) DO UPDATE SET usage_count = usage_count + 1
	`
	now := time.Now().Unix()
	for _, name := range names {
		if _, err := d.db.ExecContext(ctx, stmt, ownerID, name, now); err != nil {
			return errors.Wrapf(err, "failed to increment tag usage for %q", name)
		}
	}
	return nil
}

func (d *DB) DecrementTagUsage(ctx context.Context, ownerID int32, names []string) error {
	stmt := `
		UPDATE tag_usage
		SET usage_count = MAX(usage_count - 1, 0)
		WHERE owner_id = ? AND name = ?
	`
	for _, name := range names {
		if _, err := d.db.ExecContext(ctx, stmt, ownerID, name); err != nil {
			return errors.Wrapf(err, "failed to decrement tag usage for %q", name)
		}
	}
	return nil
}

func (d *DB) ListTagUsage(ctx context.Context, find *store.FindTagUsage) ([]*store.TagUsage, error) {
	where, args := []string{"owner_id = ?"}, []any{find.OwnerID}
	if find.NameContains != nil {
		where = append(where, "name LIKE ?")
		args = append(args, "%"+*find.NameContains+"%")
	}
	query := `
		SELECT id, owner_id, name, usage_count, created_ts FROM tag_usage
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY usage_count DESC, name ASC
	`
	if find.Limit != nil {
		query += " LIMIT ?"
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
		if err := rows.Scan(&usage.ID, &usage.OwnerID, &usage.Name, &usage.UsageCount, &usage.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan tag usage")
		}
		list = append(list, &usage)
	}
	return list, rows.Err()
}
