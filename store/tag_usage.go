package store

import "context"

// TagUsage tracks how many non-deleted content items of an owner carry a tag.
// The counter is maintained incrementally by the content pipeline, never
// recomputed.
type TagUsage struct {
	ID         int32
	OwnerID    int32
	Name       string
	UsageCount int
	CreatedTs  int64
}

// FindTagUsage is the find condition for tag usage counters.
type FindTagUsage struct {
	OwnerID      int32
	NameContains *string
	Limit        *int
}

// IncrementTagUsage bumps the counter for each named tag, creating it at 1 on
// first use. The increment is a single atomic statement per tag; concurrent
// creates of items sharing a tag must not lose updates.
func (s *Store) IncrementTagUsage(ctx context.Context, ownerID int32, names []string) error {
	if len(names) == 0 {
		return nil
	}
	return s.driver.IncrementTagUsage(ctx, ownerID, names)
}

// DecrementTagUsage lowers the counter for each named tag, never below zero.
func (s *Store) DecrementTagUsage(ctx context.Context, ownerID int32, names []string) error {
	if len(names) == 0 {
		return nil
	}
	return s.driver.DecrementTagUsage(ctx, ownerID, names)
}

// ListTagUsage lists tag usage counters ordered by usage, highest first.
func (s *Store) ListTagUsage(ctx context.Context, find *FindTagUsage) ([]*TagUsage, error) {
	return s.driver.ListTagUsage(ctx, find)
}
