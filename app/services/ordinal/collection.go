package ordinal

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/kirana/pkg/store"
)

const orderColumn = "display_order"

// StoreCollection ranks the rows of one store table by display_order.
type StoreCollection struct {
	Client store.Client
	Table  string
}

func (c StoreCollection) Entries(ctx context.Context) ([]Entry, error) {
	entries, err := store.Find[Entry](ctx, c.Client, c.Table, store.All().OrderBy(orderColumn, false))
	if err != nil {
		return nil, fmt.Errorf("ordinal: load %s: %w", c.Table, err)
	}
	return entries, nil
}

// SetOrder only matches the row while it is still at from, so a concurrent
// reorder shows up as zero rows updated.
func (c StoreCollection) SetOrder(ctx context.Context, id string, from, to int) error {
	n, err := c.Client.Update(ctx, c.Table,
		store.Eq("id", id).Eq(orderColumn, from),
		map[string]any{orderColumn: to})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s not at %d", ErrConcurrentReorder, c.Table, id, from)
	}
	return nil
}

func (c StoreCollection) Remove(ctx context.Context, id string) error {
	n, err := c.Client.Delete(ctx, c.Table, store.Eq("id", id))
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", c.Table, id, store.ErrNotFound)
	}
	return nil
}
