package ordinal

import (
	"context"
	"errors"
	"fmt"

	"github.com/shashiranjanraj/kirana/pkg/logger"
)

// Collection is the ranked set a Rebalancer works on.
type Collection interface {
	Entries(ctx context.Context) ([]Entry, error)
	// SetOrder moves id from one order to another, and returns
	// ErrConcurrentReorder if the row is no longer at from.
	SetOrder(ctx context.Context, id string, from, to int) error
	Remove(ctx context.Context, id string) error
}

// Rebalancer is the only code path that changes display orders.
type Rebalancer struct {
	coll Collection
	name string
}

func New(name string, coll Collection) *Rebalancer {
	return &Rebalancer{coll: coll, name: name}
}

// InsertAt opens position k and then calls create with it.
func (r *Rebalancer) InsertAt(ctx context.Context, k int, create func(ctx context.Context, order int) error) error {
	entries, err := r.coll.Entries(ctx)
	if err != nil {
		return err
	}
	writes, err := PlanInsert(entries, k)
	if err != nil {
		return err
	}
	if err := r.apply(ctx, "insert", writes); err != nil {
		return err
	}
	return create(ctx, k)
}

// Append places the new entry after the current last one. Deletes leave
// gaps, so that is max(order)+1 rather than N+1.
func (r *Rebalancer) Append(ctx context.Context, create func(ctx context.Context, order int) error) error {
	entries, err := r.coll.Entries(ctx)
	if err != nil {
		return err
	}
	return create(ctx, NextOrder(entries))
}

func (r *Rebalancer) Move(ctx context.Context, id string, p int) error {
	entries, err := r.coll.Entries(ctx)
	if err != nil {
		return err
	}
	writes, err := PlanMove(entries, id, p)
	if err != nil {
		return err
	}
	return r.apply(ctx, "move", writes)
}

// Swap exchanges two entries; categories use it for up/down.
func (r *Rebalancer) Swap(ctx context.Context, a, b string) error {
	entries, err := r.coll.Entries(ctx)
	if err != nil {
		return err
	}
	writes, err := PlanSwap(entries, a, b)
	if err != nil {
		return err
	}
	return r.apply(ctx, "swap", writes)
}

// Delete removes id. The entries after it keep their orders, leaving a
// gap until someone runs Compact.
func (r *Rebalancer) Delete(ctx context.Context, id string) error {
	return r.coll.Remove(ctx, id)
}

// Compact closes any gaps. It is never run implicitly.
func (r *Rebalancer) Compact(ctx context.Context) (int, error) {
	entries, err := r.coll.Entries(ctx)
	if err != nil {
		return 0, err
	}
	writes := PlanCompact(entries)
	return len(writes), r.apply(ctx, "compact", writes)
}

func (r *Rebalancer) apply(ctx context.Context, op string, writes []Write) error {
	for i, w := range writes {
		if err := r.coll.SetOrder(ctx, w.ID, w.From, w.To); err != nil {
			log := logger.WithCtx(ctx)
			if errors.Is(err, ErrConcurrentReorder) {
				log.Warn("ordinal: concurrent reorder detected",
					"collection", r.name, "op", op, "id", w.ID, "applied", i, "planned", len(writes))
			} else {
				log.Error("ordinal: write failed",
					"collection", r.name, "op", op, "id", w.ID, "applied", i, "error", err)
			}
			return fmt.Errorf("ordinal: %s %s: %w", op, r.name, err)
		}
	}
	return nil
}
