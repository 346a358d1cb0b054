// Package ordinal keeps a 1-based, unique displayOrder ranking over a
// collection such as banners or categories.
//
// Planning is pure: PlanInsert, PlanMove, PlanSwap and PlanCompact turn a
// snapshot of the collection into an ordered list of writes. A Rebalancer
// applies a plan through a Collection, one compare-and-set write at a time.
package ordinal

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shashiranjanraj/kirana/pkg/store"
)

var (
	// ErrInvalidPosition rejects positions below 1, and insert positions
	// beyond N+1.
	ErrInvalidPosition = errors.New("ordinal: invalid position")
	// ErrConcurrentReorder means a row changed between planning and writing.
	// Writes made before the conflict stay applied.
	ErrConcurrentReorder = errors.New("ordinal: collection changed concurrently")
)

// parked is the temporary order held by a moving entry so the slot it
// leaves can be reused without a duplicate.
const parked = 0

// Entry is one ranked row.
type Entry struct {
	ID    string `json:"id"            bson:"id"`
	Order int    `json:"display_order" bson:"display_order" gorm:"column:display_order"`
}

// Write moves one row from one order to another.
type Write struct {
	ID   string
	From int
	To   int
}

func byOrder(entries []Entry) []Entry {
	out := append([]Entry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func find(entries []Entry, id string) (Entry, error) {
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("ordinal: entry %s: %w", id, store.ErrNotFound)
}

// NextOrder is the order just after the highest one in use.
func NextOrder(entries []Entry) int {
	next := 1
	for _, e := range entries {
		if e.Order >= next {
			next = e.Order + 1
		}
	}
	return next
}

// PlanInsert makes room at k: every entry at k or above moves up one,
// highest first, so no two entries ever share an order.
func PlanInsert(entries []Entry, k int) ([]Write, error) {
	if k < 1 || k > len(entries)+1 {
		return nil, fmt.Errorf("%w: insert at %d of %d", ErrInvalidPosition, k, len(entries))
	}

	sorted := byOrder(entries)
	var writes []Write
	for i := len(sorted) - 1; i >= 0; i-- {
		e := sorted[i]
		if e.Order < k {
			break
		}
		writes = append(writes, Write{ID: e.ID, From: e.Order, To: e.Order + 1})
	}
	return writes, nil
}

// PlanMove moves id to position p, shifting the entries in between by one.
// p beyond N is clamped to N. The moved entry is parked first and written
// last, so it always ends exactly at p.
func PlanMove(entries []Entry, id string, p int) ([]Write, error) {
	if p < 1 {
		return nil, fmt.Errorf("%w: move to %d", ErrInvalidPosition, p)
	}
	if p > len(entries) {
		p = len(entries)
	}

	moving, err := find(entries, id)
	if err != nil {
		return nil, err
	}
	old := moving.Order
	if p == old {
		return nil, nil
	}

	writes := []Write{{ID: id, From: old, To: parked}}
	sorted := byOrder(entries)

	if p < old {
		for i := len(sorted) - 1; i >= 0; i-- {
			e := sorted[i]
			if e.ID != id && e.Order >= p && e.Order < old {
				writes = append(writes, Write{ID: e.ID, From: e.Order, To: e.Order + 1})
			}
		}
	} else {
		for _, e := range sorted {
			if e.ID != id && e.Order > old && e.Order <= p {
				writes = append(writes, Write{ID: e.ID, From: e.Order, To: e.Order - 1})
			}
		}
	}

	return append(writes, Write{ID: id, From: parked, To: p}), nil
}

// PlanSwap exchanges the orders of a and b.
func PlanSwap(entries []Entry, a, b string) ([]Write, error) {
	ea, err := find(entries, a)
	if err != nil {
		return nil, err
	}
	eb, err := find(entries, b)
	if err != nil {
		return nil, err
	}
	if ea.Order == eb.Order {
		return nil, nil
	}
	return []Write{
		{ID: a, From: ea.Order, To: parked},
		{ID: b, From: eb.Order, To: ea.Order},
		{ID: a, From: parked, To: eb.Order},
	}, nil
}

// PlanCompact renumbers the collection 1..N keeping its relative order.
// Entries moving down are written lowest first, entries moving up highest
// first.
func PlanCompact(entries []Entry) []Write {
	sorted := byOrder(entries)

	var down, up []Write
	for i, e := range sorted {
		target := i + 1
		switch {
		case e.Order > target:
			down = append(down, Write{ID: e.ID, From: e.Order, To: target})
		case e.Order < target:
			up = append(up, Write{ID: e.ID, From: e.Order, To: target})
		}
	}
	for i, j := 0, len(up)-1; i < j; i, j = i+1, j-1 {
		up[i], up[j] = up[j], up[i]
	}
	return append(down, up...)
}

// Apply runs writes over entries in memory and returns the result. It is
// what a Rebalancer does against a Collection, minus the I/O.
func Apply(entries []Entry, writes []Write) []Entry {
	out := append([]Entry(nil), entries...)
	for _, w := range writes {
		for i := range out {
			if out[i].ID == w.ID {
				out[i].Order = w.To
				break
			}
		}
	}
	return out
}
