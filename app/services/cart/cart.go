// Package cart holds what a shopper intends to buy. A Store keeps lines in
// memory and writes the whole collection to its Persister after every
// mutation. A mutation whose write fails is undone in memory.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/shashiranjanraj/kirana/app/models"
	"github.com/shashiranjanraj/kirana/app/services/errs"
	"github.com/shashiranjanraj/kirana/pkg/kv"
	"github.com/shashiranjanraj/kirana/pkg/logger"
	"github.com/shashiranjanraj/kirana/pkg/store"
)

// ErrNoLine is returned when a quantity change names a product not in the cart.
var ErrNoLine = fmt.Errorf("cart: line: %w", store.ErrNotFound)

// Persister is the durable mirror of one cart.
type Persister interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, snapshot []byte) error
	Clear(ctx context.Context) error
}

// Store is one shopper's cart.
type Store struct {
	mu    sync.Mutex
	lines []models.CartLine
	p     Persister
}

// Open loads a cart from p. A missing, unreadable or corrupt mirror gives
// an empty cart.
func Open(ctx context.Context, p Persister) *Store {
	s := &Store{p: p}

	raw, err := p.Load(ctx)
	if err != nil {
		logger.WithCtx(ctx).Warn("cart: load failed, starting empty", "error", err)
		return s
	}
	if len(raw) == 0 {
		return s
	}

	var lines []models.CartLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		logger.WithCtx(ctx).Warn("cart: corrupt snapshot, starting empty", "error", err)
		return s
	}
	for _, l := range lines {
		if l.ProductID != "" && l.Quantity >= 1 {
			s.lines = append(s.lines, l)
		}
	}
	return s
}

func (s *Store) index(productID string) int {
	for i, l := range s.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

// AddLine adds one unit of item, creating the line if needed.
func (s *Store) AddLine(ctx context.Context, item models.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.snapshot()

	if i := s.index(item.ProductID); i >= 0 {
		s.lines[i].Quantity++
	} else {
		item.Quantity = 1
		s.lines = append(s.lines, item)
	}
	return s.save(ctx, prev)
}

// SetQuantity replaces a line's quantity. n below 1 removes the line.
func (s *Store) SetQuantity(ctx context.Context, productID string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(productID)
	if i < 0 {
		return ErrNoLine
	}
	prev := s.snapshot()
	if n < 1 {
		s.lines = append(s.lines[:i], s.lines[i+1:]...)
	} else {
		s.lines[i].Quantity = n
	}
	return s.save(ctx, prev)
}

func (s *Store) RemoveLine(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.snapshot()

	if i := s.index(productID); i >= 0 {
		s.lines = append(s.lines[:i], s.lines[i+1:]...)
	}
	return s.save(ctx, prev)
}

// Merge folds lines into the cart, adding quantities for products already
// present. Used when a guest cart meets the shopper's own after login.
func (s *Store) Merge(ctx context.Context, lines []models.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.snapshot()

	for _, l := range lines {
		if l.Quantity < 1 {
			continue
		}
		if i := s.index(l.ProductID); i >= 0 {
			s.lines[i].Quantity += l.Quantity
		} else {
			s.lines = append(s.lines, l)
		}
	}
	return s.save(ctx, prev)
}

// Clear empties the cart and erases its mirror.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.p.Clear(ctx); err != nil {
		logger.WithCtx(ctx).Error("cart: clear failed", "error", err)
		return errs.RemoteWrite("clear cart", err)
	}
	s.lines = nil
	return nil
}

func (s *Store) Lines() []models.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CartLine(nil), s.lines...)
}

func (s *Store) TotalPrice() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total float64
	for _, l := range s.lines {
		total += l.Subtotal()
	}
	return total
}

// ItemCount is the number of units, not lines.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

func (s *Store) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) == 0
}

func (s *Store) snapshot() []models.CartLine {
	return append([]models.CartLine(nil), s.lines...)
}

// save writes the current lines, restoring prev if the write fails.
func (s *Store) save(ctx context.Context, prev []models.CartLine) error {
	lines := s.lines
	if lines == nil {
		lines = []models.CartLine{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		s.lines = prev
		return fmt.Errorf("cart: encode: %w", err)
	}
	if err := s.p.Save(ctx, raw); err != nil {
		s.lines = prev
		logger.WithCtx(ctx).Error("cart: persist failed", "error", err)
		return errs.RemoteWrite("save cart", err)
	}
	return nil
}

// KVPersister mirrors a cart under one key of a kv.Store.
type KVPersister struct {
	KV  kv.Store
	Key string
}

func (p KVPersister) Load(ctx context.Context) ([]byte, error) {
	v, err := p.KV.Get(ctx, p.Key)
	if errors.Is(err, kv.ErrMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(v), nil
}

func (p KVPersister) Save(ctx context.Context, snapshot []byte) error {
	return p.KV.Set(ctx, p.Key, string(snapshot))
}

func (p KVPersister) Clear(ctx context.Context) error {
	return p.KV.Delete(ctx, p.Key)
}
