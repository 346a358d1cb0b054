// Package wishlist keeps the products a shopper has starred. Entries whose
// store write failed are parked in the key/value store and shown anyway,
// and a later List tries to write them through again.
package wishlist

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/kirana/app/models"
	"github.com/shashiranjanraj/kirana/app/repositories"
	"github.com/shashiranjanraj/kirana/app/services/errs"
	"github.com/shashiranjanraj/kirana/pkg/kv"
	"github.com/shashiranjanraj/kirana/pkg/logger"
	"github.com/shashiranjanraj/kirana/pkg/store"
)

type Service struct {
	items    *repositories.Repository[models.WishlistItem]
	products *repositories.Repository[models.Product]
	kv       kv.Store
	now      func() time.Time
}

func New(db store.Client, fallback kv.Store) *Service {
	return &Service{
		items:    repositories.Wishlist(db),
		products: repositories.Products(db),
		kv:       fallback,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func Key(owner string) string { return "wishlist:" + owner }

// Add stars productID for owner. Adding twice is a no-op.
func (s *Service) Add(ctx context.Context, owner, productID string) (models.WishlistItem, error) {
	if _, err := s.products.Find(ctx, productID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.WishlistItem{}, errs.Stale("product", productID)
		}
		return models.WishlistItem{}, err
	}

	existing, err := s.items.Where(ctx, store.Eq("owner_id", owner).Eq("product_id", productID).Take(1))
	if err == nil && len(existing) > 0 {
		return existing[0], nil
	}

	item := models.WishlistItem{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		ProductID: productID,
		CreatedAt: s.now(),
	}
	if err := s.items.Create(ctx, &item); err != nil {
		logger.WithCtx(ctx).Warn("wishlist: store write failed, keeping entry locally",
			"owner", owner, "product_id", productID, "error", err)
		if ferr := s.park(ctx, owner, item); ferr != nil {
			return models.WishlistItem{}, errs.RemoteWrite("add wishlist item", errors.Join(err, ferr))
		}
	}
	return item, nil
}

// Remove unstars productID from both the store and the fallback.
func (s *Service) Remove(ctx context.Context, owner, productID string) error {
	parked, err := s.parked(ctx, owner)
	if err != nil {
		return err
	}
	kept := parked[:0]
	for _, it := range parked {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	removedLocal := len(kept) != len(parked)
	if removedLocal {
		if err := s.saveParked(ctx, owner, kept); err != nil {
			return errs.RemoteWrite("remove wishlist item", err)
		}
	}

	n, err := s.items.DeleteWhere(ctx, store.Eq("owner_id", owner).Eq("product_id", productID))
	if err != nil {
		return errs.RemoteWrite("remove wishlist item", err)
	}
	if n == 0 && !removedLocal {
		return errs.Stale("wishlist item", productID)
	}
	return nil
}

// List returns owner's entries, newest first, including parked ones.
func (s *Service) List(ctx context.Context, owner string) ([]models.WishlistItem, error) {
	rows, err := s.items.Where(ctx, store.Eq("owner_id", owner))
	if err != nil {
		return nil, err
	}
	parked, err := s.parked(ctx, owner)
	if err != nil {
		logger.WithCtx(ctx).Warn("wishlist: fallback unreadable", "owner", owner, "error", err)
		parked = nil
	}

	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		seen[r.ProductID] = true
	}
	var still []models.WishlistItem
	for _, p := range parked {
		if seen[p.ProductID] {
			continue
		}
		seen[p.ProductID] = true
		if err := s.items.Create(ctx, &p); err != nil {
			still = append(still, p)
		}
		rows = append(rows, p)
	}
	if len(parked) > 0 && len(still) != len(parked) {
		if err := s.saveParked(ctx, owner, still); err != nil {
			logger.WithCtx(ctx).Warn("wishlist: fallback update failed", "owner", owner, "error", err)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return rows, nil
}

func (s *Service) park(ctx context.Context, owner string, item models.WishlistItem) error {
	parked, err := s.parked(ctx, owner)
	if err != nil {
		parked = nil
	}
	for _, p := range parked {
		if p.ProductID == item.ProductID {
			return nil
		}
	}
	return s.saveParked(ctx, owner, append(parked, item))
}

func (s *Service) parked(ctx context.Context, owner string) ([]models.WishlistItem, error) {
	raw, err := s.kv.Get(ctx, Key(owner))
	if errors.Is(err, kv.ErrMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var items []models.WishlistItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) saveParked(ctx context.Context, owner string, items []models.WishlistItem) error {
	if len(items) == 0 {
		return s.kv.Delete(ctx, Key(owner))
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, Key(owner), string(raw))
}
