package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/shashiranjanraj/kirana/app/models"
	"github.com/shashiranjanraj/kirana/app/services/errs"
	"github.com/shashiranjanraj/kirana/pkg/kv"
	"github.com/shashiranjanraj/kirana/pkg/store"
)

// Service resolves carts by owner, where owner is a user id or a guest
// session id.
type Service struct {
	kv kv.Store
	db store.Client
}

func NewService(kvs kv.Store, db store.Client) *Service {
	return &Service{kv: kvs, db: db}
}

func Key(owner string) string { return "cart:" + owner }

func (s *Service) Open(ctx context.Context, owner string) *Store {
	return Open(ctx, KVPersister{KV: s.kv, Key: Key(owner)})
}

// AddProduct adds one unit of a catalog product, capturing its current
// price and category name on the line.
func (s *Service) AddProduct(ctx context.Context, owner, productID string) (*Store, error) {
	if productID == "" {
		return nil, errs.Invalid("product_id", "The product_id field is required.")
	}

	p, err := store.One[models.Product](ctx, s.db, models.TableProducts, store.Eq("id", productID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.Stale("product", productID)
	}
	if err != nil {
		return nil, fmt.Errorf("cart: load product: %w", err)
	}

	label := ""
	if p.CategoryID != "" {
		if c, err := store.One[models.Category](ctx, s.db, models.TableCategories, store.Eq("id", p.CategoryID)); err == nil {
			label = c.Name
		}
	}

	c := s.Open(ctx, owner)
	err = c.AddLine(ctx, models.CartLine{
		ProductID:     p.ID,
		Name:          p.Name,
		UnitPrice:     p.Price,
		Image:         p.ImageURL,
		CategoryLabel: label,
	})
	return c, err
}

// MergeGuest moves a guest cart into the owner's cart and erases it.
func (s *Service) MergeGuest(ctx context.Context, guest, owner string) error {
	if guest == "" || guest == owner {
		return nil
	}
	g := s.Open(ctx, guest)
	if g.Empty() {
		return nil
	}
	if err := s.Open(ctx, owner).Merge(ctx, g.Lines()); err != nil {
		return err
	}
	return g.Clear(ctx)
}
