// Package repositories gives each table a typed face over the generic
// store client.
package repositories

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/kirana/app/models"
	"github.com/shashiranjanraj/kirana/pkg/store"
)

// Repository reads and writes rows of one table as T.
type Repository[T any] struct {
	db    store.Client
	table string
}

func New[T any](db store.Client, table string) *Repository[T] {
	return &Repository[T]{db: db, table: table}
}

func (r *Repository[T]) Table() string        { return r.table }
func (r *Repository[T]) Client() store.Client { return r.db }

func (r *Repository[T]) Where(ctx context.Context, q store.Query) ([]T, error) {
	return store.Find[T](ctx, r.db, r.table, q)
}

func (r *Repository[T]) First(ctx context.Context, q store.Query) (T, error) {
	return store.One[T](ctx, r.db, r.table, q)
}

// Find looks a row up by id.
func (r *Repository[T]) Find(ctx context.Context, id string) (T, error) {
	return r.First(ctx, store.Eq("id", id))
}

func (r *Repository[T]) Create(ctx context.Context, row *T) error {
	return r.db.Insert(ctx, r.table, row)
}

func (r *Repository[T]) CreateMany(ctx context.Context, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.Insert(ctx, r.table, rows)
}

// Update sets fields on the row with id and returns ErrNotFound when
// there is none.
func (r *Repository[T]) Update(ctx context.Context, id string, fields map[string]any) error {
	n, err := r.db.Update(ctx, r.table, store.Eq("id", id), fields)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", r.table, id, store.ErrNotFound)
	}
	return nil
}

func (r *Repository[T]) UpdateWhere(ctx context.Context, q store.Query, fields map[string]any) (int64, error) {
	return r.db.Update(ctx, r.table, q, fields)
}

func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	n, err := r.db.Delete(ctx, r.table, store.Eq("id", id))
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", r.table, id, store.ErrNotFound)
	}
	return nil
}

func (r *Repository[T]) DeleteWhere(ctx context.Context, q store.Query) (int64, error) {
	return r.db.Delete(ctx, r.table, q)
}

func Products(db store.Client) *Repository[models.Product] {
	return New[models.Product](db, models.TableProducts)
}

func Categories(db store.Client) *Repository[models.Category] {
	return New[models.Category](db, models.TableCategories)
}

func Subcategories(db store.Client) *Repository[models.Subcategory] {
	return New[models.Subcategory](db, models.TableSubcategories)
}

func Banners(db store.Client) *Repository[models.Banner] {
	return New[models.Banner](db, models.TableBanners)
}

func Addresses(db store.Client) *Repository[models.Address] {
	return New[models.Address](db, models.TableAddresses)
}

func Orders(db store.Client) *Repository[models.Order] {
	return New[models.Order](db, models.TableOrders)
}

func OrderItems(db store.Client) *Repository[models.OrderItem] {
	return New[models.OrderItem](db, models.TableOrderItems)
}

func Wishlist(db store.Client) *Repository[models.WishlistItem] {
	return New[models.WishlistItem](db, models.TableWishlist)
}
