// Package catalog serves the storefront's products, categories,
// subcategories and banners, and the admin writes over them. Category and
// banner positions only change through an ordinal.Rebalancer.
package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/shashiranjanraj/kirana/app/models"
	"github.com/shashiranjanraj/kirana/app/repositories"
	"github.com/shashiranjanraj/kirana/app/services/ordinal"
	"github.com/shashiranjanraj/kirana/pkg/cache"
	"github.com/shashiranjanraj/kirana/pkg/collection"
	"github.com/shashiranjanraj/kirana/pkg/event"
	"github.com/shashiranjanraj/kirana/pkg/logger"
	"github.com/shashiranjanraj/kirana/pkg/store"
)

// EventChanged fires after any admin write that may change a category's
// classification. The payload is the table name.
const EventChanged = "catalog.changed"

const cachePrefix = "catalog:"

type Service struct {
	products      *repositories.Repository[models.Product]
	categories    *repositories.Repository[models.Category]
	subcategories *repositories.Repository[models.Subcategory]
	banners       *repositories.Repository[models.Banner]

	categoryOrder *ordinal.Rebalancer
	bannerOrder   *ordinal.Rebalancer

	ttl time.Duration
	now func() time.Time
}

func New(db store.Client, cacheTTL time.Duration) *Service {
	return &Service{
		products:      repositories.Products(db),
		categories:    repositories.Categories(db),
		subcategories: repositories.Subcategories(db),
		banners:       repositories.Banners(db),
		categoryOrder: ordinal.New(models.TableCategories, ordinal.StoreCollection{Client: db, Table: models.TableCategories}),
		bannerOrder:   ordinal.New(models.TableBanners, ordinal.StoreCollection{Client: db, Table: models.TableBanners}),
		ttl:           cacheTTL,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// ProductFilter narrows a product listing. Q is a case-insensitive
// substring match on the name.
type ProductFilter struct {
	CategoryID    string
	SubcategoryID string
	Q             string
}

func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	return cache.Remember(ctx, cachePrefix+"categories", s.ttl, func() ([]models.Category, error) {
		return s.categories.Where(ctx, store.All().OrderBy("display_order", false))
	})
}

func (s *Service) Category(ctx context.Context, id string) (models.Category, error) {
	return s.categories.Find(ctx, id)
}

func (s *Service) Subcategories(ctx context.Context, categoryID string) ([]models.Subcategory, error) {
	return cache.Remember(ctx, cachePrefix+"subcategories:"+categoryID, s.ttl, func() ([]models.Subcategory, error) {
		return s.subcategories.Where(ctx, store.Eq("category_id", categoryID).OrderBy("name", false))
	})
}

// Banners returns banners in display order; the storefront asks only for
// active ones.
func (s *Service) Banners(ctx context.Context, activeOnly bool) ([]models.Banner, error) {
	all, err := cache.Remember(ctx, cachePrefix+"banners", s.ttl, func() ([]models.Banner, error) {
		return s.banners.Where(ctx, store.All().OrderBy("display_order", false))
	})
	if err != nil || !activeOnly {
		return all, err
	}
	active := all[:0:0]
	for _, b := range all {
		if b.Active {
			active = append(active, b)
		}
	}
	return active, nil
}

func (s *Service) Products(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	q := store.All().OrderBy("name", false)
	key := cachePrefix + "products"
	if f.CategoryID != "" {
		q = q.Eq("category_id", f.CategoryID)
		key += ":c=" + f.CategoryID
	}
	if f.SubcategoryID != "" {
		q = q.Eq("subcategory_id", f.SubcategoryID)
		key += ":s=" + f.SubcategoryID
	}

	rows, err := cache.Remember(ctx, key, s.ttl, func() ([]models.Product, error) {
		return s.products.Where(ctx, q)
	})
	if err != nil || f.Q == "" {
		return rows, err
	}

	needle := strings.ToLower(strings.TrimSpace(f.Q))
	return collection.Filter(rows, func(p models.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), needle)
	}), nil
}

func (s *Service) Product(ctx context.Context, id string) (models.Product, error) {
	return s.products.Find(ctx, id)
}

// changed drops cached listings and announces the write.
func (s *Service) changed(ctx context.Context, table string) {
	if err := cache.Forget(ctx, cachePrefix+"*"); err != nil {
		logger.WithCtx(ctx).Warn("catalog: cache invalidation failed", "error", err)
	}
	event.FireAsync(ctx, EventChanged, table)
}
