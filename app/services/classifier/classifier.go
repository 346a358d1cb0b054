// Package classifier recomputes each category's derived type from the
// current products and subcategories. Runs are idempotent, and one
// category's failed write never stops the rest.
package classifier

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/kirana/app/models"
	"github.com/shashiranjanraj/kirana/app/repositories"
	"github.com/shashiranjanraj/kirana/pkg/collection"
	"github.com/shashiranjanraj/kirana/pkg/logger"
	"github.com/shashiranjanraj/kirana/pkg/metrics"
	"github.com/shashiranjanraj/kirana/pkg/store"
)

// Classify decides a category's type. Subcategories win over direct
// products; pseudo-categories always hold product cards.
func Classify(c models.Category, hasSubcategories, hasDirectProducts bool) models.CategoryType {
	switch {
	case hasSubcategories:
		return models.CategorySubcategory
	case hasDirectProducts || c.IsPseudo():
		return models.CategoryProductCard
	default:
		return models.CategoryEmpty
	}
}

// Report summarises one run.
type Report struct {
	Total     int                            `json:"total"`
	Updated   int                            `json:"updated"`
	Unchanged int                            `json:"unchanged"`
	Failed    map[string]string              `json:"failed,omitempty"`
	Types     map[string]models.CategoryType `json:"types"`
}

type Classifier struct {
	categories    *repositories.Repository[models.Category]
	subcategories *repositories.Repository[models.Subcategory]
	products      *repositories.Repository[models.Product]
}

func New(db store.Client) *Classifier {
	return &Classifier{
		categories:    repositories.Categories(db),
		subcategories: repositories.Subcategories(db),
		products:      repositories.Products(db),
	}
}

// Run classifies every category. It only returns an error when the
// catalog cannot be read; failed writes are listed in the report.
func (c *Classifier) Run(ctx context.Context) (Report, error) {
	log := logger.WithCtx(ctx)

	categories, err := c.categories.Where(ctx, store.All())
	if err != nil {
		metrics.ClassifierRuns.WithLabelValues("error").Inc()
		return Report{}, fmt.Errorf("classifier: load categories: %w", err)
	}
	subs, err := c.subcategories.Where(ctx, store.All())
	if err != nil {
		metrics.ClassifierRuns.WithLabelValues("error").Inc()
		return Report{}, fmt.Errorf("classifier: load subcategories: %w", err)
	}
	products, err := c.products.Where(ctx, store.All())
	if err != nil {
		metrics.ClassifierRuns.WithLabelValues("error").Inc()
		return Report{}, fmt.Errorf("classifier: load products: %w", err)
	}

	subsBy := collection.GroupBy(subs, func(s models.Subcategory) string { return s.CategoryID })
	directBy := collection.GroupBy(
		collection.Filter(products, func(p models.Product) bool { return p.CategoryID != "" && p.SubcategoryID == "" }),
		func(p models.Product) string { return p.CategoryID },
	)

	rep := Report{
		Total:  len(categories),
		Failed: map[string]string{},
		Types:  make(map[string]models.CategoryType, len(categories)),
	}
	for _, cat := range categories {
		next := Classify(cat, len(subsBy[cat.ID]) > 0, len(directBy[cat.ID]) > 0)
		rep.Types[cat.ID] = next
		if next == cat.CategoryType {
			rep.Unchanged++
			continue
		}
		if err := c.categories.Update(ctx, cat.ID, map[string]any{"category_type": next}); err != nil {
			log.Error("classifier: write failed", "category_id", cat.ID, "type", next, "error", err)
			rep.Failed[cat.ID] = err.Error()
			rep.Types[cat.ID] = cat.CategoryType
			continue
		}
		log.Info("classifier: reclassified", "category_id", cat.ID, "from", cat.CategoryType, "to", next)
		rep.Updated++
	}

	result := "ok"
	if len(rep.Failed) > 0 {
		result = "partial"
	}
	metrics.ClassifierRuns.WithLabelValues(result).Inc()
	return rep, nil
}
