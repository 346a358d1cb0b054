package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/kirana/app/models"
	"github.com/shashiranjanraj/kirana/app/services/errs"
	"github.com/shashiranjanraj/kirana/app/services/ordinal"
	"github.com/shashiranjanraj/kirana/pkg/store"
	"github.com/shashiranjanraj/kirana/pkg/validate"
)

func check(v any) error {
	if fields := validate.Struct(v); validate.HasErrors(fields) {
		return &errs.ValidationError{Errors: fields}
	}
	return nil
}

func writeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var verr *errs.ValidationError
	if errors.Is(err, store.ErrNotFound) || errors.As(err, &verr) {
		return err
	}
	return errs.RemoteWrite(op, err)
}

// ── Products ─────────────────────────────────────────────────────────────────

type ProductInput struct {
	Name          string  `json:"name"           validate:"required,max=255"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"          validate:"gte=0"`
	StockQuantity int     `json:"stock_quantity" validate:"gte=0"`
	Unit          string  `json:"unit"           validate:"max=50"`
	ImageURL      string  `json:"image_url"      validate:"nullable,url"`
	CategoryID    string  `json:"category_id"    validate:"required"`
	SubcategoryID string  `json:"subcategory_id"`
}

func (s *Service) checkPlacement(ctx context.Context, categoryID, subcategoryID string) error {
	if _, err := s.categories.Find(ctx, categoryID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errs.Stale("category", categoryID)
		}
		return err
	}
	if subcategoryID == "" {
		return nil
	}
	sub, err := s.subcategories.Find(ctx, subcategoryID)
	if errors.Is(err, store.ErrNotFound) {
		return errs.Stale("subcategory", subcategoryID)
	}
	if err != nil {
		return err
	}
	if sub.CategoryID != categoryID {
		return errs.Invalid("subcategory_id", "The subcategory belongs to another category.")
	}
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (models.Product, error) {
	if err := check(in); err != nil {
		return models.Product{}, err
	}
	if err := s.checkPlacement(ctx, in.CategoryID, in.SubcategoryID); err != nil {
		return models.Product{}, err
	}

	now := s.now()
	p := models.Product{
		ID:            uuid.NewString(),
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		StockQuantity: in.StockQuantity,
		Unit:          in.Unit,
		ImageURL:      in.ImageURL,
		CategoryID:    in.CategoryID,
		SubcategoryID: in.SubcategoryID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.products.Create(ctx, &p); err != nil {
		return models.Product{}, errs.RemoteWrite("create product", err)
	}
	s.changed(ctx, models.TableProducts)
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductInput) (models.Product, error) {
	if err := check(in); err != nil {
		return models.Product{}, err
	}
	if err := s.checkPlacement(ctx, in.CategoryID, in.SubcategoryID); err != nil {
		return models.Product{}, err
	}
	err := s.products.Update(ctx, id, map[string]any{
		"name":           in.Name,
		"description":    in.Description,
		"price":          in.Price,
		"stock_quantity": in.StockQuantity,
		"unit":           in.Unit,
		"image_url":      in.ImageURL,
		"category_id":    in.CategoryID,
		"subcategory_id": in.SubcategoryID,
		"updated_at":     s.now(),
	})
	if err != nil {
		return models.Product{}, writeErr("update product", err)
	}
	s.changed(ctx, models.TableProducts)
	return s.products.Find(ctx, id)
}

// SetStock overwrites a product's stock count.
func (s *Service) SetStock(ctx context.Context, id string, qty int) error {
	if qty < 0 {
		return errs.Invalid("stock_quantity", "The stock_quantity must be at least 0.")
	}
	err := s.products.Update(ctx, id, map[string]any{"stock_quantity": qty, "updated_at": s.now()})
	if err != nil {
		return writeErr("set stock", err)
	}
	s.changed(ctx, models.TableProducts)
	return nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return writeErr("delete product", err)
	}
	s.changed(ctx, models.TableProducts)
	return nil
}

// ── Categories ───────────────────────────────────────────────────────────────

type CategoryInput struct {
	Name     string `json:"name"      validate:"required,max=255"`
	ImageURL string `json:"image_url" validate:"nullable,url"`
	// Position inserts at that display order; nil appends.
	Position *int `json:"position" validate:"nullable,gte=1"`
}

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (models.Category, error) {
	if err := check(in); err != nil {
		return models.Category{}, err
	}

	c := models.Category{
		ID:           uuid.NewString(),
		Name:         in.Name,
		ImageURL:     in.ImageURL,
		CategoryType: models.CategoryEmpty,
		CreatedAt:    s.now(),
	}
	if c.IsPseudo() {
		c.CategoryType = models.CategoryProductCard
	}
	create := func(ctx context.Context, order int) error {
		c.DisplayOrder = order
		return s.categories.Create(ctx, &c)
	}

	var err error
	if in.Position != nil {
		err = s.categoryOrder.InsertAt(ctx, *in.Position, create)
	} else {
		err = s.categoryOrder.Append(ctx, create)
	}
	if err != nil {
		return models.Category{}, s.orderErr("create category", err)
	}
	s.changed(ctx, models.TableCategories)
	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id string, in CategoryInput) (models.Category, error) {
	if err := check(in); err != nil {
		return models.Category{}, err
	}
	err := s.categories.Update(ctx, id, map[string]any{"name": in.Name, "image_url": in.ImageURL})
	if err != nil {
		return models.Category{}, writeErr("update category", err)
	}
	if in.Position != nil {
		if err := s.categoryOrder.Move(ctx, id, *in.Position); err != nil {
			return models.Category{}, s.orderErr("move category", err)
		}
	}
	s.changed(ctx, models.TableCategories)
	return s.categories.Find(ctx, id)
}

func (s *Service) MoveCategory(ctx context.Context, id string, position int) error {
	if err := s.categoryOrder.Move(ctx, id, position); err != nil {
		return s.orderErr("move category", err)
	}
	s.changed(ctx, models.TableCategories)
	return nil
}

// SwapCategories exchanges two categories' positions (admin up/down).
func (s *Service) SwapCategories(ctx context.Context, a, b string) error {
	if err := s.categoryOrder.Swap(ctx, a, b); err != nil {
		return s.orderErr("swap categories", err)
	}
	s.changed(ctx, models.TableCategories)
	return nil
}

// DeleteCategory refuses while subcategories or products still point at it.
// The categories after it keep their positions.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	subs, err := s.subcategories.Where(ctx, store.Eq("category_id", id).Take(1))
	if err != nil {
		return err
	}
	prods, err := s.products.Where(ctx, store.Eq("category_id", id).Take(1))
	if err != nil {
		return err
	}
	if len(subs) > 0 || len(prods) > 0 {
		return errs.Conflict("category still has subcategories or products")
	}
	if err := s.categoryOrder.Delete(ctx, id); err != nil {
		return writeErr("delete category", err)
	}
	s.changed(ctx, models.TableCategories)
	return nil
}

func (s *Service) CompactCategories(ctx context.Context) (int, error) {
	n, err := s.categoryOrder.Compact(ctx)
	if err != nil {
		return n, s.orderErr("compact categories", err)
	}
	s.changed(ctx, models.TableCategories)
	return n, nil
}

// ── Subcategories ────────────────────────────────────────────────────────────

type SubcategoryInput struct {
	CategoryID string `json:"category_id" validate:"required"`
	Name       string `json:"name"        validate:"required,max=255"`
	ImageURL   string `json:"image_url"   validate:"nullable,url"`
}

// parent checks the category may hold subcategories. The classification
// it reads may be stale until the classifier runs again.
func (s *Service) parent(ctx context.Context, id string) error {
	c, err := s.categories.Find(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return errs.Stale("category", id)
	}
	if err != nil {
		return err
	}
	if !c.CanParentSubcategory() {
		return errs.Conflict(fmt.Sprintf("category %q holds products directly and cannot have subcategories", c.Name))
	}
	return nil
}

func (s *Service) CreateSubcategory(ctx context.Context, in SubcategoryInput) (models.Subcategory, error) {
	if err := check(in); err != nil {
		return models.Subcategory{}, err
	}
	if err := s.parent(ctx, in.CategoryID); err != nil {
		return models.Subcategory{}, err
	}

	sub := models.Subcategory{
		ID:         uuid.NewString(),
		CategoryID: in.CategoryID,
		Name:       in.Name,
		ImageURL:   in.ImageURL,
		CreatedAt:  s.now(),
	}
	if err := s.subcategories.Create(ctx, &sub); err != nil {
		return models.Subcategory{}, errs.RemoteWrite("create subcategory", err)
	}
	s.changed(ctx, models.TableSubcategories)
	return sub, nil
}

func (s *Service) UpdateSubcategory(ctx context.Context, id string, in SubcategoryInput) (models.Subcategory, error) {
	if err := check(in); err != nil {
		return models.Subcategory{}, err
	}
	current, err := s.subcategories.Find(ctx, id)
	if err != nil {
		return models.Subcategory{}, err
	}
	if current.CategoryID != in.CategoryID {
		if err := s.parent(ctx, in.CategoryID); err != nil {
			return models.Subcategory{}, err
		}
	}
	err = s.subcategories.Update(ctx, id, map[string]any{
		"category_id": in.CategoryID,
		"name":        in.Name,
		"image_url":   in.ImageURL,
	})
	if err != nil {
		return models.Subcategory{}, writeErr("update subcategory", err)
	}
	s.changed(ctx, models.TableSubcategories)
	return s.subcategories.Find(ctx, id)
}

func (s *Service) DeleteSubcategory(ctx context.Context, id string) error {
	if err := s.subcategories.Delete(ctx, id); err != nil {
		return writeErr("delete subcategory", err)
	}
	s.changed(ctx, models.TableSubcategories)
	return nil
}

// ── Banners ──────────────────────────────────────────────────────────────────

type BannerInput struct {
	Title    string `json:"title"     validate:"max=255"`
	ImageURL string `json:"image_url" validate:"required,url"`
	LinkURL  string `json:"link_url"  validate:"nullable,max=512"`
	Active   *bool  `json:"active"`
	Position *int   `json:"position"  validate:"nullable,gte=1"`
}

func (in BannerInput) active() bool { return in.Active == nil || *in.Active }

func (s *Service) CreateBanner(ctx context.Context, in BannerInput) (models.Banner, error) {
	if err := check(in); err != nil {
		return models.Banner{}, err
	}

	b := models.Banner{
		ID:        uuid.NewString(),
		Title:     in.Title,
		ImageURL:  in.ImageURL,
		LinkURL:   in.LinkURL,
		Active:    in.active(),
		CreatedAt: s.now(),
	}
	create := func(ctx context.Context, order int) error {
		b.DisplayOrder = order
		return s.banners.Create(ctx, &b)
	}

	var err error
	if in.Position != nil {
		err = s.bannerOrder.InsertAt(ctx, *in.Position, create)
	} else {
		err = s.bannerOrder.Append(ctx, create)
	}
	if err != nil {
		return models.Banner{}, s.orderErr("create banner", err)
	}
	s.changed(ctx, models.TableBanners)
	return b, nil
}

// UpdateBanner edits the banner and, when Position is set, moves it.
func (s *Service) UpdateBanner(ctx context.Context, id string, in BannerInput) (models.Banner, error) {
	if err := check(in); err != nil {
		return models.Banner{}, err
	}
	err := s.banners.Update(ctx, id, map[string]any{
		"title":     in.Title,
		"image_url": in.ImageURL,
		"link_url":  in.LinkURL,
		"active":    in.active(),
	})
	if err != nil {
		return models.Banner{}, writeErr("update banner", err)
	}
	if in.Position != nil {
		if err := s.bannerOrder.Move(ctx, id, *in.Position); err != nil {
			return models.Banner{}, s.orderErr("move banner", err)
		}
	}
	s.changed(ctx, models.TableBanners)
	return s.banners.Find(ctx, id)
}

func (s *Service) MoveBanner(ctx context.Context, id string, position int) error {
	if err := s.bannerOrder.Move(ctx, id, position); err != nil {
		return s.orderErr("move banner", err)
	}
	s.changed(ctx, models.TableBanners)
	return nil
}

func (s *Service) DeleteBanner(ctx context.Context, id string) error {
	if err := s.bannerOrder.Delete(ctx, id); err != nil {
		return writeErr("delete banner", err)
	}
	s.changed(ctx, models.TableBanners)
	return nil
}

func (s *Service) CompactBanners(ctx context.Context) (int, error) {
	n, err := s.bannerOrder.Compact(ctx)
	if err != nil {
		return n, s.orderErr("compact banners", err)
	}
	s.changed(ctx, models.TableBanners)
	return n, nil
}

func (s *Service) orderErr(op string, err error) error {
	switch {
	case errors.Is(err, ordinal.ErrInvalidPosition):
		return errs.Invalid("position", err.Error())
	case errors.Is(err, ordinal.ErrConcurrentReorder):
		return errs.Conflict("positions changed while saving; reload and try again")
	}
	return writeErr(op, err)
}
