package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/kirana/app/services/catalog"
	"github.com/shashiranjanraj/kirana/app/services/classifier"
	"github.com/shashiranjanraj/kirana/pkg/ctx"
	"github.com/shashiranjanraj/kirana/pkg/ws"
)

// AdminController edits the catalog and watches incoming orders.
type AdminController struct {
	catalog    *catalog.Service
	classifier *classifier.Classifier
	hub        *ws.Hub
}

func NewAdminController(d Deps) *AdminController {
	return &AdminController{catalog: d.Catalog, classifier: d.Classifier, hub: d.Hub}
}

// ── Products ─────────────────────────────────────────────────────────────────

func (c *AdminController) StoreProduct(x *ctx.Context) {
	var in catalog.ProductInput
	if !x.BindJSON(&in) {
		return
	}
	p, err := c.catalog.CreateProduct(x.Context(), in)
	if err != nil {
		x.Fail(err)
		return
	}
	x.Created(p)
}

func (c *AdminController) UpdateProduct(x *ctx.Context) {
	var in catalog.ProductInput
	if !x.BindJSON(&in) {
		return
	}
	p, err := c.catalog.UpdateProduct(x.Context(), x.Param("id"), in)
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(p)
}

func (c *AdminController) SetStock(x *ctx.Context) {
	var in struct {
		StockQuantity int `json:"stock_quantity" validate:"gte=0"`
	}
	if !x.BindJSON(&in) {
		return
	}
	if err := c.catalog.SetStock(x.Context(), x.Param("id"), in.StockQuantity); err != nil {
		x.Fail(err)
		return
	}
	x.Status(http.StatusNoContent)
}

func (c *AdminController) DestroyProduct(x *ctx.Context) {
	if err := c.catalog.DeleteProduct(x.Context(), x.Param("id")); err != nil {
		x.Fail(err)
		return
	}
	x.Status(http.StatusNoContent)
}

// ── Categories ───────────────────────────────────────────────────────────────

func (c *AdminController) StoreCategory(x *ctx.Context) {
	var in catalog.CategoryInput
	if !x.BindJSON(&in) {
		return
	}
	cat, err := c.catalog.CreateCategory(x.Context(), in)
	if err != nil {
		x.Fail(err)
		return
	}
	x.Created(cat)
}

func (c *AdminController) UpdateCategory(x *ctx.Context) {
	var in catalog.CategoryInput
	if !x.BindJSON(&in) {
		return
	}
	cat, err := c.catalog.UpdateCategory(x.Context(), x.Param("id"), in)
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(cat)
}

// MoveCategory handles PUT /categories/{id}/position?position=N.
func (c *AdminController) MoveCategory(x *ctx.Context) {
	p, ok := position(x)
	if !ok {
		return
	}
	if p == nil {
		x.ValidationError(map[string]string{"position": "The position field is required."})
		return
	}
	if err := c.catalog.MoveCategory(x.Context(), x.Param("id"), *p); err != nil {
		x.Fail(err)
		return
	}
	x.Status(http.StatusNoContent)
}

func (c *AdminController) SwapCategories(x *ctx.Context) {
	var in struct {
		A string `json:"a" validate:"required"`
		B string `json:"b" validate:"required"`
	}
	if !x.BindJSON(&in) {
		return
	}
	if err := c.catalog.SwapCategories(x.Context(), in.A, in.B); err != nil {
		x.Fail(err)
		return
	}
	x.Status(http.StatusNoContent)
}

func (c *AdminController) DestroyCategory(x *ctx.Context) {
	if err := c.catalog.DeleteCategory(x.Context(), x.Param("id")); err != nil {
		x.Fail(err)
		return
	}
	x.Status(http.StatusNoContent)
}

func (c *AdminController) CompactCategories(x *ctx.Context) {
	n, err := c.catalog.CompactCategories(x.Context())
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(map[string]int{"moved": n})
}

// ── Subcategories ────────────────────────────────────────────────────────────

func (c *AdminController) StoreSubcategory(x *ctx.Context) {
	var in catalog.SubcategoryInput
	if !x.BindJSON(&in) {
		return
	}
	sub, err := c.catalog.CreateSubcategory(x.Context(), in)
	if err != nil {
		x.Fail(err)
		return
	}
	x.Created(sub)
}

func (c *AdminController) UpdateSubcategory(x *ctx.Context) {
	var in catalog.SubcategoryInput
	if !x.BindJSON(&in) {
		return
	}
	sub, err := c.catalog.UpdateSubcategory(x.Context(), x.Param("id"), in)
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(sub)
}

func (c *AdminController) DestroySubcategory(x *ctx.Context) {
	if err := c.catalog.DeleteSubcategory(x.Context(), x.Param("id")); err != nil {
		x.Fail(err)
		return
	}
	x.Status(http.StatusNoContent)
}

// ── Banners ──────────────────────────────────────────────────────────────────

func (c *AdminController) Banners(x *ctx.Context) {
	banners, err := c.catalog.Banners(x.Context(), false)
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(banners)
}

func (c *AdminController) StoreBanner(x *ctx.Context) {
	var in catalog.BannerInput
	if !x.BindJSON(&in) {
		return
	}
	b, err := c.catalog.CreateBanner(x.Context(), in)
	if err != nil {
		x.Fail(err)
		return
	}
	x.Created(b)
}

func (c *AdminController) UpdateBanner(x *ctx.Context) {
	var in catalog.BannerInput
	if !x.BindJSON(&in) {
		return
	}
	b, err := c.catalog.UpdateBanner(x.Context(), x.Param("id"), in)
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(b)
}

func (c *AdminController) MoveBanner(x *ctx.Context) {
	p, ok := position(x)
	if !ok {
		return
	}
	if p == nil {
		x.ValidationError(map[string]string{"position": "The position field is required."})
		return
	}
	if err := c.catalog.MoveBanner(x.Context(), x.Param("id"), *p); err != nil {
		x.Fail(err)
		return
	}
	x.Status(http.StatusNoContent)
}

func (c *AdminController) DestroyBanner(x *ctx.Context) {
	if err := c.catalog.DeleteBanner(x.Context(), x.Param("id")); err != nil {
		x.Fail(err)
		return
	}
	x.Status(http.StatusNoContent)
}

func (c *AdminController) CompactBanners(x *ctx.Context) {
	n, err := c.catalog.CompactBanners(x.Context())
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(map[string]int{"moved": n})
}

// ── Maintenance ──────────────────────────────────────────────────────────────

// Classify runs the classifier now and returns its report.
func (c *AdminController) Classify(x *ctx.Context) {
	report, err := c.classifier.Run(x.Context())
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(report)
}

// LiveOrders upgrades to a websocket that receives every placed order.
func (c *AdminController) LiveOrders(w http.ResponseWriter, r *http.Request) {
	ws.Upgrade(w, r, c.hub)
}
