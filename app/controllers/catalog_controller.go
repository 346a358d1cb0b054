package controllers

import (
	"github.com/shashiranjanraj/kirana/app/services/catalog"
	"github.com/shashiranjanraj/kirana/pkg/ctx"
)

// CatalogController serves the storefront's read-only catalog.
type CatalogController struct {
	catalog *catalog.Service
}

func NewCatalogController(d Deps) *CatalogController {
	return &CatalogController{catalog: d.Catalog}
}

func (c *CatalogController) Categories(x *ctx.Context) {
	cats, err := c.catalog.Categories(x.Context())
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(cats)
}

func (c *CatalogController) Subcategories(x *ctx.Context) {
	subs, err := c.catalog.Subcategories(x.Context(), x.Param("id"))
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(subs)
}

func (c *CatalogController) Banners(x *ctx.Context) {
	banners, err := c.catalog.Banners(x.Context(), true)
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(banners)
}

func (c *CatalogController) Products(x *ctx.Context) {
	products, err := c.catalog.Products(x.Context(), catalog.ProductFilter{
		CategoryID:    x.Query("category"),
		SubcategoryID: x.Query("subcategory"),
		Q:             x.Query("q"),
	})
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(products)
}

func (c *CatalogController) Product(x *ctx.Context) {
	p, err := c.catalog.Product(x.Context(), x.Param("id"))
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(p)
}
