package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/kirana/app/models"
	"github.com/shashiranjanraj/kirana/app/services/cart"
	"github.com/shashiranjanraj/kirana/pkg/ctx"
)

type CartController struct {
	carts *cart.Service
}

func NewCartController(d Deps) *CartController {
	return &CartController{carts: d.Carts}
}

type cartView struct {
	Lines     []models.CartLine `json:"lines"`
	ItemCount int               `json:"item_count"`
	Total     float64           `json:"total"`
}

func view(s *cart.Store) cartView {
	return cartView{Lines: s.Lines(), ItemCount: s.ItemCount(), Total: s.TotalPrice()}
}

func (c *CartController) Show(x *ctx.Context) {
	x.Success(view(c.carts.Open(x.Context(), owner(x))))
}

// AddLine adds one unit of a product, or a new line at quantity 1.
func (c *CartController) AddLine(x *ctx.Context) {
	var in struct {
		ProductID string `json:"product_id" validate:"required"`
	}
	if !x.BindJSON(&in) {
		return
	}
	s, err := c.carts.AddProduct(x.Context(), owner(x), in.ProductID)
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(view(s))
}

// SetQuantity sets a line's quantity; zero or less removes it.
func (c *CartController) SetQuantity(x *ctx.Context) {
	var in struct {
		Quantity int `json:"quantity"`
	}
	if !x.BindJSON(&in) {
		return
	}
	s := c.carts.Open(x.Context(), owner(x))
	if err := s.SetQuantity(x.Context(), x.Param("productID"), in.Quantity); err != nil {
		x.Fail(err)
		return
	}
	x.Success(view(s))
}

func (c *CartController) RemoveLine(x *ctx.Context) {
	s := c.carts.Open(x.Context(), owner(x))
	if err := s.RemoveLine(x.Context(), x.Param("productID")); err != nil {
		x.Fail(err)
		return
	}
	x.Success(view(s))
}

func (c *CartController) Clear(x *ctx.Context) {
	if err := c.carts.Open(x.Context(), owner(x)).Clear(x.Context()); err != nil {
		x.Fail(err)
		return
	}
	x.Status(http.StatusNoContent)
}
