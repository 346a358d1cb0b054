package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/kirana/app/services/savedcards"
	"github.com/shashiranjanraj/kirana/app/services/wishlist"
	"github.com/shashiranjanraj/kirana/pkg/ctx"
)

type WishlistController struct {
	wishlist *wishlist.Service
}

func NewWishlistController(d Deps) *WishlistController {
	return &WishlistController{wishlist: d.Wishlist}
}

func (c *WishlistController) Index(x *ctx.Context) {
	items, err := c.wishlist.List(x.Context(), x.UserID())
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(items)
}

func (c *WishlistController) Store(x *ctx.Context) {
	var in struct {
		ProductID string `json:"product_id" validate:"required"`
	}
	if !x.BindJSON(&in) {
		return
	}
	item, err := c.wishlist.Add(x.Context(), x.UserID(), in.ProductID)
	if err != nil {
		x.Fail(err)
		return
	}
	x.Created(item)
}

func (c *WishlistController) Destroy(x *ctx.Context) {
	if err := c.wishlist.Remove(x.Context(), x.UserID(), x.Param("productID")); err != nil {
		x.Fail(err)
		return
	}
	x.Status(http.StatusNoContent)
}

// CardController manages saved card metadata.
type CardController struct {
	cards *savedcards.Service
}

func NewCardController(d Deps) *CardController {
	return &CardController{cards: d.Cards}
}

func (c *CardController) Index(x *ctx.Context) {
	cards, err := c.cards.List(x.Context(), x.UserID())
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(cards)
}

func (c *CardController) Store(x *ctx.Context) {
	var in savedcards.Input
	if !x.BindJSON(&in) {
		return
	}
	card, err := c.cards.Add(x.Context(), x.UserID(), in)
	if err != nil {
		x.Fail(err)
		return
	}
	x.Created(card)
}

func (c *CardController) Destroy(x *ctx.Context) {
	if err := c.cards.Delete(x.Context(), x.UserID(), x.Param("id")); err != nil {
		x.Fail(err)
		return
	}
	x.Status(http.StatusNoContent)
}
