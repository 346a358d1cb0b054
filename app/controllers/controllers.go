// Package controllers adapts the storefront services to the JSON API.
// Handlers take a *ctx.Context and pass service errors to Fail, which maps
// them to their HTTP status.
package controllers

import (
	"github.com/shashiranjanraj/kirana/app/services/addressbook"
	"github.com/shashiranjanraj/kirana/app/services/auth"
	"github.com/shashiranjanraj/kirana/app/services/cart"
	"github.com/shashiranjanraj/kirana/app/services/catalog"
	"github.com/shashiranjanraj/kirana/app/services/classifier"
	"github.com/shashiranjanraj/kirana/app/services/orders"
	"github.com/shashiranjanraj/kirana/app/services/payment"
	"github.com/shashiranjanraj/kirana/app/services/savedcards"
	"github.com/shashiranjanraj/kirana/app/services/wishlist"
	"github.com/shashiranjanraj/kirana/pkg/ctx"
	"github.com/shashiranjanraj/kirana/pkg/session"
	"github.com/shashiranjanraj/kirana/pkg/ws"
)

// Deps is every service a controller may need.
type Deps struct {
	Auth       *auth.Service
	Catalog    *catalog.Service
	Carts      *cart.Service
	Addresses  *addressbook.Book
	Wishlist   *wishlist.Service
	Cards      *savedcards.Service
	Orders     *orders.Service
	Checkout   *orders.Checkout
	Runner     *payment.Runner
	Callbacks  *payment.Registry
	Classifier *classifier.Classifier
	Hub        *ws.Hub
}

// owner is the signed-in user, or the guest's session id.
func owner(x *ctx.Context) string {
	if id := x.UserID(); id != "" {
		return id
	}
	return session.FromCtx(x.R).ID()
}

// position reads an optional 1-based ?position= value.
func position(x *ctx.Context) (*int, bool) {
	raw := x.Query("position")
	if raw == "" {
		return nil, true
	}
	n, err := parsePositive(raw)
	if err != nil {
		x.ValidationError(map[string]string{"position": "The position must be a positive integer."})
		return nil, false
	}
	return &n, true
}
