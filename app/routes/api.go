// Package routes registers the storefront's JSON API.
package routes

import (
	"github.com/shashiranjanraj/kirana/app/controllers"
	"github.com/shashiranjanraj/kirana/pkg/auth"
	"github.com/shashiranjanraj/kirana/pkg/ctx"
	"github.com/shashiranjanraj/kirana/pkg/middleware"
	"github.com/shashiranjanraj/kirana/pkg/rbac"
	"github.com/shashiranjanraj/kirana/pkg/router"
)

var w = ctx.Wrap

func RegisterAPI(r *router.Router, d controllers.Deps) {
	authCtl := controllers.NewAuthController(d)
	catalogCtl := controllers.NewCatalogController(d)
	cartCtl := controllers.NewCartController(d)
	addressCtl := controllers.NewAddressController(d)
	wishlistCtl := controllers.NewWishlistController(d)
	cardCtl := controllers.NewCardController(d)
	checkoutCtl := controllers.NewCheckoutController(d)
	orderCtl := controllers.NewOrderController(d)
	adminCtl := controllers.NewAdminController(d)

	api := r.Group("/api", middleware.OptionalAuth)

	api.Post("/auth/register", "auth.register", w(authCtl.Register), rbac.Guest)
	api.Post("/auth/login", "auth.login", w(authCtl.Login), rbac.Guest)
	api.Post("/auth/refresh", "auth.refresh", w(authCtl.Refresh))

	// Guests browse and fill a cart keyed by their session.
	cat := api.Group("/catalog")
	cat.Get("/categories", "catalog.categories", w(catalogCtl.Categories))
	cat.Get("/categories/{id}/subcategories", "catalog.subcategories", w(catalogCtl.Subcategories))
	cat.Get("/banners", "catalog.banners", w(catalogCtl.Banners))
	cat.Get("/products", "catalog.products", w(catalogCtl.Products))
	cat.Get("/products/{id}", "catalog.products.show", w(catalogCtl.Product))

	api.Get("/cart", "cart.show", w(cartCtl.Show))
	api.Post("/cart/lines", "cart.lines.add", w(cartCtl.AddLine))
	api.Put("/cart/lines/{productID}", "cart.lines.quantity", w(cartCtl.SetQuantity))
	api.Delete("/cart/lines/{productID}", "cart.lines.remove", w(cartCtl.RemoveLine))
	api.Delete("/cart", "cart.clear", w(cartCtl.Clear))

	shopper := api.Group("", middleware.Auth)
	shopper.Get("/me", "auth.me", w(authCtl.Me))

	shopper.Get("/addresses", "addresses.index", w(addressCtl.Index))
	shopper.Post("/addresses", "addresses.store", w(addressCtl.Store))
	shopper.Get("/addresses/{id}", "addresses.show", w(addressCtl.Show))
	shopper.Put("/addresses/{id}", "addresses.update", w(addressCtl.Update))
	shopper.Delete("/addresses/{id}", "addresses.destroy", w(addressCtl.Destroy))
	shopper.Post("/addresses/{id}/default", "addresses.default", w(addressCtl.MakeDefault))

	shopper.Get("/wishlist", "wishlist.index", w(wishlistCtl.Index))
	shopper.Post("/wishlist", "wishlist.store", w(wishlistCtl.Store))
	shopper.Delete("/wishlist/{productID}", "wishlist.destroy", w(wishlistCtl.Destroy))

	shopper.Get("/cards", "cards.index", w(cardCtl.Index))
	shopper.Post("/cards", "cards.store", w(cardCtl.Store))
	shopper.Delete("/cards/{id}", "cards.destroy", w(cardCtl.Destroy))

	shopper.Post("/checkout", "checkout.start", w(checkoutCtl.Start))
	shopper.Get("/checkout/{id}", "checkout.show", w(checkoutCtl.Show))
	shopper.Get("/checkout/{id}/events", "checkout.events", w(checkoutCtl.Events))
	shopper.Post("/checkout/{id}/callback", "checkout.callback", w(checkoutCtl.Callback))

	shopper.Get("/orders", "orders.index", w(orderCtl.Index))
	shopper.Get("/orders/{id}", "orders.show", w(orderCtl.Show))

	admin := api.Group("/admin", middleware.Auth, rbac.HasRole(auth.RoleAdmin))

	admin.Post("/products", "admin.products.store", w(adminCtl.StoreProduct))
	admin.Put("/products/{id}", "admin.products.update", w(adminCtl.UpdateProduct))
	admin.Put("/products/{id}/stock", "admin.products.stock", w(adminCtl.SetStock))
	admin.Delete("/products/{id}", "admin.products.destroy", w(adminCtl.DestroyProduct))

	admin.Post("/categories", "admin.categories.store", w(adminCtl.StoreCategory))
	admin.Put("/categories/{id}", "admin.categories.update", w(adminCtl.UpdateCategory))
	admin.Put("/categories/{id}/position", "admin.categories.move", w(adminCtl.MoveCategory))
	admin.Post("/categories/swap", "admin.categories.swap", w(adminCtl.SwapCategories))
	admin.Delete("/categories/{id}", "admin.categories.destroy", w(adminCtl.DestroyCategory))
	admin.Post("/categories/compact", "admin.categories.compact", w(adminCtl.CompactCategories))

	admin.Post("/subcategories", "admin.subcategories.store", w(adminCtl.StoreSubcategory))
	admin.Put("/subcategories/{id}", "admin.subcategories.update", w(adminCtl.UpdateSubcategory))
	admin.Delete("/subcategories/{id}", "admin.subcategories.destroy", w(adminCtl.DestroySubcategory))

	admin.Get("/banners", "admin.banners.index", w(adminCtl.Banners))
	admin.Post("/banners", "admin.banners.store", w(adminCtl.StoreBanner))
	admin.Put("/banners/{id}", "admin.banners.update", w(adminCtl.UpdateBanner))
	admin.Put("/banners/{id}/position", "admin.banners.move", w(adminCtl.MoveBanner))
	admin.Delete("/banners/{id}", "admin.banners.destroy", w(adminCtl.DestroyBanner))
	admin.Post("/banners/compact", "admin.banners.compact", w(adminCtl.CompactBanners))

	admin.Post("/classify", "admin.classify", w(adminCtl.Classify))
	admin.Get("/orders", "admin.orders.index", w(orderCtl.AdminIndex))
	admin.Put("/orders/{id}/status", "admin.orders.status", w(orderCtl.UpdateStatus))
	admin.Get("/orders/live", "admin.orders.live", adminCtl.LiveOrders)
}
