package seeders

import (
	"context"
	"errors"

	"github.com/shashiranjanraj/kirana/app/models"
	"github.com/shashiranjanraj/kirana/app/services/auth"
	"github.com/shashiranjanraj/kirana/app/services/catalog"
	"github.com/shashiranjanraj/kirana/app/services/classifier"
	"github.com/shashiranjanraj/kirana/app/services/errs"
	"github.com/shashiranjanraj/kirana/config"
	jwtauth "github.com/shashiranjanraj/kirana/pkg/auth"
	"github.com/shashiranjanraj/kirana/pkg/store"
)

func init() {
	Register("admin", SeedAdmin)
	Register("catalog", SeedCatalog)
}

// SeedAdmin creates the admin account from ADMIN_EMAIL / ADMIN_PASSWORD.
// An existing account is left alone.
func SeedAdmin(ctx context.Context, db store.Client) error {
	_, err := auth.New(db).Register(ctx, auth.RegisterInput{
		Name:     "Store Admin",
		Email:    config.Get("ADMIN_EMAIL", "admin@kirana.local"),
		Password: config.Get("ADMIN_PASSWORD", "change-me-now"),
	}, jwtauth.RoleAdmin)

	var verr *errs.ValidationError
	if errors.As(err, &verr) {
		if _, taken := verr.Errors["email"]; taken && len(verr.Errors) == 1 {
			return nil
		}
	}
	return err
}

type demoProduct struct {
	name  string
	price float64
	unit  string
	stock int
}

type demoCategory struct {
	name     string
	subs     map[string][]demoProduct
	products []demoProduct
}

var demo = []demoCategory{
	{name: "Fruits & Vegetables", subs: map[string][]demoProduct{
		"Fresh Fruits":     {{"Banana", 48, "1 dozen", 60}, {"Apple Shimla", 180, "1 kg", 40}},
		"Fresh Vegetables": {{"Onion", 35, "1 kg", 120}, {"Tomato", 30, "1 kg", 100}},
	}},
	{name: "Dairy & Breakfast", products: []demoProduct{
		{"Toned Milk", 27, "500 ml", 200}, {"Paneer", 90, "200 g", 50}, {"Brown Bread", 45, "400 g", 30},
	}},
	{name: "Atta, Rice & Dal", subs: map[string][]demoProduct{
		"Atta": {{"Whole Wheat Atta", 290, "5 kg", 25}},
		"Rice": {{"Basmati Rice", 160, "1 kg", 40}},
		"Dal":  {{"Toor Dal", 150, "1 kg", 35}},
	}},
	{name: "Today's Deals", products: []demoProduct{{"Sunflower Oil", 140, "1 L", 30}}},
	{name: "Household"},
}

// SeedCatalog creates a small demo catalog through the catalog service,
// then classifies it. It does nothing when categories already exist.
func SeedCatalog(ctx context.Context, db store.Client) error {
	svc := catalog.New(db, 0)
	existing, err := store.Find[models.Category](ctx, db, models.TableCategories, store.All().Take(1))
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	add := func(categoryID, subID string, p demoProduct) error {
		_, err := svc.CreateProduct(ctx, catalog.ProductInput{
			Name:          p.name,
			Price:         p.price,
			Unit:          p.unit,
			StockQuantity: p.stock,
			CategoryID:    categoryID,
			SubcategoryID: subID,
		})
		return err
	}

	for _, dc := range demo {
		c, err := svc.CreateCategory(ctx, catalog.CategoryInput{Name: dc.name})
		if err != nil {
			return err
		}
		for subName, products := range dc.subs {
			sub, err := svc.CreateSubcategory(ctx, catalog.SubcategoryInput{CategoryID: c.ID, Name: subName})
			if err != nil {
				return err
			}
			for _, p := range products {
				if err := add(c.ID, sub.ID, p); err != nil {
					return err
				}
			}
		}
		for _, p := range dc.products {
			if err := add(c.ID, "", p); err != nil {
				return err
			}
		}
	}

	for _, b := range []catalog.BannerInput{
		{Title: "Fresh every morning", ImageURL: "https://cdn.kirana.local/banners/fresh.jpg", LinkURL: "/c/fruits"},
		{Title: "Pantry restock", ImageURL: "https://cdn.kirana.local/banners/pantry.jpg", LinkURL: "/c/atta"},
	} {
		if _, err := svc.CreateBanner(ctx, b); err != nil {
			return err
		}
	}

	_, err = classifier.New(db).Run(ctx)
	return err
}
