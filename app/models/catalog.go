package models

import "time"

// CategoryType is the classifier's derived view of a category. It is a cache
// and may be stale until the next classifier run.
type CategoryType string

const (
	CategoryEmpty       CategoryType = "empty_category"
	CategorySubcategory CategoryType = "subcategory_category"
	CategoryProductCard CategoryType = "productcard_category"
)

// PseudoCategories are display-only categories that always hold product cards.
var PseudoCategories = []string{"Featured Products", "Today's Deals"}

// Product is a catalog entry. StockQuantity never goes below zero.
type Product struct {
	ID            string    `gorm:"primaryKey;size:36"      json:"id"             bson:"id"`
	Name          string    `gorm:"size:255;not null;index" json:"name"           bson:"name"`
	Description   string    `gorm:"type:text"               json:"description"    bson:"description"`
	Price         float64   `gorm:"not null;default:0"      json:"price"          bson:"price"`
	StockQuantity int       `gorm:"not null;default:0"      json:"stock_quantity" bson:"stock_quantity"`
	Unit          string    `gorm:"size:50"                 json:"unit"           bson:"unit"`
	ImageURL      string    `gorm:"size:512"                json:"image_url"      bson:"image_url"`
	CategoryID    string    `gorm:"size:36;index"           json:"category_id"    bson:"category_id"`
	SubcategoryID string    `gorm:"size:36;index"           json:"subcategory_id" bson:"subcategory_id"`
	CreatedAt     time.Time `json:"created_at"              bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"              bson:"updated_at"`
}

type Category struct {
	ID           string       `gorm:"primaryKey;size:36"     json:"id"            bson:"id"`
	Name         string       `gorm:"size:255;not null"      json:"name"          bson:"name"`
	ImageURL     string       `gorm:"size:512"               json:"image_url"     bson:"image_url"`
	DisplayOrder int          `gorm:"not null;index"         json:"display_order" bson:"display_order"`
	CategoryType CategoryType `gorm:"size:32;default:empty_category" json:"category_type" bson:"category_type"`
	CreatedAt    time.Time    `json:"created_at"             bson:"created_at"`
}

// CanParentSubcategory reports whether new subcategories may be filed
// under c. A category already holding product cards may not.
func (c Category) CanParentSubcategory() bool {
	return c.CategoryType == CategoryEmpty || c.CategoryType == CategorySubcategory || c.CategoryType == ""
}

// IsPseudo reports whether c is one of the display-only categories.
func (c Category) IsPseudo() bool {
	for _, name := range PseudoCategories {
		if c.Name == name {
			return true
		}
	}
	return false
}

type Subcategory struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"          bson:"id"`
	CategoryID string    `gorm:"size:36;index"      json:"category_id" bson:"category_id"`
	Name       string    `gorm:"size:255;not null"  json:"name"        bson:"name"`
	ImageURL   string    `gorm:"size:512"           json:"image_url"   bson:"image_url"`
	CreatedAt  time.Time `json:"created_at"         bson:"created_at"`
}

// Banner is a home-page promotion ordered by DisplayOrder.
type Banner struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"            bson:"id"`
	Title        string    `gorm:"size:255"           json:"title"         bson:"title"`
	ImageURL     string    `gorm:"size:512;not null"  json:"image_url"     bson:"image_url"`
	LinkURL      string    `gorm:"size:512"           json:"link_url"      bson:"link_url"`
	DisplayOrder int       `gorm:"not null;index"     json:"display_order" bson:"display_order"`
	Active       bool      `gorm:"not null"           json:"active"        bson:"active"`
	CreatedAt    time.Time `json:"created_at"         bson:"created_at"`
}
