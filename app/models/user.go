package models

import "time"

// User is a shopper or admin account.
type User struct {
	ID        string    `gorm:"primaryKey;size:36"            json:"id"         bson:"id"`
	Name      string    `gorm:"size:255;not null"             json:"name"       bson:"name"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"      bson:"email"`
	Password  string    `gorm:"size:255;not null"             json:"password"   bson:"password"` // bcrypt hash, never returned by handlers
	Role      string    `gorm:"size:50;default:shopper"       json:"role"       bson:"role"`
	CreatedAt time.Time `json:"created_at"                    bson:"created_at"`
}

// WishlistItem marks a product a shopper saved for later.
type WishlistItem struct {
	ID        string    `gorm:"primaryKey;size:36"     json:"id"         bson:"id"`
	OwnerID   string    `gorm:"size:64;not null;index" json:"owner_id"   bson:"owner_id"`
	ProductID string    `gorm:"size:36;not null"       json:"product_id" bson:"product_id"`
	CreatedAt time.Time `json:"created_at"             bson:"created_at"`
}
