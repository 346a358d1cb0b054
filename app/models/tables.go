package models

// Store table names.
const (
	TableOrders        = "orders"
	TableOrderItems    = "order_items"
	TableProducts      = "products"
	TableCategories    = "categories"
	TableSubcategories = "subcategories"
	TableBanners       = "banners"
	TableAddresses     = "addresses"
	TableWishlist      = "wishlist"
	TableUsers         = "users"
)

func (Order) TableName() string        { return TableOrders }
func (OrderItem) TableName() string    { return TableOrderItems }
func (Product) TableName() string      { return TableProducts }
func (Category) TableName() string     { return TableCategories }
func (Subcategory) TableName() string  { return TableSubcategories }
func (Banner) TableName() string       { return TableBanners }
func (Address) TableName() string      { return TableAddresses }
func (WishlistItem) TableName() string { return TableWishlist }
func (User) TableName() string         { return TableUsers }
