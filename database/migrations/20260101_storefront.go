package migrations

import (
	"gorm.io/gorm"

	"github.com/shashiranjanraj/kirana/app/models"
	"github.com/shashiranjanraj/kirana/pkg/migration"
	"github.com/shashiranjanraj/kirana/pkg/queue"
)

// table creates one model's table on Up and drops it on Down.
type table struct {
	model any
	name  string
}

func (t table) Up(db *gorm.DB) error   { return db.AutoMigrate(t.model) }
func (t table) Down(db *gorm.DB) error { return db.Migrator().DropTable(t.name) }

func init() {
	migration.Register("20260101000000_create_users_table", table{&models.User{}, models.TableUsers})
	migration.Register("20260101000001_create_categories_table", table{&models.Category{}, models.TableCategories})
	migration.Register("20260101000002_create_subcategories_table", table{&models.Subcategory{}, models.TableSubcategories})
	migration.Register("20260101000003_create_products_table", table{&models.Product{}, models.TableProducts})
	migration.Register("20260101000004_create_banners_table", table{&models.Banner{}, models.TableBanners})
	migration.Register("20260101000005_create_addresses_table", table{&models.Address{}, models.TableAddresses})
	migration.Register("20260101000006_create_orders_table", table{&models.Order{}, models.TableOrders})
	migration.Register("20260101000007_create_order_items_table", table{&models.OrderItem{}, models.TableOrderItems})
	migration.Register("20260101000008_create_wishlist_table", table{&models.WishlistItem{}, models.TableWishlist})
	migration.Register("20260101000009_create_failed_jobs_table", table{&queue.FailedJobRecord{}, queue.FailedJobsTable})
	migration.Register("20260102000000_add_display_order_indexes", displayOrderIndexes{})
}

// displayOrderIndexes speeds up the ordered category and banner listings.
type displayOrderIndexes struct{}

func (displayOrderIndexes) Up(db *gorm.DB) error {
	for _, stmt := range []string{
		"CREATE INDEX IF NOT EXISTS idx_categories_display_order ON categories (display_order)",
		"CREATE INDEX IF NOT EXISTS idx_banners_display_order ON banners (display_order)",
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func (displayOrderIndexes) Down(db *gorm.DB) error {
	for _, name := range []string{"idx_categories_display_order", "idx_banners_display_order"} {
		if err := db.Exec("DROP INDEX IF EXISTS " + name).Error; err != nil {
			return err
		}
	}
	return nil
}
