package database

import (
	"context"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/shashiranjanraj/kirana/config"
	"github.com/shashiranjanraj/kirana/pkg/store"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the SQL handle. It stays nil when DB_DRIVER is mongo or memory.
var DB *gorm.DB

// Tables lists every collection the storefront writes.
var Tables = []string{
	"orders", "order_items", "products", "categories", "subcategories",
	"banners", "addresses", "wishlist", "users", "failed_jobs",
}

// Connect opens the SQL database and configures the connection pool.
// Returns an error instead of calling log.Fatal so the caller can
// shut down gracefully.
func Connect() error {
	driver := config.DatabaseDriver()
	dsn := config.DatabaseDSN()

	dialector, err := buildDialector(driver, dsn)
	if err != nil {
		return fmt.Errorf("database: build dialector: %w", err)
	}

	gormCfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent), // use pkg/logger, not GORM's own
		TranslateError: true,                                  // surfaces gorm.ErrDuplicatedKey
	}

	DB, err = gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("database: open: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("database: get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(2 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database: ping: %w", err)
	}

	return nil
}

// Open returns the store client selected by DB_DRIVER. The returned close
// func releases the underlying connection.
func Open(ctx context.Context) (store.Client, func(), error) {
	switch config.DatabaseDriver() {
	case "memory":
		return store.NewMemory(), func() {}, nil

	case "mongo":
		m, client, err := store.ConnectMongo(ctx, config.MongoURI(), config.MongoDB())
		if err != nil {
			return nil, nil, err
		}
		if err := m.EnsureIndexes(ctx, Tables...); err != nil {
			disconnect(client)
			return nil, nil, err
		}
		return m, func() { disconnect(client) }, nil

	default:
		if err := Connect(); err != nil {
			return nil, nil, err
		}
		return store.NewGorm(DB), closeSQL, nil
	}
}

func disconnect(c *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = c.Disconnect(ctx)
}

func closeSQL() {
	if DB == nil {
		return
	}
	if sqlDB, err := DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func buildDialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "sqlite":
		return sqlite.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		dsn, err := mysqlDSN(dsn)
		if err != nil {
			return nil, err
		}
		return mysql.Open(dsn), nil
	case "sqlserver":
		return sqlserver.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q for SQL (supported: sqlite, postgres, mysql, sqlserver)", driver)
	}
}

// mysqlDSN turns on clientFoundRows so UPDATE reports matched rows. Without
// it an update that changes nothing looks like a missing row.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}
