package kernel

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/kirana/app/services/orders"
	"github.com/shashiranjanraj/kirana/app/services/payment"
	"github.com/shashiranjanraj/kirana/config"
	"github.com/shashiranjanraj/kirana/pkg/cache"
	"github.com/shashiranjanraj/kirana/pkg/crypt"
	"github.com/shashiranjanraj/kirana/pkg/database"
	"github.com/shashiranjanraj/kirana/pkg/kv"
	"github.com/shashiranjanraj/kirana/pkg/logger"
	"github.com/shashiranjanraj/kirana/pkg/queue"
	"github.com/shashiranjanraj/kirana/pkg/store"
)

// OptionsFromConfig reads Options from the loaded configuration.
func OptionsFromConfig() (Options, error) {
	cipher, err := crypt.FromConfig()
	if err != nil {
		return Options{}, err
	}
	return Options{
		DeliveryFee: config.DeliveryFee(),
		CatalogTTL:  config.CatalogCacheTTL(),
		Branding: orders.Branding{
			Currency:   config.Currency(),
			StoreName:  config.StoreName(),
			ThemeColor: config.ThemeColor(),
		},
		Payment: payment.RunnerConfig{
			APIKey:    config.PaymentKey(),
			ScriptURL: config.PaymentScriptURL(),
			Timeout:   config.PaymentTimeout(),
			Workers:   config.CheckoutWorkers(),
		},
		Cipher:         cipher,
		ClassifierCron: config.ClassifierCron(),
		RateLimit:      200,
	}, nil
}

// OpenStore loads config and connects the store selected by DB_DRIVER.
func OpenStore(ctx context.Context) (store.Client, func(), error) {
	if err := config.Load(); err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	return database.Open(ctx)
}

// Boot loads config, connects every backing service and returns the
// wired App together with a func that releases the connections.
//
// Redis is optional: without it the catalog cache is bypassed and carts,
// wishlist fallbacks and saved cards live in process memory.
func Boot(ctx context.Context) (*App, func(), error) {
	db, closeDB, err := OpenStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	if uri := config.LogMongoURI(); uri != "" {
		if err := logger.EnableMongo(uri, config.MongoDB()); err != nil {
			logger.Warn("kernel: mongo log sink unavailable", "error", err)
		}
	}

	var kvs kv.Store = kv.NewMemory()
	if err := cache.Connect(ctx); err != nil {
		logger.Warn("kernel: redis unavailable, using in-memory cart storage", "error", err)
	} else {
		kvs = kv.NewRedis(cache.RDB, "kirana:", config.CartTTL())
	}

	q := queue.Default()
	if config.QueueDriver() == "redis" && cache.RDB != nil {
		q.SetDriver(queue.NewRedisDriver(ctx, cache.RDB))
	}

	opts, err := OptionsFromConfig()
	if err != nil {
		closeDB()
		return nil, nil, err
	}

	release := func() {
		_ = cache.Close()
		closeDB()
		logger.Close()
	}
	return New(db, kvs, q, opts), release, nil
}
