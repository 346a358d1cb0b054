package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shashiranjanraj/kirana/app/models"
	"github.com/shashiranjanraj/kirana/pkg/store"
)

func openGorm(t *testing.T) *store.Gorm {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard, TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Banner{}))
	return store.NewGorm(db)
}

func TestGormKeepsInactiveBanner(t *testing.T) {
	ctx := context.Background()
	g := openGorm(t)

	require.NoError(t, g.Insert(ctx, models.TableBanners, &models.Banner{
		ID: "b1", ImageURL: "/img/diwali.png", DisplayOrder: 1, Active: false,
	}))
	require.NoError(t, g.Insert(ctx, models.TableBanners, &models.Banner{
		ID: "b2", ImageURL: "/img/monsoon.png", DisplayOrder: 2, Active: true,
	}))

	b, err := store.One[models.Banner](ctx, g, models.TableBanners, store.Eq("id", "b1"))
	require.NoError(t, err)
	assert.False(t, b.Active)

	active, err := store.Find[models.Banner](ctx, g, models.TableBanners, store.Eq("active", true))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "b2", active[0].ID)
}

func TestGormUpdateNeedsFilter(t *testing.T) {
	ctx := context.Background()
	g := openGorm(t)
	require.NoError(t, g.Insert(ctx, models.TableBanners, &models.Banner{ID: "b1", ImageURL: "/a.png", DisplayOrder: 1}))

	n, err := g.Update(ctx, models.TableBanners, store.Eq("id", "b1"), map[string]any{"active": true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = g.Update(ctx, models.TableBanners, store.All(), map[string]any{"active": false})
	assert.ErrorIs(t, err, store.ErrUnfiltered)

	b, err := store.One[models.Banner](ctx, g, models.TableBanners, store.Eq("id", "b1"))
	require.NoError(t, err)
	assert.True(t, b.Active)
}
