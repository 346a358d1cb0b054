package migration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type widget struct {
	ID   uint
	Name string
}

type createWidgets struct{}

func (createWidgets) Up(db *gorm.DB) error   { return db.AutoMigrate(&widget{}) }
func (createWidgets) Down(db *gorm.DB) error { return db.Migrator().DropTable(&widget{}) }

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestRunRollbackStatus(t *testing.T) {
	saved := registry
	t.Cleanup(func() { registry = saved })
	registry = nil
	Register("20260101000000_create_widgets", createWidgets{})

	ctx := context.Background()
	db := openDB(t)
	r := New(db)

	applied, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"20260101000000_create_widgets"}, applied)
	assert.True(t, db.Migrator().HasTable(&widget{}))

	applied, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)

	status, err := r.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, 1)
	assert.True(t, status[0].Ran)
	assert.Equal(t, 1, status[0].Batch)

	reversed, err := r.Rollback(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"20260101000000_create_widgets"}, reversed)
	assert.False(t, db.Migrator().HasTable(&widget{}))

	reversed, err = r.Rollback(ctx)
	require.NoError(t, err)
	assert.Empty(t, reversed)
}
