// Package migration runs versioned schema changes against the SQL store.
//
// Each migration registers itself from an init func:
//
//	func init() {
//	    migration.Register("20260301000000_create_addresses", &CreateAddresses{})
//	}
//
// and is applied with
//
//	kirana migrate             // run all pending in one batch
//	kirana migrate:rollback    // undo the most recent batch
//	kirana migrate:status
package migration

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/kirana/pkg/logger"
)

// Migration is one reversible schema change.
type Migration interface {
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
}

type record struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	Name  string    `gorm:"uniqueIndex;size:255;not null"`
	Batch int       `gorm:"not null"`
	RunAt time.Time `gorm:"autoCreateTime"`
}

func (record) TableName() string { return "kirana_migrations" }

type entry struct {
	name string
	m    Migration
}

var registry []entry

// ErrNotRegistered is returned when a ran migration has no implementation
// to roll it back with.
var ErrNotRegistered = errors.New("migration: not registered")

// Register adds a migration. Names are timestamp-prefixed and sort in the
// order they must run.
func Register(name string, m Migration) {
	registry = append(registry, entry{name: name, m: m})
}

// Registered returns registered migration names in run order.
func Registered() []string {
	names := make([]string, 0, len(registry))
	for _, e := range sorted() {
		names = append(names, e.name)
	}
	return names
}

func sorted() []entry {
	out := append([]entry(nil), registry...)
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Status is one line of migrate:status output.
type Status struct {
	Name  string
	Ran   bool
	Batch int
}

// Runner applies and tracks migrations.
type Runner struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Runner {
	return &Runner{db: db}
}

func (r *Runner) ensureTable(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&record{}); err != nil {
		return fmt.Errorf("migration: ensure table: %w", err)
	}
	return nil
}

func (r *Runner) ran(ctx context.Context) (map[string]record, error) {
	var rows []record
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("migration: load history: %w", err)
	}
	out := make(map[string]record, len(rows))
	for _, rec := range rows {
		out[rec.Name] = rec
	}
	return out, nil
}

// Run applies every pending migration as one batch and returns the names
// it applied.
func (r *Runner) Run(ctx context.Context) ([]string, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, err := r.ran(ctx)
	if err != nil {
		return nil, err
	}

	batch, err := r.lastBatch(ctx)
	if err != nil {
		return nil, err
	}
	batch++

	var applied []string
	for _, e := range sorted() {
		if _, ok := done[e.name]; ok {
			continue
		}
		logger.Info("migration: running", "name", e.name, "batch", batch)
		db := r.db.WithContext(ctx)
		if err := e.m.Up(db); err != nil {
			return applied, fmt.Errorf("migration: %s up: %w", e.name, err)
		}
		if err := db.Create(&record{Name: e.name, Batch: batch}).Error; err != nil {
			return applied, fmt.Errorf("migration: record %s: %w", e.name, err)
		}
		applied = append(applied, e.name)
	}
	return applied, nil
}

// Rollback reverses the most recent batch, newest first, and returns the
// names it reversed.
func (r *Runner) Rollback(ctx context.Context) ([]string, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	batch, err := r.lastBatch(ctx)
	if err != nil || batch == 0 {
		return nil, err
	}

	var rows []record
	db := r.db.WithContext(ctx)
	if err := db.Where("batch = ?", batch).Order("name desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("migration: load batch %d: %w", batch, err)
	}

	byName := make(map[string]Migration, len(registry))
	for _, e := range registry {
		byName[e.name] = e.m
	}

	var reversed []string
	for _, rec := range rows {
		m, ok := byName[rec.Name]
		if !ok {
			return reversed, fmt.Errorf("%w: %s", ErrNotRegistered, rec.Name)
		}
		logger.Info("migration: rolling back", "name", rec.Name)
		if err := m.Down(db); err != nil {
			return reversed, fmt.Errorf("migration: %s down: %w", rec.Name, err)
		}
		if err := db.Delete(&rec).Error; err != nil {
			return reversed, fmt.Errorf("migration: forget %s: %w", rec.Name, err)
		}
		reversed = append(reversed, rec.Name)
	}
	return reversed, nil
}

// Status reports every registered migration in run order.
func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, err := r.ran(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Status, 0, len(registry))
	for _, e := range sorted() {
		rec, ok := done[e.name]
		out = append(out, Status{Name: e.name, Ran: ok, Batch: rec.Batch})
	}
	return out, nil
}

func (r *Runner) lastBatch(ctx context.Context) (int, error) {
	var batch int
	err := r.db.WithContext(ctx).Model(&record{}).Select("COALESCE(MAX(batch), 0)").Scan(&batch).Error
	if err != nil {
		return 0, fmt.Errorf("migration: last batch: %w", err)
	}
	return batch, nil
}
