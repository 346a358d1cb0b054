package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shashiranjanraj/kirana/pkg/metrics"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Gorm is the SQL driver. Column names are quoted through gorm clauses, so
// filter columns are never interpolated into raw SQL.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (g *Gorm) scoped(ctx context.Context, table string, q Query) *gorm.DB {
	tx := g.db.WithContext(ctx).Table(table)

	for _, f := range q.Filters {
		col := clause.Column{Name: f.Column}
		switch f.Cmp {
		case CmpEq:
			tx = tx.Where(clause.Eq{Column: col, Value: f.Value})
		case CmpNeq:
			tx = tx.Where(clause.Neq{Column: col, Value: f.Value})
		case CmpGt:
			tx = tx.Where(clause.Gt{Column: col, Value: f.Value})
		case CmpGte:
			tx = tx.Where(clause.Gte{Column: col, Value: f.Value})
		case CmpLt:
			tx = tx.Where(clause.Lt{Column: col, Value: f.Value})
		case CmpLte:
			tx = tx.Where(clause.Lte{Column: col, Value: f.Value})
		case CmpIn:
			values, _ := f.Value.([]any)
			tx = tx.Where(clause.IN{Column: col, Values: values})
		case CmpIsNull:
			tx = tx.Where(clause.Eq{Column: col, Value: nil})
		}
	}

	if q.Order != "" {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: q.Order}, Desc: q.Desc})
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	return tx
}

func (g *Gorm) Select(ctx context.Context, table string, q Query, dest any) error {
	defer metrics.ObserveDBQuery(string(OpSelect), time.Now())

	if err := g.scoped(ctx, table, q).Find(dest).Error; err != nil {
		return fmt.Errorf("store: select %s: %w", table, err)
	}
	return nil
}

func (g *Gorm) Insert(ctx context.Context, table string, rows any) error {
	defer metrics.ObserveDBQuery(string(OpInsert), time.Now())

	if err := g.db.WithContext(ctx).Table(table).Create(rows).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("store: insert %s: %w", table, ErrDuplicate)
		}
		return fmt.Errorf("store: insert %s: %w", table, err)
	}
	return nil
}

func (g *Gorm) Update(ctx context.Context, table string, q Query, fields map[string]any) (int64, error) {
	defer metrics.ObserveDBQuery(string(OpUpdate), time.Now())

	if len(q.Filters) == 0 {
		return 0, ErrUnfiltered
	}
	res := g.scoped(ctx, table, q).Updates(fields)
	if res.Error != nil {
		return 0, fmt.Errorf("store: update %s: %w", table, res.Error)
	}
	return res.RowsAffected, nil
}

func (g *Gorm) Delete(ctx context.Context, table string, q Query) (int64, error) {
	defer metrics.ObserveDBQuery(string(OpDelete), time.Now())

	if len(q.Filters) == 0 {
		return 0, ErrUnfiltered
	}
	// With an explicit table gorm accepts a map as the delete target.
	res := g.scoped(ctx, table, q).Delete(map[string]any{})
	if res.Error != nil {
		return 0, fmt.Errorf("store: delete %s: %w", table, res.Error)
	}
	return res.RowsAffected, nil
}
