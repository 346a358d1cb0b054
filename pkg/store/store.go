// Package store is the generic CRUD client every repository talks to.
//
// It deliberately mirrors a hosted document-relational API rather than SQL:
// callers name a table, give simple equality/range filters and an optional
// ordering, and get rows back decoded into their own entity structs.
//
//	var products []models.Product
//	err := client.Select(ctx, "products",
//	    store.Eq("category_id", id).OrderBy("name", false), &products)
//
// Three drivers implement Client: GORM (SQL databases), Mongo (document
// store) and Memory (tests and local development). Column names are the
// snake_case names used in the entity tags (`gorm`, `json` and `bson` agree).
package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by One when no row matches.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when an inserted row reuses an existing id.
	ErrDuplicate = errors.New("store: duplicate id")
	// ErrUnfiltered guards Update/Delete against touching a whole table.
	ErrUnfiltered = errors.New("store: update/delete without filter")
)

// Client is the generic persistent-store port.
type Client interface {
	// Select decodes matching rows into dest, which must be a pointer to a slice.
	Select(ctx context.Context, table string, q Query, dest any) error
	// Insert writes one row (pointer to struct) or many (slice of structs).
	Insert(ctx context.Context, table string, rows any) error
	// Update sets fields on every matching row and reports how many matched.
	Update(ctx context.Context, table string, q Query, fields map[string]any) (int64, error)
	// Delete removes every matching row and reports how many were removed.
	Delete(ctx context.Context, table string, q Query) (int64, error)
}

// Operation names a Client call; used for metrics and fault injection.
type Operation string

const (
	OpSelect Operation = "select"
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Cmp is a filter comparison.
type Cmp string

const (
	CmpEq     Cmp = "eq"
	CmpNeq    Cmp = "neq"
	CmpGt     Cmp = "gt"
	CmpGte    Cmp = "gte"
	CmpLt     Cmp = "lt"
	CmpLte    Cmp = "lte"
	CmpIn     Cmp = "in"
	CmpIsNull Cmp = "is_null"
)

// Filter is one column condition. Filters in a Query are ANDed.
type Filter struct {
	Column string
	Cmp    Cmp
	Value  any
}

// Query is an immutable filter/order/limit description. Every builder
// method returns a copy, so a base query can be shared and extended.
type Query struct {
	Filters []Filter
	Order   string
	Desc    bool
	Limit   int
}

// All matches every row.
func All() Query { return Query{} }

func Eq(column string, v any) Query { return Query{}.Eq(column, v) }

func (q Query) with(f Filter) Query {
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, f)
	return q
}

func (q Query) Eq(column string, v any) Query  { return q.with(Filter{column, CmpEq, v}) }
func (q Query) Neq(column string, v any) Query { return q.with(Filter{column, CmpNeq, v}) }
func (q Query) Gt(column string, v any) Query  { return q.with(Filter{column, CmpGt, v}) }
func (q Query) Gte(column string, v any) Query { return q.with(Filter{column, CmpGte, v}) }
func (q Query) Lt(column string, v any) Query  { return q.with(Filter{column, CmpLt, v}) }
func (q Query) Lte(column string, v any) Query { return q.with(Filter{column, CmpLte, v}) }
func (q Query) IsNull(column string) Query     { return q.with(Filter{column, CmpIsNull, nil}) }

// In matches rows whose column equals any of values.
func In[T any](q Query, column string, values []T) Query {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return q.with(Filter{column, CmpIn, vs})
}

// OrderBy sorts ascending, or descending when desc is true.
func (q Query) OrderBy(column string, desc bool) Query {
	q.Order = column
	q.Desc = desc
	return q
}

// Take caps the number of rows returned. Zero means no cap.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

// Lookup returns the value of the first equality filter on column.
func (q Query) Lookup(column string) (any, bool) {
	for _, f := range q.Filters {
		if f.Column == column && f.Cmp == CmpEq {
			return f.Value, true
		}
	}
	return nil, false
}

func (q Query) String() string {
	s := ""
	for i, f := range q.Filters {
		if i > 0 {
			s += " and "
		}
		s += fmt.Sprintf("%s %s %v", f.Column, f.Cmp, f.Value)
	}
	if q.Order != "" {
		dir := "asc"
		if q.Desc {
			dir = "desc"
		}
		s += fmt.Sprintf(" order by %s %s", q.Order, dir)
	}
	if q.Limit > 0 {
		s += fmt.Sprintf(" limit %d", q.Limit)
	}
	return s
}

// Find returns every matching row decoded as T.
func Find[T any](ctx context.Context, c Client, table string, q Query) ([]T, error) {
	var out []T
	if err := c.Select(ctx, table, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// One returns the first matching row or ErrNotFound.
func One[T any](ctx context.Context, c Client, table string, q Query) (T, error) {
	var zero T
	rows, err := Find[T](ctx, c, table, q.Take(1))
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, fmt.Errorf("%s where %s: %w", table, q, ErrNotFound)
	}
	return rows[0], nil
}
