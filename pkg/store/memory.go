package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

type row = map[string]any

// FaultFunc lets tests make a call fail. Returning nil lets it proceed.
type FaultFunc func(op Operation, table string, q Query) error

// Memory is an in-process driver. Rows are kept in their JSON form, so
// column names are the entity `json` tags.
type Memory struct {
	mu     sync.Mutex
	tables map[string][]row
	fault  FaultFunc
}

func NewMemory() *Memory {
	return &Memory{tables: map[string][]row{}}
}

// SetFault installs (or with nil, removes) a fault hook.
func (m *Memory) SetFault(fn FaultFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fault = fn
}

func (m *Memory) check(op Operation, table string, q Query) error {
	if m.fault == nil {
		return nil
	}
	return m.fault(op, table, q)
}

// Len reports the number of rows in table.
func (m *Memory) Len(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables[table])
}

func (m *Memory) Select(_ context.Context, table string, q Query, dest any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(OpSelect, table, q); err != nil {
		return err
	}

	var matched []row
	for _, r := range m.tables[table] {
		if matches(r, q) {
			matched = append(matched, r)
		}
	}

	if q.Order != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			c := compare(matched[i][q.Order], matched[j][q.Order])
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	if matched == nil {
		matched = []row{}
	}

	raw, err := json.Marshal(matched)
	if err != nil {
		return fmt.Errorf("store/memory: encode %s: %w", table, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("store/memory: decode %s: %w", table, err)
	}
	return nil
}

func (m *Memory) Insert(_ context.Context, table string, rows any) error {
	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("store/memory: encode %s: %w", table, err)
	}

	var batch []row
	if len(raw) > 0 && raw[0] == '[' {
		err = json.Unmarshal(raw, &batch)
	} else {
		var one row
		err = json.Unmarshal(raw, &one)
		batch = []row{one}
	}
	if err != nil {
		return fmt.Errorf("store/memory: insert %s: %w", table, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(OpInsert, table, Query{}); err != nil {
		return err
	}

	existing := map[any]bool{}
	for _, r := range m.tables[table] {
		if id, ok := r["id"]; ok {
			existing[id] = true
		}
	}
	for _, r := range batch {
		if id, ok := r["id"]; ok && id != "" && existing[id] {
			return fmt.Errorf("store/memory: insert %s id=%v: %w", table, id, ErrDuplicate)
		}
		existing[r["id"]] = true
	}

	m.tables[table] = append(m.tables[table], batch...)
	return nil
}

func (m *Memory) Update(_ context.Context, table string, q Query, fields map[string]any) (int64, error) {
	if len(q.Filters) == 0 {
		return 0, ErrUnfiltered
	}

	normalized := make(row, len(fields))
	for k, v := range fields {
		normalized[k] = normalize(v)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(OpUpdate, table, q); err != nil {
		return 0, err
	}

	var n int64
	for _, r := range m.tables[table] {
		if !matches(r, q) {
			continue
		}
		for k, v := range normalized {
			r[k] = v
		}
		n++
	}
	return n, nil
}

func (m *Memory) Delete(_ context.Context, table string, q Query) (int64, error) {
	if len(q.Filters) == 0 {
		return 0, ErrUnfiltered
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(OpDelete, table, q); err != nil {
		return 0, err
	}

	kept := m.tables[table][:0]
	var n int64
	for _, r := range m.tables[table] {
		if matches(r, q) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.tables[table] = kept
	return n, nil
}

func matches(r row, q Query) bool {
	for _, f := range q.Filters {
		v := r[f.Column]
		switch f.Cmp {
		case CmpEq:
			if compare(v, normalize(f.Value)) != 0 {
				return false
			}
		case CmpNeq:
			if compare(v, normalize(f.Value)) == 0 {
				return false
			}
		case CmpGt:
			if v == nil || compare(v, normalize(f.Value)) <= 0 {
				return false
			}
		case CmpGte:
			if v == nil || compare(v, normalize(f.Value)) < 0 {
				return false
			}
		case CmpLt:
			if v == nil || compare(v, normalize(f.Value)) >= 0 {
				return false
			}
		case CmpLte:
			if v == nil || compare(v, normalize(f.Value)) > 0 {
				return false
			}
		case CmpIn:
			values, _ := f.Value.([]any)
			found := false
			for _, want := range values {
				if compare(v, normalize(want)) == 0 {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case CmpIsNull:
			if v != nil && v != "" {
				return false
			}
		}
	}
	return true
}

// normalize gives a Go value the same shape it has after a JSON round trip.
func normalize(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

// compare orders JSON values: nil < bool < number < string.
func compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch x := a.(type) {
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case float64:
		y := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case string:
		y := b.(string)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	return 0
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	}
	return 4
}
