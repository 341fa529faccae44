// Package memory is an in-process store.Backend. It keeps insertion order,
// enforces references between tables and cascades deletes to child rows the
// way the hosted database's foreign keys do.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"taskboard/app/models"
	"taskboard/app/store"
)

// Backend holds every table in memory.
type Backend struct {
	mu     sync.RWMutex
	tables map[models.Table][]models.Row
}

var _ store.Backend = (*Backend)(nil)

// New returns an empty Backend.
func New() *Backend {
	return &Backend{tables: make(map[models.Table][]models.Row)}
}

// Select returns copies of the matching rows.
func (b *Backend) Select(ctx context.Context, q store.Query) ([]models.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, store.Wrap("select", q.Table, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, store.Wrap("select", q.Table, err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []models.Row
	for _, row := range b.tables[q.Table] {
		if q.Filter != nil && !q.Filter.Matches(row) {
			continue
		}
		out = append(out, row.Clone())
	}
	if q.OrderBy != "" {
		slices.SortStableFunc(out, func(a, c models.Row) int {
			n := compareValues(a[q.OrderBy], c[q.OrderBy])
			if q.Descending {
				return -n
			}
			return n
		})
	}
	return out, nil
}

// Insert stores rows atomically: either all rows are stored or none.
func (b *Backend) Insert(ctx context.Context, table models.Table, rows []models.Row) ([]models.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.Wrap("insert", table, err)
	}
	for _, row := range rows {
		if err := store.ValidateRow(table, row); err != nil {
			return nil, store.Wrap("insert", table, err)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	key := table.Key()
	seen := make(map[string]bool)
	for _, row := range b.tables[table] {
		seen[row.String(key)] = true
	}

	out := make([]models.Row, 0, len(rows))
	for _, row := range rows {
		id := row.String(key)
		if id == "" {
			return nil, store.Wrap("insert", table, fmt.Errorf("%s is required", key))
		}
		if seen[id] {
			return nil, store.Wrap("insert", table, fmt.Errorf("%w: %s=%s", store.ErrDuplicateKey, key, id))
		}
		if parent, ref, ok := table.Parent(); ok {
			if !b.exists(parent, row.String(ref)) {
				return nil, store.Wrap("insert", table, fmt.Errorf("%w: %s=%s", store.ErrReference, ref, row.String(ref)))
			}
		}
		seen[id] = true
		out = append(out, b.complete(table, row))
	}

	for _, row := range out {
		b.tables[table] = append(b.tables[table], row)
	}
	return cloneAll(out), nil
}

// Update applies values to every matching row.
func (b *Backend) Update(ctx context.Context, table models.Table, values models.Row, f store.Filter) error {
	if err := ctx.Err(); err != nil {
		return store.Wrap("update", table, err)
	}
	if err := store.ValidateFilter(table, f); err != nil {
		return store.Wrap("update", table, err)
	}
	if err := store.ValidateRow(table, values); err != nil {
		return store.Wrap("update", table, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, row := range b.tables[table] {
		if !f.Matches(row) {
			continue
		}
		for c, v := range values {
			row[c] = v
		}
	}
	return nil
}

// Delete removes matching rows and, recursively, the rows referencing them.
func (b *Backend) Delete(ctx context.Context, table models.Table, f store.Filter) error {
	if err := ctx.Err(); err != nil {
		return store.Wrap("delete", table, err)
	}
	if err := store.ValidateFilter(table, f); err != nil {
		return store.Wrap("delete", table, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.deleteLocked(table, f)
	return nil
}

// Close is a no-op.
func (b *Backend) Close(context.Context) error {
	return nil
}

func (b *Backend) deleteLocked(table models.Table, f store.Filter) {
	key := table.Key()
	var removed []string
	kept := b.tables[table][:0]
	for _, row := range b.tables[table] {
		if f.Matches(row) {
			removed = append(removed, row.String(key))
			continue
		}
		kept = append(kept, row)
	}
	b.tables[table] = kept
	if len(removed) == 0 {
		return
	}

	for _, child := range table.Children() {
		_, ref, _ := child.Parent()
		b.deleteLocked(child, store.In(ref, removed...))
	}
}

func (b *Backend) exists(table models.Table, id string) bool {
	key := table.Key()
	for _, row := range b.tables[table] {
		if row.String(key) == id {
			return true
		}
	}
	return false
}

// complete fills columns the caller left out with the defaults a relational
// table would apply.
func (b *Backend) complete(table models.Table, row models.Row) models.Row {
	out := row.Clone()
	for _, c := range table.Columns() {
		if _, ok := out[c]; ok {
			continue
		}
		switch c {
		case models.ColState:
			out[c] = false
		case models.ColPosition:
			out[c] = 0
		case models.ColCreatedAt, models.ColSectionCreatedAt:
			out[c] = time.Now().UTC()
		default:
			out[c] = nil
		}
	}
	return out
}

func cloneAll(rows []models.Row) []models.Row {
	out := make([]models.Row, len(rows))
	for i, row := range rows {
		out[i] = row.Clone()
	}
	return out
}

// compareValues orders values of the same column. Nil sorts first.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch x := a.(type) {
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case string:
		if y, ok := b.(string); ok {
			return cmp.Compare(x, y)
		}
	case int:
		if y, ok := b.(int); ok {
			return cmp.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
