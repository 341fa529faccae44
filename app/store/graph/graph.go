// Package graph is a store.Backend on Neo4j. Each table is a node label and
// each row reference is a relationship to the parent node, so deleting a
// parent removes its whole subtree in one write transaction.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"taskboard/app/models"
	"taskboard/app/store"
)

type labelInfo struct {
	label    string
	relation string // relationship to the parent node, empty for roots
}

var labels = map[models.Table]labelInfo{
	models.TableProjects: {label: "Project"},
	models.TableSections: {label: "Section", relation: "IN_PROJECT"},
	models.TableTasks:    {label: "Task", relation: "IN_SECTION"},
}

// Store implements store.Backend with a Neo4j driver.
type Store struct {
	driver neo4j.DriverWithContext
}

var _ store.Backend = (*Store)(nil)

// New returns a Store using driver.
func New(driver neo4j.DriverWithContext) *Store {
	return &Store{driver: driver}
}

// Migrate creates a uniqueness constraint on each label's key property.
func (s *Store) Migrate(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	for _, table := range models.Tables() {
		cypher := constraintCypher(table)
		if _, err := session.Run(ctx, cypher, nil); err != nil {
			return fmt.Errorf("failed to create constraint for %s: %w", table, err)
		}
	}
	return nil
}

// Select returns the properties of matching nodes.
func (s *Store) Select(ctx context.Context, q store.Query) ([]models.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, store.Wrap("select", q.Table, err)
	}
	cypher, params := selectCypher(q)

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		var rows []models.Row
		for res.Next(ctx) {
			rows = append(rows, recordRow(res.Record()))
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return rows, nil
	})
	if err != nil {
		return nil, store.Wrap("select", q.Table, err)
	}
	rows, _ := result.([]models.Row)
	return rows, nil
}

// Insert creates one node per row, linked to its parent node.
func (s *Store) Insert(ctx context.Context, table models.Table, rows []models.Row) ([]models.Row, error) {
	for _, row := range rows {
		if err := store.ValidateRow(table, row); err != nil {
			return nil, store.Wrap("insert", table, err)
		}
	}
	cypher := insertCypher(table)
	parent, ref, hasParent := table.Parent()

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		var out []models.Row
		for _, row := range rows {
			params := map[string]any{"props": properties(row)}
			if hasParent {
				params["ref"] = row.String(ref)
			}
			res, err := tx.Run(ctx, cypher, params)
			if err != nil {
				return nil, err
			}
			if !res.Next(ctx) {
				if err := res.Err(); err != nil {
					return nil, err
				}
				return nil, fmt.Errorf("%w: %s %s=%s", store.ErrReference, parent, ref, row.String(ref))
			}
			out = append(out, recordRow(res.Record()))
		}
		return out, nil
	})
	if err != nil {
		return nil, store.Wrap("insert", table, err)
	}
	out, _ := result.([]models.Row)
	return out, nil
}

// Update sets values on every matching node.
func (s *Store) Update(ctx context.Context, table models.Table, values models.Row, f store.Filter) error {
	if err := store.ValidateFilter(table, f); err != nil {
		return store.Wrap("update", table, err)
	}
	if err := store.ValidateRow(table, values); err != nil {
		return store.Wrap("update", table, err)
	}
	cypher, params := updateCypher(table, values, f)
	return store.Wrap("update", table, s.write(ctx, cypher, params))
}

// Delete removes matching nodes together with their descendants.
func (s *Store) Delete(ctx context.Context, table models.Table, f store.Filter) error {
	if err := store.ValidateFilter(table, f); err != nil {
		return store.Wrap("delete", table, err)
	}
	cypher, params := deleteCypher(table, f)
	return store.Wrap("delete", table, s.write(ctx, cypher, params))
}

// Close closes the driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) write(ctx context.Context, cypher string, params map[string]any) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func recordRow(record *neo4j.Record) models.Row {
	row := models.Row{}
	v, ok := record.Get("row")
	if !ok {
		return row
	}
	props, _ := v.(map[string]any)
	for k, val := range props {
		if n, ok := val.(int64); ok {
			val = int(n)
		}
		row[models.Column(k)] = val
	}
	return row
}

// properties converts row into a Neo4j property map. Null values are dropped
// since a node simply lacks the property.
func properties(row models.Row) map[string]any {
	props := make(map[string]any, len(row))
	for c, v := range row {
		switch x := v.(type) {
		case nil:
			continue
		case int:
			props[string(c)] = int64(x)
		case time.Time:
			props[string(c)] = x.UTC()
		default:
			props[string(c)] = v
		}
	}
	return props
}
