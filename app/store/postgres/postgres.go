// Package postgres is a store.Backend talking to PostgreSQL directly through
// pgx. Referential integrity and cascades come from the schema's foreign keys.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskboard/app/models"
	"taskboard/app/store"
)

//go:embed schema.sql
var schemaSQL string

// querier is the subset of pgxpool.Pool and pgx.Tx used by the store.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store implements store.Backend on a connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Backend = (*Store)(nil)

// New returns a Store using pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Select runs a SELECT built from q.
func (s *Store) Select(ctx context.Context, q store.Query) ([]models.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, store.Wrap("select", q.Table, err)
	}
	sql, args := buildSelect(q)
	rows, err := collect(ctx, s.pool, sql, args...)
	return rows, store.Wrap("select", q.Table, pgMessage(err))
}

// Insert stores all rows in one transaction.
func (s *Store) Insert(ctx context.Context, table models.Table, rows []models.Row) ([]models.Row, error) {
	for _, row := range rows {
		if err := store.ValidateRow(table, row); err != nil {
			return nil, store.Wrap("insert", table, err)
		}
	}

	var out []models.Row
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, row := range rows {
			sql, args := buildInsert(table, row)
			stored, err := collect(ctx, tx, sql, args...)
			if err != nil {
				return err
			}
			out = append(out, stored...)
		}
		return nil
	})
	if err != nil {
		return nil, store.Wrap("insert", table, pgMessage(err))
	}
	return out, nil
}

// Update sets values on every row matching f.
func (s *Store) Update(ctx context.Context, table models.Table, values models.Row, f store.Filter) error {
	if err := store.ValidateFilter(table, f); err != nil {
		return store.Wrap("update", table, err)
	}
	if err := store.ValidateRow(table, values); err != nil {
		return store.Wrap("update", table, err)
	}
	if len(values) == 0 {
		return nil
	}
	sql, args := buildUpdate(table, values, f)
	_, err := s.pool.Exec(ctx, sql, args...)
	return store.Wrap("update", table, pgMessage(err))
}

// Delete removes every row matching f.
func (s *Store) Delete(ctx context.Context, table models.Table, f store.Filter) error {
	if err := store.ValidateFilter(table, f); err != nil {
		return store.Wrap("delete", table, err)
	}
	sql, args := buildDelete(table, f)
	_, err := s.pool.Exec(ctx, sql, args...)
	return store.Wrap("delete", table, pgMessage(err))
}

// Close closes the pool.
func (s *Store) Close(context.Context) error {
	s.pool.Close()
	return nil
}

func collect(ctx context.Context, q querier, sql string, args ...any) ([]models.Row, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}
	out := make([]models.Row, len(maps))
	for i, m := range maps {
		row := make(models.Row, len(m))
		for k, v := range m {
			row[models.Column(k)] = v
		}
		out[i] = row
	}
	return out, nil
}

// pgMessage replaces a server error with its primary message so that
// callers see the database's own wording.
func pgMessage(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &store.Error{Message: pgErr.Message, Err: err}
	}
	return err
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// orderedColumns returns the columns present in row in table order so that
// generated statements are deterministic.
func orderedColumns(table models.Table, row models.Row) []models.Column {
	var cols []models.Column
	for _, c := range table.Columns() {
		if _, ok := row[c]; ok {
			cols = append(cols, c)
		}
	}
	return cols
}

func where(f store.Filter, n int) (string, any) {
	if f.IsEq() {
		return fmt.Sprintf("%s = $%d", ident(string(f.Column)), n), f.Values[0]
	}
	return fmt.Sprintf("%s = ANY($%d)", ident(string(f.Column)), n), f.Values
}

func buildSelect(q store.Query) (string, []any) {
	var b strings.Builder
	var args []any
	b.WriteString("SELECT * FROM ")
	b.WriteString(ident(string(q.Table)))
	if q.Filter != nil {
		clause, arg := where(*q.Filter, 1)
		b.WriteString(" WHERE ")
		b.WriteString(clause)
		args = append(args, arg)
	}
	if q.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(ident(string(q.OrderBy)))
		if q.Descending {
			b.WriteString(" DESC")
		} else {
			b.WriteString(" ASC")
		}
	}
	return b.String(), args
}

func buildInsert(table models.Table, row models.Row) (string, []any) {
	cols := orderedColumns(table, row)
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		names[i] = ident(string(c))
		marks[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[c]
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		ident(string(table)), strings.Join(names, ", "), strings.Join(marks, ", "))
	return sql, args
}

func buildUpdate(table models.Table, values models.Row, f store.Filter) (string, []any) {
	cols := orderedColumns(table, values)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", ident(string(c)), i+1)
		args = append(args, values[c])
	}
	clause, arg := where(f, len(cols)+1)
	args = append(args, arg)
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s", ident(string(table)), strings.Join(sets, ", "), clause)
	return sql, args
}

func buildDelete(table models.Table, f store.Filter) (string, []any) {
	clause, arg := where(f, 1)
	return fmt.Sprintf("DELETE FROM %s WHERE %s", ident(string(table)), clause), []any{arg}
}
