package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	cleanup "github.com/seelabs/xrpl-probe/internal/errors"
	"github.com/seelabs/xrpl-probe/internal/retry"
)

// Execer is satisfied by both *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ErrNotFound is returned by Get when no row has the requested key.
var ErrNotFound = errors.New("storage: not found")

// Table maps the struct type T onto a SQL table. Columns come from `db`
// struct tags: `db:"name"`, `db:"name,pk"` for primary key columns and
// `db:"name,immutable"` for columns an upsert never overwrites.
type Table[T any] struct {
	db        Execer
	name      string
	columns   []string
	pk        []string
	immutable map[string]bool
	fields    map[string]int
	retry     retry.Config
	logger    zerolog.Logger
}

// NewTable builds the column mapping of T. It panics if T is not a struct.
func NewTable[T any](db Execer, name string, cfg retry.Config, logger zerolog.Logger) *Table[T] {
	var zero T
	t := reflect.TypeOf(zero)
	if t.Kind() != reflect.Struct {
		panic("storage: Table type parameter must be a struct")
	}

	tbl := &Table[T]{
		db:        db,
		name:      name,
		immutable: make(map[string]bool),
		fields:    make(map[string]int),
		retry:     cfg,
		logger:    logger,
	}
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		parts := strings.Split(tag, ",")
		col := strings.TrimSpace(parts[0])
		tbl.columns = append(tbl.columns, col)
		tbl.fields[col] = i
		for _, opt := range parts[1:] {
			switch strings.TrimSpace(opt) {
			case "pk":
				tbl.pk = append(tbl.pk, col)
			case "immutable":
				tbl.immutable[col] = true
			}
		}
	}
	return tbl
}

// Name returns the table name.
func (t *Table[T]) Name() string { return t.name }

// Columns returns the mapped column names in field order.
func (t *Table[T]) Columns() []string { return slices.Clone(t.columns) }

func (t *Table[T]) values(item *T) []any {
	v := reflect.ValueOf(item).Elem()
	out := make([]any, len(t.columns))
	for i, col := range t.columns {
		out[i] = v.Field(t.fields[col]).Interface()
	}
	return out
}

func (t *Table[T]) insertSQL(upsert bool) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", ")
	// #nosec G201 - table and column names come from struct tags.
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.name, strings.Join(t.columns, ", "), placeholders)

	if !upsert || len(t.pk) == 0 {
		return query
	}

	var updates []string
	for _, col := range t.columns {
		if slices.Contains(t.pk, col) || t.immutable[col] {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
	}
	if len(updates) == 0 {
		return query + fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", strings.Join(t.pk, ", "))
	}
	return query + fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s",
		strings.Join(t.pk, ", "), strings.Join(updates, ", "))
}

func (t *Table[T]) exec(ctx context.Context, query string, args []any) error {
	return retry.Do(ctx, t.retry, func() error {
		_, err := t.db.ExecContext(ctx, query, args...)
		return err
	}, retry.IsTransientDBError)
}

// Insert adds one row and fails on a duplicate key.
func (t *Table[T]) Insert(ctx context.Context, item *T) error {
	return t.exec(ctx, t.insertSQL(false), t.values(item))
}

// Upsert inserts item or updates the mutable columns of the existing row
// with the same primary key.
func (t *Table[T]) Upsert(ctx context.Context, item *T) error {
	return t.exec(ctx, t.insertSQL(true), t.values(item))
}

// BatchInsert inserts items in one transaction through a prepared
// statement. A transient conflict retries the whole batch.
func (t *Table[T]) BatchInsert(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}
	db, ok := t.db.(*sql.DB)
	if !ok {
		return fmt.Errorf("storage: BatchInsert needs *sql.DB, got %T", t.db)
	}
	query := t.insertSQL(false)

	return retry.Do(ctx, t.retry, func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer cleanup.DeferRollback(t.logger, tx)

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare insert into %s: %w", t.name, err)
		}
		defer cleanup.DeferClose(t.logger, stmt, "failed to close statement")

		for i := range items {
			if _, err := stmt.ExecContext(ctx, t.values(&items[i])...); err != nil {
				return fmt.Errorf("insert into %s: %w", t.name, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", t.name, err)
		}
		return nil
	}, retry.IsTransientDBError)
}

// Get returns the row whose first primary key column equals id.
func (t *Table[T]) Get(ctx context.Context, id any) (*T, error) {
	if len(t.pk) == 0 {
		return nil, fmt.Errorf("storage: table %s has no primary key", t.name)
	}
	items, err := t.Find(ctx, t.Query().Eq(t.pk[0], id).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s %v: %w", t.name, id, ErrNotFound)
	}
	return &items[0], nil
}

// UpdateFields sets columns of the row with primary key id. Keys are
// applied in sorted order so the statement text is stable.
func (t *Table[T]) UpdateFields(ctx context.Context, id any, fields map[string]any) error {
	if len(t.pk) != 1 {
		return fmt.Errorf("storage: UpdateFields needs a single-column primary key on %s", t.name)
	}
	if len(fields) == 0 {
		return errors.New("storage: no fields to update")
	}

	cols := make([]string, 0, len(fields))
	for col := range fields {
		if _, ok := t.fields[col]; !ok {
			return fmt.Errorf("storage: column %s does not exist in %s", col, t.name)
		}
		if col == t.pk[0] {
			return fmt.Errorf("storage: cannot update primary key column %s", col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	set := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		set[i] = col + " = ?"
		args = append(args, fields[col])
	}
	args = append(args, id)

	// #nosec G201 - column names were checked against the struct tags.
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", t.name, strings.Join(set, ", "), t.pk[0])

	return retry.Do(ctx, t.retry, func() error {
		res, err := t.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%s %v: %w", t.name, id, ErrNotFound)
		}
		return nil
	}, retry.IsTransientDBError)
}

// Query returns a builder selecting every mapped column of the table.
func (t *Table[T]) Query() *Query {
	return NewQuery(t.name).Select(t.columns...)
}

// Find runs q, which must select the table's columns in order, and scans
// every row into T.
func (t *Table[T]) Find(ctx context.Context, q *Query) ([]T, error) {
	query, args, err := q.Build()
	if err != nil {
		return nil, err
	}

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.name, err)
	}
	defer cleanup.DeferClose(t.logger, rows, "failed to close rows")

	var items []T
	for rows.Next() {
		var item T
		v := reflect.ValueOf(&item).Elem()
		dest := make([]any, len(t.columns))
		for i, col := range t.columns {
			dest[i] = v.Field(t.fields[col]).Addr().Interface()
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
