package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"time"
)

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Table describes a backing table: its name, primary key, the columns that
// are selected (in Scan order) and how a row is scanned into a T.  Every
// table is expected to carry a nullable deleted_at column.
type Table[T any] struct {
	Name       string
	PrimaryKey string
	Columns    []string
	Scan       func(Scanner) (*T, error)
}

// Criteria is a set of column = value conditions that are AND-ed together.
// A nil value matches NULL.
type Criteria map[string]any

// Fields maps columns to the values written by Create and Update.
type Fields map[string]any

// Order is a single ORDER BY term.
type Order struct {
	Column string
	Desc   bool
}

// Page is one page of rows plus the numbers needed to walk the rest.
type Page[T any] struct {
	Items       []*T  `json:"data"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	LastPage    int   `json:"last_page"`
}

// Store provides criteria-based CRUD, soft delete, counting and pagination
// over one table.  All reads exclude soft-deleted rows.  Each call is a
// single round trip; nothing is retried.
type Store[T any] struct {
	db    *sql.DB
	table Table[T]
	known map[string]bool
	now   func() time.Time
}

// NewStore builds a Store for table t on db.
func NewStore[T any](db *sql.DB, t Table[T]) *Store[T] {
	known := make(map[string]bool, len(t.Columns)+1)
	for _, c := range t.Columns {
		known[c] = true
	}
	known[t.PrimaryKey] = true
	return &Store[T]{db: db, table: t, known: known, now: time.Now}
}

// DB exposes the underlying handle for repository-specific queries.
func (s *Store[T]) DB() *sql.DB { return s.db }

// FindAll returns every live row.  Without orderBy rows come back by primary
// key, newest first.
func (s *Store[T]) FindAll(ctx context.Context, orderBy ...Order) ([]*T, error) {
	return s.FindBy(ctx, nil, orderBy...)
}

// FindBy returns the live rows matching c.
func (s *Store[T]) FindBy(ctx context.Context, c Criteria, orderBy ...Order) ([]*T, error) {
	where, args, err := s.where(c)
	if err != nil {
		return nil, err
	}
	order, err := s.orderBy(orderBy)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, "find", s.selectFrom()+where+order, args...)
}

// FindRange is FindBy with LIMIT/OFFSET applied.
func (s *Store[T]) FindRange(ctx context.Context, c Criteria, limit, offset int, orderBy ...Order) ([]*T, error) {
	where, args, err := s.where(c)
	if err != nil {
		return nil, err
	}
	order, err := s.orderBy(orderBy)
	if err != nil {
		return nil, err
	}
	args = append(args, limit, offset)
	return s.query(ctx, "find range", s.selectFrom()+where+order+" LIMIT ? OFFSET ?", args...)
}

// FindOneBy returns the first live row matching c or ErrNotFound.
func (s *Store[T]) FindOneBy(ctx context.Context, c Criteria) (*T, error) {
	where, args, err := s.where(c)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, s.selectFrom()+where+" LIMIT 1", args...)
	item, err := s.table.Scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, s.wrap("find one", err)
	}
	return item, nil
}

// FindByID returns the live row with the given primary key or ErrNotFound.
func (s *Store[T]) FindByID(ctx context.Context, id uint64) (*T, error) {
	return s.FindOneBy(ctx, Criteria{s.table.PrimaryKey: id})
}

// Create inserts a row and returns its generated primary key.  Constraint
// violations of the backing store are returned as-is (wrapped).
func (s *Store[T]) Create(ctx context.Context, f Fields) (uint64, error) {
	if len(f) == 0 {
		return 0, ErrNoFields
	}
	cols, args, err := s.columns(f)
	if err != nil {
		return 0, err
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.table.Name, strings.Join(cols, ", "), placeholders(len(cols)))
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, s.wrap("create", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, s.wrap("create", err)
	}
	return uint64(id), nil
}

// Update applies f to the row with the given id and reports whether a row
// matched.  It does not look at deleted_at; callers load the live row first.
func (s *Store[T]) Update(ctx context.Context, id uint64, f Fields) (bool, error) {
	if len(f) == 0 {
		return false, ErrNoFields
	}
	cols, args, err := s.columns(f)
	if err != nil {
		return false, err
	}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = ?"
	}
	args = append(args, id)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", s.table.Name, strings.Join(sets, ", "), s.table.PrimaryKey)
	return s.exec(ctx, "update", q, args...)
}

// Delete soft-deletes the row by stamping deleted_at.  A row that is already
// deleted keeps its original stamp.
func (s *Store[T]) Delete(ctx context.Context, id uint64) (bool, error) {
	q := fmt.Sprintf("UPDATE %s SET deleted_at = ? WHERE %s = ? AND deleted_at IS NULL", s.table.Name, s.table.PrimaryKey)
	return s.exec(ctx, "delete", q, s.now().UTC(), id)
}

// HardDelete physically removes the row.
func (s *Store[T]) HardDelete(ctx context.Context, id uint64) (bool, error) {
	q := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", s.table.Name, s.table.PrimaryKey)
	return s.exec(ctx, "hard delete", q, id)
}

// Count returns the number of live rows matching c.
func (s *Store[T]) Count(ctx context.Context, c Criteria) (int64, error) {
	where, args, err := s.where(c)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.table.Name+where, args...).Scan(&n); err != nil {
		return 0, s.wrap("count", err)
	}
	return n, nil
}

// Exists reports whether at least one live row matches c.
func (s *Store[T]) Exists(ctx context.Context, c Criteria) (bool, error) {
	n, err := s.Count(ctx, c)
	return n > 0, err
}

// Paginate returns page (1-based) of the live rows matching c, newest first.
func (s *Store[T]) Paginate(ctx context.Context, page, perPage int, c Criteria) (Page[T], error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	items := []*T{}
	if offset, ok := Offset(page, perPage); ok {
		var err error
		if items, err = s.FindRange(ctx, c, perPage, offset); err != nil {
			return Page[T]{}, err
		}
	}
	total, err := s.Count(ctx, c)
	if err != nil {
		return Page[T]{}, err
	}
	return Page[T]{
		Items:       items,
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
		LastPage:    LastPage(total, perPage),
	}, nil
}

// Offset is the row offset of page, both arguments already clamped to >= 1.
// ok is false when the offset does not fit in an int; such a page is past
// any stored row and reads as empty.
func Offset(page, perPage int) (offset int, ok bool) {
	if page-1 > math.MaxInt/perPage {
		return 0, false
	}
	return (page - 1) * perPage, true
}

// LastPage is ceil(total / perPage).
func LastPage(total int64, perPage int) int {
	if perPage < 1 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

func (s *Store[T]) selectFrom() string {
	return "SELECT " + strings.Join(s.table.Columns, ", ") + " FROM " + s.table.Name
}

func (s *Store[T]) where(c Criteria) (string, []any, error) {
	keys := slices.Sorted(maps.Keys(c))
	parts := make([]string, 0, len(keys)+1)
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		if !s.known[k] {
			return "", nil, fmt.Errorf("%s.%s: %w", s.table.Name, k, ErrUnknownColumn)
		}
		if c[k] == nil {
			parts = append(parts, k+" IS NULL")
			continue
		}
		parts = append(parts, k+" = ?")
		args = append(args, c[k])
	}
	parts = append(parts, "deleted_at IS NULL")
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func (s *Store[T]) orderBy(orders []Order) (string, error) {
	if len(orders) == 0 {
		return " ORDER BY " + s.table.PrimaryKey + " DESC", nil
	}
	terms := make([]string, len(orders))
	for i, o := range orders {
		if !s.known[o.Column] {
			return "", fmt.Errorf("%s.%s: %w", s.table.Name, o.Column, ErrUnknownColumn)
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		terms[i] = o.Column + " " + dir
	}
	return " ORDER BY " + strings.Join(terms, ", "), nil
}

func (s *Store[T]) columns(f Fields) ([]string, []any, error) {
	cols := slices.Sorted(maps.Keys(f))
	args := make([]any, len(cols))
	for i, c := range cols {
		if !s.known[c] {
			return nil, nil, fmt.Errorf("%s.%s: %w", s.table.Name, c, ErrUnknownColumn)
		}
		args[i] = f[c]
	}
	return cols, args, nil
}

func (s *Store[T]) query(ctx context.Context, op, q string, args ...any) ([]*T, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, s.wrap(op, err)
	}
	defer rows.Close()

	out := make([]*T, 0)
	for rows.Next() {
		item, err := s.table.Scan(rows)
		if err != nil {
			return nil, s.wrap(op, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap(op, err)
	}
	return out, nil
}

func (s *Store[T]) exec(ctx context.Context, op, q string, args ...any) (bool, error) {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, s.wrap(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, s.wrap(op, err)
	}
	return n > 0, nil
}

func (s *Store[T]) wrap(op string, err error) error {
	return fmt.Errorf("db error: %s %s: %w", op, s.table.Name, err)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
