package repository

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	ID    uint64
	Body  string
	Owner uint64
}

var noteTable = Table[note]{
	Name:       "notes",
	PrimaryKey: "id",
	Columns:    []string{"id", "body", "owner"},
	Scan: func(sc Scanner) (*note, error) {
		var n note
		if err := sc.Scan(&n.ID, &n.Body, &n.Owner); err != nil {
			return nil, err
		}
		return &n, nil
	},
}

var noteCols = []string{"id", "body", "owner"}

func newStoreWithMock(t *testing.T) (*Store[note], sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s := NewStore(db, noteTable)
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s, mock
}

func exact(q string) string { return "^" + regexp.QuoteMeta(q) + "$" }

func TestFindAll_DefaultsToPrimaryKeyDesc(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(exact("SELECT id, body, owner FROM notes WHERE deleted_at IS NULL ORDER BY id DESC")).
		WillReturnRows(sqlmock.NewRows(noteCols).AddRow(2, "b", 1).AddRow(1, "a", 1))

	got, err := s.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(2), got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindBy_SortedCriteriaAndOrder(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(exact("SELECT id, body, owner FROM notes WHERE body = ? AND owner = ? AND deleted_at IS NULL ORDER BY body ASC, id DESC")).
		WithArgs("x", 9).
		WillReturnRows(sqlmock.NewRows(noteCols).AddRow(5, "x", 9))

	got, err := s.FindBy(context.Background(), Criteria{"owner": 9, "body": "x"},
		Order{Column: "body"}, Order{Column: "id", Desc: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].Body)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindBy_NilMatchesNull(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(exact("SELECT id, body, owner FROM notes WHERE body IS NULL AND deleted_at IS NULL ORDER BY id DESC")).
		WillReturnRows(sqlmock.NewRows(noteCols))

	got, err := s.FindBy(context.Background(), Criteria{"body": nil})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindBy_UnknownColumn(t *testing.T) {
	s, mock := newStoreWithMock(t)

	_, err := s.FindBy(context.Background(), Criteria{"1=1; DROP TABLE notes; --": 1})
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = s.FindAll(context.Background(), Order{Column: "nope"})
	assert.ErrorIs(t, err, ErrUnknownColumn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOneBy_NotFound(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(exact("SELECT id, body, owner FROM notes WHERE id = ? AND deleted_at IS NULL LIMIT 1")).
		WithArgs(3).
		WillReturnError(sql.ErrNoRows)

	_, err := s.FindByID(context.Background(), 3)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOneBy_DBError(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery("SELECT .* FROM notes").WillReturnError(errors.New("db down"))

	_, err := s.FindOneBy(context.Background(), Criteria{"owner": 1})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Regexp(t, `db error: .*db down`, err.Error())
}

func TestCreate(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(exact("INSERT INTO notes (body, owner) VALUES (?, ?)")).
		WithArgs("hello", 4).
		WillReturnResult(sqlmock.NewResult(11, 1))

	id, err := s.Create(context.Background(), Fields{"owner": 4, "body": "hello"})
	require.NoError(t, err)
	assert.Equal(t, uint64(11), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_NoFields(t *testing.T) {
	s, _ := newStoreWithMock(t)

	_, err := s.Create(context.Background(), Fields{})
	assert.ErrorIs(t, err, ErrNoFields)
}

func TestCreate_ConstraintViolation(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec("INSERT INTO notes").WillReturnError(errors.New("Error 1062: Duplicate entry"))

	_, err := s.Create(context.Background(), Fields{"body": "dup"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1062")
}

func TestUpdate(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(exact("UPDATE notes SET body = ?, owner = ? WHERE id = ?")).
		WithArgs("new", 2, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := s.Update(context.Background(), 7, Fields{"body": "new", "owner": 2})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_NoRow(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec("UPDATE notes SET body").WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := s.Update(context.Background(), 99, Fields{"body": "new"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete_StampsDeletedAt(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(exact("UPDATE notes SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL")).
		WithArgs(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := s.Delete(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHardDelete(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(exact("DELETE FROM notes WHERE id = ?")).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := s.HardDelete(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountAndExists(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(exact("SELECT COUNT(*) FROM notes WHERE owner = ? AND deleted_at IS NULL")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(exact("SELECT COUNT(*) FROM notes WHERE owner = ? AND deleted_at IS NULL")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	n, err := s.Count(context.Background(), Criteria{"owner": 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	ok, err := s.Exists(context.Background(), Criteria{"owner": 2})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaginate(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(exact("SELECT id, body, owner FROM notes WHERE owner = ? AND deleted_at IS NULL ORDER BY id DESC LIMIT ? OFFSET ?")).
		WithArgs(1, 2, 2).
		WillReturnRows(sqlmock.NewRows(noteCols).AddRow(3, "c", 1).AddRow(2, "b", 1))
	mock.ExpectQuery(exact("SELECT COUNT(*) FROM notes WHERE owner = ? AND deleted_at IS NULL")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	p, err := s.Paginate(context.Background(), 2, 2, Criteria{"owner": 1})
	require.NoError(t, err)
	assert.Len(t, p.Items, 2)
	assert.Equal(t, 2, p.CurrentPage)
	assert.Equal(t, 2, p.PerPage)
	assert.Equal(t, int64(5), p.Total)
	assert.Equal(t, 3, p.LastPage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaginate_ClampsPage(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery("LIMIT \\? OFFSET \\?").
		WithArgs(15, 0).
		WillReturnRows(sqlmock.NewRows(noteCols))
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	p, err := s.Paginate(context.Background(), 0, 15, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentPage)
	assert.Equal(t, 0, p.LastPage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaginate_PagePastIntRange(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(exact("SELECT COUNT(*) FROM notes WHERE deleted_at IS NULL")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	p, err := s.Paginate(context.Background(), math.MaxInt/10+7, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, p.Items)
	assert.NotNil(t, p.Items)
	assert.Equal(t, int64(3), p.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOffset(t *testing.T) {
	off, ok := Offset(1, 10)
	assert.True(t, ok)
	assert.Equal(t, 0, off)

	off, ok = Offset(3, 25)
	assert.True(t, ok)
	assert.Equal(t, 50, off)

	off, ok = Offset(math.MaxInt/50+1, 50)
	assert.True(t, ok)
	assert.Equal(t, math.MaxInt/50*50, off)

	_, ok = Offset(math.MaxInt/50+2, 50)
	assert.False(t, ok)

	_, ok = Offset(math.MaxInt, 1)
	assert.True(t, ok)
}

func TestLastPage(t *testing.T) {
	cases := []struct {
		total   int64
		perPage int
		want    int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{101, 50, 3},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, LastPage(tc.total, tc.perPage), "total=%d perPage=%d", tc.total, tc.perPage)
	}
}
