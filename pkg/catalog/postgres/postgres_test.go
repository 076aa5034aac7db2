package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"dineflow/pkg/catalog"
)

var itemRowColumns = []string{"id", "name", "price", "category_id", "category_name", "active", "available", "sort_order"}

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "postgres")), mock
}

func TestCoOccurringBindsIDLists(t *testing.T) {
	s, mock := newMock(t)
	rows := sqlmock.NewRows(append(itemRowColumns, "count")).
		AddRow("soda-2", "Soda", 2.5, "drinks", "Drinks", true, true, 0, 4).
		AddRow("salad-3", "Salad", 6.0, "sides", "Sides", true, true, 0, 1)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE cart.item_id = ANY($1) AND i.active AND i.available AND NOT (i.id = ANY($2))")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 3).
		WillReturnRows(rows)

	got, err := s.CoOccurring(context.Background(), []string{"pizza-1"}, catalog.Filter{Exclude: []string{"pizza-1", "x'); DROP TABLE items;--"}, Limit: 3})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "soda-2", got[0].Item.ID)
	require.Equal(t, 4, got[0].Count)
	require.Equal(t, "Drinks", got[0].Item.CategoryName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCoOccurringEmptyCartSkipsQuery(t *testing.T) {
	s, mock := newMock(t)
	got, err := s.CoOccurring(context.Background(), nil, catalog.Filter{Limit: 3})
	require.NoError(t, err)
	require.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerHistoryQuery(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE o.customer_id = $1 AND i.active AND i.available")).
		WithArgs("guest-7", 5).
		WillReturnRows(sqlmock.NewRows(append(itemRowColumns, "count")))

	got, err := s.CustomerHistory(context.Background(), "guest-7", catalog.Filter{Limit: 5})
	require.NoError(t, err)
	require.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListSeasonalFilter(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("i.category_id = $1 AND c.name ILIKE $2 ORDER BY i.sort_order, i.id LIMIT $3")).
		WithArgs("soups", "%Winter%", 2).
		WillReturnRows(sqlmock.NewRows(itemRowColumns).AddRow("soup-5", "Soup", 4.0, "soups", "Winter Soups", true, true, 1))

	got, err := s.List(context.Background(), catalog.Filter{CategoryID: "soups", CategoryNameContains: "Winter", Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "soup-5", got[0].ID)
}

func TestPopularAndSample(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) AS count FROM order_lines ol")).
		WithArgs(sqlmock.AnyArg(), 1).
		WillReturnRows(sqlmock.NewRows(append(itemRowColumns, "count")).AddRow("burger-4", "Burger", 9.0, "mains", "Mains", true, true, 0, 12))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY random() LIMIT $1")).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows(itemRowColumns))

	pop, err := s.Popular(context.Background(), catalog.Filter{Exclude: []string{"pizza-1"}, Limit: 1})
	require.NoError(t, err)
	require.Equal(t, "burger-4", pop[0].Item.ID)

	sample, err := s.Sample(context.Background(), catalog.Filter{Limit: 4})
	require.NoError(t, err)
	require.Empty(t, sample)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWritesReportNotFound(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec("UPDATE items SET available").WithArgs("ghost", false).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM items").WithArgs("ghost").WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, s.SetAvailability(context.Background(), "ghost", false), catalog.ErrNotFound)
	require.ErrorIs(t, s.Delete(context.Background(), "ghost"), catalog.ErrNotFound)
}

func TestEscapeLike(t *testing.T) {
	require.Equal(t, `50\% off\_x`, escapeLike("50% off_x"))
}
