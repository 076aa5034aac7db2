package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"dineflow/pkg/order"
)

func newMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "postgres")), mock
}

func TestCreateWritesLinesInTransaction(t *testing.T) {
	repo, mock := newMock(t)
	placed := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").WithArgs("o-1", "guest-7", placed).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO order_lines").WithArgs("o-1", "pizza-1", 2).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO order_lines").WithArgs("o-1", "soda-2", 1).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), order.Order{
		ID:         "o-1",
		CustomerID: "guest-7",
		PlacedAt:   placed,
		Lines:      []order.Line{{ItemID: "pizza-1", Quantity: 2}, {ItemID: "soda-2", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetMissingOrder(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery("SELECT id,customer_id,placed_at FROM orders WHERE id").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "placed_at"}))

	if _, err := repo.Get(context.Background(), "nope"); err != order.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteMissingOrder(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec("DELETE FROM orders").WithArgs("nope").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "nope"); err != order.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
