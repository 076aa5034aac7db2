package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"dineflow/pkg/order"
)

// Schema creates the tables used by Repository.
const Schema = `
CREATE TABLE IF NOT EXISTS orders (
	id TEXT PRIMARY KEY,
	customer_id TEXT NOT NULL DEFAULT '',
	placed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS order_lines (
	order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	item_id TEXT NOT NULL,
	quantity INT NOT NULL,
	PRIMARY KEY (order_id, item_id)
);
CREATE INDEX IF NOT EXISTS order_lines_item_idx ON order_lines (item_id);`

// Repository persists orders in PostgreSQL.
type Repository struct {
	db *sqlx.DB
}

// New creates a PostgreSQL repository.
func New(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

type orderRow struct {
	ID         string       `db:"id"`
	CustomerID string       `db:"customer_id"`
	PlacedAt   sql.NullTime `db:"placed_at"`
}

type lineRow struct {
	OrderID  string `db:"order_id"`
	ItemID   string `db:"item_id"`
	Quantity int    `db:"quantity"`
}

// Create inserts a new order and its lines in one transaction.
func (r *Repository) Create(ctx context.Context, o order.Order) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "INSERT INTO orders (id,customer_id,placed_at) VALUES ($1,$2,$3)", o.ID, o.CustomerID, o.PlacedAt); err != nil {
		return err
	}
	for _, l := range o.Lines {
		if _, err := tx.ExecContext(ctx, "INSERT INTO order_lines (order_id,item_id,quantity) VALUES ($1,$2,$3)", o.ID, l.ItemID, l.Quantity); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Get retrieves an order by ID.
func (r *Repository) Get(ctx context.Context, id string) (order.Order, error) {
	var row orderRow
	err := r.db.GetContext(ctx, &row, "SELECT id,customer_id,placed_at FROM orders WHERE id=$1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return order.Order{}, order.ErrNotFound
	}
	if err != nil {
		return order.Order{}, err
	}
	var lines []lineRow
	if err := r.db.SelectContext(ctx, &lines, "SELECT order_id,item_id,quantity FROM order_lines WHERE order_id=$1 ORDER BY item_id", id); err != nil {
		return order.Order{}, err
	}
	o := toOrder(row)
	for _, l := range lines {
		o.Lines = append(o.Lines, order.Line{ItemID: l.ItemID, Quantity: l.Quantity})
	}
	return o, nil
}

// List fetches all orders with their lines.
func (r *Repository) List(ctx context.Context) ([]order.Order, error) {
	var rows []orderRow
	if err := r.db.SelectContext(ctx, &rows, "SELECT id,customer_id,placed_at FROM orders ORDER BY placed_at, id"); err != nil {
		return nil, err
	}
	var lines []lineRow
	if err := r.db.SelectContext(ctx, &lines, "SELECT order_id,item_id,quantity FROM order_lines ORDER BY order_id, item_id"); err != nil {
		return nil, err
	}
	byOrder := make(map[string][]order.Line, len(rows))
	for _, l := range lines {
		byOrder[l.OrderID] = append(byOrder[l.OrderID], order.Line{ItemID: l.ItemID, Quantity: l.Quantity})
	}
	orders := make([]order.Order, 0, len(rows))
	for _, row := range rows {
		o := toOrder(row)
		o.Lines = byOrder[row.ID]
		orders = append(orders, o)
	}
	return orders, nil
}

// Delete removes an order by ID.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM orders WHERE id=$1", id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return order.ErrNotFound
	}
	return nil
}

func toOrder(row orderRow) order.Order {
	o := order.Order{ID: row.ID, CustomerID: row.CustomerID}
	if row.PlacedAt.Valid {
		o.PlacedAt = row.PlacedAt.Time
	}
	return o
}
