package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"dineflow/pkg/catalog"
)

// Schema creates the tables used by Store. Order tables live in
// pkg/order/postgres.
const Schema = `
CREATE TABLE IF NOT EXISTS categories (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS items (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	price NUMERIC(10,2) NOT NULL DEFAULT 0,
	category_id TEXT NOT NULL DEFAULT '',
	active BOOLEAN NOT NULL DEFAULT true,
	available BOOLEAN NOT NULL DEFAULT true,
	sort_order INT NOT NULL DEFAULT 0
);`

const (
	itemColumns  = "i.id, i.name, i.price, i.category_id, COALESCE(c.name, '') AS category_name, i.active, i.available, i.sort_order"
	categoryJoin = "LEFT JOIN categories c ON c.id = i.category_id"
)

// Store implements catalog.ItemStore and catalog.Repository on PostgreSQL.
// Id lists are always bound as array parameters.
type Store struct {
	db *sqlx.DB
}

// New creates a PostgreSQL store.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type countRow struct {
	catalog.Item
	Count int `db:"count"`
}

// query accumulates bound parameters while a statement is assembled.
type query struct {
	args []any
}

func (q *query) bind(v any) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

// where renders the shared item predicates for f.
func (q *query) where(f catalog.Filter) string {
	clauses := []string{"i.active", "i.available"}
	if len(f.Exclude) > 0 {
		clauses = append(clauses, "NOT (i.id = ANY("+q.bind(pq.Array(f.Exclude))+"))")
	}
	if f.CategoryID != "" {
		clauses = append(clauses, "i.category_id = "+q.bind(f.CategoryID))
	}
	if f.CategoryNameContains != "" {
		clauses = append(clauses, "c.name ILIKE "+q.bind("%"+escapeLike(f.CategoryNameContains)+"%"))
	}
	return strings.Join(clauses, " AND ")
}

func (q *query) limit(f catalog.Filter) string {
	if f.Limit <= 0 {
		return ""
	}
	return " LIMIT " + q.bind(f.Limit)
}

// CoOccurring counts orders that contain both a cart item and the candidate.
func (s *Store) CoOccurring(ctx context.Context, cartItemIDs []string, f catalog.Filter) ([]catalog.ItemCount, error) {
	if len(cartItemIDs) == 0 {
		return nil, nil
	}
	q := &query{}
	cart := q.bind(pq.Array(cartItemIDs))
	stmt := "SELECT " + itemColumns + ", COUNT(DISTINCT other.order_id) AS count" +
		" FROM order_lines cart" +
		" JOIN order_lines other ON other.order_id = cart.order_id AND NOT (other.item_id = ANY(" + cart + "))" +
		" JOIN items i ON i.id = other.item_id " + categoryJoin +
		" WHERE cart.item_id = ANY(" + cart + ") AND " + q.where(f) +
		" GROUP BY i.id, c.name ORDER BY count DESC, i.id ASC" + q.limit(f)
	return s.selectCounts(ctx, stmt, q.args)
}

// CustomerHistory counts the customer's orders per item.
func (s *Store) CustomerHistory(ctx context.Context, customerID string, f catalog.Filter) ([]catalog.ItemCount, error) {
	q := &query{}
	customer := q.bind(customerID)
	stmt := "SELECT " + itemColumns + ", COUNT(DISTINCT o.id) AS count" +
		" FROM orders o" +
		" JOIN order_lines ol ON ol.order_id = o.id" +
		" JOIN items i ON i.id = ol.item_id " + categoryJoin +
		" WHERE o.customer_id = " + customer + " AND " + q.where(f) +
		" GROUP BY i.id, c.name ORDER BY count DESC, i.id ASC" + q.limit(f)
	return s.selectCounts(ctx, stmt, q.args)
}

// Popular counts order lines per item.
func (s *Store) Popular(ctx context.Context, f catalog.Filter) ([]catalog.ItemCount, error) {
	q := &query{}
	stmt := "SELECT " + itemColumns + ", COUNT(*) AS count" +
		" FROM order_lines ol" +
		" JOIN items i ON i.id = ol.item_id " + categoryJoin +
		" WHERE " + q.where(f) +
		" GROUP BY i.id, c.name ORDER BY count DESC, i.id ASC" + q.limit(f)
	return s.selectCounts(ctx, stmt, q.args)
}

// List returns matching items in menu listing order.
func (s *Store) List(ctx context.Context, f catalog.Filter) ([]catalog.Item, error) {
	q := &query{}
	stmt := "SELECT " + itemColumns + " FROM items i " + categoryJoin +
		" WHERE " + q.where(f) + " ORDER BY i.sort_order, i.id" + q.limit(f)
	var items []catalog.Item
	if err := s.db.SelectContext(ctx, &items, stmt, q.args...); err != nil {
		return nil, err
	}
	return items, nil
}

// Sample returns matching items in random order.
func (s *Store) Sample(ctx context.Context, f catalog.Filter) ([]catalog.Item, error) {
	q := &query{}
	stmt := "SELECT " + itemColumns + " FROM items i " + categoryJoin +
		" WHERE " + q.where(f) + " ORDER BY random()" + q.limit(f)
	var items []catalog.Item
	if err := s.db.SelectContext(ctx, &items, stmt, q.args...); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) selectCounts(ctx context.Context, stmt string, args []any) ([]catalog.ItemCount, error) {
	var rows []countRow
	if err := s.db.SelectContext(ctx, &rows, stmt, args...); err != nil {
		return nil, err
	}
	out := make([]catalog.ItemCount, len(rows))
	for i, r := range rows {
		out[i] = catalog.ItemCount{Item: r.Item, Count: r.Count}
	}
	return out, nil
}

// Create inserts a new item.
func (s *Store) Create(ctx context.Context, it catalog.Item) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO items (id,name,price,category_id,active,available,sort_order) VALUES ($1,$2,$3,$4,$5,$6,$7)",
		it.ID, it.Name, it.Price, it.CategoryID, it.Active, it.Available, it.SortOrder)
	return err
}

// Get retrieves an item by ID.
func (s *Store) Get(ctx context.Context, id string) (catalog.Item, error) {
	var it catalog.Item
	err := s.db.GetContext(ctx, &it, "SELECT "+itemColumns+" FROM items i "+categoryJoin+" WHERE i.id=$1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Item{}, catalog.ErrNotFound
	}
	return it, err
}

// Update replaces an existing item.
func (s *Store) Update(ctx context.Context, it catalog.Item) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE items SET name=$2, price=$3, category_id=$4, active=$5, available=$6, sort_order=$7 WHERE id=$1",
		it.ID, it.Name, it.Price, it.CategoryID, it.Active, it.Available, it.SortOrder)
	return affected(res, err)
}

// Delete removes an item by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id=$1", id)
	return affected(res, err)
}

// SetAvailability toggles the available flag of an item.
func (s *Store) SetAvailability(ctx context.Context, id string, available bool) error {
	res, err := s.db.ExecContext(ctx, "UPDATE items SET available=$2 WHERE id=$1", id, available)
	return affected(res, err)
}

func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
