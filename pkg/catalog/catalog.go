// Package catalog holds menu items and categories and the queries the
// recommendation core runs against them.
package catalog

import (
	"context"
	"errors"
)

// Category groups menu items.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Item is a menu item.
type Item struct {
	ID           string  `json:"id" db:"id"`
	Name         string  `json:"name" db:"name"`
	Price        float64 `json:"price" db:"price"`
	CategoryID   string  `json:"category_id" db:"category_id"`
	CategoryName string  `json:"category_name,omitempty" db:"category_name"`
	Active       bool    `json:"active" db:"active"`
	Available    bool    `json:"available" db:"available"`
	SortOrder    int     `json:"sort_order" db:"sort_order"`
}

// Recommendable reports whether the item may be shown to guests.
func (i Item) Recommendable() bool {
	return i.Active && i.Available
}

// ItemCount pairs an item with an order-history count.
type ItemCount struct {
	Item  Item
	Count int
}

// Filter narrows item queries. Only active and available items are ever
// returned; Exclude ids are never returned.
type Filter struct {
	CategoryID           string
	CategoryNameContains string
	Exclude              []string
	Limit                int
}

// ItemStore is the read side used by recommendations.
type ItemStore interface {
	// CoOccurring counts, per item, the orders that also contain any of
	// cartItemIDs. Ordered by count desc, then id asc.
	CoOccurring(ctx context.Context, cartItemIDs []string, f Filter) ([]ItemCount, error)
	// CustomerHistory counts the customer's order lines per item. Ordered by
	// count desc, then id asc.
	CustomerHistory(ctx context.Context, customerID string, f Filter) ([]ItemCount, error)
	// Popular counts order lines per item over all history. Ordered by count
	// desc, then id asc.
	Popular(ctx context.Context, f Filter) ([]ItemCount, error)
	// List returns items in menu listing order.
	List(ctx context.Context, f Filter) ([]Item, error)
	// Sample returns items in no particular order.
	Sample(ctx context.Context, f Filter) ([]Item, error)
}

// Repository is the write side used by menu management handlers.
type Repository interface {
	Create(ctx context.Context, it Item) error
	Get(ctx context.Context, id string) (Item, error)
	Update(ctx context.Context, it Item) error
	Delete(ctx context.Context, id string) error
	SetAvailability(ctx context.Context, id string, available bool) error
}

// ErrNotFound indicates the requested item does not exist.
var ErrNotFound = errors.New("item not found")
