package order

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Line is a single item on an order.
type Line struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// Order represents a placed customer order.
type Order struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id,omitempty"`
	Lines      []Line    `json:"lines"`
	PlacedAt   time.Time `json:"placed_at"`
}

// ItemIDs returns the distinct item ids on the order in line order.
func (o Order) ItemIDs() []string {
	seen := make(map[string]struct{}, len(o.Lines))
	ids := make([]string, 0, len(o.Lines))
	for _, l := range o.Lines {
		if _, ok := seen[l.ItemID]; ok {
			continue
		}
		seen[l.ItemID] = struct{}{}
		ids = append(ids, l.ItemID)
	}
	return ids
}

// Repository defines behavior for persisting orders.
type Repository interface {
	Create(ctx context.Context, o Order) error
	Get(ctx context.Context, id string) (Order, error)
	List(ctx context.Context) ([]Order, error)
	Delete(ctx context.Context, id string) error
}

// ErrNotFound indicates the requested order does not exist.
var ErrNotFound = errors.New("order not found")

// ErrEmpty indicates an order without any lines.
var ErrEmpty = errors.New("order has no lines")

// ErrDuplicateLine indicates two lines for the same item.
var ErrDuplicateLine = errors.New("order has more than one line for an item")

// Validate reports whether the order can be placed.
func (o Order) Validate() error {
	if len(o.Lines) == 0 {
		return ErrEmpty
	}
	seen := make(map[string]struct{}, len(o.Lines))
	for _, l := range o.Lines {
		if l.ItemID == "" || l.Quantity <= 0 {
			return errors.New("order line needs an item id and a positive quantity")
		}
		if _, dup := seen[l.ItemID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateLine, l.ItemID)
		}
		seen[l.ItemID] = struct{}{}
	}
	return nil
}
