// Package memory holds an in-memory order.Repository. It backs the test
// suite and local runs without Postgres; a single mutex stands in for the
// per-row locking the Postgres store gets from the database.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tokobot/internal/event"
	"tokobot/internal/order"

	"github.com/google/uuid"
)

type Repository struct {
	mu       sync.Mutex
	orders   map[string]*order.Order
	products map[int64]*order.Product
	events   []event.OrderResolvedEvent
}

func NewRepository() *Repository {
	return &Repository{
		orders:   make(map[string]*order.Order),
		products: make(map[int64]*order.Product),
	}
}

// SeedProduct inserts or replaces a product row.
func (r *Repository) SeedProduct(p order.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := p
	r.products[p.ID] = &cp
}

// Events returns the resolution events recorded so far, oldest first.
func (r *Repository) Events() []event.OrderResolvedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.OrderResolvedEvent, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Repository) ProductsInStock(ctx context.Context) ([]order.Product, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	var result []order.Product
	for _, p := range r.products {
		if p.Stock > 0 {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (r *Repository) ProductByID(ctx context.Context, id int64) (*order.Product, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return nil, order.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *Repository) InsertOrder(ctx context.Context, o *order.Order) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return fmt.Errorf("order id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[o.ID]; exists {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *Repository) OrderByID(ctx context.Context, id string) (*order.Order, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *Repository) SettleOrder(ctx context.Context, orderID string) (order.SettleResult, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	var result order.SettleResult
	o, ok := r.orders[orderID]
	if !ok {
		return result, order.ErrNotFound
	}
	if o.Status != order.StatusPending {
		return result, nil
	}

	o.Status = order.StatusPaid
	o.UpdatedAt = time.Now().UTC()

	p, ok := r.products[o.ProductID]
	switch {
	case !ok:
		result.StockExhausted = true
	case p.Stock > 0:
		p.Stock--
	default:
		result.StockExhausted = true
	}

	r.recordEvent(o, order.StatusPaid)
	result.Applied = true
	return result, nil
}

func (r *Repository) FailOrder(ctx context.Context, orderID string) (bool, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return false, order.ErrNotFound
	}
	if o.Status != order.StatusPending {
		return false, nil
	}

	o.Status = order.StatusFailed
	o.UpdatedAt = time.Now().UTC()
	r.recordEvent(o, order.StatusFailed)
	return true, nil
}

func (r *Repository) recordEvent(o *order.Order, status order.Status) {
	r.events = append(r.events, event.OrderResolvedEvent{
		EventID:    uuid.New().String(),
		OrderID:    o.ID,
		UserID:     o.UserID,
		ProductID:  o.ProductID,
		Status:     string(status),
		ResolvedAt: time.Now().UTC(),
	})
}
