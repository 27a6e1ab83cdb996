package order

import "context"

// SettleResult reports what a settlement transition actually changed.
type SettleResult struct {
	// Applied is false when the order was already terminal and the
	// notification was a redelivery.
	Applied bool
	// StockExhausted is set when the order was paid but the product had no
	// stock left to decrement (or the product row is gone).
	StockExhausted bool
}

// Repository is the persistent store shared by the chat and webhook paths.
// SettleOrder and FailOrder must apply the terminal-state check and the
// transition atomically per order id, and SettleOrder must decrement stock
// in the same transaction as the status change.
type Repository interface {
	ProductsInStock(ctx context.Context) ([]Product, error)
	ProductByID(ctx context.Context, id int64) (*Product, error)

	InsertOrder(ctx context.Context, o *Order) error
	OrderByID(ctx context.Context, id string) (*Order, error)

	// SettleOrder marks a pending order paid and decrements the linked
	// product's stock by one if any is left. Returns ErrNotFound for an
	// unknown order id.
	SettleOrder(ctx context.Context, orderID string) (SettleResult, error)

	// FailOrder marks a pending order failed. Returns (false, nil) when the
	// order was already terminal and ErrNotFound for an unknown order id.
	FailOrder(ctx context.Context, orderID string) (bool, error)
}
