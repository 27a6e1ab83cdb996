package event

import "time"

const TypeOrderResolved = "orders.resolved"

// OrderResolvedEvent is published once an order reaches a terminal status.
// The bot notifier consumes it to tell the buyer how their payment ended.
type OrderResolvedEvent struct {
	EventID    string    `json:"event_id"`
	OrderID    string    `json:"order_id"`
	UserID     int64     `json:"user_id"`
	ProductID  int64     `json:"product_id"`
	Status     string    `json:"status"`
	ResolvedAt time.Time `json:"resolved_at"`
}
