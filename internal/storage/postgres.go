package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tokobot/internal/event"
	"tokobot/internal/order"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres-backed order store and inventory ledger.
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) ProductsInStock(ctx context.Context) ([]order.Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, price, stock, description
		FROM products
		WHERE stock > 0
		ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var result []order.Product
	for rows.Next() {
		var p order.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Description); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) ProductByID(ctx context.Context, id int64) (*order.Product, error) {
	var p order.Product
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, price, stock, description
		FROM products
		WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

func (s *Store) InsertOrder(ctx context.Context, o *order.Order) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO orders (id, user_id, product_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.UserID, o.ProductID, o.Status, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *Store) OrderByID(ctx context.Context, id string) (*order.Order, error) {
	var o order.Order
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, product_id, status, created_at, updated_at
		FROM orders
		WHERE id = $1`, id,
	).Scan(&o.ID, &o.UserID, &o.ProductID, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &o, nil
}

// SettleOrder marks a pending order paid and decrements the product's stock
// by one, all under row locks in a single transaction. The outbox event is
// written in the same transaction so the notification cannot outrun the
// state change.
func (s *Store) SettleOrder(ctx context.Context, orderID string) (order.SettleResult, error) {
	var result order.SettleResult

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return result, err
	}
	defer tx.Rollback(ctx)

	o, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return result, err
	}
	if o.Status != order.StatusPending {
		return result, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE id = $1`,
		orderID, order.StatusPaid,
	); err != nil {
		return result, fmt.Errorf("update order status: %w", err)
	}

	var stock int
	err = tx.QueryRow(ctx, `
		SELECT stock
		FROM products
		WHERE id = $1
		FOR UPDATE`,
		o.ProductID,
	).Scan(&stock)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// Product deleted after the order was placed; the order is still
		// valid history.
		result.StockExhausted = true
	case err != nil:
		return result, fmt.Errorf("lock product: %w", err)
	case stock > 0:
		if _, err := tx.Exec(ctx, `
			UPDATE products
			SET stock = stock - 1
			WHERE id = $1`,
			o.ProductID,
		); err != nil {
			return result, fmt.Errorf("decrement stock: %w", err)
		}
	default:
		result.StockExhausted = true
	}

	if err := insertResolvedEvent(ctx, tx, o, order.StatusPaid); err != nil {
		return result, err
	}

	if err := tx.Commit(ctx); err != nil {
		return result, err
	}
	result.Applied = true
	return result, nil
}

// FailOrder marks a pending order failed. Stock is untouched.
func (s *Store) FailOrder(ctx context.Context, orderID string) (bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	o, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return false, err
	}
	if o.Status != order.StatusPending {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE id = $1`,
		orderID, order.StatusFailed,
	); err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}

	if err := insertResolvedEvent(ctx, tx, o, order.StatusFailed); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func lockOrder(ctx context.Context, tx pgx.Tx, orderID string) (*order.Order, error) {
	var o order.Order
	err := tx.QueryRow(ctx, `
		SELECT id, user_id, product_id, status
		FROM orders
		WHERE id = $1
		FOR UPDATE`,
		orderID,
	).Scan(&o.ID, &o.UserID, &o.ProductID, &o.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	return &o, nil
}

func insertResolvedEvent(ctx context.Context, tx pgx.Tx, o *order.Order, status order.Status) error {
	evt := event.OrderResolvedEvent{
		EventID:    uuid.New().String(),
		OrderID:    o.ID,
		UserID:     o.UserID,
		ProductID:  o.ProductID,
		Status:     string(status),
		ResolvedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO order_outbox (event_id, event_type, payload)
		VALUES ($1, $2, $3)`,
		evt.EventID, event.TypeOrderResolved, payload,
	); err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}
	return nil
}
