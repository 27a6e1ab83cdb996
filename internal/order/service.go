package order

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	ErrNotFound           = errors.New("order not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrOutOfStock         = errors.New("product out of stock")
	ErrPaymentUnavailable = errors.New("payment provider unavailable")
)

// PaymentSession carries everything the provider needs to open a checkout.
type PaymentSession struct {
	OrderID   string
	Amount    int64
	ItemID    int64
	ItemName  string
	FirstName string
	LastName  string
	Email     string
	FinishURL string
}

// PaymentProvider opens a payment session and returns a redirect URL the
// buyer can follow to pay.
type PaymentProvider interface {
	CreateSession(ctx context.Context, s PaymentSession) (string, error)
}

// StatusBroadcaster pushes order status changes to live subscribers.
type StatusBroadcaster interface {
	BroadcastOrderUpdate(orderID, status string)
}

// Service is the order lifecycle manager: it creates pending orders for the
// chat layer and reconciles authenticated payment notifications against them.
type Service struct {
	repo      Repository
	payments  PaymentProvider
	broadcast StatusBroadcaster
	hostURL   string
	logger    *slog.Logger
}

// NewService builds a Service. payments may be nil when the provider client
// failed to initialize; order creation then fails with ErrPaymentUnavailable.
// broadcast may be nil.
func NewService(repo Repository, payments PaymentProvider, broadcast StatusBroadcaster, hostURL string, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		payments:  payments,
		broadcast: broadcast,
		hostURL:   hostURL,
		logger:    logger,
	}
}

// AvailableProducts lists products with stock left, for the catalog view.
func (s *Service) AvailableProducts(ctx context.Context) ([]Product, error) {
	return s.repo.ProductsInStock(ctx)
}

// Order returns a stored order by id.
func (s *Service) Order(ctx context.Context, id string) (*Order, error) {
	return s.repo.OrderByID(ctx, id)
}

// CreateOrder persists a pending order for the buyer and requests a payment
// session. The returned string is the redirect URL for the buyer. If the
// provider call fails after the order was persisted, the order stays pending
// and the error is surfaced to the caller.
func (s *Service) CreateOrder(ctx context.Context, buyer Buyer, productID int64) (string, error) {
	if s.payments == nil {
		return "", ErrPaymentUnavailable
	}

	p, err := s.repo.ProductByID(ctx, productID)
	if err != nil {
		return "", err
	}
	if p.Stock <= 0 {
		return "", ErrOutOfStock
	}

	now := time.Now().UTC()
	o := &Order{
		ID:        newOrderID(buyer.UserID, productID),
		UserID:    buyer.UserID,
		ProductID: productID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertOrder(ctx, o); err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}

	payURL, err := s.payments.CreateSession(ctx, PaymentSession{
		OrderID:   o.ID,
		Amount:    p.Price,
		ItemID:    p.ID,
		ItemName:  p.Name,
		FirstName: buyer.FirstName,
		LastName:  buyer.LastName,
		Email:     fmt.Sprintf("%d@telegram.com", buyer.UserID),
		FinishURL: fmt.Sprintf("%s/checkout_finished?order_id=%s", s.hostURL, o.ID),
	})
	if err != nil {
		// The order stays pending; the buyer is asked to retry.
		s.logger.Error("create payment session failed", "order_id", o.ID, "err", err)
		return "", fmt.Errorf("create payment session: %w", err)
	}

	s.logger.Info("order created", "order_id", o.ID, "user_id", buyer.UserID, "product_id", productID)
	return payURL, nil
}

// Reconcile applies an authenticated payment notification to the stored
// order. Settled-and-accepted notifications pay the order and decrement
// stock; deny/cancel/expire fail it; anything else is logged and ignored.
// Redeliveries for terminal orders are acknowledged without mutation.
func (s *Service) Reconcile(ctx context.Context, n Notification) error {
	switch {
	case n.TransactionStatus == "settlement" && n.FraudStatus == "accept":
		res, err := s.repo.SettleOrder(ctx, n.OrderID)
		if err != nil {
			return err
		}
		if !res.Applied {
			s.logger.Info("duplicate settlement notification", "order_id", n.OrderID)
			return nil
		}
		if res.StockExhausted {
			// Payment already happened; accept the inconsistency rather
			// than refuse to honor it.
			s.logger.Error("stock already exhausted for paid order", "order_id", n.OrderID)
		}
		s.logger.Info("order paid", "order_id", n.OrderID)
		s.notify(n.OrderID, StatusPaid)

	case n.TransactionStatus == "deny" || n.TransactionStatus == "cancel" || n.TransactionStatus == "expire":
		applied, err := s.repo.FailOrder(ctx, n.OrderID)
		if err != nil {
			return err
		}
		if !applied {
			s.logger.Info("notification for already resolved order", "order_id", n.OrderID, "transaction_status", n.TransactionStatus)
			return nil
		}
		s.logger.Info("order failed", "order_id", n.OrderID, "transaction_status", n.TransactionStatus)
		s.notify(n.OrderID, StatusFailed)

	default:
		if _, err := s.repo.OrderByID(ctx, n.OrderID); err != nil {
			return err
		}
		s.logger.Info("ignoring notification", "order_id", n.OrderID, "transaction_status", n.TransactionStatus, "fraud_status", n.FraudStatus)
	}
	return nil
}

func (s *Service) notify(orderID string, status Status) {
	if s.broadcast != nil {
		s.broadcast.BroadcastOrderUpdate(orderID, string(status))
	}
}

// newOrderID builds an unguessable order id. The random suffix is 16 hex
// characters from crypto/rand; ids double as capability tokens for the
// status endpoints, so the suffix must not be derivable.
func newOrderID(userID, productID int64) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return fmt.Sprintf("TG-%d-%d-%s", userID, productID, hex.EncodeToString(buf))
}
