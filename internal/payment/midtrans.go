// Package payment wraps the Midtrans Snap API as the payment session
// initiator. It is a pass-through integration: failures surface to the
// caller and no retries are attempted here.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"

	"tokobot/internal/order"
)

type Client struct {
	snap snap.Client
}

// NewClient configures a Snap client against sandbox or production.
func NewClient(serverKey string, production bool) (*Client, error) {
	if serverKey == "" {
		return nil, errors.New("midtrans server key is required")
	}
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	c := &Client{}
	c.snap.New(serverKey, env)
	return c, nil
}

// CreateSession opens a Snap transaction and returns the redirect URL the
// buyer follows to pay.
func (c *Client) CreateSession(ctx context.Context, s order.PaymentSession) (string, error) {
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  s.OrderID,
			GrossAmt: s.Amount,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:    strconv.FormatInt(s.ItemID, 10),
			Price: s.Amount,
			Qty:   1,
			Name:  s.ItemName,
		}},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: s.FirstName,
			LName: s.LastName,
			Email: s.Email,
		},
		Callbacks: &snap.Callbacks{
			Finish: s.FinishURL,
		},
	}

	resp, snapErr := c.snap.CreateTransaction(req)
	if snapErr != nil {
		return "", fmt.Errorf("midtrans create transaction: %w", snapErr)
	}
	return resp.RedirectURL, nil
}
