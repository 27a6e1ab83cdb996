package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tokobot/internal/event"
	"tokobot/internal/order"
)

// NotifyOrderResolved tells the buyer how their payment ended. Driven by
// the orders.resolved queue, so a send failure is retried by redelivery.
func (b *Bot) NotifyOrderResolved(evt event.OrderResolvedEvent) error {
	var text string
	switch order.Status(evt.Status) {
	case order.StatusPaid:
		text = fmt.Sprintf("Payment received for order %s. Thank you!", evt.OrderID)
	case order.StatusFailed:
		text = fmt.Sprintf("Payment for order %s was cancelled or expired. Send /products to try again.", evt.OrderID)
	default:
		return nil
	}

	if _, err := b.api.Send(tgbotapi.NewMessage(evt.UserID, text)); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}
