// Package bot is the Telegram command layer: it renders the catalog,
// turns "Buy" button taps into orders and replies with the payment link.
// It never mutates order state itself; that is the webhook's job.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tokobot/internal/order"
)

type Bot struct {
	api    *tgbotapi.BotAPI
	orders *order.Service
	logger *slog.Logger
}

func New(token string, orders *order.Service, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	return &Bot{api: api, orders: orders, logger: logger}, nil
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("bot polling started", "username", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, upd)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.Message != nil && upd.Message.IsCommand():
		b.handleCommand(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.reply(msg.Chat.ID, "Welcome! Send /products to see what we have in stock.")
	case "products":
		b.sendCatalog(ctx, msg.Chat.ID)
	}
}

func (b *Bot) sendCatalog(ctx context.Context, chatID int64) {
	products, err := b.orders.AvailableProducts(ctx)
	if err != nil {
		b.logger.Error("list products failed", "err", err)
		b.reply(chatID, "Sorry, something went wrong fetching the catalog.")
		return
	}
	if len(products) == 0 {
		b.reply(chatID, "Sorry, everything is sold out right now.")
		return
	}

	msg := tgbotapi.NewMessage(chatID, catalogText(products))
	msg.ParseMode = tgbotapi.ModeMarkdown

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(products))
	for _, p := range products {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Buy "+p.Name, buyCallbackData(p.ID)),
		))
	}
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)

	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("send catalog failed", "chat_id", chatID, "err", err)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Warn("answer callback failed", "err", err)
	}

	productID, ok := parseBuyCallback(cb.Data)
	if !ok || cb.Message == nil {
		return
	}

	buyer := order.Buyer{
		UserID:    cb.From.ID,
		FirstName: cb.From.FirstName,
		LastName:  cb.From.LastName,
	}

	payURL, err := b.orders.CreateOrder(ctx, buyer, productID)
	text := ""
	switch {
	case err == nil:
		text = "To complete your payment, follow this link:\n" + payURL
	case errors.Is(err, order.ErrOutOfStock), errors.Is(err, order.ErrProductNotFound):
		text = "Sorry, this product is sold out or no longer available."
	case errors.Is(err, order.ErrPaymentUnavailable):
		text = "Sorry, payments are unavailable right now. Please try again later."
	default:
		b.logger.Error("create order failed", "user_id", buyer.UserID, "product_id", productID, "err", err)
		text = "Sorry, something went wrong creating your order. Please try again."
	}

	edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID, text)
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Error("edit message failed", "chat_id", cb.Message.Chat.ID, "err", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error("send message failed", "chat_id", chatID, "err", err)
	}
}
