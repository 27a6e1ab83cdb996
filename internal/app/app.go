package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"tokobot/internal/bot"
	"tokobot/internal/config"
	"tokobot/internal/event"
	"tokobot/internal/httpapi"
	"tokobot/internal/messaging"
	"tokobot/internal/order"
	"tokobot/internal/payment"
	"tokobot/internal/storage"
	"tokobot/internal/websocket"

	"github.com/rabbitmq/amqp091-go"
)

type App struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *storage.Store
	orderSvc  *order.Service
	wsHub     *websocket.Hub
	publisher messaging.Publisher
	consumer  *messaging.Consumer
	outbox    *messaging.OutboxDispatcher
	httpSrv   *http.Server
	bot       *bot.Bot
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if cfg.TelegramToken == "" {
		return nil, errors.New("TELEGRAM_TOKEN is not set")
	}

	store, err := storage.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := store.RunMigrations(ctx); err != nil {
		store.Close()
		return nil, err
	}

	// A missing provider key degrades to "payments unavailable" instead of
	// refusing to start; the catalog still works.
	var provider order.PaymentProvider
	if client, err := payment.NewClient(cfg.MidtransServerKey, cfg.MidtransProduction); err != nil {
		logger.Error("payment provider unavailable", "err", err)
	} else {
		provider = client
	}

	wsHub := websocket.NewHub()
	orderSvc := order.NewService(store, provider, wsHub, cfg.HostURL, logger)

	publisher, err := messaging.NewRabbitPublisher(cfg.RabbitURL, cfg.OrdersExchange)
	if err != nil {
		store.Close()
		return nil, err
	}

	consumer, err := messaging.NewRabbitConsumer(cfg.RabbitURL, cfg.OrdersExchange, cfg.NotifyQueue, logger)
	if err != nil {
		store.Close()
		publisher.Close()
		return nil, err
	}

	tgBot, err := bot.New(cfg.TelegramToken, orderSvc, logger)
	if err != nil {
		store.Close()
		publisher.Close()
		consumer.Close()
		return nil, err
	}

	api := httpapi.NewServer(orderSvc, cfg.MidtransServerKey, logger)
	wsHandler := websocket.NewHandler(wsHub, orderSvc, logger)
	api.HandleFunc("GET /orders/{orderID}/ws", wsHandler.ServeWS)

	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api,
	}

	outbox := messaging.NewOutboxDispatcher(store.Pool(), publisher, cfg.OutboxInterval, cfg.OutboxBatchSize, logger)

	return &App{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		orderSvc:  orderSvc,
		wsHub:     wsHub,
		publisher: publisher,
		consumer:  consumer,
		outbox:    outbox,
		httpSrv:   httpSrv,
		bot:       tgBot,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 3)

	a.outbox.Start(ctx)

	go a.wsHub.Run(ctx)

	go func() {
		errCh <- a.consumer.Start(ctx, a.handleOrderEvent)
	}()

	go func() {
		a.logger.Info("http server listening", "addr", a.cfg.HTTPAddr)
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go func() {
		errCh <- a.bot.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (a *App) Close(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.ShutdownGracePeriod)
	defer cancel()
	_ = a.httpSrv.Shutdown(shutdownCtx)
	a.consumer.Close()
	a.publisher.Close()
	a.store.Close()
}

func (a *App) handleOrderEvent(ctx context.Context, msg amqp091.Delivery) {
	_ = ctx

	var evt event.OrderResolvedEvent
	if err := json.Unmarshal(msg.Body, &evt); err != nil {
		a.logger.Error("invalid order event", "err", err)
		_ = msg.Nack(false, false)
		return
	}

	if err := a.bot.NotifyOrderResolved(evt); err != nil {
		a.logger.Error("notify buyer failed", "order_id", evt.OrderID, "err", err)
		_ = msg.Nack(false, true)
		return
	}

	_ = msg.Ack(false)
}

func Run() error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close(ctx)

	return app.Run(ctx)
}
