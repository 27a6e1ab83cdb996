package config

import (
	"os"
	"testing"
	"time"
)

func unset(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	unset(t, "TELEGRAM_TOKEN", "MIDTRANS_SERVER_KEY", "MIDTRANS_IS_PRODUCTION",
		"HOST_URL", "HTTP_ADDR", "DATABASE_URL", "RABBIT_URL", "ORDERS_EXCHANGE",
		"NOTIFY_QUEUE", "OUTBOX_INTERVAL", "OUTBOX_BATCH", "SHUTDOWN_TIMEOUT")

	cfg := Load()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.HostURL != "http://localhost:8080" {
		t.Errorf("HostURL = %q", cfg.HostURL)
	}
	if cfg.MidtransProduction {
		t.Error("MidtransProduction should default to false")
	}
	if cfg.OrdersExchange != "orders.events" {
		t.Errorf("OrdersExchange = %q", cfg.OrdersExchange)
	}
	if cfg.OutboxInterval != 2*time.Second {
		t.Errorf("OutboxInterval = %v", cfg.OutboxInterval)
	}
	if cfg.OutboxBatchSize != 32 {
		t.Errorf("OutboxBatchSize = %d", cfg.OutboxBatchSize)
	}
	if cfg.ShutdownGracePeriod != 10*time.Second {
		t.Errorf("ShutdownGracePeriod = %v", cfg.ShutdownGracePeriod)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("MIDTRANS_SERVER_KEY", "SB-Mid-server-xyz")
	t.Setenv("MIDTRANS_IS_PRODUCTION", "true")
	t.Setenv("HOST_URL", "https://shop.example")
	t.Setenv("OUTBOX_INTERVAL", "500ms")
	t.Setenv("OUTBOX_BATCH", "64")

	cfg := Load()

	if cfg.TelegramToken != "123:abc" {
		t.Errorf("TelegramToken = %q", cfg.TelegramToken)
	}
	if cfg.MidtransServerKey != "SB-Mid-server-xyz" {
		t.Errorf("MidtransServerKey = %q", cfg.MidtransServerKey)
	}
	if !cfg.MidtransProduction {
		t.Error("MidtransProduction should be true")
	}
	if cfg.HostURL != "https://shop.example" {
		t.Errorf("HostURL = %q", cfg.HostURL)
	}
	if cfg.OutboxInterval != 500*time.Millisecond {
		t.Errorf("OutboxInterval = %v", cfg.OutboxInterval)
	}
	if cfg.OutboxBatchSize != 64 {
		t.Errorf("OutboxBatchSize = %d", cfg.OutboxBatchSize)
	}
}

func TestLoadBadValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("MIDTRANS_IS_PRODUCTION", "maybe")
	t.Setenv("OUTBOX_INTERVAL", "soon")
	t.Setenv("OUTBOX_BATCH", "lots")

	cfg := Load()

	if cfg.MidtransProduction {
		t.Error("MidtransProduction should fall back to false")
	}
	if cfg.OutboxInterval != 2*time.Second {
		t.Errorf("OutboxInterval = %v", cfg.OutboxInterval)
	}
	if cfg.OutboxBatchSize != 32 {
		t.Errorf("OutboxBatchSize = %d", cfg.OutboxBatchSize)
	}
}
