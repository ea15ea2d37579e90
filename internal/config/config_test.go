package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("DELIVERY_BASE_CHARGE", "")
	t.Setenv("DELIVERY_FREE_THRESHOLD", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Store.Backend != BackendMemory {
		t.Errorf("Expected memory backend, got %s", cfg.Store.Backend)
	}
	if !cfg.Pricing.DeliveryBaseCharge.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected base charge 50, got %s", cfg.Pricing.DeliveryBaseCharge)
	}
	if !cfg.Pricing.FreeDeliveryThreshold.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected threshold 500, got %s", cfg.Pricing.FreeDeliveryThreshold)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DELIVERY_FREE_THRESHOLD", "999.50")
	t.Setenv("PAYMENT_LATENCY", "10ms")
	t.Setenv("LOW_STOCK_THRESHOLD", "not-a-number")
	t.Setenv("DATABASE_LOCK_NOWAIT", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Store.Backend != BackendPostgres {
		t.Errorf("Expected postgres backend, got %s", cfg.Store.Backend)
	}
	if !cfg.Pricing.FreeDeliveryThreshold.Equal(decimal.RequireFromString("999.50")) {
		t.Errorf("Expected threshold 999.50, got %s", cfg.Pricing.FreeDeliveryThreshold)
	}
	if cfg.Payments.Latency != 10*time.Millisecond {
		t.Errorf("Expected latency 10ms, got %s", cfg.Payments.Latency)
	}
	if !cfg.Database.LockNoWait {
		t.Error("Expected NOWAIT locking to be enabled")
	}
	if cfg.Pricing.LowStockThreshold != 5 {
		t.Errorf("Expected fallback low stock threshold 5, got %d", cfg.Pricing.LowStockThreshold)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "mongo")

	if _, err := Load(); err == nil {
		t.Error("Expected error for unknown backend")
	}
}
