package ledger

import (
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/biovault-exchange/biovault-backend/pkg/errors"
)

func testConfig() Config {
	return Config{
		Admin:              uuid.New(),
		CommissionRate:     5,
		RefundRate:         50,
		UnitPrice:          100,
		GlobalCeiling:      1_000_000,
		IndividualCapacity: 5000,
	}
}

func newTestCore(t *testing.T) *Core {
	t.Helper()
	core, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return core
}

func wantCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	if !pkgerrors.HasCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestNewRejectsOutOfRangeConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"commission rate above 30", func(c *Config) { c.CommissionRate = 31 }},
		{"refund rate above 100", func(c *Config) { c.RefundRate = 101 }},
		{"zero unit price", func(c *Config) { c.UnitPrice = 0 }},
		{"zero ceiling", func(c *Config) { c.GlobalCeiling = 0 }},
		{"zero individual capacity", func(c *Config) { c.IndividualCapacity = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if _, err := New(cfg); !pkgerrors.HasCode(err, pkgerrors.CodeBoundaryViolation) {
				t.Fatalf("expected boundary violation, got %v", err)
			}
		})
	}
}

func TestNewRequiresAdmin(t *testing.T) {
	cfg := testConfig()
	cfg.Admin = uuid.Nil
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for nil administrator")
	}
}

func TestBalanceDefaultsToZero(t *testing.T) {
	core := newTestCore(t)
	units, currency := core.Balance(uuid.New())
	if units != 0 || currency != 0 {
		t.Fatalf("expected zero balances, got %d units %d currency", units, currency)
	}
}
