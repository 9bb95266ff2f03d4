//go:build !integration

package usecase_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"usdt-storefront/internal/domain/model"
	"usdt-storefront/internal/domain/ports/adapter"
	"usdt-storefront/internal/usecase"
)

const testWallet = "TXYZabcdefghijklmnopqrstuvwxyz1234"

func transfer(amount string, to string, confirmed bool) adapter.Transfer {
	return adapter.Transfer{
		Amount:    decimal.RequireFromString(amount),
		To:        to,
		Hash:      "hash-" + amount,
		Confirmed: confirmed,
		Timestamp: time.Now(),
	}
}

func pendingOrder(amount string) *model.Order {
	return &model.Order{
		ID:        model.NewID(),
		Code:      model.NewOrderCode("ORD"),
		Amount:    decimal.RequireFromString(amount),
		Status:    model.OrderStatusPending,
		CreatedAt: time.Now(),
	}
}

func TestFindSettlingTransfer(t *testing.T) {
	t.Run("should match an exact amount", func(t *testing.T) {
		order := pendingOrder("100")
		transfers := []adapter.Transfer{transfer("100", testWallet, true)}

		if got := usecase.FindSettlingTransfer(order, testWallet, time.Hour, transfers); got == nil {
			t.Fatal("expected a match, got nil")
		}
	})

	t.Run("should accept a 1 percent underpayment", func(t *testing.T) {
		order := pendingOrder("100")
		transfers := []adapter.Transfer{transfer("99", testWallet, true)}

		if got := usecase.FindSettlingTransfer(order, testWallet, time.Hour, transfers); got == nil {
			t.Fatal("expected 99 to settle a 100 order, got nil")
		}
	})

	t.Run("should reject just below the tolerance", func(t *testing.T) {
		order := pendingOrder("100")
		transfers := []adapter.Transfer{transfer("98.9", testWallet, true)}

		if got := usecase.FindSettlingTransfer(order, testWallet, time.Hour, transfers); got != nil {
			t.Fatalf("expected 98.9 to be rejected for a 100 order, got %s", got.Amount)
		}
	})

	t.Run("should accept overpayment", func(t *testing.T) {
		order := pendingOrder("100")
		transfers := []adapter.Transfer{transfer("150", testWallet, true)}

		if got := usecase.FindSettlingTransfer(order, testWallet, time.Hour, transfers); got == nil {
			t.Fatal("expected overpayment to match, got nil")
		}
	})

	t.Run("should skip unconfirmed transfers", func(t *testing.T) {
		order := pendingOrder("100")
		transfers := []adapter.Transfer{transfer("100", testWallet, false)}

		if got := usecase.FindSettlingTransfer(order, testWallet, time.Hour, transfers); got != nil {
			t.Fatal("expected unconfirmed transfer to be skipped")
		}
	})

	t.Run("should skip transfers to another address", func(t *testing.T) {
		order := pendingOrder("100")
		transfers := []adapter.Transfer{transfer("100", "TanotherWalletAddress000000000000", true)}

		if got := usecase.FindSettlingTransfer(order, testWallet, time.Hour, transfers); got != nil {
			t.Fatal("expected transfer to another wallet to be skipped")
		}
	})

	t.Run("should compare the recipient case-insensitively", func(t *testing.T) {
		order := pendingOrder("100")
		transfers := []adapter.Transfer{transfer("100", "txyzABCDEFGHIJKLMNOPQRSTUVWXYZ1234", true)}

		if got := usecase.FindSettlingTransfer(order, testWallet, time.Hour, transfers); got == nil {
			t.Fatal("expected case-insensitive recipient match")
		}
	})

	t.Run("should return the first qualifying transfer", func(t *testing.T) {
		order := pendingOrder("100")
		transfers := []adapter.Transfer{
			transfer("50", testWallet, true),
			transfer("120", testWallet, true),
			transfer("130", testWallet, true),
		}

		got := usecase.FindSettlingTransfer(order, testWallet, time.Hour, transfers)
		if got == nil {
			t.Fatal("expected a match, got nil")
		}
		if !got.Amount.Equal(decimal.RequireFromString("120")) {
			t.Errorf("expected the first qualifying transfer (120), got %s", got.Amount)
		}
	})

	t.Run("should ignore a transfer that predates the order's window", func(t *testing.T) {
		order := pendingOrder("100")
		tr := transfer("100", testWallet, true)
		tr.Timestamp = order.CreatedAt.Add(-9 * time.Hour)

		if got := usecase.FindSettlingTransfer(order, testWallet, time.Hour, []adapter.Transfer{tr}); got != nil {
			t.Fatalf("expected a transfer from before the window to be ignored, got %s", got.Hash)
		}
	})

	t.Run("should accept a transfer inside the pre-order window", func(t *testing.T) {
		order := pendingOrder("100")
		tr := transfer("100", testWallet, true)
		tr.Timestamp = order.CreatedAt.Add(-30 * time.Minute)

		if got := usecase.FindSettlingTransfer(order, testWallet, time.Hour, []adapter.Transfer{tr}); got == nil {
			t.Fatal("expected a transfer 30m before creation to match with a 1h window")
		}
	})

	t.Run("should match any confirmed transfer for a fully discounted order", func(t *testing.T) {
		order := pendingOrder("0")
		transfers := []adapter.Transfer{transfer("0.000001", testWallet, true)}

		if got := usecase.FindSettlingTransfer(order, testWallet, time.Hour, transfers); got == nil {
			t.Fatal("expected zero-amount order to match any confirmed transfer")
		}
	})
}
