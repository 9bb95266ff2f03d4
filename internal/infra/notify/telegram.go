package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"usdt-storefront/internal/config"
	"usdt-storefront/internal/domain/model"
	"usdt-storefront/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.NotificationSink = (*TelegramSink)(nil)

// TelegramSink posts confirmed-order summaries to a fixed chat. Delivery is
// best-effort; the settlement engine never waits on or retries it.
type TelegramSink struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *zerolog.Logger
}

func NewTelegramSink(cfg config.TelegramConfig, logger *zerolog.Logger) (*TelegramSink, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	sinkLog := logger.With().Str("component", "TelegramSink").Logger()
	return &TelegramSink{bot: bot, chatID: cfg.ChatID, log: &sinkLog}, nil
}

func (s *TelegramSink) OrderConfirmed(ctx context.Context, ev adapter.OrderConfirmedEvent) error {
	msg := tgbotapi.NewMessage(s.chatID, formatOrderMessage(ev))
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

func formatOrderMessage(ev adapter.OrderConfirmedEvent) string {
	var b strings.Builder
	trial := ev.Order.Status == model.OrderStatusTrialGranted

	if trial {
		b.WriteString("NEW TRIAL ACTIVATED\n\n")
	} else {
		b.WriteString("NEW ORDER PAID\n\n")
	}
	fmt.Fprintf(&b, "Product: %s\n", ev.Product.Name)
	if trial {
		fmt.Fprintf(&b, "Type: trial (%d days)\n", ev.Product.TrialDays)
	} else {
		fmt.Fprintf(&b, "Amount: %s USDT", ev.Order.Amount.String())
		if ev.Order.DiscountAmount.IsPositive() {
			fmt.Fprintf(&b, " (discount: -%s USDT)", ev.Order.DiscountAmount.String())
		}
		b.WriteString("\n")
		if ev.Promo != nil {
			fmt.Fprintf(&b, "Promo: %s\n", ev.Promo.Code)
		}
	}
	fmt.Fprintf(&b, "User: %s (%s)\n", ev.User.Username, ev.User.Email)
	fmt.Fprintf(&b, "Order: %s\n", ev.Order.Code)
	if !trial && ev.Order.TxRef != nil {
		fmt.Fprintf(&b, "Tx: %s\n", *ev.Order.TxRef)
	}
	fmt.Fprintf(&b, "Quantity: %d\n", ev.Order.Quantity)
	fmt.Fprintf(&b, "Date: %s\n", ev.Order.CreatedAt.Format("2006-01-02 15:04:05"))

	// The buyer payload is opaque JSON; render top-level string fields only.
	if len(ev.FormData) > 0 {
		var form map[string]interface{}
		if err := json.Unmarshal(ev.FormData, &form); err == nil && len(form) > 0 {
			b.WriteString("\nBuyer form:\n")
			for k, v := range form {
				if s, ok := v.(string); ok {
					fmt.Fprintf(&b, "%s: %s\n", k, s)
				}
			}
		}
	}
	return b.String()
}
