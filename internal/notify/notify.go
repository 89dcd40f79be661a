// Package notify delivers WhatsApp messages to customers. Delivery is
// best effort: callers fire notifications after the database commit and
// only log failures.
package notify

import (
	"context"

	"github.com/shopspring/decimal"
)

// Notifier sends the customer-facing messages the venue emits.
type Notifier interface {
	Welcome(ctx context.Context, name string, mobile string, qrImageURL string, balance decimal.Decimal) error
	Recharge(ctx context.Context, name string, mobile string, amount decimal.Decimal, bonus decimal.Decimal, newBalance decimal.Decimal) error
	SessionStart(ctx context.Context, name string, mobile string, cost decimal.Decimal, guests string) error
	SessionExit(ctx context.Context, name string, mobile string, balance decimal.Decimal) error
	Broadcast(ctx context.Context, mobile string, message string) error
	ResendQR(ctx context.Context, name string, mobile string, qrImageURL string) error
}

// Nop is a Notifier that drops every message. Used when no messaging
// credentials are configured.
type Nop struct{}

func (Nop) Welcome(context.Context, string, string, string, decimal.Decimal) error {
	return nil
}

func (Nop) Recharge(context.Context, string, string, decimal.Decimal, decimal.Decimal, decimal.Decimal) error {
	return nil
}

func (Nop) SessionStart(context.Context, string, string, decimal.Decimal, string) error {
	return nil
}

func (Nop) SessionExit(context.Context, string, string, decimal.Decimal) error {
	return nil
}

func (Nop) Broadcast(context.Context, string, string) error {
	return nil
}

func (Nop) ResendQR(context.Context, string, string, string) error {
	return nil
}
