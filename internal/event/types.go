package event

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Sink publishes domain events. Callers publish only after the state change
// that produced the event has committed.
type Sink interface {
	PublishPaymentSucceeded(ctx context.Context, evt PaymentSucceeded) error
	PublishRefundSucceeded(ctx context.Context, evt RefundSucceeded) error
}

type PaymentSucceeded struct {
	OrderID       uint            `json:"order_id"`
	OrderNo       string          `json:"order_no"`
	UserID        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	PaymentNo     string          `json:"payment_no"`
	PaidAt        time.Time       `json:"paid_at"`
}

type RefundSucceeded struct {
	OrderID  uint            `json:"order_id"`
	OrderNo  string          `json:"order_no"`
	RefundNo string          `json:"refund_no"`
	Amount   decimal.Decimal `json:"amount"`
}
