package event

import (
	"context"
	"payment-reconciliation/internal/logger"
)

// LogSink is used when no broker is configured.
type LogSink struct {
	l logger.LoggerV1
}

func NewLogSink(l logger.LoggerV1) *LogSink {
	return &LogSink{l: l}
}

func (s *LogSink) PublishPaymentSucceeded(ctx context.Context, evt PaymentSucceeded) error {
	s.l.Info("payment succeeded",
		logger.String("order_no", evt.OrderNo),
		logger.String("payment_method", evt.PaymentMethod),
		logger.String("payment_no", evt.PaymentNo),
		logger.String("amount", evt.Amount.String()))
	return nil
}

func (s *LogSink) PublishRefundSucceeded(ctx context.Context, evt RefundSucceeded) error {
	s.l.Info("refund succeeded",
		logger.String("order_no", evt.OrderNo),
		logger.String("refund_no", evt.RefundNo),
		logger.String("amount", evt.Amount.String()))
	return nil
}
