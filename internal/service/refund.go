package service

import (
	"context"
	"errors"
	"fmt"
	"payment-reconciliation/internal/client"
	"payment-reconciliation/internal/event"
	"payment-reconciliation/internal/lock"
	"payment-reconciliation/internal/logger"
	"payment-reconciliation/internal/model"
	"payment-reconciliation/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RefundResult struct {
	OrderNo    string             `json:"order_no"`
	RefundNo   string             `json:"refund_no"`
	Status     model.RefundStatus `json:"status"`
	FailedCode string             `json:"failed_code,omitempty"`
}

// GatewayRefundFailed reports a refusal recorded on the order. It is not an
// error: the attempt is persisted and left for an operator to retry.
func (r *RefundResult) GatewayRefundFailed() bool {
	return r.Status == model.RefundStatusFailed
}

type RefundService interface {
	Refund(ctx context.Context, orderID uint) (*RefundResult, error)
}

type refundServiceImpl struct {
	db        *gorm.DB
	gateway   client.GatewayClient
	locker    lock.Locker
	orderRepo repository.OrderRepository
	sink      event.Sink
	currency  string
	l         logger.LoggerV1
}

func NewRefundService(
	db *gorm.DB,
	gateway client.GatewayClient,
	locker lock.Locker,
	orderRepo repository.OrderRepository,
	sink event.Sink,
	currency string,
	l logger.LoggerV1,
) RefundService {
	return &refundServiceImpl{
		db:        db,
		gateway:   gateway,
		locker:    locker,
		orderRepo: orderRepo,
		sink:      sink,
		currency:  currency,
		l:         l,
	}
}

func (s *refundServiceImpl) Refund(ctx context.Context, orderID uint) (*RefundResult, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}

	unlock, err := s.locker.Lock(ctx, "order:"+order.No)
	if err != nil {
		return nil, fmt.Errorf("lock order %s: %w", order.No, err)
	}
	defer unlock()

	var (
		result    *RefundResult
		succeeded *event.RefundSucceeded
	)
	// the row stays locked across the gateway call so a concurrent refund
	// sees the recorded outcome
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.FindByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			return fmt.Errorf("lock order row: %w", err)
		}
		if order.RefundStatus == model.RefundStatusSuccess {
			return ErrAlreadyRefunded
		}
		// PaymentNo holds the plan no here, there is no single capture to refund
		if order.PaymentMethod == model.PaymentMethodInstallment {
			return ErrInstallmentRefund
		}

		currency := order.Currency
		if currency == "" {
			currency = s.currency
		}
		refundNo := "refund_" + uuid.NewString()

		res, err := s.gateway.Refund(ctx, model.RefundRequest{
			OrderNo:   order.No,
			PaymentNo: order.PaymentNo,
			Amount:    order.TotalAmount,
			Currency:  currency,
			RefundNo:  refundNo,
		})
		if err != nil {
			return fmt.Errorf("gateway refund: %w", err)
		}

		if res.Failed() {
			extra := model.MergeExtra(order.Extra, map[string]any{
				model.ExtraRefundFailedCode: res.SubCode,
			})
			if err := s.orderRepo.MarkRefundResult(ctx, tx, order.ID, model.RefundStatusFailed, refundNo, extra); err != nil {
				return fmt.Errorf("record refund failure: %w", err)
			}
			result = &RefundResult{
				OrderNo:    order.No,
				RefundNo:   refundNo,
				Status:     model.RefundStatusFailed,
				FailedCode: res.SubCode,
			}
			return nil
		}

		if err := s.orderRepo.MarkRefundResult(ctx, tx, order.ID, model.RefundStatusSuccess, refundNo, nil); err != nil {
			return fmt.Errorf("record refund success: %w", err)
		}
		result = &RefundResult{
			OrderNo:  order.No,
			RefundNo: refundNo,
			Status:   model.RefundStatusSuccess,
		}
		succeeded = &event.RefundSucceeded{
			OrderID:  order.ID,
			OrderNo:  order.No,
			RefundNo: refundNo,
			Amount:   order.TotalAmount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.GatewayRefundFailed() {
		s.l.Warn("gateway refused refund",
			logger.String("order_no", result.OrderNo),
			logger.String("refund_no", result.RefundNo),
			logger.String("code", result.FailedCode))
		return result, nil
	}

	s.l.Info("order refunded",
		logger.String("order_no", result.OrderNo),
		logger.String("refund_no", result.RefundNo))
	if err := s.sink.PublishRefundSucceeded(ctx, *succeeded); err != nil {
		s.l.Error("publish refund succeeded",
			logger.String("order_no", result.OrderNo),
			logger.Error(err))
	}
	return result, nil
}
