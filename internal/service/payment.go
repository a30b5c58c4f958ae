package service

import (
	"context"
	"errors"
	"fmt"
	"payment-reconciliation/internal/client"
	"payment-reconciliation/internal/logger"
	"payment-reconciliation/internal/model"
	"payment-reconciliation/internal/repository"
)

var ErrCaptureUnsupported = errors.New("gateway does not support order capture")

// PaymentService initiates charges. The resulting payment is settled later
// by ReconciliationService when the gateway notifies.
type PaymentService interface {
	PayOrder(ctx context.Context, callerID string, orderID uint) (*model.Charge, error)
	PayInstallment(ctx context.Context, callerID string, planNo string) (*model.Charge, error)
	// CaptureApproved finishes a PayPal checkout after the buyer approved it.
	CaptureApproved(ctx context.Context, token string) (string, error)
}

type paymentServiceImpl struct {
	gateway         client.GatewayClient
	orderRepo       repository.OrderRepository
	installmentRepo repository.InstallmentRepository
	l               logger.LoggerV1
}

func NewPaymentService(
	gateway client.GatewayClient,
	orderRepo repository.OrderRepository,
	installmentRepo repository.InstallmentRepository,
	l logger.LoggerV1,
) PaymentService {
	return &paymentServiceImpl{
		gateway:         gateway,
		orderRepo:       orderRepo,
		installmentRepo: installmentRepo,
		l:               l,
	}
}

func (s *paymentServiceImpl) PayOrder(ctx context.Context, callerID string, orderID uint) (*model.Charge, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: order does not exist", ErrForbidden)
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}

	switch {
	case order.UserID != callerID:
		return nil, fmt.Errorf("%w: order does not belong to you", ErrForbidden)
	case order.IsPaid():
		return nil, fmt.Errorf("%w: order is already paid", ErrForbidden)
	case order.Closed:
		return nil, fmt.Errorf("%w: order is closed", ErrForbidden)
	}

	charge, err := s.gateway.CreateCharge(ctx, order.No, order.TotalAmount, "payment for order "+order.No)
	if err != nil {
		return nil, fmt.Errorf("create charge: %w", err)
	}
	return charge, nil
}

func (s *paymentServiceImpl) PayInstallment(ctx context.Context, callerID string, planNo string) (*model.Charge, error) {
	plan, err := s.installmentRepo.FindByNo(ctx, planNo)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: installment plan does not exist", ErrForbidden)
	}
	if err != nil {
		return nil, fmt.Errorf("find installment plan: %w", err)
	}

	switch {
	case plan.UserID != callerID:
		return nil, fmt.Errorf("%w: installment plan does not belong to you", ErrForbidden)
	case plan.Order.Closed:
		return nil, fmt.Errorf("%w: order is closed", ErrForbidden)
	case plan.Status == model.InstallmentStatusFinished:
		return nil, fmt.Errorf("%w: installment plan is already settled", ErrForbidden)
	}

	item, err := s.installmentRepo.FindNextUnpaidItem(ctx, plan.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: installment plan is already settled", ErrForbidden)
	}
	if err != nil {
		return nil, fmt.Errorf("find next installment: %w", err)
	}

	reference := InstallmentReference(plan.No, item.Sequence)
	subject := fmt.Sprintf("installment %d/%d of order %s", item.Sequence+1, plan.Count, plan.Order.No)
	charge, err := s.gateway.CreateCharge(ctx, reference, item.Total, subject)
	if err != nil {
		return nil, fmt.Errorf("create charge: %w", err)
	}
	return charge, nil
}

func (s *paymentServiceImpl) CaptureApproved(ctx context.Context, token string) (string, error) {
	paypal, ok := s.gateway.(client.PaypalClient)
	if !ok {
		return "", ErrCaptureUnsupported
	}

	resp, err := paypal.CaptureOrder(ctx, token)
	if err != nil {
		return "", fmt.Errorf("paypal api capture order: %w", err)
	}
	s.l.Info("paypal order captured",
		logger.String("paypal_order_id", resp.ID),
		logger.String("status", resp.Status))
	return resp.Status, nil
}
