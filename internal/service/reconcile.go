package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"payment-reconciliation/internal/client"
	"payment-reconciliation/internal/event"
	"payment-reconciliation/internal/lock"
	"payment-reconciliation/internal/logger"
	"payment-reconciliation/internal/model"
	"payment-reconciliation/internal/repository"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReconciliationService applies verified gateway notifications to orders and
// installment plans. Every transition happens at most once no matter how
// often or in which order the gateway delivers.
type ReconciliationService interface {
	// HandlePaymentNotification returns the acknowledgement to send back.
	// A nil Ack with an error means the gateway must redeliver.
	HandlePaymentNotification(ctx context.Context, headers http.Header, body []byte) (*model.Ack, error)
}

type reconciliationServiceImpl struct {
	db               *gorm.DB
	gateway          client.GatewayClient
	locker           lock.Locker
	orderRepo        repository.OrderRepository
	installmentRepo  repository.InstallmentRepository
	webhookEventRepo repository.WebhookEventRepository
	sink             event.Sink
	l                logger.LoggerV1
	now              func() time.Time
}

func NewReconciliationService(
	db *gorm.DB,
	gateway client.GatewayClient,
	locker lock.Locker,
	orderRepo repository.OrderRepository,
	installmentRepo repository.InstallmentRepository,
	webhookEventRepo repository.WebhookEventRepository,
	sink event.Sink,
	l logger.LoggerV1,
) ReconciliationService {
	return &reconciliationServiceImpl{
		db:               db,
		gateway:          gateway,
		locker:           locker,
		orderRepo:        orderRepo,
		installmentRepo:  installmentRepo,
		webhookEventRepo: webhookEventRepo,
		sink:             sink,
		l:                l,
		now:              time.Now,
	}
}

func (s *reconciliationServiceImpl) HandlePaymentNotification(ctx context.Context, headers http.Header, body []byte) (*model.Ack, error) {
	n, err := s.gateway.Verify(ctx, headers, body)
	if err != nil {
		return nil, fmt.Errorf("verify notification: %w", err)
	}

	if n.Kind != model.NotificationKindPaymentSucceeded {
		s.l.Debug("skip non payment notification",
			logger.String("gateway", n.Gateway),
			logger.String("event_id", n.EventID))
		return s.acknowledge(ctx, n)
	}

	if n.EventID != "" {
		seen, err := s.webhookEventRepo.Exists(ctx, n.EventID)
		if err != nil {
			return nil, fmt.Errorf("check webhook journal: %w", err)
		}
		if seen {
			s.l.Info("notification already processed", logger.String("event_id", n.EventID))
			return s.acknowledge(ctx, n)
		}
	}

	ref, ok := ParseReference(n.ClientReference)
	if !ok {
		s.l.Warn("notification with unknown reference",
			logger.String("event_id", n.EventID),
			logger.String("reference", n.ClientReference))
		if err := s.journal(ctx, s.db, n, model.WebhookOutcomeIgnored); err != nil {
			return nil, err
		}
		return s.acknowledge(ctx, n)
	}

	unlock, err := s.locker.Lock(ctx, ref.lockKey())
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", ref, err)
	}
	defer unlock()

	var (
		outcome model.WebhookOutcome
		events  []event.PaymentSucceeded
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if ref.Installment {
			outcome, events, err = s.applyInstallment(ctx, tx, n, ref)
		} else {
			outcome, events, err = s.applyOrder(ctx, tx, n, ref)
		}
		if err != nil {
			return err
		}
		return s.journal(ctx, tx, n, outcome)
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: %w", ref, err)
	}

	s.l.Info("notification reconciled",
		logger.String("reference", ref.Raw),
		logger.String("event_id", n.EventID),
		logger.String("outcome", string(outcome)))

	for _, evt := range events {
		if err := s.sink.PublishPaymentSucceeded(ctx, evt); err != nil {
			s.l.Error("publish payment succeeded",
				logger.String("order_no", evt.OrderNo),
				logger.Error(err))
		}
	}

	return s.acknowledge(ctx, n)
}

func (s *reconciliationServiceImpl) applyOrder(ctx context.Context, tx *gorm.DB, n *model.Notification, ref Reference) (model.WebhookOutcome, []event.PaymentSucceeded, error) {
	order, err := s.orderRepo.FindByNoForUpdate(ctx, tx, ref.OrderNo)
	if errors.Is(err, repository.ErrNotFound) {
		s.l.Warn("notification for unknown order", logger.String("order_no", ref.OrderNo))
		return model.WebhookOutcomeIgnored, nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("find order: %w", err)
	}
	if order.IsPaid() {
		return model.WebhookOutcomeDuplicate, nil, nil
	}
	s.checkAmount(n, ref, order.TotalAmount)

	paidAt := s.now()
	applied, err := s.orderRepo.MarkPaid(ctx, tx, order.ID, paidAt, n.Gateway, n.TransactionID)
	if err != nil {
		return "", nil, fmt.Errorf("mark order paid: %w", err)
	}
	if !applied {
		return model.WebhookOutcomeDuplicate, nil, nil
	}

	return model.WebhookOutcomeApplied, []event.PaymentSucceeded{{
		OrderID:       order.ID,
		OrderNo:       order.No,
		UserID:        order.UserID,
		Amount:        order.TotalAmount,
		PaymentMethod: n.Gateway,
		PaymentNo:     n.TransactionID,
		PaidAt:        paidAt,
	}}, nil
}

func (s *reconciliationServiceImpl) applyInstallment(ctx context.Context, tx *gorm.DB, n *model.Notification, ref Reference) (model.WebhookOutcome, []event.PaymentSucceeded, error) {
	plan, err := s.installmentRepo.FindByNoForUpdate(ctx, tx, ref.PlanNo)
	if errors.Is(err, repository.ErrNotFound) {
		s.l.Warn("notification for unknown installment plan", logger.String("plan_no", ref.PlanNo))
		return model.WebhookOutcomeIgnored, nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("find installment plan: %w", err)
	}

	item, err := s.installmentRepo.FindItemForUpdate(ctx, tx, plan.ID, ref.Sequence)
	if errors.Is(err, repository.ErrNotFound) {
		s.l.Warn("notification for unknown installment item",
			logger.String("plan_no", ref.PlanNo),
			logger.Int("sequence", ref.Sequence))
		return model.WebhookOutcomeIgnored, nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("find installment item: %w", err)
	}
	if item.IsPaid() {
		return model.WebhookOutcomeDuplicate, nil, nil
	}
	s.checkAmount(n, ref, item.Total)

	// the first installment also settles the order, resolve it before any write
	var order *model.Order
	if ref.Sequence == 0 {
		order, err = s.orderRepo.FindByIDForUpdate(ctx, tx, plan.OrderID)
		if errors.Is(err, repository.ErrNotFound) {
			s.l.Warn("installment plan without order",
				logger.String("plan_no", plan.No),
				logger.Uint("order_id", plan.OrderID))
			return model.WebhookOutcomeIgnored, nil, nil
		}
		if err != nil {
			return "", nil, fmt.Errorf("find plan order: %w", err)
		}
	}

	paidAt := s.now()
	applied, err := s.installmentRepo.MarkItemPaid(ctx, tx, item.ID, paidAt, n.Gateway, n.TransactionID)
	if err != nil {
		return "", nil, fmt.Errorf("mark installment item paid: %w", err)
	}
	if !applied {
		return model.WebhookOutcomeDuplicate, nil, nil
	}

	var events []event.PaymentSucceeded
	status := plan.Status

	if ref.Sequence == 0 {
		if status == model.InstallmentStatusPending {
			status = model.InstallmentStatusRepaying
		}

		if !order.IsPaid() {
			orderPaid, err := s.orderRepo.MarkPaid(ctx, tx, order.ID, paidAt, model.PaymentMethodInstallment, plan.No)
			if err != nil {
				return "", nil, fmt.Errorf("mark plan order paid: %w", err)
			}
			if orderPaid {
				events = append(events, event.PaymentSucceeded{
					OrderID:       order.ID,
					OrderNo:       order.No,
					UserID:        order.UserID,
					Amount:        order.TotalAmount,
					PaymentMethod: model.PaymentMethodInstallment,
					PaymentNo:     plan.No,
					PaidAt:        paidAt,
				})
			}
		}
	}

	if ref.Sequence == plan.Count-1 {
		status = model.InstallmentStatusFinished
	}

	if status != plan.Status {
		if err := s.installmentRepo.UpdateStatus(ctx, tx, plan.ID, status); err != nil {
			return "", nil, fmt.Errorf("update installment plan status: %w", err)
		}
	}

	return model.WebhookOutcomeApplied, events, nil
}

// checkAmount only logs, mismatches are left for an operator.
func (s *reconciliationServiceImpl) checkAmount(n *model.Notification, ref Reference, expected decimal.Decimal) {
	if n.Amount.IsZero() || n.Amount.Equal(expected) {
		return
	}
	s.l.Warn("notification amount mismatch",
		logger.String("reference", ref.Raw),
		logger.String("expected", expected.String()),
		logger.String("received", n.Amount.String()))
}

func (s *reconciliationServiceImpl) journal(ctx context.Context, tx *gorm.DB, n *model.Notification, outcome model.WebhookOutcome) error {
	if n.EventID == "" {
		return nil
	}
	err := s.webhookEventRepo.Record(ctx, tx, &model.WebhookEvent{
		EventID:     n.EventID,
		Gateway:     n.Gateway,
		Reference:   n.ClientReference,
		Outcome:     outcome,
		ProcessedAt: s.now(),
	})
	if err != nil {
		return fmt.Errorf("record webhook event: %w", err)
	}
	return nil
}

func (s *reconciliationServiceImpl) acknowledge(ctx context.Context, n *model.Notification) (*model.Ack, error) {
	ack, err := s.gateway.Acknowledge(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("acknowledge notification: %w", err)
	}
	return ack, nil
}
