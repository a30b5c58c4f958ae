package service

import (
	"context"
	"errors"
	"payment-reconciliation/internal/lock"
	"payment-reconciliation/internal/logger"
	"payment-reconciliation/internal/model"
	"payment-reconciliation/internal/repository"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRefundFixture(t *testing.T) (RefundService, *gatewayMock, *recordingSink, repository.OrderRepository, *model.Order) {
	t.Helper()
	db := newTestDB(t)
	gw := &gatewayMock{}
	sink := &recordingSink{}
	orderRepo := repository.NewOrderRepository(db)

	order := seedOrder(t, db, "ORD1", "u1")
	_, err := orderRepo.MarkPaid(context.Background(), db, order.ID, time.Now(), "paypal", "TX1")
	require.NoError(t, err)

	svc := NewRefundService(db, gw, lock.NopLocker{}, orderRepo, sink, "USD", logger.NewNoOpLogger())
	return svc, gw, sink, orderRepo, order
}

func refundFor(orderNo string) interface{} {
	return mock.MatchedBy(func(req model.RefundRequest) bool {
		return req.OrderNo == orderNo &&
			req.PaymentNo == "TX1" &&
			req.Currency == "USD" &&
			req.Amount.Equal(dec("90")) &&
			strings.HasPrefix(req.RefundNo, "refund_")
	})
}

func TestRefund_GatewayRefusalIsRecorded(t *testing.T) {
	ctx := context.Background()
	svc, gw, sink, orderRepo, order := newRefundFixture(t)
	gw.On("Refund", mock.Anything, refundFor("ORD1")).
		Return(&model.RefundResult{SubCode: "ACQ.TRADE_HAS_CLOSE"}, nil).Once()

	result, err := svc.Refund(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, result.GatewayRefundFailed())
	assert.Equal(t, "ACQ.TRADE_HAS_CLOSE", result.FailedCode)

	stored, err := orderRepo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RefundStatusFailed, stored.RefundStatus)
	assert.Equal(t, result.RefundNo, stored.RefundNo)
	assert.Equal(t, "web", stored.Extra["channel"])
	assert.Equal(t, "ACQ.TRADE_HAS_CLOSE", stored.Extra[model.ExtraRefundFailedCode])
	assert.Empty(t, sink.refunds)
}

func TestRefund_SuccessPublishesOnce(t *testing.T) {
	ctx := context.Background()
	svc, gw, sink, orderRepo, order := newRefundFixture(t)
	gw.On("Refund", mock.Anything, refundFor("ORD1")).
		Return(&model.RefundResult{GatewayID: "R-1"}, nil).Once()

	result, err := svc.Refund(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, result.GatewayRefundFailed())
	assert.Equal(t, model.RefundStatusSuccess, result.Status)

	stored, err := orderRepo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RefundStatusSuccess, stored.RefundStatus)
	assert.Equal(t, result.RefundNo, stored.RefundNo)

	require.Len(t, sink.refunds, 1)
	assert.Equal(t, "ORD1", sink.refunds[0].OrderNo)
	assert.Equal(t, result.RefundNo, sink.refunds[0].RefundNo)

	_, err = svc.Refund(ctx, order.ID)
	assert.True(t, errors.Is(err, ErrAlreadyRefunded))
	assert.True(t, errors.Is(err, ErrForbidden))
	gw.AssertNumberOfCalls(t, "Refund", 1)
	assert.Len(t, sink.refunds, 1)
}

func TestRefund_RetryAfterFailure(t *testing.T) {
	ctx := context.Background()
	svc, gw, sink, orderRepo, order := newRefundFixture(t)
	gw.On("Refund", mock.Anything, refundFor("ORD1")).
		Return(&model.RefundResult{SubCode: "INSUFFICIENT_FUNDS"}, nil).Once()
	gw.On("Refund", mock.Anything, refundFor("ORD1")).
		Return(&model.RefundResult{}, nil).Once()

	first, err := svc.Refund(ctx, order.ID)
	require.NoError(t, err)
	second, err := svc.Refund(ctx, order.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefundNo, second.RefundNo)

	stored, err := orderRepo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RefundStatusSuccess, stored.RefundStatus)
	assert.Equal(t, second.RefundNo, stored.RefundNo)
	assert.Len(t, sink.refunds, 1)
}

func TestRefund_TransportErrorRollsBack(t *testing.T) {
	ctx := context.Background()
	svc, gw, sink, orderRepo, order := newRefundFixture(t)
	gw.On("Refund", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

	result, err := svc.Refund(ctx, order.ID)
	assert.Nil(t, result)
	assert.Error(t, err)

	stored, err := orderRepo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RefundStatusNone, stored.RefundStatus)
	assert.Empty(t, stored.RefundNo)
	assert.Empty(t, sink.refunds)
}

func TestRefund_OrderNotFound(t *testing.T) {
	svc, gw, _, _, _ := newRefundFixture(t)

	_, err := svc.Refund(context.Background(), 404)
	assert.True(t, errors.Is(err, ErrOrderNotFound))
	gw.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything)
}

func TestRefund_InstallmentOrderIsForbidden(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	gw := &gatewayMock{}
	sink := &recordingSink{}
	orderRepo := repository.NewOrderRepository(db)

	order := seedOrder(t, db, "ORD1", "u1")
	plan := seedPlan(t, db, order, 3)
	_, err := orderRepo.MarkPaid(ctx, db, order.ID, time.Now(), model.PaymentMethodInstallment, plan.No)
	require.NoError(t, err)

	svc := NewRefundService(db, gw, lock.NopLocker{}, orderRepo, sink, "USD", logger.NewNoOpLogger())
	result, err := svc.Refund(ctx, order.ID)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, ErrInstallmentRefund))
	assert.True(t, errors.Is(err, ErrForbidden))
	gw.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything)

	stored, err := orderRepo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RefundStatusNone, stored.RefundStatus)
	assert.Empty(t, stored.RefundNo)
	assert.Empty(t, sink.refunds)
}
