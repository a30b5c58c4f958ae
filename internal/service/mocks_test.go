package service

import (
	"context"
	"net/http"
	"payment-reconciliation/internal/client"
	"payment-reconciliation/internal/config"
	"payment-reconciliation/internal/event"
	"payment-reconciliation/internal/model"
	"payment-reconciliation/internal/repository"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type gatewayMock struct {
	mock.Mock
}

func (m *gatewayMock) Name() string {
	return "paypal"
}

func (m *gatewayMock) CreateCharge(ctx context.Context, reference string, amount decimal.Decimal, subject string) (*model.Charge, error) {
	args := m.Called(ctx, reference, amount, subject)
	charge, _ := args.Get(0).(*model.Charge)
	return charge, args.Error(1)
}

func (m *gatewayMock) Verify(ctx context.Context, headers http.Header, body []byte) (*model.Notification, error) {
	args := m.Called(ctx, headers, body)
	n, _ := args.Get(0).(*model.Notification)
	return n, args.Error(1)
}

func (m *gatewayMock) Refund(ctx context.Context, req model.RefundRequest) (*model.RefundResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*model.RefundResult)
	return res, args.Error(1)
}

func (m *gatewayMock) Acknowledge(ctx context.Context, n *model.Notification) (*model.Ack, error) {
	args := m.Called(ctx, n)
	ack, _ := args.Get(0).(*model.Ack)
	return ack, args.Error(1)
}

var _ client.GatewayClient = (*gatewayMock)(nil)

type recordingSink struct {
	mu       sync.Mutex
	payments []event.PaymentSucceeded
	refunds  []event.RefundSucceeded
	err      error
}

func (s *recordingSink) PublishPaymentSucceeded(ctx context.Context, evt event.PaymentSucceeded) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments = append(s.payments, evt)
	return s.err
}

func (s *recordingSink) PublishRefundSucceeded(ctx context.Context, evt event.RefundSucceeded) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refunds = append(s.refunds, evt)
	return s.err
}

func (s *recordingSink) paymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := client.InitDBClient(config.Database{Driver: "sqlite", URL: "file::memory:"})
	require.NoError(t, err)
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, no, userID string) *model.Order {
	t.Helper()
	order := &model.Order{
		No:          no,
		UserID:      userID,
		TotalAmount: dec("90.00"),
		Currency:    "USD",
		Extra:       datatypes.JSONMap{"channel": "web"},
	}
	require.NoError(t, repository.NewOrderRepository(db).Create(context.Background(), db, order))
	return order
}

func seedPlan(t *testing.T, db *gorm.DB, order *model.Order, count int) *model.InstallmentPlan {
	t.Helper()
	plan := &model.InstallmentPlan{
		No:      "inst_" + order.No,
		UserID:  order.UserID,
		OrderID: order.ID,
	}
	for i := 0; i < count; i++ {
		plan.Items = append(plan.Items, model.InstallmentItem{
			Sequence: i,
			Total:    dec("30.00"),
		})
	}
	require.NoError(t, repository.NewInstallmentRepository(db).Create(context.Background(), db, plan))
	return plan
}
