package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"payment-reconciliation/internal/config"
	"payment-reconciliation/internal/model"

	"github.com/braintree-go/braintree-go"
	"github.com/shopspring/decimal"
)

const braintreeKindTransactionSettled = "transaction_settled"

// --- IMPLEMENTATION ---

type braintreeClientImpl struct {
	gateway *braintree.Braintree
}

// NewBraintreeClient initializes the Braintree SDK gateway
func NewBraintreeClient(cfg *config.Braintree) GatewayClient {
	env := braintree.Sandbox
	if cfg.Environment == "production" {
		env = braintree.Production
	}

	gateway := braintree.New(
		env,
		cfg.MerchantID,
		cfg.PublicKey,
		cfg.PrivateKey,
	)

	return &braintreeClientImpl{
		gateway: gateway,
	}
}

// --- METHODS ---

func (c *braintreeClientImpl) Name() string {
	return "braintree"
}

// CreateCharge hands the drop-in UI a client token. The sale itself is
// submitted by the front-end with the reference as its order id.
func (c *braintreeClientImpl) CreateCharge(ctx context.Context, reference string, amount decimal.Decimal, subject string) (*model.Charge, error) {
	token, err := c.gateway.ClientToken().Generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate braintree client token: %w", err)
	}
	return &model.Charge{
		Reference:   reference,
		Amount:      amount,
		ClientToken: token,
	}, nil
}

// Verify parses a form-encoded webhook (bt_signature, bt_payload). Parse
// checks the signature against our public key.
func (c *braintreeClientImpl) Verify(ctx context.Context, headers http.Header, body []byte) (*model.Notification, error) {
	form, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse webhook form: %v", ErrInvalidSignature, err)
	}
	signature, payload := form.Get("bt_signature"), form.Get("bt_payload")
	if signature == "" || payload == "" {
		return nil, fmt.Errorf("%w: missing bt_signature or bt_payload", ErrInvalidSignature)
	}

	notification, err := c.gateway.WebhookNotification().Parse(signature, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	n := &model.Notification{
		Gateway: c.Name(),
		Kind:    model.NotificationKindOther,
		Raw:     body,
	}
	if notification.Subject != nil && notification.Subject.Transaction != nil {
		tx := notification.Subject.Transaction
		n.ClientReference = tx.OrderId
		n.TransactionID = tx.Id
		n.Amount = fromBraintreeDecimal(tx.Amount)
		n.EventID = fmt.Sprintf("%s:%s", notification.Kind, tx.Id)
		if notification.Kind == braintreeKindTransactionSettled {
			n.Kind = model.NotificationKindPaymentSucceeded
		}
	} else {
		n.EventID = fmt.Sprintf("%s:%d", notification.Kind, notification.Timestamp.UnixNano())
	}
	return n, nil
}

func (c *braintreeClientImpl) Refund(ctx context.Context, req model.RefundRequest) (*model.RefundResult, error) {
	tx, err := c.gateway.Transaction().Refund(ctx, req.PaymentNo, toBraintreeDecimal(req.Amount))
	if err != nil {
		var btErr *braintree.BraintreeError
		if errors.As(err, &btErr) {
			// validation / processor refusal: a recorded failure, not an unknown outcome
			return &model.RefundResult{SubCode: btErr.Error()}, nil
		}
		return nil, fmt.Errorf("braintree refund: %w", err)
	}

	if tx.Status == braintree.TransactionStatusProcessorDeclined {
		return &model.RefundResult{SubCode: string(tx.Status), GatewayID: tx.Id}, nil
	}
	return &model.RefundResult{GatewayID: tx.Id}, nil
}

func (c *braintreeClientImpl) Acknowledge(ctx context.Context, n *model.Notification) (*model.Ack, error) {
	return model.OKAck(), nil
}

// Braintree expects NewDecimal(unscaled, scale). For 2 decimal places (like USD):
// "50.00" * 100 = 5000 -> braintree.NewDecimal(5000, 2)
func toBraintreeDecimal(amount decimal.Decimal) *braintree.Decimal {
	cents := amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	return braintree.NewDecimal(cents, 2)
}

func fromBraintreeDecimal(d *braintree.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return decimal.New(d.Unscaled, -int32(d.Scale))
}
