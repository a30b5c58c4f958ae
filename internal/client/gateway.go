package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"payment-reconciliation/internal/config"
	"payment-reconciliation/internal/model"

	"github.com/shopspring/decimal"
)

var ErrInvalidSignature = errors.New("invalid notification signature")

// GatewayClient is the payment provider capability used by the services.
// One instance is built at start-up and handed to every consumer.
type GatewayClient interface {
	Name() string
	CreateCharge(ctx context.Context, reference string, amount decimal.Decimal, subject string) (*model.Charge, error)
	// Verify authenticates a raw callback. It returns an error wrapping
	// ErrInvalidSignature when the payload is not from the gateway.
	Verify(ctx context.Context, headers http.Header, body []byte) (*model.Notification, error)
	// Refund only returns an error when the outcome is unknown. A refusal by
	// the gateway is reported through RefundResult.SubCode.
	Refund(ctx context.Context, req model.RefundRequest) (*model.RefundResult, error)
	Acknowledge(ctx context.Context, n *model.Notification) (*model.Ack, error)
}

func NewGatewayClient(cfg *config.Config) (GatewayClient, error) {
	switch cfg.Gateway.Provider {
	case "paypal":
		return NewPaypalClient(&cfg.Paypal, cfg.BaseURL, cfg.Gateway.Currency), nil
	case "braintree":
		return NewBraintreeClient(&cfg.BrainTree), nil
	default:
		return nil, fmt.Errorf("unsupported gateway provider %q", cfg.Gateway.Provider)
	}
}
