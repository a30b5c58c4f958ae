package client

import (
	"context"
	"errors"
	"payment-reconciliation/internal/config"
	"testing"

	"github.com/braintree-go/braintree-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBraintreeDecimal(t *testing.T) {
	d := toBraintreeDecimal(decimal.RequireFromString("50.00"))
	assert.Equal(t, int64(5000), d.Unscaled)
	assert.Equal(t, 2, d.Scale)

	back := fromBraintreeDecimal(braintree.NewDecimal(12050, 2))
	assert.True(t, decimal.RequireFromString("120.50").Equal(back))
	assert.True(t, fromBraintreeDecimal(nil).IsZero())
}

func TestBraintreeClient_VerifyRejectsMalformed(t *testing.T) {
	c := NewBraintreeClient(&config.Braintree{MerchantID: "m", PublicKey: "pub", PrivateKey: "priv"})

	_, err := c.Verify(context.Background(), nil, []byte("bt_payload=abc"))
	assert.True(t, errors.Is(err, ErrInvalidSignature))

	_, err = c.Verify(context.Background(), nil, []byte("%zz"))
	assert.True(t, errors.Is(err, ErrInvalidSignature))
}
