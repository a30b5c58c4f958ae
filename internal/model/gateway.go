package model

import (
	"net/http"

	"github.com/shopspring/decimal"
)

type NotificationKind string

const (
	NotificationKindPaymentSucceeded NotificationKind = "payment_succeeded"
	NotificationKindOther            NotificationKind = "other"
)

// Notification is a gateway callback whose signature has been verified.
type Notification struct {
	EventID         string
	Gateway         string
	Kind            NotificationKind
	ClientReference string // our order no, or planNo_sequence for installments
	TransactionID   string // gateway side payment id
	Amount          decimal.Decimal
	Raw             []byte
}

// Charge is the artifact a client needs to complete a payment with the gateway.
type Charge struct {
	Reference   string          `json:"reference"`
	Amount      decimal.Decimal `json:"amount"`
	GatewayID   string          `json:"gateway_id,omitempty"`
	ApproveURL  string          `json:"approve_url,omitempty"`
	ClientToken string          `json:"client_token,omitempty"`
}

type RefundRequest struct {
	OrderNo   string
	PaymentNo string
	Amount    decimal.Decimal
	Currency  string
	RefundNo  string
}

// RefundResult carries the gateway's verdict. A non-empty SubCode means the
// gateway refused the refund.
type RefundResult struct {
	SubCode   string
	GatewayID string
}

func (r *RefundResult) Failed() bool {
	return r.SubCode != ""
}

// Ack is the response the gateway expects once a notification is processed.
type Ack struct {
	Status      int
	ContentType string
	Body        string
}

func OKAck() *Ack {
	return &Ack{Status: http.StatusOK}
}
