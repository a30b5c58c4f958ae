package dto

import "payment-reconciliation/internal/model"

type ChargeResponse struct {
	Charge *model.Charge `json:"charge"`
}

type RefundResponse struct {
	OrderNo             string `json:"order_no"`
	RefundNo            string `json:"refund_no"`
	Status              string `json:"status"`
	FailedCode          string `json:"failed_code,omitempty"`
	GatewayRefundFailed bool   `json:"gateway_refund_failed"`
}

type CaptureResponse struct {
	Token  string `json:"token"`
	Status string `json:"status"`
}
