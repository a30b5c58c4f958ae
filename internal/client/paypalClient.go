package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"payment-reconciliation/internal/config"
	"payment-reconciliation/internal/model"
	"time"

	"github.com/shopspring/decimal"
)

const (
	paypalEventCaptureCompleted = "PAYMENT.CAPTURE.COMPLETED"
	paypalVerificationSuccess   = "SUCCESS"
)

type PaypalClient interface {
	GatewayClient
	CaptureOrder(ctx context.Context, orderID string) (*CaptureOrderResponse, error)
}

type paypalClientImpl struct {
	httpClient         *http.Client
	baseApiURL         string
	paypalClientID     string
	paypalClientSecret string
	webhookID          string
	redirectURL        string
	serviceBaseUrl     string
	currency           string
}

type PaypalCreateOrderResult struct {
	ID     string             `json:"id"`
	Links  []model.PaypalLink `json:"links"`
	Status string             `json:"status"`
}

type CaptureOrderResponse struct {
	ID      string      `json:"id"`
	Status  string      `json:"status"`
	PayerID string      `json:"-"`
	Payer   model.Payer `json:"payer"`
}

type paypalRefundResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func NewPaypalClient(paypalCfg *config.Paypal, serviceBaseUrl, currency string) PaypalClient {
	return &paypalClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL:         paypalCfg.BaseApiURL,
		paypalClientID:     paypalCfg.ClientID,
		paypalClientSecret: paypalCfg.ClientSecret,
		webhookID:          paypalCfg.WebhookID,
		redirectURL:        paypalCfg.RedirectURL,
		serviceBaseUrl:     serviceBaseUrl,
		currency:           currency,
	}
}

func (c *paypalClientImpl) Name() string {
	return "paypal"
}

func (c *paypalClientImpl) getAccessToken(ctx context.Context) (string, error) {
	auth := base64.StdEncoding.EncodeToString(
		[]byte(c.paypalClientID + ":" + c.paypalClientSecret),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseApiURL+"/v1/oauth2/token",
		bytes.NewBufferString("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("paypal oauth error %d: %s", resp.StatusCode, string(b))
	}

	var res struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("decode access token: %w", err)
	}

	return res.AccessToken, nil
}

// doJSON sends an authenticated JSON request and returns the status code and
// raw body. Non-2xx responses are not treated as errors here.
func (c *paypalClientImpl) doJSON(ctx context.Context, method, path string, payload any, headers map[string]string) (int, []byte, error) {
	accessToken, err := c.getAccessToken(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("get paypal access token: %w", err)
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal req payload: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseApiURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("paypal request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read paypal response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func (c *paypalClientImpl) CreateCharge(ctx context.Context, reference string, amount decimal.Decimal, subject string) (*model.Charge, error) {
	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"reference_id": reference,
				"custom_id":    reference,
				"description":  subject,
				"amount": map[string]string{
					"currency_code": c.currency,
					"value":         amount.StringFixed(2),
				},
			},
		},
		"application_context": map[string]string{
			"return_url": c.returnURL(),
			"cancel_url": c.serviceBaseUrl, // if user cancel during paypal payment, return to our homepage
		},
	}

	status, body, err := c.doJSON(ctx, http.MethodPost, "/v2/checkout/orders", payload, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("paypal error %d: %s", status, string(body))
	}

	var result PaypalCreateOrderResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode paypal response: %w", err)
	}

	return &model.Charge{
		Reference:  reference,
		Amount:     amount,
		GatewayID:  result.ID,
		ApproveURL: _extractApproveURL(result.Links),
	}, nil
}

// returnURL is PAYPAL_REDIRECT_URL when set, else our own success handler.
func (c *paypalClientImpl) returnURL() string {
	if c.redirectURL != "" {
		return c.redirectURL
	}
	return fmt.Sprintf("%s/api/paypal/success", c.serviceBaseUrl)
}

func (c *paypalClientImpl) CaptureOrder(ctx context.Context, orderID string) (*CaptureOrderResponse, error) {
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", url.PathEscape(orderID))
	status, body, err := c.doJSON(ctx, http.MethodPost, path, nil, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf(
			"paypal capture failed: status=%d body=%s",
			status,
			string(body),
		)
	}

	var result CaptureOrderResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode capture response: %w", err)
	}
	result.PayerID = result.Payer.PayerID
	return &result, nil
}

func (c *paypalClientImpl) Verify(ctx context.Context, headers http.Header, body []byte) (*model.Notification, error) {
	verified, err := c.verifyWebhookSignature(ctx, headers, body)
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}
	if !verified {
		return nil, ErrInvalidSignature
	}

	var event model.PayPalWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: decode webhook payload: %v", ErrInvalidSignature, err)
	}

	n := &model.Notification{
		EventID:       event.ID,
		Gateway:       c.Name(),
		Kind:          model.NotificationKindOther,
		TransactionID: event.Resource.ID,
		Raw:           body,
	}
	if event.EventType == paypalEventCaptureCompleted {
		n.Kind = model.NotificationKindPaymentSucceeded
	}
	n.ClientReference = event.Resource.CustomID
	if n.ClientReference == "" {
		n.ClientReference = event.Resource.InvoiceID
	}
	if amt, err := decimal.NewFromString(event.Resource.Amount.Value); err == nil {
		n.Amount = amt
	}
	return n, nil
}

func (c *paypalClientImpl) verifyWebhookSignature(ctx context.Context, headers http.Header, body []byte) (bool, error) {
	if !json.Valid(body) {
		return false, nil
	}

	payload := map[string]interface{}{
		"auth_algo":         headers.Get("PAYPAL-AUTH-ALGO"),
		"cert_url":          headers.Get("PAYPAL-CERT-URL"),
		"transmission_id":   headers.Get("PAYPAL-TRANSMISSION-ID"),
		"transmission_sig":  headers.Get("PAYPAL-TRANSMISSION-SIG"),
		"transmission_time": headers.Get("PAYPAL-TRANSMISSION-TIME"),
		"webhook_id":        c.webhookID,
		"webhook_event":     json.RawMessage(body),
	}

	status, respBody, err := c.doJSON(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", payload, nil)
	if err != nil {
		return false, err
	}
	if status < 200 || status >= 300 {
		return false, fmt.Errorf("paypal verify error %d: %s", status, string(respBody))
	}

	var res struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := json.Unmarshal(respBody, &res); err != nil {
		return false, fmt.Errorf("decode verify response: %w", err)
	}
	return res.VerificationStatus == paypalVerificationSuccess, nil
}

func (c *paypalClientImpl) Refund(ctx context.Context, req model.RefundRequest) (*model.RefundResult, error) {
	currency := req.Currency
	if currency == "" {
		currency = c.currency
	}
	payload := map[string]interface{}{
		"amount": map[string]string{
			"currency_code": currency,
			"value":         req.Amount.StringFixed(2),
		},
		"invoice_id":    req.RefundNo,
		"note_to_payer": "Refund for order " + req.OrderNo,
	}
	path := fmt.Sprintf("/v2/payments/captures/%s/refund", url.PathEscape(req.PaymentNo))
	// PayPal-Request-Id makes a retried refund call return the original result
	status, body, err := c.doJSON(ctx, http.MethodPost, path, payload, map[string]string{
		"PayPal-Request-Id": req.RefundNo,
	})
	if err != nil {
		return nil, err
	}

	switch {
	case status >= 200 && status < 300:
		var res paypalRefundResult
		if err := json.Unmarshal(body, &res); err != nil {
			return nil, fmt.Errorf("decode refund response: %w", err)
		}
		if res.Status == "FAILED" || res.Status == "CANCELLED" {
			return &model.RefundResult{SubCode: "REFUND_" + res.Status, GatewayID: res.ID}, nil
		}
		return &model.RefundResult{GatewayID: res.ID}, nil
	case status >= 400 && status < 500:
		var perr model.PaypalError
		if err := json.Unmarshal(body, &perr); err != nil {
			return nil, fmt.Errorf("paypal refund error %d: %s", status, string(body))
		}
		subCode := perr.Name
		if len(perr.Details) > 0 && perr.Details[0].Issue != "" {
			subCode = perr.Details[0].Issue
		}
		if subCode == "" {
			subCode = fmt.Sprintf("HTTP_%d", status)
		}
		return &model.RefundResult{SubCode: subCode}, nil
	default:
		return nil, fmt.Errorf("paypal refund error %d: %s", status, string(body))
	}
}

// Acknowledge: PayPal stops redelivering on any 2xx.
func (c *paypalClientImpl) Acknowledge(ctx context.Context, n *model.Notification) (*model.Ack, error) {
	return model.OKAck(), nil
}

func _extractApproveURL(links []model.PaypalLink) string {
	for _, link := range links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			return link.Href
		}
	}
	return ""
}
