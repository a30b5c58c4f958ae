package handler

import (
	"errors"
	"io"
	"net/http"
	"payment-reconciliation/internal/dto"
	"payment-reconciliation/internal/lock"
	"payment-reconciliation/internal/logger"
	"payment-reconciliation/internal/middleware"
	"payment-reconciliation/internal/model"
	"payment-reconciliation/internal/service"
	"strconv"

	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	reconciliationService service.ReconciliationService
	paymentService        service.PaymentService
	refundService         service.RefundService
	l                     logger.LoggerV1
}

func NewPaymentHandler(
	reconciliationService service.ReconciliationService,
	paymentService service.PaymentService,
	refundService service.RefundService,
	l logger.LoggerV1,
) *PaymentHandler {
	return &PaymentHandler{
		reconciliationService: reconciliationService,
		paymentService:        paymentService,
		refundService:         refundService,
		l:                     l,
	}
}

// Notify receives gateway callbacks. Anything but a written ack makes the
// gateway redeliver.
func (h *PaymentHandler) Notify(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read body")
	}

	ack, err := h.reconciliationService.HandlePaymentNotification(ctx, c.Request().Header, body)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			h.l.Warn("rejected notification", logger.Error(err))
			return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
		}
		h.l.Error("notification not processed", logger.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "notification not processed")
	}

	return writeAck(c, ack)
}

func (h *PaymentHandler) PayOrder(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	charge, err := h.paymentService.PayOrder(ctx, middleware.UserID(c), uint(orderID))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ChargeResponse{Charge: charge})
}

func (h *PaymentHandler) PayInstallment(c echo.Context) error {
	ctx := c.Request().Context()

	planNo := c.Param("no")
	if planNo == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing installment plan no")
	}

	charge, err := h.paymentService.PayInstallment(ctx, middleware.UserID(c), planNo)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ChargeResponse{Charge: charge})
}

func (h *PaymentHandler) Refund(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	result, err := h.refundService.Refund(ctx, uint(orderID))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.RefundResponse{
		OrderNo:             result.OrderNo,
		RefundNo:            result.RefundNo,
		Status:              string(result.Status),
		FailedCode:          result.FailedCode,
		GatewayRefundFailed: result.GatewayRefundFailed(),
	})
}

// HandleSuccess is the PayPal return url after the buyer approves.
func (h *PaymentHandler) HandleSuccess(c echo.Context) error {
	ctx := c.Request().Context()

	token := c.QueryParam("token")
	if token == "" {
		return c.String(http.StatusBadRequest, "missing order token")
	}

	status, err := h.paymentService.CaptureApproved(ctx, token)
	if errors.Is(err, service.ErrCaptureUnsupported) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.CaptureResponse{Token: token, Status: status})
}

func writeAck(c echo.Context, ack *model.Ack) error {
	status := ack.Status
	if status == 0 {
		status = http.StatusOK
	}
	if ack.Body == "" {
		return c.NoContent(status)
	}

	contentType := ack.ContentType
	if contentType == "" {
		contentType = echo.MIMETextPlainCharsetUTF8
	}
	return c.Blob(status, contentType, []byte(ack.Body))
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, lock.ErrLockBusy):
		return echo.NewHTTPError(http.StatusConflict, "order is being processed, retry later")
	default:
		return err
	}
}
