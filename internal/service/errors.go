package service

import (
	"errors"
	"fmt"
	"payment-reconciliation/internal/client"
)

var (
	ErrInvalidSignature  = client.ErrInvalidSignature
	ErrForbidden         = errors.New("forbidden")
	ErrOrderNotFound     = errors.New("order not found")
	ErrAlreadyRefunded   = fmt.Errorf("%w: order already refunded", ErrForbidden)
	ErrInstallmentRefund = fmt.Errorf("%w: order was settled through an installment plan", ErrForbidden)
)
