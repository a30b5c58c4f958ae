package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type RefundStatus string

const (
	RefundStatusNone    RefundStatus = "none"
	RefundStatusPending RefundStatus = "pending"
	RefundStatusSuccess RefundStatus = "success"
	RefundStatusFailed  RefundStatus = "failed"
)

type InstallmentStatus string

const (
	InstallmentStatusPending  InstallmentStatus = "pending"
	InstallmentStatusRepaying InstallmentStatus = "repaying"
	InstallmentStatusFinished InstallmentStatus = "finished"
)

// PaymentMethodInstallment marks an order settled through an installment plan.
const PaymentMethodInstallment = "installment"

type Order struct {
	ID            uint              `gorm:"primaryKey"`
	No            string            `gorm:"size:64;uniqueIndex;not null"` // business order number
	UserID        string            `gorm:"size:64;index;not null"`
	TotalAmount   decimal.Decimal   `gorm:"type:decimal(12,2);not null"`
	Currency      string            `gorm:"size:8;not null"`
	PaidAt        *time.Time        `gorm:"index"`
	Closed        bool              `gorm:"not null;default:false"`
	PaymentMethod string            `gorm:"size:32"`
	PaymentNo     string            `gorm:"size:128"` // gateway transaction id
	RefundNo      string            `gorm:"size:64"`
	RefundStatus  RefundStatus      `gorm:"size:16;not null;default:none"`
	Extra         datatypes.JSONMap `gorm:"type:json"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (o *Order) IsPaid() bool {
	return o.PaidAt != nil
}

type InstallmentPlan struct {
	ID        uint              `gorm:"primaryKey"`
	No        string            `gorm:"size:64;uniqueIndex;not null"` // prefix_no
	UserID    string            `gorm:"size:64;index;not null"`
	OrderID   uint              `gorm:"uniqueIndex;not null"`
	Order     Order             `gorm:"foreignKey:OrderID"`
	Status    InstallmentStatus `gorm:"size:16;index;not null;default:pending"`
	Count     int               `gorm:"not null"`
	Items     []InstallmentItem `gorm:"foreignKey:InstallmentPlanID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type InstallmentItem struct {
	ID                uint            `gorm:"primaryKey"`
	InstallmentPlanID uint            `gorm:"uniqueIndex:idx_plan_sequence;not null"`
	Sequence          int             `gorm:"uniqueIndex:idx_plan_sequence;not null"` // 0-based
	Total             decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaidAt            *time.Time
	PaymentMethod     string `gorm:"size:32"`
	PaymentNo         string `gorm:"size:128"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (i *InstallmentItem) IsPaid() bool {
	return i.PaidAt != nil
}

type WebhookOutcome string

const (
	WebhookOutcomeApplied   WebhookOutcome = "applied"
	WebhookOutcomeDuplicate WebhookOutcome = "duplicate"
	WebhookOutcomeIgnored   WebhookOutcome = "ignored"
)

// WebhookEvent journals every verified notification the reconciler acknowledged.
type WebhookEvent struct {
	EventID     string         `gorm:"primaryKey;size:128;not null"`
	Gateway     string         `gorm:"size:32;index"`
	Reference   string         `gorm:"size:128;index"`
	Outcome     WebhookOutcome `gorm:"size:16;not null"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}
