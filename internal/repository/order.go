package repository

import (
	"context"
	"payment-reconciliation/internal/model"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	FindByNo(ctx context.Context, no string) (*model.Order, error)
	FindByID(ctx context.Context, id uint) (*model.Order, error)
	// ForUpdate variants lock the row until tx ends.
	FindByNoForUpdate(ctx context.Context, tx *gorm.DB, no string) (*model.Order, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*model.Order, error)
	// MarkPaid reports false when the order was already paid.
	MarkPaid(ctx context.Context, tx *gorm.DB, id uint, paidAt time.Time, method, paymentNo string) (bool, error)
	MarkRefundResult(ctx context.Context, tx *gorm.DB, id uint, status model.RefundStatus, refundNo string, extra datatypes.JSONMap) error
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	if order.RefundStatus == "" {
		order.RefundStatus = model.RefundStatusNone
	}
	return tx.WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) FindByNo(ctx context.Context, no string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("no = ?", no).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindByID(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindByNoForUpdate(ctx context.Context, tx *gorm.DB, no string) (*model.Order, error) {
	var order model.Order
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("no = ?", no).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*model.Order, error) {
	var order model.Order
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) MarkPaid(ctx context.Context, tx *gorm.DB, id uint, paidAt time.Time, method, paymentNo string) (bool, error) {
	// paid_at IS NULL keeps the write idempotent even without the row lock
	result := tx.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND paid_at IS NULL", id).
		Updates(map[string]interface{}{
			"paid_at":        paidAt,
			"payment_method": method,
			"payment_no":     paymentNo,
			"updated_at":     time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *orderRepoImpl) MarkRefundResult(ctx context.Context, tx *gorm.DB, id uint, status model.RefundStatus, refundNo string, extra datatypes.JSONMap) error {
	updates := map[string]interface{}{
		"refund_no":     refundNo,
		"refund_status": status,
		"updated_at":    time.Now(),
	}
	if extra != nil {
		updates["extra"] = extra
	}

	result := tx.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND refund_status <> ?", id, model.RefundStatusSuccess).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
