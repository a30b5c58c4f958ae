package repository

import (
	"context"
	"payment-reconciliation/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InstallmentRepository interface {
	// Create inserts the plan together with its items.
	Create(ctx context.Context, tx *gorm.DB, plan *model.InstallmentPlan) error
	// FindByNo loads the plan with its order.
	FindByNo(ctx context.Context, no string) (*model.InstallmentPlan, error)
	FindByNoForUpdate(ctx context.Context, tx *gorm.DB, no string) (*model.InstallmentPlan, error)
	FindItemForUpdate(ctx context.Context, tx *gorm.DB, planID uint, sequence int) (*model.InstallmentItem, error)
	// FindNextUnpaidItem returns the unpaid item with the smallest sequence,
	// or ErrNotFound when every item is paid.
	FindNextUnpaidItem(ctx context.Context, planID uint) (*model.InstallmentItem, error)
	MarkItemPaid(ctx context.Context, tx *gorm.DB, itemID uint, paidAt time.Time, method, paymentNo string) (bool, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, planID uint, status model.InstallmentStatus) error
}

type installmentRepoImpl struct {
	db *gorm.DB
}

func NewInstallmentRepository(db *gorm.DB) InstallmentRepository {
	return &installmentRepoImpl{
		db: db,
	}
}

func (r *installmentRepoImpl) Create(ctx context.Context, tx *gorm.DB, plan *model.InstallmentPlan) error {
	if plan.Status == "" {
		plan.Status = model.InstallmentStatusPending
	}
	plan.Count = len(plan.Items)
	return tx.WithContext(ctx).Omit("Order").Create(plan).Error
}

func (r *installmentRepoImpl) FindByNo(ctx context.Context, no string) (*model.InstallmentPlan, error) {
	var plan model.InstallmentPlan
	err := r.db.WithContext(ctx).
		Preload("Order").
		Where("no = ?", no).
		First(&plan).Error

	if err != nil {
		return nil, err
	}

	return &plan, nil
}

func (r *installmentRepoImpl) FindByNoForUpdate(ctx context.Context, tx *gorm.DB, no string) (*model.InstallmentPlan, error) {
	var plan model.InstallmentPlan
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("no = ?", no).
		First(&plan).Error

	if err != nil {
		return nil, err
	}

	return &plan, nil
}

func (r *installmentRepoImpl) FindItemForUpdate(ctx context.Context, tx *gorm.DB, planID uint, sequence int) (*model.InstallmentItem, error) {
	var item model.InstallmentItem
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("installment_plan_id = ? AND sequence = ?", planID, sequence).
		First(&item).Error

	if err != nil {
		return nil, err
	}

	return &item, nil
}

func (r *installmentRepoImpl) FindNextUnpaidItem(ctx context.Context, planID uint) (*model.InstallmentItem, error) {
	var item model.InstallmentItem
	err := r.db.WithContext(ctx).
		Where("installment_plan_id = ? AND paid_at IS NULL", planID).
		Order("sequence").
		First(&item).Error

	if err != nil {
		return nil, err
	}

	return &item, nil
}

func (r *installmentRepoImpl) MarkItemPaid(ctx context.Context, tx *gorm.DB, itemID uint, paidAt time.Time, method, paymentNo string) (bool, error) {
	result := tx.WithContext(ctx).Model(&model.InstallmentItem{}).
		Where("id = ? AND paid_at IS NULL", itemID).
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

func (r *installmentRepoImpl) UpdateStatus(ctx context.Context, tx *gorm.DB, planID uint, status model.InstallmentStatus) error {
	return tx.WithContext(ctx).Model(&model.InstallmentPlan{}).
		Where("id = ?", planID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}
