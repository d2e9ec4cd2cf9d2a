package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds the payment repository on the given database handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) FindByGroupID(ctx context.Context, groupID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("order_group_id = ?", groupID).
		Order("created_at ASC").
		Find(&payments).Error
	return payments, err
}

func (r *repository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("gateway_order_id = ?", gatewayOrderID).
		Order("created_at ASC").
		Find(&payments).Error
	return payments, err
}

func (r *repository) SetGatewayOrderID(ctx context.Context, paymentIDs []uuid.UUID, gatewayOrderID string) error {
	if len(paymentIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id IN ?", paymentIDs).
		Update("gateway_order_id", gatewayOrderID).Error
}

func (r *repository) MarkPaid(ctx context.Context, gatewayOrderID, gatewayPaymentID, signature string, paidAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("gateway_order_id = ?", gatewayOrderID).
		Updates(map[string]any{
			"status":             enums.PaymentStatusPaid,
			"gateway_payment_id": gatewayPaymentID,
			"gateway_signature":  signature,
			"paid_at":            paidAt,
		}).Error
}

func (r *repository) MarkFailed(ctx context.Context, gatewayOrderID, gatewayPaymentID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("gateway_order_id = ?", gatewayOrderID).
		Updates(map[string]any{
			"status":             enums.PaymentStatusFailed,
			"gateway_payment_id": gatewayPaymentID,
		}).Error
}
