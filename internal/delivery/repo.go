package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
	"github.com/sahilkhatri/pharmakart-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds the delivery repository on the given database handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) FindByOrderGroupID(ctx context.Context, groupID uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	if err := r.db.WithContext(ctx).First(&delivery, "order_group_id = ?", groupID).Error; err != nil {
		return nil, err
	}
	return &delivery, nil
}

// ClaimGuarded assigns the partner only if nobody holds the delivery yet.
// Concurrent claimers race on the partner_id IS NULL guard; exactly one
// UPDATE matches.
func (r *repository) ClaimGuarded(ctx context.Context, deliveryID, partnerID uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("id = ? AND partner_id IS NULL", deliveryID).
		Updates(map[string]any{
			"partner_id":  partnerID,
			"status":      enums.DeliveryStatusAssigned,
			"assigned_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) UpdateDelivery(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ListClaimable(ctx context.Context, params pagination.Params) (*ClaimableList, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Table("deliveries").
		Select(`deliveries.id AS delivery_id,
			order_groups.order_ref,
			order_groups.pharmacy_id,
			order_groups.delivery_address,
			deliveries.pickup_address,
			deliveries.distance,
			deliveries.estimated_time,
			order_groups.total_amount,
			deliveries.created_at`).
		Joins("JOIN order_groups ON order_groups.id = deliveries.order_group_id").
		Where("deliveries.partner_id IS NULL").
		Where("deliveries.status = ?", enums.DeliveryStatusPending).
		Where("order_groups.status = ?", enums.OrderStatusPharmacyAccepted).
		Order("deliveries.created_at DESC, deliveries.id DESC").
		Limit(limit + 1)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(deliveries.created_at < ?) OR (deliveries.created_at = ? AND deliveries.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []ClaimableDelivery
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	list := &ClaimableList{}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.DeliveryID})
	}
	list.Deliveries = rows
	return list, nil
}
