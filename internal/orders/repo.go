package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
	"github.com/sahilkhatri/pharmakart-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrderGroup(ctx context.Context, group *models.OrderGroup) (*models.OrderGroup, error) {
	if err := r.db.WithContext(ctx).Create(group).Error; err != nil {
		return nil, err
	}
	return group, nil
}

func (r *repository) CreateOrderLineItems(ctx context.Context, items []models.OrderLineItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *repository) CreateDelivery(ctx context.Context, delivery *models.Delivery) (*models.Delivery, error) {
	if err := r.db.WithContext(ctx).Create(delivery).Error; err != nil {
		return nil, err
	}
	return delivery, nil
}

func (r *repository) FindGroupByID(ctx context.Context, id uuid.UUID) (*models.OrderGroup, error) {
	var group models.OrderGroup
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Delivery").
		Preload("Payments").
		First(&group, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *repository) FindPharmacyByID(ctx context.Context, id uuid.UUID) (*models.Pharmacy, error) {
	var pharmacy models.Pharmacy
	if err := r.db.WithContext(ctx).First(&pharmacy, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pharmacy, nil
}

func (r *repository) FindGroupByRef(ctx context.Context, orderRef string) (*models.OrderGroup, error) {
	var group models.OrderGroup
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Delivery").
		Preload("Payments").
		First(&group, "order_ref = ?", orderRef).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// FindGroupByRefForUpdate loads the group row under FOR UPDATE so concurrent
// transitions on the same group serialize at the database. Associations are
// preloaded after the lock is taken. Skipped on sqlite, which serializes
// writers on its own.
func (r *repository) FindGroupByRefForUpdate(ctx context.Context, orderRef string) (*models.OrderGroup, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Delivery").
		Preload("Payments")
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var group models.OrderGroup
	if err := query.First(&group, "order_ref = ?", orderRef).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *repository) UpdateGroup(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderGroup{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateGroupWhereStatus applies updates only while the group still holds the
// expected status. Returns false when another transition won the race, so the
// caller can surface a state conflict instead of overwriting it.
func (r *repository) UpdateGroupWhereStatus(ctx context.Context, id uuid.UUID, expected enums.OrderStatus, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.OrderGroup{}).
		Where("id = ?", id).
		Where("status = ?", expected).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateGroupWhereRefundStatus is the refund-side counterpart: updates apply
// only while the group still holds the expected refund status, so two
// concurrent refund requests cannot both initiate.
func (r *repository) UpdateGroupWhereRefundStatus(ctx context.Context, id uuid.UUID, expected enums.RefundStatus, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.OrderGroup{}).
		Where("id = ?", id).
		Where("refund_status = ?", expected).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkGroupPaymentsPaid settles every pending payment row of a group, used
// when a COD group is accepted and the amount is collected at the door.
func (r *repository) MarkGroupPaymentsPaid(ctx context.Context, groupID uuid.UUID, paidAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_group_id = ?", groupID).
		Where("status = ?", enums.PaymentStatusPending).
		Updates(map[string]any{
			"status":  enums.PaymentStatusPaid,
			"paid_at": paidAt,
		}).Error
}

func (r *repository) ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	return r.listOrders(ctx, "customer_id = ?", customerID, params, filters)
}

func (r *repository) ListPharmacyOrders(ctx context.Context, pharmacyID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	return r.listOrders(ctx, "pharmacy_id = ?", pharmacyID, params, filters)
}

// FindStalePendingGroups returns actionable groups still awaiting a pharmacy
// decision past the cutoff: COD groups and prepaid groups that already
// captured payment.
func (r *repository) FindStalePendingGroups(ctx context.Context, cutoff time.Time) ([]models.OrderGroup, error) {
	var groups []models.OrderGroup
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.OrderStatusPendingPharmacyConfirmation).
		Where("payment_method = ? OR payment_status = ?", enums.PaymentMethodCOD, enums.PaymentStatusPaid).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// FindAbandonedPrepaidGroups returns prepaid groups whose payment was never
// captured, meaning the customer walked away from the gateway checkout.
func (r *repository) FindAbandonedPrepaidGroups(ctx context.Context, cutoff time.Time) ([]models.OrderGroup, error) {
	var groups []models.OrderGroup
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.OrderStatusPendingPharmacyConfirmation).
		Where("payment_method <> ?", enums.PaymentMethodCOD).
		Where("payment_status = ?", enums.PaymentStatusPending).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *repository) FindRefsWithPendingRefunds(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	var refs []string
	err := r.db.WithContext(ctx).
		Model(&models.OrderGroup{}).
		Where("refund_status = ?", enums.RefundStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Pluck("order_ref", &refs).Error
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func (r *repository) listOrders(ctx context.Context, ownerClause string, ownerID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Table("order_groups").
		Select(`order_groups.id AS order_group_id,
			order_groups.order_ref,
			order_groups.customer_id,
			order_groups.pharmacy_id,
			order_groups.status,
			order_groups.payment_status,
			order_groups.payment_method,
			order_groups.refund_status,
			order_groups.total_amount,
			COUNT(order_line_items.id) AS total_items,
			order_groups.created_at`).
		Joins("LEFT JOIN order_line_items ON order_line_items.order_group_id = order_groups.id").
		Where(ownerClause, ownerID).
		Group("order_groups.id").
		Order("order_groups.created_at DESC, order_groups.id DESC").
		Limit(limit + 1)

	if filters.Status != nil {
		query = query.Where("order_groups.status = ?", *filters.Status)
	}
	if filters.PaymentStatus != nil {
		query = query.Where("order_groups.payment_status = ?", *filters.PaymentStatus)
	}
	if filters.DateFrom != nil {
		query = query.Where("order_groups.created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("order_groups.created_at <= ?", *filters.DateTo)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(order_groups.created_at < ?) OR (order_groups.created_at = ? AND order_groups.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []OrderSummary
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	list := &OrderList{}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.OrderGroupID})
	}
	list.Orders = rows
	return list, nil
}
