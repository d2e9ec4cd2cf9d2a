package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
	"github.com/sahilkhatri/pharmakart-backend/pkg/pagination"
)

// Repository defines persistence operations for order groups and their rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrderGroup(ctx context.Context, group *models.OrderGroup) (*models.OrderGroup, error)
	CreateOrderLineItems(ctx context.Context, items []models.OrderLineItem) error
	CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	CreateDelivery(ctx context.Context, delivery *models.Delivery) (*models.Delivery, error)
	FindGroupByID(ctx context.Context, id uuid.UUID) (*models.OrderGroup, error)
	FindPharmacyByID(ctx context.Context, id uuid.UUID) (*models.Pharmacy, error)
	FindGroupByRef(ctx context.Context, orderRef string) (*models.OrderGroup, error)
	FindGroupByRefForUpdate(ctx context.Context, orderRef string) (*models.OrderGroup, error)
	UpdateGroup(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateGroupWhereStatus(ctx context.Context, id uuid.UUID, expected enums.OrderStatus, updates map[string]any) (bool, error)
	UpdateGroupWhereRefundStatus(ctx context.Context, id uuid.UUID, expected enums.RefundStatus, updates map[string]any) (bool, error)
	MarkGroupPaymentsPaid(ctx context.Context, groupID uuid.UUID, paidAt time.Time) error
	ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error)
	ListPharmacyOrders(ctx context.Context, pharmacyID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error)
	FindStalePendingGroups(ctx context.Context, cutoff time.Time) ([]models.OrderGroup, error)
	FindAbandonedPrepaidGroups(ctx context.Context, cutoff time.Time) ([]models.OrderGroup, error)
	FindRefsWithPendingRefunds(ctx context.Context, limit int) ([]string, error)
}
