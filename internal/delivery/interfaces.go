package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	"github.com/sahilkhatri/pharmakart-backend/pkg/pagination"
)

// ClaimableDelivery is one open assignment a partner can pick up.
type ClaimableDelivery struct {
	DeliveryID      uuid.UUID       `json:"delivery_id"`
	OrderRef        string          `json:"order_ref"`
	PharmacyID      uuid.UUID       `json:"pharmacy_id"`
	DeliveryAddress *string         `json:"delivery_address,omitempty"`
	PickupAddress   *string         `json:"pickup_address,omitempty"`
	Distance        *float64        `json:"distance,omitempty"`
	EstimatedTime   *string         `json:"estimated_time,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ClaimableList is a cursor page of open assignments.
type ClaimableList struct {
	Deliveries []ClaimableDelivery `json:"deliveries"`
	NextCursor string              `json:"next_cursor,omitempty"`
}

// Repository persists delivery assignments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByOrderGroupID(ctx context.Context, groupID uuid.UUID) (*models.Delivery, error)
	ClaimGuarded(ctx context.Context, deliveryID, partnerID uuid.UUID, now time.Time) (bool, error)
	UpdateDelivery(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListClaimable(ctx context.Context, params pagination.Params) (*ClaimableList, error)
}
