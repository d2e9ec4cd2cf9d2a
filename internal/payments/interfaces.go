package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
)

// Repository persists gateway state on payment rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByGroupID(ctx context.Context, groupID uuid.UUID) ([]models.Payment, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) ([]models.Payment, error)
	SetGatewayOrderID(ctx context.Context, paymentIDs []uuid.UUID, gatewayOrderID string) error
	MarkPaid(ctx context.Context, gatewayOrderID, gatewayPaymentID, signature string, paidAt time.Time) error
	MarkFailed(ctx context.Context, gatewayOrderID, gatewayPaymentID string) error
}
