package refunds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/internal/orders"
	"github.com/sahilkhatri/pharmakart-backend/internal/payments"
	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
	pkgerrors "github.com/sahilkhatri/pharmakart-backend/pkg/errors"
	"github.com/sahilkhatri/pharmakart-backend/pkg/logger"
	"github.com/sahilkhatri/pharmakart-backend/pkg/metrics"
	"github.com/sahilkhatri/pharmakart-backend/pkg/outbox"
	"github.com/sahilkhatri/pharmakart-backend/pkg/outbox/payloads"
	"github.com/sahilkhatri/pharmakart-backend/pkg/razorpay"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type notificationWriter interface {
	NotifyUser(ctx context.Context, tx *gorm.DB, notification *models.UserNotification) error
}

type gateway interface {
	CreateRefund(ctx context.Context, params razorpay.RefundParams) (*razorpay.Refund, error)
}

// Result reports the refund sub-state after a request.
type Result struct {
	OrderRef        string             `json:"order_ref"`
	RefundStatus    enums.RefundStatus `json:"refund_status"`
	RefundGatewayID *string            `json:"refund_gateway_id,omitempty"`
}

// Service runs the refund sub-state machine. The request is made durable
// before the gateway is called, so a crash or gateway outage can never lose
// a customer's refund.
type Service interface {
	Request(ctx context.Context, customerID uuid.UUID, orderRef, reason string) (*Result, error)
	RetryPending(ctx context.Context, orderRef string) (*Result, error)
}

type service struct {
	orders   orders.Repository
	payments payments.Repository
	tx       txRunner
	gateway  gateway
	outbox   outboxPublisher
	notifs   notificationWriter
	logger   *logger.Logger
	metrics  *metrics.RefundMetrics
}

// NewService builds the refund service.
func NewService(
	ordersRepo orders.Repository,
	paymentsRepo payments.Repository,
	tx txRunner,
	gw gateway,
	publisher outboxPublisher,
	notifs notificationWriter,
	logg *logger.Logger,
	refundMetrics *metrics.RefundMetrics,
) (Service, error) {
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if paymentsRepo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if gw == nil {
		return nil, fmt.Errorf("gateway required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if notifs == nil {
		return nil, fmt.Errorf("notification writer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		orders:   ordersRepo,
		payments: paymentsRepo,
		tx:       tx,
		gateway:  gw,
		outbox:   publisher,
		notifs:   notifs,
		logger:   logg,
		metrics:  refundMetrics,
	}, nil
}

func (s *service) Request(ctx context.Context, customerID uuid.UUID, orderRef, reason string) (*Result, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	// Commit the intent first, with the eligibility checks and the write in
	// one transaction over a locked group row. The gateway call happens
	// outside any transaction; if it fails the refund parks at pending
	// instead of disappearing.
	now := time.Now().UTC()
	var group *models.OrderGroup
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		loaded, err := repo.FindGroupByRefForUpdate(ctx, orderRef)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order group")
		}
		if loaded.CustomerID != customerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
		}
		if loaded.Status != enums.OrderStatusPharmacyRejected && loaded.Status != enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not eligible for refund")
		}
		if loaded.PaymentStatus != enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no captured payment to refund")
		}
		if loaded.RefundStatus != enums.RefundStatusNone {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund already requested for this order")
		}

		applied, err := repo.UpdateGroupWhereRefundStatus(ctx, loaded.ID, enums.RefundStatusNone, map[string]any{
			"refund_status":       enums.RefundStatusInitiated,
			"refund_amount":       loaded.TotalAmount,
			"refund_reason":       reason,
			"refund_initiated_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "initiate refund")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund already requested for this order")
		}
		group = loaded
		if err := s.notifs.NotifyUser(ctx, tx, &models.UserNotification{
			UserID:   group.CustomerID,
			Type:     enums.NotificationTypeRefundUpdate,
			Title:    "Refund initiated",
			Message:  fmt.Sprintf("Your refund for order %s has been initiated.", group.OrderRef),
			OrderRef: &group.OrderRef,
		}); err != nil {
			return err
		}
		return s.emit(ctx, tx, group, enums.EventRefundInitiated, enums.RefundStatusInitiated, "", reason)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(string(enums.RefundStatusInitiated))

	group.RefundStatus = enums.RefundStatusInitiated
	return s.callGateway(ctx, group, reason)
}

// RetryPending re-attempts the gateway call for a refund that was parked at
// pending by an earlier outage. Intended for the reconciliation worker.
func (s *service) RetryPending(ctx context.Context, orderRef string) (*Result, error) {
	group, err := s.orders.FindGroupByRef(ctx, orderRef)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order group")
	}
	if group.RefundStatus != enums.RefundStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "refund is not awaiting retry")
	}

	reason := ""
	if group.RefundReason != nil {
		reason = *group.RefundReason
	}
	return s.callGateway(ctx, group, reason)
}

// callGateway issues the remote refund and records the outcome in its own
// transaction: processing with the remote id on success, pending on failure.
func (s *service) callGateway(ctx context.Context, group *models.OrderGroup, reason string) (*Result, error) {
	gatewayPaymentID, err := s.findGatewayPaymentID(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	if gatewayPaymentID == "" {
		// Captured outside the gateway (cash on delivery); settlement is
		// manual, so the refund stays queued for reconciliation.
		if err := s.settle(ctx, group, enums.RefundStatusPending, ""); err != nil {
			return nil, err
		}
		return &Result{OrderRef: group.OrderRef, RefundStatus: enums.RefundStatusPending}, nil
	}

	refund, gatewayErr := s.gateway.CreateRefund(ctx, razorpay.RefundParams{
		PaymentID:   gatewayPaymentID,
		AmountPaise: razorpay.ToPaise(group.TotalAmount),
		Notes:       map[string]any{"order_ref": group.OrderRef, "reason": reason},
	})
	if gatewayErr != nil {
		s.logger.Warn(s.logger.WithFields(ctx, map[string]any{
			"order_ref": group.OrderRef,
			"error":     gatewayErr.Error(),
		}), "refund gateway call failed, parking refund")
		if err := s.settle(ctx, group, enums.RefundStatusPending, ""); err != nil {
			return nil, err
		}
		return &Result{OrderRef: group.OrderRef, RefundStatus: enums.RefundStatusPending}, nil
	}

	if err := s.settle(ctx, group, enums.RefundStatusProcessing, refund.ID); err != nil {
		return nil, err
	}
	return &Result{
		OrderRef:        group.OrderRef,
		RefundStatus:    enums.RefundStatusProcessing,
		RefundGatewayID: &refund.ID,
	}, nil
}

func (s *service) settle(ctx context.Context, group *models.OrderGroup, status enums.RefundStatus, gatewayRefundID string) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updates := map[string]any{"refund_status": status}
		if gatewayRefundID != "" {
			updates["refund_gateway_id"] = gatewayRefundID
		}
		// Guard on the sub-state we read, so a concurrent retry cannot record
		// the same gateway call twice.
		applied, err := s.orders.WithTx(tx).UpdateGroupWhereRefundStatus(ctx, group.ID, group.RefundStatus, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update refund status")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund moved on concurrently")
		}
		eventType := enums.EventRefundProcessing
		if status == enums.RefundStatusPending {
			eventType = enums.EventRefundPending
		}
		return s.emit(ctx, tx, group, eventType, status, gatewayRefundID, "")
	})
	if err != nil {
		return err
	}
	s.metrics.IncTransition(string(status))
	return nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, group *models.OrderGroup, eventType enums.OutboxEventType, status enums.RefundStatus, gatewayID, reason string) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateRefund,
		AggregateID:   group.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: group.CustomerID, Role: string(enums.UserRoleCustomer)},
		Data: payloads.RefundStatusEvent{
			OrderGroupID: group.ID,
			OrderRef:     group.OrderRef,
			CustomerID:   group.CustomerID,
			Status:       status,
			Amount:       group.TotalAmount,
			GatewayID:    gatewayID,
			Reason:       reason,
		},
	})
}

// findGatewayPaymentID picks the captured gateway payment to refund against.
// All rows in a group share the capture, so the first paid row wins.
func (s *service) findGatewayPaymentID(ctx context.Context, groupID uuid.UUID) (string, error) {
	rows, err := s.payments.FindByGroupID(ctx, groupID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment rows")
	}
	for _, row := range rows {
		if row.Status == enums.PaymentStatusPaid && row.GatewayPaymentID != nil {
			return *row.GatewayPaymentID, nil
		}
	}
	return "", nil
}
