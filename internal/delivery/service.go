package delivery

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/internal/orders"
	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
	pkgerrors "github.com/sahilkhatri/pharmakart-backend/pkg/errors"
	"github.com/sahilkhatri/pharmakart-backend/pkg/metrics"
	"github.com/sahilkhatri/pharmakart-backend/pkg/outbox"
	"github.com/sahilkhatri/pharmakart-backend/pkg/outbox/payloads"
	"github.com/sahilkhatri/pharmakart-backend/pkg/pagination"
	"github.com/sahilkhatri/pharmakart-backend/pkg/security"
)

const (
	otpDigits = 6
	// otpTTL bounds both verification and idempotent reissue: an unconsumed
	// code younger than this is returned again instead of minting a new one.
	otpTTL = 10 * time.Minute

	otpIssueLimit  = 5
	otpIssueWindow = 10 * time.Minute
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

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// ClaimResult reports a successful assignment.
type ClaimResult struct {
	DeliveryID uuid.UUID            `json:"delivery_id"`
	OrderRef   string               `json:"order_ref"`
	Status     enums.DeliveryStatus `json:"status"`
	AssignedAt time.Time            `json:"assigned_at"`
}

// OTPResult reports an OTP issue, including idempotent reissue of a live code.
type OTPResult struct {
	Status           string `json:"status"`
	ExistingOTP      bool   `json:"existing_otp"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

// Service owns the delivery assignment lifecycle: competitive claims, partner
// progress updates, and the OTP hand-off that completes an order.
type Service interface {
	Claim(ctx context.Context, partnerID uuid.UUID, orderRef string) (*ClaimResult, error)
	Release(ctx context.Context, partnerID uuid.UUID, orderRef string) error
	UpdateStatus(ctx context.Context, partnerID uuid.UUID, orderRef string, status enums.DeliveryStatus) error
	GenerateOTP(ctx context.Context, partnerID uuid.UUID, orderRef string) (*OTPResult, error)
	VerifyOTP(ctx context.Context, partnerID uuid.UUID, orderRef, code string) error
	ListClaimable(ctx context.Context, params pagination.Params) (*ClaimableList, error)
}

type service struct {
	repo    Repository
	orders  orders.Repository
	tx      txRunner
	outbox  outboxPublisher
	notifs  notificationWriter
	limiter rateLimiter
	metrics *metrics.DeliveryMetrics
}

// NewService builds the delivery service.
func NewService(
	repo Repository,
	ordersRepo orders.Repository,
	tx txRunner,
	publisher outboxPublisher,
	notifs notificationWriter,
	limiter rateLimiter,
	deliveryMetrics *metrics.DeliveryMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("delivery repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if notifs == nil {
		return nil, fmt.Errorf("notification writer required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter required")
	}
	return &service{
		repo:    repo,
		orders:  ordersRepo,
		tx:      tx,
		outbox:  publisher,
		notifs:  notifs,
		limiter: limiter,
		metrics: deliveryMetrics,
	}, nil
}

func (s *service) Claim(ctx context.Context, partnerID uuid.UUID, orderRef string) (*ClaimResult, error) {
	if partnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "partner identity missing")
	}

	group, err := s.loadGroup(ctx, orderRef)
	if err != nil {
		return nil, err
	}
	if !group.DeliveryRequired {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order does not require delivery")
	}
	if group.Status != enums.OrderStatusPharmacyAccepted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not open for claiming")
	}

	delivery, err := s.repo.FindByOrderGroupID(ctx, group.ID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
	}

	now := time.Now().UTC()
	var won bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		won, err = repo.ClaimGuarded(ctx, delivery.ID, partnerID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim delivery")
		}
		if !won {
			return nil
		}
		moved, err := s.orders.WithTx(tx).UpdateGroupWhereStatus(ctx, group.ID, enums.OrderStatusPharmacyAccepted, map[string]any{
			"status": enums.OrderStatusOutForDelivery,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer open for claiming")
		}
		if err := s.notifs.NotifyUser(ctx, tx, &models.UserNotification{
			UserID:   group.CustomerID,
			Type:     enums.NotificationTypeOrderUpdate,
			Title:    "Order out for delivery",
			Message:  fmt.Sprintf("Order %s is on its way.", group.OrderRef),
			OrderRef: &group.OrderRef,
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDeliveryClaimed,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   delivery.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: partnerID, Role: string(enums.UserRoleDeliveryPartner)},
			Data: payloads.DeliveryClaimedEvent{
				DeliveryID:   delivery.ID,
				OrderGroupID: group.ID,
				OrderRef:     group.OrderRef,
				PartnerID:    partnerID,
				ClaimedAt:    now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	if !won {
		s.metrics.IncClaim("lost")
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "delivery already claimed")
	}

	s.metrics.IncClaim("won")
	return &ClaimResult{
		DeliveryID: delivery.ID,
		OrderRef:   group.OrderRef,
		Status:     enums.DeliveryStatusAssigned,
		AssignedAt: now,
	}, nil
}

// Release puts the assignment back in the pool. The order returns to
// pharmacy_accepted; reserved stock stays reserved because the pharmacy has
// already committed it.
func (s *service) Release(ctx context.Context, partnerID uuid.UUID, orderRef string) error {
	group, delivery, err := s.loadOwnedDelivery(ctx, partnerID, orderRef)
	if err != nil {
		return err
	}
	if delivery.Status.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery already completed")
	}

	now := time.Now().UTC()
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateDelivery(ctx, delivery.ID, map[string]any{
			"partner_id":    nil,
			"status":        enums.DeliveryStatusPending,
			"assigned_at":   nil,
			"otp_code":      nil,
			"otp_issued_at": nil,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release delivery")
		}
		moved, err := s.orders.WithTx(tx).UpdateGroupWhereStatus(ctx, group.ID, enums.OrderStatusOutForDelivery, map[string]any{
			"status": enums.OrderStatusPharmacyAccepted,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order moved on while releasing")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDeliveryReleased,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   delivery.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: partnerID, Role: string(enums.UserRoleDeliveryPartner)},
			Data: payloads.DeliveryReleasedEvent{
				DeliveryID:   delivery.ID,
				OrderGroupID: group.ID,
				OrderRef:     group.OrderRef,
				PartnerID:    partnerID,
				ReleasedAt:   now,
			},
		})
	})
}

func (s *service) UpdateStatus(ctx context.Context, partnerID uuid.UUID, orderRef string, status enums.DeliveryStatus) error {
	_, delivery, err := s.loadOwnedDelivery(ctx, partnerID, orderRef)
	if err != nil {
		return err
	}
	if !allowedTransition(delivery.Status, status) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move delivery from %s to %s", delivery.Status, status))
	}
	return s.repo.UpdateDelivery(ctx, delivery.ID, map[string]any{"status": status})
}

// allowedTransition covers partner-driven moves. Delivered is excluded: the
// only path there is OTP verification.
func allowedTransition(from, to enums.DeliveryStatus) bool {
	switch to {
	case enums.DeliveryStatusAtPickup:
		return from == enums.DeliveryStatusAssigned
	case enums.DeliveryStatusInTransit:
		return from == enums.DeliveryStatusAssigned || from == enums.DeliveryStatusAtPickup
	case enums.DeliveryStatusFailed:
		return !from.IsTerminal()
	default:
		return false
	}
}

func (s *service) GenerateOTP(ctx context.Context, partnerID uuid.UUID, orderRef string) (*OTPResult, error) {
	group, delivery, err := s.loadOwnedDelivery(ctx, partnerID, orderRef)
	if err != nil {
		return nil, err
	}
	if !otpEligible(delivery.Status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "delivery is not in progress")
	}

	now := time.Now().UTC()
	if delivery.OTPCode != nil && delivery.OTPIssuedAt != nil {
		age := now.Sub(*delivery.OTPIssuedAt)
		if age < otpTTL {
			s.metrics.IncOTPReissued()
			return &OTPResult{
				Status:           "otp_sent",
				ExistingOTP:      true,
				RemainingSeconds: int((otpTTL - age).Seconds()),
			}, nil
		}
	}

	allowed, _, err := s.limiter.FixedWindowAllow(ctx, "otp:"+group.OrderRef, otpIssueLimit, otpIssueWindow)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "otp rate limit")
	}
	if !allowed {
		return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "too many otp requests for this order")
	}

	code, err := security.GenerateOTP(otpDigits)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate otp")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateDelivery(ctx, delivery.ID, map[string]any{
			"otp_code":      code,
			"otp_issued_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store otp")
		}
		if err := s.notifs.NotifyUser(ctx, tx, &models.UserNotification{
			UserID:   group.CustomerID,
			Type:     enums.NotificationTypeDeliveryOTP,
			Title:    "Delivery confirmation code",
			Message:  fmt.Sprintf("Share this code with your delivery partner to receive order %s.", group.OrderRef),
			OrderRef: &group.OrderRef,
			OTPCode:  &code,
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDeliveryOTPIssued,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   delivery.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: partnerID, Role: string(enums.UserRoleDeliveryPartner)},
			Data: payloads.DeliveryOTPIssuedEvent{
				DeliveryID:   delivery.ID,
				OrderGroupID: group.ID,
				OrderRef:     group.OrderRef,
				CustomerID:   group.CustomerID,
				ExpiresAt:    now.Add(otpTTL),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncOTPIssued()
	return &OTPResult{
		Status:           "otp_sent",
		ExistingOTP:      false,
		RemainingSeconds: int(otpTTL.Seconds()),
	}, nil
}

func (s *service) VerifyOTP(ctx context.Context, partnerID uuid.UUID, orderRef, code string) error {
	group, delivery, err := s.loadOwnedDelivery(ctx, partnerID, orderRef)
	if err != nil {
		return err
	}
	// The nil-OTP check runs first: a completed delivery has its code cleared,
	// and the caller should hear "no otp issued" rather than a generic state
	// complaint.
	if delivery.OTPCode == nil || delivery.OTPIssuedAt == nil {
		s.metrics.IncOTPVerify("no_otp")
		return pkgerrors.New(pkgerrors.CodeStateConflict, "no otp issued for this delivery")
	}
	if !otpEligible(delivery.Status) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery is not in progress")
	}

	now := time.Now().UTC()
	if now.Sub(*delivery.OTPIssuedAt) > otpTTL {
		s.metrics.IncOTPVerify("expired")
		return pkgerrors.New(pkgerrors.CodeValidation, "otp expired, request a new one")
	}
	if subtle.ConstantTimeCompare([]byte(*delivery.OTPCode), []byte(code)) != 1 {
		s.metrics.IncOTPVerify("mismatch")
		return pkgerrors.New(pkgerrors.CodeValidation, "otp does not match")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateDelivery(ctx, delivery.ID, map[string]any{
			"status":        enums.DeliveryStatusDelivered,
			"delivered_at":  now,
			"otp_code":      nil,
			"otp_issued_at": nil,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete delivery")
		}
		moved, err := s.orders.WithTx(tx).UpdateGroupWhereStatus(ctx, group.ID, enums.OrderStatusOutForDelivery, map[string]any{
			"status":       enums.OrderStatusDelivered,
			"delivered_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order moved on during verification")
		}
		if err := s.notifs.NotifyUser(ctx, tx, &models.UserNotification{
			UserID:   group.CustomerID,
			Type:     enums.NotificationTypeOrderUpdate,
			Title:    "Order delivered",
			Message:  fmt.Sprintf("Order %s has been delivered.", group.OrderRef),
			OrderRef: &group.OrderRef,
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   delivery.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: partnerID, Role: string(enums.UserRoleDeliveryPartner)},
			Data: payloads.OrderDeliveredEvent{
				OrderGroupID: group.ID,
				OrderRef:     group.OrderRef,
				CustomerID:   group.CustomerID,
				PartnerID:    &partnerID,
				DeliveredAt:  now,
			},
		})
	})
	if err != nil {
		return err
	}

	s.metrics.IncOTPVerify("ok")
	return nil
}

func (s *service) ListClaimable(ctx context.Context, params pagination.Params) (*ClaimableList, error) {
	list, err := s.repo.ListClaimable(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list claimable deliveries")
	}
	return list, nil
}

func otpEligible(status enums.DeliveryStatus) bool {
	switch status {
	case enums.DeliveryStatusAssigned, enums.DeliveryStatusAtPickup, enums.DeliveryStatusInTransit:
		return true
	default:
		return false
	}
}

func (s *service) loadGroup(ctx context.Context, orderRef string) (*models.OrderGroup, error) {
	group, err := s.orders.FindGroupByRef(ctx, orderRef)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order group")
	}
	return group, nil
}

func (s *service) loadOwnedDelivery(ctx context.Context, partnerID uuid.UUID, orderRef string) (*models.OrderGroup, *models.Delivery, error) {
	if partnerID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "partner identity missing")
	}
	group, err := s.loadGroup(ctx, orderRef)
	if err != nil {
		return nil, nil, err
	}
	delivery, err := s.repo.FindByOrderGroupID(ctx, group.ID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
	}
	if delivery.PartnerID == nil || *delivery.PartnerID != partnerID {
		return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "delivery is not assigned to partner")
	}
	return group, delivery, nil
}
