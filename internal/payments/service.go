package payments

import (
	"context"
	"fmt"
	"strings"
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
	"github.com/sahilkhatri/pharmakart-backend/pkg/razorpay"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type gateway interface {
	CreateOrder(ctx context.Context, params razorpay.OrderCreateParams) (*razorpay.Order, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	KeyID() string
}

// Session carries everything the client needs to open the checkout widget.
type Session struct {
	GatewayOrderID string   `json:"gateway_order_id"`
	AmountPaise    int64    `json:"amount_paise"`
	Currency       string   `json:"currency"`
	KeyID          string   `json:"key_id"`
	OrderRefs      []string `json:"order_refs"`
}

// VerifyInput is the Razorpay checkout callback.
type VerifyInput struct {
	GatewayOrderID   string `json:"razorpay_order_id"`
	GatewayPaymentID string `json:"razorpay_payment_id"`
	Signature        string `json:"razorpay_signature"`
}

// VerifyResult reports the groups a verified callback settled.
type VerifyResult struct {
	OrderRefs []string            `json:"order_refs"`
	Status    enums.PaymentStatus `json:"status"`
}

// Service runs the prepaid flow: gateway order creation and callback
// verification. Amounts convert to paise only at the gateway boundary.
type Service interface {
	CreateGatewayOrder(ctx context.Context, customerID uuid.UUID, orderRef string) (*Session, error)
	CreateCartGatewayOrder(ctx context.Context, customerID uuid.UUID, orderRefs []string) (*Session, error)
	VerifyCallback(ctx context.Context, customerID uuid.UUID, input VerifyInput) (*VerifyResult, error)
}

type service struct {
	repo    Repository
	orders  orders.Repository
	tx      txRunner
	gateway gateway
	outbox  outboxPublisher
	metrics *metrics.PaymentMetrics
}

// NewService builds the payment service.
func NewService(
	repo Repository,
	ordersRepo orders.Repository,
	tx txRunner,
	gw gateway,
	publisher outboxPublisher,
	paymentMetrics *metrics.PaymentMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
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
	return &service{
		repo:    repo,
		orders:  ordersRepo,
		tx:      tx,
		gateway: gw,
		outbox:  publisher,
		metrics: paymentMetrics,
	}, nil
}

func (s *service) CreateGatewayOrder(ctx context.Context, customerID uuid.UUID, orderRef string) (*Session, error) {
	return s.createGatewayOrder(ctx, customerID, []string{orderRef})
}

func (s *service) CreateCartGatewayOrder(ctx context.Context, customerID uuid.UUID, orderRefs []string) (*Session, error) {
	if len(orderRefs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one order ref is required")
	}
	return s.createGatewayOrder(ctx, customerID, orderRefs)
}

// createGatewayOrder registers one remote order covering every listed group.
// A cart checkout split across pharmacies pays through a single gateway
// order; the shared gateway order id ties the callback back to all rows.
func (s *service) createGatewayOrder(ctx context.Context, customerID uuid.UUID, orderRefs []string) (*Session, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var totalPaise int64
	var paymentIDs []uuid.UUID
	refs := make([]string, 0, len(orderRefs))
	seen := make(map[string]bool, len(orderRefs))

	for _, raw := range orderRefs {
		ref := strings.TrimSpace(raw)
		if ref == "" || seen[ref] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "order refs must be unique and non-empty")
		}
		seen[ref] = true

		group, err := s.orders.FindGroupByRef(ctx, ref)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order group")
		}
		if group.CustomerID != customerID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
		}
		if group.PaymentMethod != enums.PaymentMethodRazorpay {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not a prepaid order")
		}
		if group.PaymentStatus == enums.PaymentStatusPaid {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
		}
		if group.Status == enums.OrderStatusCancelled || group.Status == enums.OrderStatusPharmacyRejected {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer payable")
		}

		payments, err := s.repo.FindByGroupID(ctx, group.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment rows")
		}
		for _, payment := range payments {
			if payment.Status != enums.PaymentStatusPending {
				continue
			}
			paymentIDs = append(paymentIDs, payment.ID)
			totalPaise += razorpay.ToPaise(payment.Amount)
		}
		refs = append(refs, ref)
	}

	if len(paymentIDs) == 0 || totalPaise <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no pending payments to collect")
	}

	remote, err := s.gateway.CreateOrder(ctx, razorpay.OrderCreateParams{
		AmountPaise: totalPaise,
		Currency:    "INR",
		Receipt:     strings.Join(refs, ","),
	})
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).SetGatewayOrderID(ctx, paymentIDs, remote.ID)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record gateway order")
	}

	s.metrics.IncGatewayOrder()
	return &Session{
		GatewayOrderID: remote.ID,
		AmountPaise:    totalPaise,
		Currency:       "INR",
		KeyID:          s.gateway.KeyID(),
		OrderRefs:      refs,
	}, nil
}

func (s *service) VerifyCallback(ctx context.Context, customerID uuid.UUID, input VerifyInput) (*VerifyResult, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.GatewayOrderID == "" || input.GatewayPaymentID == "" || input.Signature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id, payment id and signature are required")
	}

	rows, err := s.repo.FindByGatewayOrderID(ctx, input.GatewayOrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment rows")
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown gateway order")
	}

	groupIDs := make([]uuid.UUID, 0, len(rows))
	seen := make(map[uuid.UUID]bool, len(rows))
	for _, row := range rows {
		if !seen[row.OrderGroupID] {
			seen[row.OrderGroupID] = true
			groupIDs = append(groupIDs, row.OrderGroupID)
		}
	}

	groups := make([]*models.OrderGroup, 0, len(groupIDs))
	for _, groupID := range groupIDs {
		group, err := s.orders.FindGroupByID(ctx, groupID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order group")
		}
		if group.CustomerID != customerID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
		}
		groups = append(groups, group)
	}

	// Already settled, treat the repeated callback as a no-op.
	if allPaid(rows) {
		return &VerifyResult{OrderRefs: orderRefs(groups), Status: enums.PaymentStatusPaid}, nil
	}

	if !s.gateway.VerifyPaymentSignature(input.GatewayOrderID, input.GatewayPaymentID, input.Signature) {
		if err := s.settleFailure(ctx, customerID, input, rows, groups); err != nil {
			return nil, err
		}
		s.metrics.IncVerification("invalid")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment signature verification failed")
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		if err := repo.MarkPaid(ctx, input.GatewayOrderID, input.GatewayPaymentID, input.Signature, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payments paid")
		}
		for _, group := range groups {
			if err := ordersRepo.UpdateGroup(ctx, group.ID, map[string]any{
				"payment_status": enums.PaymentStatusPaid,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update group payment status")
			}
			if err := s.emitStatus(ctx, tx, customerID, group, rows, input, enums.EventPaymentCaptured, enums.PaymentStatusPaid); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncVerification("valid")
	return &VerifyResult{OrderRefs: orderRefs(groups), Status: enums.PaymentStatusPaid}, nil
}

// settleFailure records the failed attempt. Order status and stock are left
// untouched so the customer can retry payment.
func (s *service) settleFailure(ctx context.Context, customerID uuid.UUID, input VerifyInput, rows []models.Payment, groups []*models.OrderGroup) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		if err := repo.MarkFailed(ctx, input.GatewayOrderID, input.GatewayPaymentID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payments failed")
		}
		for _, group := range groups {
			if err := ordersRepo.UpdateGroup(ctx, group.ID, map[string]any{
				"payment_status": enums.PaymentStatusFailed,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update group payment status")
			}
			if err := s.emitStatus(ctx, tx, customerID, group, rows, input, enums.EventPaymentFailed, enums.PaymentStatusFailed); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *service) emitStatus(
	ctx context.Context,
	tx *gorm.DB,
	customerID uuid.UUID,
	group *models.OrderGroup,
	rows []models.Payment,
	input VerifyInput,
	eventType enums.OutboxEventType,
	status enums.PaymentStatus,
) error {
	var paymentID uuid.UUID
	for _, row := range rows {
		if row.OrderGroupID == group.ID {
			paymentID = row.ID
			break
		}
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePayment,
		AggregateID:   group.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: customerID, Role: string(enums.UserRoleCustomer)},
		Data: payloads.PaymentStatusEvent{
			OrderGroupID:     group.ID,
			OrderRef:         group.OrderRef,
			PaymentID:        paymentID,
			GatewayOrderID:   input.GatewayOrderID,
			GatewayPaymentID: input.GatewayPaymentID,
			Status:           status,
			Amount:           group.TotalAmount,
		},
	})
}

func allPaid(rows []models.Payment) bool {
	for _, row := range rows {
		if row.Status != enums.PaymentStatusPaid {
			return false
		}
	}
	return true
}

func orderRefs(groups []*models.OrderGroup) []string {
	refs := make([]string, len(groups))
	for i, group := range groups {
		refs[i] = group.OrderRef
	}
	return refs
}
