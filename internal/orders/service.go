package orders

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/internal/stock"
	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
	pkgerrors "github.com/sahilkhatri/pharmakart-backend/pkg/errors"
	"github.com/sahilkhatri/pharmakart-backend/pkg/metrics"
	"github.com/sahilkhatri/pharmakart-backend/pkg/outbox"
	"github.com/sahilkhatri/pharmakart-backend/pkg/outbox/payloads"
	"github.com/sahilkhatri/pharmakart-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type stockReserver interface {
	Reserve(ctx context.Context, tx *gorm.DB, requests []stock.ReservationRequest) error
}

type notificationWriter interface {
	NotifyPharmacy(ctx context.Context, tx *gorm.DB, notification *models.Notification) error
	NotifyUser(ctx context.Context, tx *gorm.DB, notification *models.UserNotification) error
}

type medicineLoader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Medicine, error)
}

// Decision is the action a pharmacy takes on a pending order group.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// DecisionInput captures the data required to accept or reject a group.
type DecisionInput struct {
	OrderRef        string
	Decision        Decision
	ActorUserID     uuid.UUID
	ActorPharmacyID uuid.UUID
	ActorRole       string
}

// CompleteInput marks a pickup order as handed over at the counter.
type CompleteInput struct {
	OrderRef        string
	ActorUserID     uuid.UUID
	ActorPharmacyID uuid.UUID
	ActorRole       string
}

// CancelInput captures a customer-initiated cancellation.
type CancelInput struct {
	OrderRef    string
	ActorUserID uuid.UUID
	Reason      string
}

// CreateInput places a direct single-medicine order outside the cart flow.
type CreateInput struct {
	CustomerID       uuid.UUID
	MedicineID       uuid.UUID
	Quantity         int
	PaymentMethod    enums.PaymentMethod
	DeliveryRequired bool
	DeliveryAddress  *string
}

// Service defines order lifecycle operations. Every transition applies to a
// whole order group; line items never change state on their own.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.OrderGroup, error)
	PharmacyDecision(ctx context.Context, input DecisionInput) error
	Complete(ctx context.Context, input CompleteInput) error
	Cancel(ctx context.Context, input CancelInput) error
	GetForCustomer(ctx context.Context, customerID uuid.UUID, orderRef string) (*models.OrderGroup, error)
	GetForPharmacy(ctx context.Context, pharmacyID uuid.UUID, orderRef string) (*models.OrderGroup, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error)
	ListForPharmacy(ctx context.Context, pharmacyID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	stock     stockReserver
	medicines medicineLoader
	notifs    notificationWriter
	metrics   *metrics.OrderMetrics
}

// NewService builds the order lifecycle service.
func NewService(repo Repository, tx txRunner, publisher outboxPublisher, reserver stockReserver, medicines medicineLoader, notifs notificationWriter, orderMetrics *metrics.OrderMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if reserver == nil {
		return nil, fmt.Errorf("stock reserver required")
	}
	if medicines == nil {
		return nil, fmt.Errorf("medicine loader required")
	}
	if notifs == nil {
		return nil, fmt.Errorf("notification writer required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		outbox:    publisher,
		stock:     reserver,
		medicines: medicines,
		notifs:    notifs,
		metrics:   orderMetrics,
	}, nil
}

// NewOrderRef mints a customer-facing order reference like ORD-4F2A9C01.
func NewOrderRef() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate order ref: %w", err)
	}
	return "ORD-" + strings.ToUpper(hex.EncodeToString(buf)), nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.OrderGroup, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.MedicineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "medicine id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.DeliveryRequired && (input.DeliveryAddress == nil || strings.TrimSpace(*input.DeliveryAddress) == "") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address required")
	}

	medicines, err := s.medicines.FindByIDs(ctx, []uuid.UUID{input.MedicineID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load medicine")
	}
	if len(medicines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found")
	}
	medicine := medicines[0]

	// Availability pre-check only; the quantity is committed at acceptance.
	available := 0
	if medicine.Stock != nil {
		available = medicine.Stock.Quantity
	}
	if available < input.Quantity {
		return nil, pkgerrors.New(pkgerrors.CodeStockConflict, "insufficient stock").
			WithDetails([]stock.Violation{{
				MedicineID:   medicine.ID,
				MedicineName: medicine.Name,
				Available:    available,
				Required:     input.Quantity,
			}})
	}

	ref, err := NewOrderRef()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint order ref")
	}
	lineTotal := medicine.Price.Mul(decimal.NewFromInt(int64(input.Quantity)))

	var created *models.OrderGroup
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		group, err := repo.CreateOrderGroup(ctx, &models.OrderGroup{
			OrderRef:         ref,
			CustomerID:       input.CustomerID,
			PharmacyID:       medicine.PharmacyID,
			Status:           enums.OrderStatusPendingPharmacyConfirmation,
			PaymentStatus:    enums.PaymentStatusPending,
			PaymentMethod:    input.PaymentMethod,
			TotalAmount:      lineTotal,
			DeliveryRequired: input.DeliveryRequired,
			DeliveryAddress:  input.DeliveryAddress,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order group")
		}

		item := models.OrderLineItem{
			OrderGroupID: group.ID,
			MedicineID:   medicine.ID,
			MedicineName: medicine.Name,
			Quantity:     input.Quantity,
			UnitPrice:    medicine.Price,
			LineTotal:    lineTotal,
		}
		if err := repo.CreateOrderLineItems(ctx, []models.OrderLineItem{item}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create line item")
		}

		itemID := item.ID
		if _, err := repo.CreatePayment(ctx, &models.Payment{
			OrderGroupID:    group.ID,
			OrderLineItemID: &itemID,
			Amount:          lineTotal,
			Method:          input.PaymentMethod,
			Status:          enums.PaymentStatusPending,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment row")
		}

		if err := s.notifs.NotifyPharmacy(ctx, tx, &models.Notification{
			PharmacyID: medicine.PharmacyID,
			Type:       enums.NotificationTypeNewOrder,
			Title:      "New order received",
			Message:    fmt.Sprintf("Order %s is awaiting your confirmation.", ref),
			OrderRef:   &ref,
		}); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrderGroup,
			AggregateID:   group.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.CustomerID, Role: string(enums.UserRoleCustomer)},
			Data: payloads.OrderPlacedEvent{
				OrderGroupID: group.ID,
				OrderRef:     ref,
				CustomerID:   input.CustomerID,
				PharmacyID:   medicine.PharmacyID,
				ItemCount:    1,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		created, err = repo.FindGroupByID(ctx, group.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncPlaced(string(input.PaymentMethod))
	return created, nil
}

func (s *service) PharmacyDecision(ctx context.Context, input DecisionInput) error {
	if strings.TrimSpace(input.OrderRef) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order ref required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorPharmacyID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "pharmacy context missing")
	}

	targetStatus, err := mapDecisionToStatus(input.Decision)
	if err != nil {
		return err
	}

	var decided bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		group, err := repo.FindGroupByRefForUpdate(ctx, input.OrderRef)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order group")
		}
		if group.PharmacyID != input.ActorPharmacyID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to pharmacy")
		}
		if group.Status == targetStatus {
			return nil
		}
		if group.Status != enums.OrderStatusPendingPharmacyConfirmation {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "pharmacy decision not allowed in current state")
		}
		// Prepaid groups must be captured before the pharmacy may act; COD
		// settles at the door.
		if group.PaymentMethod != enums.PaymentMethodCOD && group.PaymentStatus != enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment not captured for this order")
		}

		now := time.Now().UTC()
		updates := map[string]any{"status": targetStatus}
		eventType := enums.EventOrderRejected

		if input.Decision == DecisionAccept {
			// Stock commits inside the same transaction as the status flip;
			// a violation rolls back both and the group stays pending.
			requests := make([]stock.ReservationRequest, len(group.Items))
			for i, item := range group.Items {
				requests[i] = stock.ReservationRequest{MedicineID: item.MedicineID, Qty: item.Quantity}
			}
			if err := s.stock.Reserve(ctx, tx, requests); err != nil {
				return err
			}
			updates["accepted_at"] = now
			eventType = enums.EventOrderAccepted
			// COD settles at the door; acceptance is the point the pharmacy
			// commits to collecting, so the group and its rows flip to paid.
			if group.PaymentMethod == enums.PaymentMethodCOD {
				updates["payment_status"] = enums.PaymentStatusPaid
				if err := repo.MarkGroupPaymentsPaid(ctx, group.ID, now); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle cod payments")
				}
			}
		} else {
			updates["rejected_at"] = now
		}

		applied, err := repo.UpdateGroupWhereStatus(ctx, group.ID, enums.OrderStatusPendingPharmacyConfirmation, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed while the decision was in flight")
		}

		if input.Decision == DecisionAccept && group.DeliveryRequired && group.Delivery == nil {
			pharmacy, err := repo.FindPharmacyByID(ctx, group.PharmacyID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pharmacy")
			}
			delivery, err := repo.CreateDelivery(ctx, &models.Delivery{
				OrderGroupID:  group.ID,
				Status:        enums.DeliveryStatusPending,
				PickupAddress: &pharmacy.Address,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery record")
			}
			address := ""
			if group.DeliveryAddress != nil {
				address = *group.DeliveryAddress
			}
			event := outbox.DomainEvent{
				EventType:     enums.EventDeliveryRequested,
				AggregateType: enums.AggregateDelivery,
				AggregateID:   delivery.ID,
				Version:       1,
				Actor:         buildActor(input.ActorUserID, input.ActorPharmacyID, input.ActorRole),
				Data: payloads.DeliveryRequestedEvent{
					DeliveryID:    delivery.ID,
					OrderGroupID:  group.ID,
					OrderRef:      group.OrderRef,
					PharmacyID:    group.PharmacyID,
					Address:       address,
					PickupAddress: pharmacy.Address,
				},
			}
			// Acceptance retries must not fan out a second delivery request.
			if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
				return err
			}
		}

		ref := group.OrderRef
		if err := s.notifs.NotifyUser(ctx, tx, &models.UserNotification{
			UserID:   group.CustomerID,
			Type:     enums.NotificationTypeOrderUpdate,
			Title:    decisionTitle(input.Decision),
			Message:  decisionMessage(input.Decision, group.OrderRef),
			OrderRef: &ref,
		}); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateOrderGroup,
			AggregateID:   group.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, input.ActorPharmacyID, input.ActorRole),
			Data: payloads.OrderDecisionEvent{
				OrderGroupID: group.ID,
				OrderRef:     group.OrderRef,
				CustomerID:   group.CustomerID,
				PharmacyID:   group.PharmacyID,
				Status:       targetStatus,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}
		decided = true
		return nil
	})
	if err != nil {
		return err
	}
	if decided {
		s.metrics.IncDecision(string(input.Decision))
	}
	return nil
}

// Complete closes out a pickup order once the customer collects it at the
// counter. Orders that ship with a delivery partner reach delivered only
// through OTP verification.
func (s *service) Complete(ctx context.Context, input CompleteInput) error {
	if strings.TrimSpace(input.OrderRef) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order ref required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorPharmacyID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "pharmacy context missing")
	}

	var completed bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		group, err := repo.FindGroupByRefForUpdate(ctx, input.OrderRef)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order group")
		}
		if group.PharmacyID != input.ActorPharmacyID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to pharmacy")
		}
		if group.Status == enums.OrderStatusDelivered {
			return nil
		}
		if group.DeliveryRequired {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "orders with delivery complete through otp verification")
		}
		if group.Status != enums.OrderStatusPharmacyAccepted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not ready for hand-over")
		}

		now := time.Now().UTC()
		applied, err := repo.UpdateGroupWhereStatus(ctx, group.ID, enums.OrderStatusPharmacyAccepted, map[string]any{
			"status":       enums.OrderStatusDelivered,
			"delivered_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete order")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed while completing")
		}

		ref := group.OrderRef
		if err := s.notifs.NotifyUser(ctx, tx, &models.UserNotification{
			UserID:   group.CustomerID,
			Type:     enums.NotificationTypeOrderUpdate,
			Title:    "Order picked up",
			Message:  fmt.Sprintf("Order %s has been handed over.", group.OrderRef),
			OrderRef: &ref,
		}); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateOrderGroup,
			AggregateID:   group.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, input.ActorPharmacyID, input.ActorRole),
			Data: payloads.OrderDeliveredEvent{
				OrderGroupID: group.ID,
				OrderRef:     group.OrderRef,
				CustomerID:   group.CustomerID,
				DeliveredAt:  now,
			},
		}); err != nil {
			return err
		}
		completed = true
		return nil
	})
	if err != nil {
		return err
	}
	if completed {
		s.metrics.IncDelivered()
	}
	return nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) error {
	if strings.TrimSpace(input.OrderRef) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order ref required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var cancelled bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		group, err := repo.FindGroupByRefForUpdate(ctx, input.OrderRef)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order group")
		}
		if group.CustomerID != input.ActorUserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
		}
		if group.Status == enums.OrderStatusCancelled {
			return nil
		}
		if group.Status != enums.OrderStatusPendingPharmacyConfirmation {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled")
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
		}
		applied, err := repo.UpdateGroupWhereStatus(ctx, group.ID, enums.OrderStatusPendingPharmacyConfirmation, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed while the cancellation was in flight")
		}

		ref := group.OrderRef
		if err := s.notifs.NotifyPharmacy(ctx, tx, &models.Notification{
			PharmacyID: group.PharmacyID,
			Type:       enums.NotificationTypeOrderUpdate,
			Title:      "Order cancelled",
			Message:    fmt.Sprintf("Order %s was cancelled by the customer.", group.OrderRef),
			OrderRef:   &ref,
		}); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrderGroup,
			AggregateID:   group.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: string(enums.UserRoleCustomer)},
			Data: payloads.OrderCancelledEvent{
				OrderGroupID: group.ID,
				OrderRef:     group.OrderRef,
				CustomerID:   group.CustomerID,
				PharmacyID:   group.PharmacyID,
				CancelledAt:  now,
				Reason:       input.Reason,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}
		cancelled = true
		return nil
	})
	if err != nil {
		return err
	}
	if cancelled {
		s.metrics.IncCancelled()
	}
	return nil
}

func (s *service) GetForCustomer(ctx context.Context, customerID uuid.UUID, orderRef string) (*models.OrderGroup, error) {
	group, err := s.loadGroup(ctx, orderRef)
	if err != nil {
		return nil, err
	}
	if group.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
	}
	return group, nil
}

func (s *service) GetForPharmacy(ctx context.Context, pharmacyID uuid.UUID, orderRef string) (*models.OrderGroup, error) {
	group, err := s.loadGroup(ctx, orderRef)
	if err != nil {
		return nil, err
	}
	if group.PharmacyID != pharmacyID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to pharmacy")
	}
	return group, nil
}

func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	list, err := s.repo.ListCustomerOrders(ctx, customerID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customer orders")
	}
	return list, nil
}

func (s *service) ListForPharmacy(ctx context.Context, pharmacyID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	if pharmacyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "pharmacy context missing")
	}
	list, err := s.repo.ListPharmacyOrders(ctx, pharmacyID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pharmacy orders")
	}
	return list, nil
}

func (s *service) loadGroup(ctx context.Context, orderRef string) (*models.OrderGroup, error) {
	if strings.TrimSpace(orderRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order ref required")
	}
	group, err := s.repo.FindGroupByRef(ctx, orderRef)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order group")
	}
	return group, nil
}

func mapDecisionToStatus(decision Decision) (enums.OrderStatus, error) {
	switch decision {
	case DecisionAccept:
		return enums.OrderStatusPharmacyAccepted, nil
	case DecisionReject:
		return enums.OrderStatusPharmacyRejected, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "decision must be accept or reject")
	}
}

func decisionTitle(decision Decision) string {
	if decision == DecisionAccept {
		return "Order accepted"
	}
	return "Order rejected"
}

func decisionMessage(decision Decision, orderRef string) string {
	if decision == DecisionAccept {
		return fmt.Sprintf("Your order %s was accepted and is being prepared.", orderRef)
	}
	return fmt.Sprintf("Your order %s was rejected by the pharmacy.", orderRef)
}

func buildActor(userID, pharmacyID uuid.UUID, role string) *outbox.ActorRef {
	pharmacy := pharmacyID
	return &outbox.ActorRef{
		UserID:     userID,
		PharmacyID: &pharmacy,
		Role:       role,
	}
}
