package checkout

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/internal/cart"
	"github.com/sahilkhatri/pharmakart-backend/internal/orders"
	"github.com/sahilkhatri/pharmakart-backend/internal/stock"
	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
	pkgerrors "github.com/sahilkhatri/pharmakart-backend/pkg/errors"
	"github.com/sahilkhatri/pharmakart-backend/pkg/metrics"
	"github.com/sahilkhatri/pharmakart-backend/pkg/outbox"
	"github.com/sahilkhatri/pharmakart-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type medicineLoader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Medicine, error)
}

type notificationWriter interface {
	NotifyPharmacy(ctx context.Context, tx *gorm.DB, notification *models.Notification) error
}

// Input captures checkout-wide options applied to every created group.
type Input struct {
	PaymentMethod    enums.PaymentMethod
	DeliveryRequired bool
	DeliveryAddress  *string
}

// GroupSummary reports one order group created from the cart.
type GroupSummary struct {
	OrderGroupID uuid.UUID       `json:"order_group_id"`
	OrderRef     string          `json:"order_ref"`
	PharmacyID   uuid.UUID       `json:"pharmacy_id"`
	ItemCount    int             `json:"item_count"`
	Amount       decimal.Decimal `json:"amount"`
}

// Result is the grouped outcome of a checkout.
type Result struct {
	Groups     []GroupSummary  `json:"groups"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// Service converts an active cart into per-pharmacy order groups.
type Service interface {
	Execute(ctx context.Context, customerID uuid.UUID, input Input) (*Result, error)
}

type service struct {
	tx         txRunner
	cartRepo   cart.Repository
	ordersRepo orders.Repository
	medicines  medicineLoader
	outbox     outboxPublisher
	notifs     notificationWriter
	metrics    *metrics.OrderMetrics
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	cartRepo cart.Repository,
	ordersRepo orders.Repository,
	medicines medicineLoader,
	publisher outboxPublisher,
	notifs notificationWriter,
	orderMetrics *metrics.OrderMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if medicines == nil {
		return nil, fmt.Errorf("medicine loader required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if notifs == nil {
		return nil, fmt.Errorf("notification writer required")
	}
	return &service{
		tx:         tx,
		cartRepo:   cartRepo,
		ordersRepo: ordersRepo,
		medicines:  medicines,
		outbox:     publisher,
		notifs:     notifs,
		metrics:    orderMetrics,
	}, nil
}

func (s *service) Execute(ctx context.Context, customerID uuid.UUID, input Input) (*Result, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.DeliveryRequired && (input.DeliveryAddress == nil || strings.TrimSpace(*input.DeliveryAddress) == "") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address required")
	}

	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)

		record, err := cartRepo.FindActiveByUser(ctx, customerID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(record.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		ids := make([]uuid.UUID, len(record.Items))
		for i, item := range record.Items {
			ids[i] = item.MedicineID
		}
		medicines, err := s.medicines.FindByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart medicines")
		}
		byID := make(map[uuid.UUID]models.Medicine, len(medicines))
		for _, m := range medicines {
			byID[m.ID] = m
		}

		// The whole cart is validated before any group is written so the
		// customer sees every shortage at once.
		var violations []stock.Violation
		for _, item := range record.Items {
			medicine, ok := byID[item.MedicineID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart references a removed medicine")
			}
			available := 0
			if medicine.Stock != nil {
				available = medicine.Stock.Quantity
			}
			if available < item.Quantity {
				violations = append(violations, stock.Violation{
					MedicineID:   medicine.ID,
					MedicineName: medicine.Name,
					Available:    available,
					Required:     item.Quantity,
				})
			}
		}
		if len(violations) > 0 {
			return pkgerrors.New(pkgerrors.CodeStockConflict, "insufficient stock").WithDetails(violations)
		}

		grouped := groupItemsByPharmacy(record.Items, byID)
		pharmacyIDs := make([]uuid.UUID, 0, len(grouped))
		for pharmacyID := range grouped {
			pharmacyIDs = append(pharmacyIDs, pharmacyID)
		}
		sort.Slice(pharmacyIDs, func(i, j int) bool {
			return pharmacyIDs[i].String() < pharmacyIDs[j].String()
		})

		result = &Result{GrandTotal: decimal.Zero}
		groupIDs := make([]uuid.UUID, 0, len(pharmacyIDs))

		for _, pharmacyID := range pharmacyIDs {
			items := grouped[pharmacyID]
			ref, err := orders.NewOrderRef()
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint order ref")
			}

			total := decimal.Zero
			for _, item := range items {
				medicine := byID[item.MedicineID]
				total = total.Add(medicine.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
			}

			group, err := ordersRepo.CreateOrderGroup(ctx, &models.OrderGroup{
				OrderRef:         ref,
				CustomerID:       customerID,
				PharmacyID:       pharmacyID,
				Status:           enums.OrderStatusPendingPharmacyConfirmation,
				PaymentStatus:    enums.PaymentStatusPending,
				PaymentMethod:    input.PaymentMethod,
				TotalAmount:      total,
				DeliveryRequired: input.DeliveryRequired,
				DeliveryAddress:  input.DeliveryAddress,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order group")
			}

			lineItems := make([]models.OrderLineItem, len(items))
			for i, item := range items {
				medicine := byID[item.MedicineID]
				lineItems[i] = models.OrderLineItem{
					OrderGroupID: group.ID,
					MedicineID:   medicine.ID,
					MedicineName: medicine.Name,
					Quantity:     item.Quantity,
					UnitPrice:    medicine.Price,
					LineTotal:    medicine.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
				}
			}
			if err := ordersRepo.CreateOrderLineItems(ctx, lineItems); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create line items")
			}

			for i := range lineItems {
				itemID := lineItems[i].ID
				if _, err := ordersRepo.CreatePayment(ctx, &models.Payment{
					OrderGroupID:    group.ID,
					OrderLineItemID: &itemID,
					Amount:          lineItems[i].LineTotal,
					Method:          input.PaymentMethod,
					Status:          enums.PaymentStatusPending,
				}); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment row")
				}
			}

			if err := s.notifs.NotifyPharmacy(ctx, tx, &models.Notification{
				PharmacyID: pharmacyID,
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
				Actor:         &outbox.ActorRef{UserID: customerID, Role: string(enums.UserRoleCustomer)},
				Data: payloads.OrderPlacedEvent{
					OrderGroupID: group.ID,
					OrderRef:     ref,
					CustomerID:   customerID,
					PharmacyID:   pharmacyID,
					ItemCount:    len(items),
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}

			groupIDs = append(groupIDs, group.ID)
			result.Groups = append(result.Groups, GroupSummary{
				OrderGroupID: group.ID,
				OrderRef:     ref,
				PharmacyID:   pharmacyID,
				ItemCount:    len(items),
				Amount:       total,
			})
			result.GrandTotal = result.GrandTotal.Add(total)
		}

		if err := cartRepo.UpdateStatus(ctx, record.ID, enums.CartStatusConverted); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "convert cart")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventCheckoutConverted,
			AggregateType: enums.AggregateOrderGroup,
			AggregateID:   record.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: customerID, Role: string(enums.UserRoleCustomer)},
			Data: payloads.CheckoutConvertedEvent{
				CartID:        record.ID,
				CustomerID:    customerID,
				OrderGroupIDs: groupIDs,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	for range result.Groups {
		s.metrics.IncPlaced(string(input.PaymentMethod))
	}
	return result, nil
}

func groupItemsByPharmacy(items []models.CartItem, byID map[uuid.UUID]models.Medicine) map[uuid.UUID][]models.CartItem {
	grouped := make(map[uuid.UUID][]models.CartItem)
	for _, item := range items {
		medicine, ok := byID[item.MedicineID]
		if !ok {
			continue
		}
		grouped[medicine.PharmacyID] = append(grouped[medicine.PharmacyID], item)
	}
	return grouped
}
