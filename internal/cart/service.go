package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	pkgerrors "github.com/sahilkhatri/pharmakart-backend/pkg/errors"
)

type medicineLoader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Medicine, error)
}

// Line is one cart entry priced from the current catalog.
type Line struct {
	ItemID       uuid.UUID       `json:"item_id"`
	MedicineID   uuid.UUID       `json:"medicine_id"`
	MedicineName string          `json:"medicine_name"`
	PharmacyID   uuid.UUID       `json:"pharmacy_id"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LineTotal    decimal.Decimal `json:"line_total"`
	InStock      bool            `json:"in_stock"`
}

// View is the customer's cart with per-pharmacy grouping and totals.
type View struct {
	CartID     uuid.UUID       `json:"cart_id"`
	Lines      []Line          `json:"lines"`
	Pharmacies []uuid.UUID     `json:"pharmacies"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// Service manages the customer's working cart.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*View, error)
	AddItem(ctx context.Context, userID, medicineID uuid.UUID, quantity int) (*View, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*View, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*View, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo      Repository
	medicines medicineLoader
}

// NewService builds the cart service.
func NewService(repo Repository, medicines medicineLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if medicines == nil {
		return nil, fmt.Errorf("medicine loader required")
	}
	return &service{repo: repo, medicines: medicines}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*View, error) {
	record, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, record)
}

func (s *service) AddItem(ctx context.Context, userID, medicineID uuid.UUID, quantity int) (*View, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if medicineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "medicine id required")
	}

	medicines, err := s.medicines.FindByIDs(ctx, []uuid.UUID{medicineID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load medicine")
	}
	if len(medicines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found")
	}

	record, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpsertItem(ctx, &models.CartItem{
		CartID:     record.ID,
		MedicineID: medicineID,
		Quantity:   quantity,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
	}
	return s.reload(ctx, userID)
}

func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*View, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if _, err := s.loadOwnedItem(ctx, userID, itemID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateItemQuantity(ctx, itemID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	return s.reload(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*View, error) {
	if _, err := s.loadOwnedItem(ctx, userID, itemID); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteItem(ctx, itemID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	return s.reload(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	record, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteItemsByCart(ctx, record.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) getOrCreate(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	record, err := s.repo.FindActiveByUser(ctx, userID)
	if err == nil {
		return record, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	record, err = s.repo.CreateActive(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return record, nil
}

func (s *service) loadOwnedItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartItem, error) {
	record, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.FindItem(ctx, itemID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	if item.CartID != record.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart item does not belong to user")
	}
	return item, nil
}

func (s *service) reload(ctx context.Context, userID uuid.UUID) (*View, error) {
	record, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart")
	}
	return s.buildView(ctx, record)
}

func (s *service) buildView(ctx context.Context, record *models.CartRecord) (*View, error) {
	view := &View{
		CartID:   record.ID,
		Lines:    []Line{},
		Subtotal: decimal.Zero,
	}
	if len(record.Items) == 0 {
		return view, nil
	}

	ids := make([]uuid.UUID, len(record.Items))
	for i, item := range record.Items {
		ids[i] = item.MedicineID
	}
	medicines, err := s.medicines.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "price cart items")
	}
	byID := make(map[uuid.UUID]models.Medicine, len(medicines))
	for _, m := range medicines {
		byID[m.ID] = m
	}

	seenPharmacies := map[uuid.UUID]bool{}
	for _, item := range record.Items {
		medicine, ok := byID[item.MedicineID]
		if !ok {
			// Medicine removed from the catalog after it was carted.
			continue
		}
		lineTotal := medicine.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		inStock := medicine.Stock != nil && medicine.Stock.Quantity >= item.Quantity
		view.Lines = append(view.Lines, Line{
			ItemID:       item.ID,
			MedicineID:   medicine.ID,
			MedicineName: medicine.Name,
			PharmacyID:   medicine.PharmacyID,
			Quantity:     item.Quantity,
			UnitPrice:    medicine.Price,
			LineTotal:    lineTotal,
			InStock:      inStock,
		})
		view.Subtotal = view.Subtotal.Add(lineTotal)
		if !seenPharmacies[medicine.PharmacyID] {
			seenPharmacies[medicine.PharmacyID] = true
			view.Pharmacies = append(view.Pharmacies, medicine.PharmacyID)
		}
	}
	return view, nil
}
