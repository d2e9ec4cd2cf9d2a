package medicines

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/internal/stock"
	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	pkgerrors "github.com/sahilkhatri/pharmakart-backend/pkg/errors"
	"github.com/sahilkhatri/pharmakart-backend/pkg/pagination"
)

type stockWriter interface {
	SetLevels(ctx context.Context, input stock.SetLevelsInput) (*models.StockEntry, error)
}

// CreateInput carries the fields required to publish a new medicine.
type CreateInput struct {
	PharmacyID           uuid.UUID
	Name                 string
	Description          *string
	Price                decimal.Decimal
	RequiresPrescription bool
	InitialQuantity      int
	LowStockThreshold    *int
}

// UpdateInput carries the mutable fields of an existing medicine.
type UpdateInput struct {
	PharmacyID           uuid.UUID
	MedicineID           uuid.UUID
	Name                 *string
	Description          *string
	Price                *decimal.Decimal
	RequiresPrescription *bool
}

// Service exposes catalog operations for pharmacies and customers.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Medicine, error)
	Update(ctx context.Context, input UpdateInput) (*models.Medicine, error)
	Delete(ctx context.Context, pharmacyID, medicineID uuid.UUID) error
	Get(ctx context.Context, medicineID uuid.UUID) (*models.Medicine, error)
	ListForPharmacy(ctx context.Context, pharmacyID uuid.UUID) ([]models.Medicine, error)
	Search(ctx context.Context, params pagination.Params, query string) (*SearchResult, error)
}

type service struct {
	repo  Repository
	stock stockWriter
}

// NewService builds the medicine catalog service.
func NewService(repo Repository, stock stockWriter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("medicine repository required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock writer required")
	}
	return &service{repo: repo, stock: stock}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Medicine, error) {
	if input.PharmacyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "pharmacy context missing")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "medicine name required")
	}
	if input.Price.IsNegative() || input.Price.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.InitialQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "initial quantity cannot be negative")
	}

	medicine := &models.Medicine{
		PharmacyID:           input.PharmacyID,
		Name:                 strings.TrimSpace(input.Name),
		Description:          input.Description,
		Price:                input.Price,
		RequiresPrescription: input.RequiresPrescription,
	}
	created, err := s.repo.Create(ctx, medicine)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create medicine")
	}

	entry, err := s.stock.SetLevels(ctx, stock.SetLevelsInput{
		PharmacyID:        input.PharmacyID,
		MedicineID:        created.ID,
		Quantity:          input.InitialQuantity,
		LowStockThreshold: input.LowStockThreshold,
	})
	if err != nil {
		return nil, err
	}
	created.Stock = entry
	return created, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.Medicine, error) {
	medicine, err := s.loadOwned(ctx, input.PharmacyID, input.MedicineID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "medicine name required")
		}
		medicine.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		medicine.Description = input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() || input.Price.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		medicine.Price = *input.Price
	}
	if input.RequiresPrescription != nil {
		medicine.RequiresPrescription = *input.RequiresPrescription
	}

	updated, err := s.repo.Update(ctx, medicine)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update medicine")
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, pharmacyID, medicineID uuid.UUID) error {
	if _, err := s.loadOwned(ctx, pharmacyID, medicineID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, medicineID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete medicine")
	}
	return nil
}

func (s *service) Get(ctx context.Context, medicineID uuid.UUID) (*models.Medicine, error) {
	if medicineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "medicine id required")
	}
	medicine, err := s.repo.FindByID(ctx, medicineID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load medicine")
	}
	return medicine, nil
}

func (s *service) ListForPharmacy(ctx context.Context, pharmacyID uuid.UUID) ([]models.Medicine, error) {
	if pharmacyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pharmacy id required")
	}
	medicines, err := s.repo.ListByPharmacy(ctx, pharmacyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pharmacy medicines")
	}
	return medicines, nil
}

func (s *service) Search(ctx context.Context, params pagination.Params, query string) (*SearchResult, error) {
	result, err := s.repo.Search(ctx, params, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search medicines")
	}
	return result, nil
}

func (s *service) loadOwned(ctx context.Context, pharmacyID, medicineID uuid.UUID) (*models.Medicine, error) {
	if pharmacyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "pharmacy context missing")
	}
	if medicineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "medicine id required")
	}
	medicine, err := s.repo.FindByID(ctx, medicineID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load medicine")
	}
	if medicine.PharmacyID != pharmacyID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "medicine does not belong to pharmacy")
	}
	return medicine, nil
}
