package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/sahilkhatri/pharmakart-backend/pkg/db/models"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
	pkgerrors "github.com/sahilkhatri/pharmakart-backend/pkg/errors"
)

type medicineLoader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Medicine, error)
}

// ReservationRequest asks the ledger to decrement a medicine's quantity.
type ReservationRequest struct {
	MedicineID uuid.UUID
	Qty        int
}

// Violation reports one medicine that could not cover the requested quantity.
type Violation struct {
	MedicineID   uuid.UUID `json:"medicine_id"`
	MedicineName string    `json:"medicine_name,omitempty"`
	Available    int       `json:"available"`
	Required     int       `json:"required"`
}

// RestockInput adds quantity to a pharmacy-owned medicine.
type RestockInput struct {
	PharmacyID uuid.UUID
	MedicineID uuid.UUID
	Qty        int
}

// SetLevelsInput replaces a stock entry's quantity and threshold outright.
type SetLevelsInput struct {
	PharmacyID        uuid.UUID
	MedicineID        uuid.UUID
	Quantity          int
	LowStockThreshold *int
}

// Service owns every write to the stock ledger. Reserve is all-or-nothing:
// either every requested medicine is decremented inside the caller's
// transaction or none are, and the error carries the full violation list.
type Service interface {
	Reserve(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) error
	Restock(ctx context.Context, input RestockInput) (*models.StockEntry, error)
	SetLevels(ctx context.Context, input SetLevelsInput) (*models.StockEntry, error)
	GetByMedicine(ctx context.Context, pharmacyID, medicineID uuid.UUID) (*models.StockEntry, error)
	ListForPharmacy(ctx context.Context, pharmacyID uuid.UUID, onlyStatus *enums.StockStatus) ([]PharmacyStockRow, error)
}

type service struct {
	repo             Repository
	medicines        medicineLoader
	defaultThreshold int
}

// NewService builds the stock ledger service.
func NewService(repo Repository, medicines medicineLoader, defaultThreshold int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if medicines == nil {
		return nil, fmt.Errorf("medicine loader required")
	}
	if defaultThreshold <= 0 {
		defaultThreshold = 20
	}
	return &service{
		repo:             repo,
		medicines:        medicines,
		defaultThreshold: defaultThreshold,
	}, nil
}

func (s *service) Reserve(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock reservation")
	}
	if len(requests) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "no reservation requests provided")
	}

	required := make(map[uuid.UUID]int, len(requests))
	order := make([]uuid.UUID, 0, len(requests))
	for _, req := range requests {
		if req.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "reservation qty must be positive")
		}
		if _, seen := required[req.MedicineID]; !seen {
			order = append(order, req.MedicineID)
		}
		required[req.MedicineID] += req.Qty
	}

	repo := s.repo.WithTx(tx)
	entries, err := repo.FindByMedicineIDs(ctx, order)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock entries")
	}
	available := make(map[uuid.UUID]models.StockEntry, len(entries))
	for _, entry := range entries {
		available[entry.MedicineID] = entry
	}

	// Every line is validated before anything is written so the caller gets
	// the complete violation list in one response.
	var violations []Violation
	var combined error
	for _, medicineID := range order {
		entry, ok := available[medicineID]
		have := 0
		if ok {
			have = entry.Quantity
		}
		if have < required[medicineID] {
			violations = append(violations, Violation{
				MedicineID: medicineID,
				Available:  have,
				Required:   required[medicineID],
			})
			combined = multierr.Append(combined, fmt.Errorf("medicine %s: need %d, have %d", medicineID, required[medicineID], have))
		}
	}
	if len(violations) > 0 {
		s.fillViolationNames(ctx, violations)
		return pkgerrors.Wrap(pkgerrors.CodeStockConflict, combined, "insufficient stock").WithDetails(violations)
	}

	for _, medicineID := range order {
		updated, err := repo.DecrementGuarded(ctx, medicineID, required[medicineID])
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
		}
		if !updated {
			// A concurrent writer drained the row between validation and
			// decrement. Report it the same way as a validation miss; the
			// enclosing transaction rolls back earlier decrements.
			entry, ferr := repo.FindByMedicineID(ctx, medicineID)
			have := 0
			if ferr == nil {
				have = entry.Quantity
			}
			lost := []Violation{{MedicineID: medicineID, Available: have, Required: required[medicineID]}}
			s.fillViolationNames(ctx, lost)
			return pkgerrors.New(pkgerrors.CodeStockConflict, "insufficient stock").WithDetails(lost)
		}
		if err := s.refreshStatus(ctx, repo, medicineID); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) Restock(ctx context.Context, input RestockInput) (*models.StockEntry, error) {
	if input.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restock qty must be positive")
	}
	entry, err := s.loadOwnedEntry(ctx, input.PharmacyID, input.MedicineID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Increment(ctx, input.MedicineID, input.Qty); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment stock")
	}
	if err := s.refreshStatus(ctx, s.repo, input.MedicineID); err != nil {
		return nil, err
	}

	entry, err = s.repo.FindByMedicineID(ctx, input.MedicineID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload stock entry")
	}
	return entry, nil
}

func (s *service) SetLevels(ctx context.Context, input SetLevelsInput) (*models.StockEntry, error) {
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if input.LowStockThreshold != nil && *input.LowStockThreshold <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "low stock threshold must be positive")
	}
	if err := s.verifyOwnership(ctx, input.PharmacyID, input.MedicineID); err != nil {
		return nil, err
	}

	threshold := s.defaultThreshold
	if input.LowStockThreshold != nil {
		threshold = *input.LowStockThreshold
	} else if existing, err := s.repo.FindByMedicineID(ctx, input.MedicineID); err == nil {
		threshold = existing.LowStockThreshold
	}

	entry := &models.StockEntry{
		MedicineID:        input.MedicineID,
		Quantity:          input.Quantity,
		LowStockThreshold: threshold,
		Status:            enums.StockStatusFor(input.Quantity, threshold),
	}
	saved, err := s.repo.Upsert(ctx, entry)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert stock entry")
	}
	return saved, nil
}

func (s *service) GetByMedicine(ctx context.Context, pharmacyID, medicineID uuid.UUID) (*models.StockEntry, error) {
	return s.loadOwnedEntry(ctx, pharmacyID, medicineID)
}

func (s *service) ListForPharmacy(ctx context.Context, pharmacyID uuid.UUID, onlyStatus *enums.StockStatus) ([]PharmacyStockRow, error) {
	if pharmacyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pharmacy id required")
	}
	rows, err := s.repo.ListByPharmacy(ctx, pharmacyID, onlyStatus)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pharmacy stock")
	}
	return rows, nil
}

// refreshStatus re-derives the status column from the current quantity. This
// is the only path that writes status.
func (s *service) refreshStatus(ctx context.Context, repo Repository, medicineID uuid.UUID) error {
	entry, err := repo.FindByMedicineID(ctx, medicineID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload stock entry")
	}
	status := enums.StockStatusFor(entry.Quantity, entry.LowStockThreshold)
	if status == entry.Status {
		return nil
	}
	if err := repo.UpdateStatus(ctx, medicineID, status); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock status")
	}
	return nil
}

func (s *service) loadOwnedEntry(ctx context.Context, pharmacyID, medicineID uuid.UUID) (*models.StockEntry, error) {
	if err := s.verifyOwnership(ctx, pharmacyID, medicineID); err != nil {
		return nil, err
	}
	entry, err := s.repo.FindByMedicineID(ctx, medicineID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock entry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock entry")
	}
	return entry, nil
}

func (s *service) verifyOwnership(ctx context.Context, pharmacyID, medicineID uuid.UUID) error {
	if pharmacyID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "pharmacy context missing")
	}
	if medicineID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "medicine id required")
	}
	medicines, err := s.medicines.FindByIDs(ctx, []uuid.UUID{medicineID})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load medicine")
	}
	if len(medicines) == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found")
	}
	if medicines[0].PharmacyID != pharmacyID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "medicine does not belong to pharmacy")
	}
	return nil
}

func (s *service) fillViolationNames(ctx context.Context, violations []Violation) {
	ids := make([]uuid.UUID, len(violations))
	for i, v := range violations {
		ids[i] = v.MedicineID
	}
	medicines, err := s.medicines.FindByIDs(ctx, ids)
	if err != nil {
		return
	}
	names := make(map[uuid.UUID]string, len(medicines))
	for _, m := range medicines {
		names[m.ID] = m.Name
	}
	for i := range violations {
		violations[i].MedicineName = names[violations[i].MedicineID]
	}
}
