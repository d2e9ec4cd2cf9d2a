package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sahilkhatri/pharmakart-backend/api/responses"
	"github.com/sahilkhatri/pharmakart-backend/api/validators"
	medicinessvc "github.com/sahilkhatri/pharmakart-backend/internal/medicines"
	stocksvc "github.com/sahilkhatri/pharmakart-backend/internal/stock"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
	pkgerrors "github.com/sahilkhatri/pharmakart-backend/pkg/errors"
	"github.com/sahilkhatri/pharmakart-backend/pkg/logger"
)

type createMedicineRequest struct {
	Name                 string          `json:"name" validate:"required"`
	Description          *string         `json:"description,omitempty"`
	Price                decimal.Decimal `json:"price" validate:"required"`
	RequiresPrescription bool            `json:"requires_prescription"`
	InitialQuantity      int             `json:"initial_quantity" validate:"min=0"`
	LowStockThreshold    *int            `json:"low_stock_threshold,omitempty"`
}

// MedicineCreate adds a catalog entry with its opening stock level.
func MedicineCreate(svc medicinessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pharmacyID, err := actorPharmacyID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createMedicineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		medicine, err := svc.Create(r.Context(), medicinessvc.CreateInput{
			PharmacyID:           pharmacyID,
			Name:                 payload.Name,
			Description:          payload.Description,
			Price:                payload.Price,
			RequiresPrescription: payload.RequiresPrescription,
			InitialQuantity:      payload.InitialQuantity,
			LowStockThreshold:    payload.LowStockThreshold,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, medicine)
	}
}

type updateMedicineRequest struct {
	Name                 *string          `json:"name,omitempty"`
	Description          *string          `json:"description,omitempty"`
	Price                *decimal.Decimal `json:"price,omitempty"`
	RequiresPrescription *bool            `json:"requires_prescription,omitempty"`
}

// MedicineUpdate edits the mutable catalog fields of an owned medicine.
func MedicineUpdate(svc medicinessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pharmacyID, err := actorPharmacyID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		medicineID, err := medicineIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateMedicineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		medicine, err := svc.Update(r.Context(), medicinessvc.UpdateInput{
			PharmacyID:           pharmacyID,
			MedicineID:           medicineID,
			Name:                 payload.Name,
			Description:          payload.Description,
			Price:                payload.Price,
			RequiresPrescription: payload.RequiresPrescription,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, medicine)
	}
}

// MedicineDelete removes an owned catalog entry.
func MedicineDelete(svc medicinessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pharmacyID, err := actorPharmacyID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		medicineID, err := medicineIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), pharmacyID, medicineID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"id": medicineID.String(), "deleted": "true"})
	}
}

// MedicineGet loads one medicine, public to any authenticated caller.
func MedicineGet(svc medicinessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		medicineID, err := medicineIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		medicine, err := svc.Get(r.Context(), medicineID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, medicine)
	}
}

// MedicineList returns the caller's full catalog.
func MedicineList(svc medicinessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pharmacyID, err := actorPharmacyID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		medicines, err := svc.ListForPharmacy(r.Context(), pharmacyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, medicines)
	}
}

// MedicineSearch is the customer-facing catalog search.
func MedicineSearch(svc medicinessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := validators.SanitizeString(r.URL.Query().Get("q"), 120)
		result, err := svc.Search(r.Context(), params, query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type restockRequest struct {
	Qty int `json:"qty" validate:"required,min=1"`
}

// StockRestock adds quantity to an owned medicine's ledger entry.
func StockRestock(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pharmacyID, err := actorPharmacyID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		medicineID, err := medicineIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload restockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.Restock(r.Context(), stocksvc.RestockInput{
			PharmacyID: pharmacyID,
			MedicineID: medicineID,
			Qty:        payload.Qty,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, entry)
	}
}

type setLevelsRequest struct {
	Quantity          int  `json:"quantity" validate:"min=0"`
	LowStockThreshold *int `json:"low_stock_threshold,omitempty"`
}

// StockSetLevels overwrites the quantity and threshold of a ledger entry.
func StockSetLevels(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pharmacyID, err := actorPharmacyID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		medicineID, err := medicineIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setLevelsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.SetLevels(r.Context(), stocksvc.SetLevelsInput{
			PharmacyID:        pharmacyID,
			MedicineID:        medicineID,
			Quantity:          payload.Quantity,
			LowStockThreshold: payload.LowStockThreshold,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, entry)
	}
}

// StockList reports every ledger row for the caller, optionally filtered by
// derived status.
func StockList(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pharmacyID, err := actorPharmacyID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var statusFilter *enums.StockStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.StockStatus(raw)
			if !status.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid stock status filter"))
				return
			}
			statusFilter = &status
		}

		rows, err := svc.ListForPharmacy(r.Context(), pharmacyID, statusFilter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

func medicineIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid medicine id")
	}
	return id, nil
}
