package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sahilkhatri/pharmakart-backend/api/middleware"
	"github.com/sahilkhatri/pharmakart-backend/api/responses"
	"github.com/sahilkhatri/pharmakart-backend/api/validators"
	orderssvc "github.com/sahilkhatri/pharmakart-backend/internal/orders"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
	pkgerrors "github.com/sahilkhatri/pharmakart-backend/pkg/errors"
	"github.com/sahilkhatri/pharmakart-backend/pkg/logger"
)

type createOrderRequest struct {
	MedicineID       uuid.UUID `json:"medicine_id" validate:"required"`
	Quantity         int       `json:"quantity" validate:"required,min=1"`
	PaymentMethod    string    `json:"payment_method" validate:"required"`
	DeliveryRequired bool      `json:"delivery_required"`
	DeliveryAddress  *string   `json:"delivery_address,omitempty"`
}

// OrderCreate places a direct single-medicine order.
func OrderCreate(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		group, err := svc.Create(r.Context(), orderssvc.CreateInput{
			CustomerID:       customerID,
			MedicineID:       payload.MedicineID,
			Quantity:         payload.Quantity,
			PaymentMethod:    method,
			DeliveryRequired: payload.DeliveryRequired,
			DeliveryAddress:  payload.DeliveryAddress,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, group)
	}
}

// OrderGet loads one order group scoped to the caller's role.
func OrderGet(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderRef := strings.TrimSpace(chi.URLParam(r, "code"))
		if orderRef == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order reference required"))
			return
		}

		switch middleware.RoleFromContext(r.Context()) {
		case string(enums.UserRolePharmacy):
			pharmacyID, err := actorPharmacyID(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			group, err := svc.GetForPharmacy(r.Context(), pharmacyID, orderRef)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, group)
		default:
			customerID, err := actorUserID(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			group, err := svc.GetForCustomer(r.Context(), customerID, orderRef)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, group)
		}
	}
}

// OrderList returns the caller's order history, newest first.
func OrderList(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := parseOrderFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		switch middleware.RoleFromContext(r.Context()) {
		case string(enums.UserRolePharmacy):
			pharmacyID, err := actorPharmacyID(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			list, err := svc.ListForPharmacy(r.Context(), pharmacyID, params, filters)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, list)
		default:
			customerID, err := actorUserID(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			list, err := svc.ListForCustomer(r.Context(), customerID, params, filters)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, list)
		}
	}
}

type decisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=accept reject"`
}

// OrderDecision accepts or rejects a pending order group.
func OrderDecision(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pharmacyID, err := actorPharmacyID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderRef := strings.TrimSpace(chi.URLParam(r, "code"))
		if orderRef == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order reference required"))
			return
		}

		var payload decisionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.PharmacyDecision(r.Context(), orderssvc.DecisionInput{
			OrderRef:        orderRef,
			Decision:        orderssvc.Decision(payload.Decision),
			ActorUserID:     userID,
			ActorPharmacyID: pharmacyID,
			ActorRole:       middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"order_ref": orderRef, "decision": payload.Decision})
	}
}

// OrderComplete marks a pickup order handed over at the counter.
func OrderComplete(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pharmacyID, err := actorPharmacyID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderRef := strings.TrimSpace(chi.URLParam(r, "code"))
		if orderRef == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order reference required"))
			return
		}

		err = svc.Complete(r.Context(), orderssvc.CompleteInput{
			OrderRef:        orderRef,
			ActorUserID:     userID,
			ActorPharmacyID: pharmacyID,
			ActorRole:       middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"order_ref": orderRef, "status": string(enums.OrderStatusDelivered)})
	}
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// OrderCancel cancels a group that has not been accepted yet.
func OrderCancel(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderRef := strings.TrimSpace(chi.URLParam(r, "code"))
		if orderRef == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order reference required"))
			return
		}

		var payload cancelRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.Cancel(r.Context(), orderssvc.CancelInput{
			OrderRef:    orderRef,
			ActorUserID: customerID,
			Reason:      payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"order_ref": orderRef, "status": string(enums.OrderStatusCancelled)})
	}
}

func parseOrderFilters(r *http.Request) (orderssvc.OrderFilters, error) {
	var filters orderssvc.OrderFilters

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("payment_status")); raw != "" {
		status, err := enums.ParsePaymentStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status filter")
		}
		filters.PaymentStatus = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from filter")
		}
		filters.DateFrom = &from
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid to filter")
		}
		filters.DateTo = &to
	}

	return filters, nil
}
