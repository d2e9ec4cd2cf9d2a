package controllers

import (
	"net/http"

	"github.com/sahilkhatri/pharmakart-backend/api/responses"
	"github.com/sahilkhatri/pharmakart-backend/api/validators"
	checkoutsvc "github.com/sahilkhatri/pharmakart-backend/internal/checkout"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
	pkgerrors "github.com/sahilkhatri/pharmakart-backend/pkg/errors"
	"github.com/sahilkhatri/pharmakart-backend/pkg/logger"
)

type checkoutRequest struct {
	PaymentMethod    string  `json:"payment_method" validate:"required"`
	DeliveryRequired bool    `json:"delivery_required"`
	DeliveryAddress  *string `json:"delivery_address,omitempty"`
}

// Checkout converts the caller's active cart into per-pharmacy order groups.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		result, err := svc.Execute(r.Context(), customerID, checkoutsvc.Input{
			PaymentMethod:    method,
			DeliveryRequired: payload.DeliveryRequired,
			DeliveryAddress:  payload.DeliveryAddress,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
