package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sahilkhatri/pharmakart-backend/api/responses"
	"github.com/sahilkhatri/pharmakart-backend/api/validators"
	deliverysvc "github.com/sahilkhatri/pharmakart-backend/internal/delivery"
	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
	pkgerrors "github.com/sahilkhatri/pharmakart-backend/pkg/errors"
	"github.com/sahilkhatri/pharmakart-backend/pkg/logger"
)

// DeliveryListClaimable returns open deliveries a partner can claim.
func DeliveryListClaimable(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListClaimable(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// DeliveryClaim assigns an open delivery to the caller, first writer wins.
func DeliveryClaim(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, orderRef, err := partnerAndRef(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Claim(r.Context(), partnerID, orderRef)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// DeliveryRelease returns a claimed delivery to the open pool.
func DeliveryRelease(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, orderRef, err := partnerAndRef(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Release(r.Context(), partnerID, orderRef); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"order_ref": orderRef, "status": string(enums.DeliveryStatusPending)})
	}
}

type deliveryStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// DeliveryStatusUpdate advances a partner's delivery through its lifecycle.
// Delivered is excluded: completing a delivery requires the OTP hand-off.
func DeliveryStatusUpdate(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, orderRef, err := partnerAndRef(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload deliveryStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseDeliveryStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery status"))
			return
		}

		if err := svc.UpdateStatus(r.Context(), partnerID, orderRef, status); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"order_ref": orderRef, "status": string(status)})
	}
}

// DeliveryOTPGenerate issues (or idempotently re-issues) the hand-off code.
func DeliveryOTPGenerate(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, orderRef, err := partnerAndRef(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.GenerateOTP(r.Context(), partnerID, orderRef)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type otpVerifyRequest struct {
	Code string `json:"code" validate:"required"`
}

// DeliveryOTPVerify completes the delivery when the customer's code matches.
func DeliveryOTPVerify(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, orderRef, err := partnerAndRef(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload otpVerifyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.VerifyOTP(r.Context(), partnerID, orderRef, payload.Code); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"order_ref": orderRef, "status": string(enums.DeliveryStatusDelivered)})
	}
}

func partnerAndRef(r *http.Request) (uuid.UUID, string, error) {
	partnerID, err := actorUserID(r)
	if err != nil {
		return uuid.Nil, "", err
	}
	orderRef := strings.TrimSpace(chi.URLParam(r, "code"))
	if orderRef == "" {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeValidation, "order reference required")
	}
	return partnerID, orderRef, nil
}
