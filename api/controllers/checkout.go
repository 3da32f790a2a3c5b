package controllers

import (
	"net/http"

	"github.com/perkstack/rewards-backend/api/responses"
	"github.com/perkstack/rewards-backend/api/validators"
	checkoutsvc "github.com/perkstack/rewards-backend/internal/checkout"
	"github.com/perkstack/rewards-backend/pkg/enums"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
	"github.com/perkstack/rewards-backend/pkg/logger"
)

type deliveryRequest struct {
	DeliveryMethod  string `json:"deliveryMethod" validate:"required"`
	DeliveryAddress string `json:"deliveryAddress"`
}

func (p deliveryRequest) toInput() (checkoutsvc.DeliveryInput, error) {
	method, err := enums.ParseDeliveryMethod(p.DeliveryMethod)
	if err != nil {
		return checkoutsvc.DeliveryInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery method")
	}
	return checkoutsvc.DeliveryInput{
		Method:  method,
		Address: p.DeliveryAddress,
	}, nil
}

// CheckoutQuote prices the cart without committing anything.
func CheckoutQuote(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employeeID, err := employeeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := svc.Quote(r.Context(), employeeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// Checkout redeems the cart against the employee's points balance.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employeeID, err := employeeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload deliveryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		delivery, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		receipt, err := svc.Checkout(r.Context(), employeeID, delivery)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, receipt)
	}
}

// CopayStart opens a gateway payment for the points shortfall.
func CopayStart(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employeeID, err := employeeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload deliveryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		delivery, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.StartCopay(r.Context(), employeeID, delivery)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

type copayConfirmRequest struct {
	TransactionID   string `json:"transactionId" validate:"required"`
	DeliveryMethod  string `json:"deliveryMethod" validate:"required"`
	DeliveryAddress string `json:"deliveryAddress"`
}

// CopayConfirm verifies the gateway payment and commits the checkout.
func CopayConfirm(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employeeID, err := employeeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload copayConfirmRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		delivery, err := deliveryRequest{
			DeliveryMethod:  payload.DeliveryMethod,
			DeliveryAddress: payload.DeliveryAddress,
		}.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		receipt, err := svc.ConfirmCopay(r.Context(), employeeID, payload.TransactionID, delivery)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, receipt)
	}
}
