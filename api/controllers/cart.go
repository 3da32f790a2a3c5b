package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/perkstack/rewards-backend/api/responses"
	"github.com/perkstack/rewards-backend/api/validators"
	cartsvc "github.com/perkstack/rewards-backend/internal/cart"
	"github.com/perkstack/rewards-backend/pkg/logger"
)

type cartItemRequest struct {
	ProductID     uuid.UUID  `json:"productId" validate:"required"`
	Quantity      int        `json:"quantity" validate:"required,min=1"`
	SelectedColor *string    `json:"selectedColor"`
	SelectedSize  *string    `json:"selectedSize"`
	CampaignID    *uuid.UUID `json:"campaignId"`
	IsBulk        bool       `json:"isBulk"`
}

func (p cartItemRequest) toInput() cartsvc.ItemInput {
	return cartsvc.ItemInput{
		ProductID:     p.ProductID,
		Quantity:      p.Quantity,
		SelectedColor: p.SelectedColor,
		SelectedSize:  p.SelectedSize,
		CampaignID:    p.CampaignID,
		IsBulk:        p.IsBulk,
	}
}

func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employeeID, err := employeeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload cartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.AddItem(r.Context(), employeeID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employeeID, err := employeeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := uuidParam(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload cartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.UpdateItem(r.Context(), employeeID, itemID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employeeID, err := employeeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := uuidParam(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RemoveItem(r.Context(), employeeID, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employeeID, err := employeeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bulk := r.URL.Query().Get("bulk") == "true"
		if err := svc.Clear(r.Context(), employeeID, bulk); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}

// CartPreview prices the cart with the current slab table and points conversion.
func CartPreview(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employeeID, err := employeeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bulk := r.URL.Query().Get("bulk") == "true"
		preview, err := svc.Preview(r.Context(), employeeID, bulk)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, preview)
	}
}
