package controllers

import (
	"net/http"

	"github.com/perkstack/rewards-backend/api/responses"
	"github.com/perkstack/rewards-backend/api/validators"
	"github.com/perkstack/rewards-backend/internal/pricing"
	productsvc "github.com/perkstack/rewards-backend/internal/products"
	"github.com/perkstack/rewards-backend/pkg/logger"
)

// ProductList returns the catalog visible to employees.
func ProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeOnly := r.URL.Query().Get("all") != "true"
		items, err := svc.List(r.Context(), activeOnly)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func ProductGet(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type productUpsertRequest struct {
	SKU         string              `json:"sku" validate:"required,max=64"`
	Name        string              `json:"name" validate:"required,max=255"`
	Description *string             `json:"description"`
	BasePrice   string              `json:"basePrice" validate:"required"`
	Stock       int                 `json:"stock" validate:"min=0"`
	Colors      []string            `json:"colors"`
	Sizes       []string            `json:"sizes"`
	Slabs       []pricing.SlabInput `json:"slabs"`
}

func (p productUpsertRequest) toInput() productsvc.UpsertInput {
	return productsvc.UpsertInput{
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		BasePrice:   p.BasePrice,
		Stock:       p.Stock,
		Colors:      p.Colors,
		Sizes:       p.Sizes,
		RawSlabs:    p.Slabs,
	}
}

// ProductCreate handles admin catalog additions. Slab violations surface as 400s.
func ProductCreate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload productUpsertRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Create(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func ProductUpdate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload productUpsertRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Update(r.Context(), id, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type productActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func ProductSetActive(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload productActiveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SetActive(r.Context(), id, *payload.Active); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"active": *payload.Active})
	}
}
