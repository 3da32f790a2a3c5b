package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/perkstack/rewards-backend/api/responses"
	"github.com/perkstack/rewards-backend/api/validators"
	"github.com/perkstack/rewards-backend/internal/branding"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
	"github.com/perkstack/rewards-backend/pkg/logger"
)

// BrandingGet returns the portal configuration record.
func BrandingGet(repo branding.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := repo.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

type brandingUpdateRequest struct {
	CompanyName          *string `json:"companyName" validate:"omitempty,max=255"`
	InrPerPoint          *string `json:"inrPerPoint"`
	MaxSelectionsPerUser *int    `json:"maxSelectionsPerUser"`
	SignupDomains        *string `json:"signupDomains"`
}

// BrandingUpdate applies partial updates to the single configuration row.
func BrandingUpdate(repo branding.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload brandingUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := repo.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.CompanyName != nil {
			record.CompanyName = *payload.CompanyName
		}
		if payload.InrPerPoint != nil {
			rate, err := decimal.NewFromString(*payload.InrPerPoint)
			if err != nil || !rate.IsPositive() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "inrPerPoint must be a positive decimal"))
				return
			}
			record.InrPerPoint = rate.String()
		}
		if payload.MaxSelectionsPerUser != nil {
			record.MaxSelectionsPerUser = *payload.MaxSelectionsPerUser
		}
		if payload.SignupDomains != nil {
			record.SignupDomains = *payload.SignupDomains
		}
		if err := repo.Update(r.Context(), record); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}
