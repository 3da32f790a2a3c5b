package controllers

import (
	"net/http"

	"github.com/perkstack/rewards-backend/api/responses"
	"github.com/perkstack/rewards-backend/api/validators"
	"github.com/perkstack/rewards-backend/internal/campaigns"
	"github.com/perkstack/rewards-backend/pkg/db/models"
	"github.com/perkstack/rewards-backend/pkg/logger"
)

// CampaignList returns currently active campaigns.
func CampaignList(repo campaigns.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := repo.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

type campaignCreateRequest struct {
	Name               string `json:"name" validate:"required,max=255"`
	MaxProductsPerUser *int   `json:"maxProductsPerUser" validate:"omitempty,min=1"`
}

func CampaignCreate(repo campaigns.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload campaignCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		campaign, err := repo.Create(r.Context(), &models.Campaign{
			Name:               payload.Name,
			IsActive:           true,
			MaxProductsPerUser: payload.MaxProductsPerUser,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, campaign)
	}
}

type campaignCapRequest struct {
	MaxProductsPerUser *int `json:"maxProductsPerUser" validate:"omitempty,min=1"`
}

// CampaignSetCap updates the per-user cap; a null cap makes the campaign unlimited.
func CampaignSetCap(repo campaigns.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "campaignID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload campaignCapRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := repo.SetCap(r.Context(), id, payload.MaxProductsPerUser); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"maxProductsPerUser": payload.MaxProductsPerUser})
	}
}

func CampaignLinkProduct(repo campaigns.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignID, err := uuidParam(r, "campaignID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuidParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := repo.LinkProduct(r.Context(), campaignID, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "linked"})
	}
}

func CampaignUnlinkProduct(repo campaigns.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignID, err := uuidParam(r, "campaignID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuidParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := repo.UnlinkProduct(r.Context(), campaignID, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "unlinked"})
	}
}

type campaignAccessRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// CampaignGrantAccess whitelists an employee email for a restricted campaign.
func CampaignGrantAccess(repo campaigns.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignID, err := uuidParam(r, "campaignID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload campaignAccessRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := repo.GrantAccess(r.Context(), campaignID, payload.Email); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"email": payload.Email})
	}
}
