package controllers

import (
	"net/http"

	"github.com/perkstack/rewards-backend/api/responses"
	"github.com/perkstack/rewards-backend/api/validators"
	"github.com/perkstack/rewards-backend/internal/employees"
	"github.com/perkstack/rewards-backend/pkg/logger"
)

// EmployeeMe returns the caller's profile, including the points balance.
func EmployeeMe(repo employees.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employeeID, err := employeeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		employee, err := repo.FindByID(r.Context(), employeeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, employee)
	}
}

type bulkBuyAllowedRequest struct {
	Allowed *bool `json:"allowed" validate:"required"`
}

// EmployeeSetBulkBuyAllowed toggles bulk buy eligibility for an employee.
func EmployeeSetBulkBuyAllowed(repo employees.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employeeID, err := uuidParam(r, "employeeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload bulkBuyAllowedRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := repo.SetBulkBuyAllowed(r.Context(), employeeID, *payload.Allowed); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"allowed": *payload.Allowed})
	}
}
