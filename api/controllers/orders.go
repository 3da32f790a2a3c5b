package controllers

import (
	"net/http"

	"github.com/perkstack/rewards-backend/api/responses"
	ordersrepo "github.com/perkstack/rewards-backend/internal/orders"
	"github.com/perkstack/rewards-backend/pkg/enums"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
	"github.com/perkstack/rewards-backend/pkg/logger"
)

// OrderListMine returns the caller's redemption history.
func OrderListMine(repo ordersrepo.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employeeID, err := employeeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orders, err := repo.ListByEmployee(r.Context(), employeeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders)
	}
}

// OrderGet returns one order. Non-admin callers can only read their own.
func OrderGet(repo ordersrepo.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employeeID, err := employeeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuidParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := repo.FindByID(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role := enums.Role(middlewareRole(r))
		if order.EmployeeID != employeeID && role != enums.RoleAdmin {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another employee"))
			return
		}
		responses.WriteSuccess(w, order)
	}
}
