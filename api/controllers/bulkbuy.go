package controllers

import (
	"net/http"

	"github.com/perkstack/rewards-backend/api/responses"
	"github.com/perkstack/rewards-backend/api/validators"
	bulkbuysvc "github.com/perkstack/rewards-backend/internal/bulkbuy"
	"github.com/perkstack/rewards-backend/pkg/enums"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
	"github.com/perkstack/rewards-backend/pkg/logger"
)

type bulkBuySubmitRequest struct {
	DeliveryMethod  string `json:"deliveryMethod" validate:"required"`
	DeliveryAddress string `json:"deliveryAddress"`
}

// BulkBuySubmit files a procurement request from the employee's bulk cart.
func BulkBuySubmit(svc bulkbuysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employeeID, err := employeeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload bulkBuySubmitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParseDeliveryMethod(payload.DeliveryMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery method"))
			return
		}
		request, err := svc.Submit(r.Context(), employeeID, bulkbuysvc.SubmitInput{
			DeliveryMethod:  method,
			DeliveryAddress: payload.DeliveryAddress,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

// BulkBuyListMine returns the caller's bulk buy requests, newest first.
func BulkBuyListMine(svc bulkbuysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employeeID, err := employeeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListByEmployee(r.Context(), employeeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// BulkBuyGet returns one request. Non-admin callers can only read their own.
func BulkBuyGet(svc bulkbuysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employeeID, err := employeeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := uuidParam(r, "requestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		request, err := svc.Get(r.Context(), requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role := enums.Role(middlewareRole(r))
		if request.EmployeeID != employeeID && role != enums.RoleAdmin && role != enums.RoleProcurement {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "bulk buy request belongs to another employee"))
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// BulkBuyListPending returns requests awaiting a decision.
func BulkBuyListPending(svc bulkbuysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListPending(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

type bulkBuyDecisionRequest struct {
	Approve *bool   `json:"approve" validate:"required"`
	Note    *string `json:"note"`
}

// BulkBuyDecide approves or rejects a pending request exactly once.
func BulkBuyDecide(svc bulkbuysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deciderID, err := employeeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := uuidParam(r, "requestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload bulkBuyDecisionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		request, err := svc.Decide(r.Context(), requestID, deciderID, bulkbuysvc.DecisionInput{
			Approve: *payload.Approve,
			Note:    payload.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}
