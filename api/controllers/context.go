package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/perkstack/rewards-backend/api/middleware"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
)

func employeeIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.EmployeeIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid employee id")
	}
	return id, nil
}

func middlewareRole(r *http.Request) string {
	return middleware.RoleFromContext(r.Context())
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid %s", name)
	}
	return id, nil
}
