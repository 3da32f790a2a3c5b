package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/perkstack/rewards-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	EmployeeID uuid.UUID
	Role       enums.Role
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	EmployeeID uuid.UUID  `json:"employee_id"`
	Role       enums.Role `json:"role"`
	jwt.RegisteredClaims
}
