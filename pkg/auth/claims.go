package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sahilkhatri/pharmakart-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID     uuid.UUID
	Role       enums.UserRole
	PharmacyID *uuid.UUID
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to clients. PharmacyID is
// set only for pharmacy-role users.
type AccessTokenClaims struct {
	UserID     uuid.UUID      `json:"user_id"`
	Role       enums.UserRole `json:"role"`
	PharmacyID *uuid.UUID     `json:"pharmacy_id,omitempty"`
	jwt.RegisteredClaims
}
