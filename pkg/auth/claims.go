package auth

import (
	"github.com/angelmondragon/poslite-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	Username string
	Role     enums.OperatorRole
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to operators.
type AccessTokenClaims struct {
	Username string             `json:"username"`
	Role     enums.OperatorRole `json:"role"`
	jwt.RegisteredClaims
}
