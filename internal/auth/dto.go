package auth

import (
	"time"

	"github.com/angelmondragon/poslite-backend/pkg/enums"
)

// LoginRequest captures the operator credentials sent to the login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the access token issued after a successful login.
type LoginResponse struct {
	AccessToken string             `json:"access_token"`
	ExpiresAt   time.Time          `json:"expires_at"`
	Username    string             `json:"username"`
	Role        enums.OperatorRole `json:"role"`
}
