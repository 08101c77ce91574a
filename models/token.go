package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims is the JWT payload. It lives in models because the service,
// middleware and websocket layers all read it.
type TokenClaims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}
