package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims представляет стандартные поля JWT и данные пользователя.
type Claims struct {
	UserID  uuid.UUID `json:"user_id"`
	IsAdmin bool      `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}

// Identity - проверенная личность вызывающего. nil означает анонимный запрос.
type Identity struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// IdentityFromClaims строит Identity из проверенных claims.
func IdentityFromClaims(c *Claims) *Identity {
	if c == nil {
		return nil
	}
	return &Identity{UserID: c.UserID, IsAdmin: c.IsAdmin}
}
