package authutils

import (
	"errors"
	"fmt"
	"time"

	"story-server/shared/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "story-server"

// JWTIssuer подписывает access-токены тем же секретом, которым их проверяет JWTVerifier.
type JWTIssuer struct {
	jwtSecret string
	ttl       time.Duration
	now       func() time.Time
}

func NewJWTIssuer(jwtSecret string, ttl time.Duration) (*JWTIssuer, error) {
	if jwtSecret == "" {
		return nil, errors.New("JWT secret cannot be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token TTL must be positive, got %s", ttl)
	}
	return &JWTIssuer{jwtSecret: jwtSecret, ttl: ttl, now: time.Now}, nil
}

// IssueToken возвращает подписанный токен и момент его истечения.
func (i *JWTIssuer) IssueToken(userID uuid.UUID, isAdmin bool) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.ttl)
	claims := &models.Claims{
		UserID:  userID,
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.jwtSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, expiresAt, nil
}
