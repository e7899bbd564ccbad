package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"story-server/shared/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenVerifier проверяет строку токена и возвращает claims.
// Ошибки: models.ErrTokenInvalid, models.ErrTokenExpired, models.ErrTokenMalformed.
type TokenVerifier func(ctx context.Context, tokenString string) (*models.Claims, error)

const identityGinKey = "identity"

// OptionalIdentity разбирает заголовок Authorization, если он есть.
// Без заголовка запрос проходит анонимно; решение Unauthorized/Forbidden принимает сервис.
// Присланный, но невалидный токен отклоняется с 401.
func OptionalIdentity(verifier TokenVerifier, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("OptionalIdentity")
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			log.Warn("Malformed Authorization header", zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Code:    models.ErrCodeTokenInvalid,
				Message: "Malformed Authorization header",
			})
			return
		}

		claims, err := verifier(c.Request.Context(), parts[1])
		if err != nil {
			resp := models.ErrorResponse{Code: models.ErrCodeTokenInvalid, Message: "Token is invalid or malformed"}
			if errors.Is(err, models.ErrTokenExpired) {
				resp = models.ErrorResponse{Code: models.ErrCodeTokenExpired, Message: "Token has expired"}
			}
			log.Warn("Token verification failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusUnauthorized, resp)
			return
		}

		identity := models.IdentityFromClaims(claims)
		c.Set(identityGinKey, identity)
		c.Request = c.Request.WithContext(models.WithIdentity(c.Request.Context(), identity))
		c.Next()
	}
}

// IdentityFromGin возвращает личность, сохраненную OptionalIdentity, или nil.
func IdentityFromGin(c *gin.Context) *models.Identity {
	v, ok := c.Get(identityGinKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*models.Identity)
	return identity
}
