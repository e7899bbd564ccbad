package handler

import (
	"errors"
	"net/http"
	"strings"

	"story-server/shared/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleServiceError переводит ошибку сервиса в HTTP-статус и models.ErrorResponse.
func handleServiceError(c *gin.Context, err error, logger *zap.Logger) {
	var statusCode int
	var errResp models.ErrorResponse

	switch {
	case errors.Is(err, models.ErrValidation):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeValidation, Message: err.Error()}
	case errors.Is(err, models.ErrCrossStoryReference):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeCrossStoryReference, Message: models.ErrCrossStoryReference.Error()}
	case errors.Is(err, models.ErrStoryMismatch):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeStoryMismatch, Message: err.Error()}
	case errors.Is(err, models.ErrInvalidChoiceSet):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeInvalidChoiceSet, Message: err.Error()}
	case errors.Is(err, models.ErrInvalidCredentials):
		statusCode = http.StatusUnauthorized
		errResp = models.ErrorResponse{Code: models.ErrCodeWrongCredentials, Message: "Invalid credentials"}
	case errors.Is(err, models.ErrTokenExpired):
		statusCode = http.StatusUnauthorized
		errResp = models.ErrorResponse{Code: models.ErrCodeTokenExpired, Message: "Token has expired"}
	case errors.Is(err, models.ErrTokenInvalid), errors.Is(err, models.ErrTokenMalformed):
		statusCode = http.StatusUnauthorized
		errResp = models.ErrorResponse{Code: models.ErrCodeTokenInvalid, Message: "Token is invalid or malformed"}
	case errors.Is(err, models.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		errResp = models.ErrorResponse{Code: models.ErrCodeUnauthorized, Message: "Unauthorized"}
	case errors.Is(err, models.ErrForbidden):
		statusCode = http.StatusForbidden
		errResp = models.ErrorResponse{Code: models.ErrCodeForbidden, Message: "Only the story author can access this resource"}
	case errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
		errResp = models.ErrorResponse{Code: models.ErrCodeNotFound, Message: notFoundMessage(err)}
	case errors.Is(err, models.ErrEmailAlreadyExists):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Code: models.ErrCodeDuplicateEmail, Message: "User already exists"}
	case errors.Is(err, models.ErrEntryNodeDeletion):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Code: models.ErrCodeConflict, Message: models.ErrEntryNodeDeletion.Error()}
	case errors.Is(err, models.ErrStoreUnavailable):
		logger.Error("Store unavailable", zap.String("path", c.FullPath()), zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResp = models.ErrorResponse{Code: models.ErrCodeStoreUnavailable, Message: "Server error"}
	default:
		logger.Error("Unhandled internal error in handleServiceError", zap.String("path", c.FullPath()), zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResp = models.ErrorResponse{Code: models.ErrCodeInternal, Message: "Server error"}
	}

	c.AbortWithStatusJSON(statusCode, errResp)
}

// notFoundMessage называет ненайденную сущность.
func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrStoryNotFound):
		return "Story not found"
	case errors.Is(err, models.ErrNodeNotFound):
		if strings.HasPrefix(err.Error(), "source ") {
			return "Source node not found"
		}
		if strings.HasPrefix(err.Error(), "target ") {
			return "Target node not found"
		}
		return "Node not found"
	case errors.Is(err, models.ErrChoiceNotFound):
		return "Choice not found"
	case errors.Is(err, models.ErrUserNotFound):
		return "User not found"
	default:
		return "Not found"
	}
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: message})
}
