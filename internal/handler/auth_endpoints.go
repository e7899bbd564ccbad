package handler

import (
	"errors"
	"net/http"

	sharedModels "story-server/shared/models"

	"github.com/gin-gonic/gin"
)

func (h *StoryHandler) register(c *gin.Context) {
	var req registerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	res, err := h.auth.Register(c.Request.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}

	registrationsTotal.Inc()
	c.JSON(http.StatusCreated, authResponse{Message: "User registered successfully", User: res.User, Token: res.Token})
}

func (h *StoryHandler) login(c *gin.Context) {
	var req loginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, sharedModels.ErrInvalidCredentials) {
			loginsTotal.WithLabelValues("invalid_credentials").Inc()
		}
		handleServiceError(c, err, h.logger)
		return
	}

	loginsTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, authResponse{Message: "Login successful", User: res.User, Token: res.Token})
}

func (h *StoryHandler) profile(c *gin.Context) {
	user, err := h.auth.Profile(c.Request.Context(), identity(c))
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, profileResponse{User: user})
}
