package handler

import (
	"net/http"

	"story-server/internal/service"
	sharedMiddleware "story-server/shared/middleware"
	sharedModels "story-server/shared/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StoryHandler обрабатывает HTTP запросы к историям, узлам, выборам и аутентификации.
type StoryHandler struct {
	stories  service.StoryService
	nodes    service.NodeService
	choices  service.ChoiceService
	auth     service.AuthService
	verifier sharedMiddleware.TokenVerifier
	logger   *zap.Logger
}

// NewStoryHandler создает новый StoryHandler.
func NewStoryHandler(
	stories service.StoryService,
	nodes service.NodeService,
	choices service.ChoiceService,
	auth service.AuthService,
	verifier sharedMiddleware.TokenVerifier,
	logger *zap.Logger,
) *StoryHandler {
	return &StoryHandler{
		stories:  stories,
		nodes:    nodes,
		choices:  choices,
		auth:     auth,
		verifier: verifier,
		logger:   logger.Named("StoryHandler"),
	}
}

// RegisterRoutes регистрирует маршруты /api. authLimiter применяется только к /api/auth.
func (h *StoryHandler) RegisterRoutes(router gin.IRouter, authLimiter ...gin.HandlerFunc) {
	api := router.Group("/api", sharedMiddleware.OptionalIdentity(h.verifier, h.logger))

	auth := api.Group("/auth", authLimiter...)
	{
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
		auth.GET("/profile", h.profile)
	}

	stories := api.Group("/stories")
	{
		stories.GET("", h.listPublishedStories)
		stories.GET("/mine", h.listMyStories)
		stories.GET("/:id", h.getStory)
		stories.POST("", h.createStory)
		stories.PUT("/:id", h.updateStory)
		stories.DELETE("/:id", h.deleteStory)
	}

	nodes := api.Group("/nodes")
	{
		nodes.GET("/story/:storyId", h.listNodesByStory)
		nodes.GET("/:id", h.getNode)
		nodes.POST("", h.createNode)
		nodes.PUT("/:id", h.updateNode)
		nodes.DELETE("/:id", h.deleteNode)
	}

	choices := api.Group("/choices")
	{
		choices.GET("/node/:nodeId", h.listChoicesByNode)
		choices.POST("/node/:nodeId/reorder", h.reorderChoices)
		choices.POST("", h.createChoice)
		choices.PUT("/:id", h.updateChoice)
		choices.DELETE("/:id", h.deleteChoice)
	}
}

// identity возвращает личность вызывающего или nil для анонимного запроса.
func identity(c *gin.Context) *sharedModels.Identity {
	return sharedMiddleware.IdentityFromGin(c)
}

// parseUUIDParam читает UUID из параметра пути. При ошибке отвечает 400.
func (h *StoryHandler) parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		h.logger.Warn("Invalid UUID in path", zap.String("param", name), zap.String("value", raw))
		badRequest(c, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON разбирает тело запроса. При ошибке отвечает 400.
func (h *StoryHandler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.logger.Debug("Invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
		badRequest(c, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func messageOK(c *gin.Context, message string) {
	c.JSON(http.StatusOK, sharedModels.MessageResponse{Message: message})
}
