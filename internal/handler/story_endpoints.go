package handler

import (
	"net/http"
	"strconv"

	"story-server/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *StoryHandler) listPublishedStories(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "Invalid limit")
			return
		}
		limit = parsed
	}

	page, err := h.stories.ListPublished(c.Request.Context(), c.Query("cursor"), limit)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *StoryHandler) listMyStories(c *gin.Context) {
	stories, err := h.stories.ListMine(c.Request.Context(), identity(c))
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, stories)
}

func (h *StoryHandler) getStory(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	story, err := h.stories.GetStory(c.Request.Context(), identity(c), id)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, story)
}

func (h *StoryHandler) createStory(c *gin.Context) {
	var req createStoryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	story, err := h.stories.CreateStory(c.Request.Context(), identity(c), service.CreateStoryInput{
		Title:       req.Title,
		Description: req.Description,
		CoverImage:  req.CoverImage,
	})
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}

	storiesCreatedTotal.Inc()
	c.JSON(http.StatusCreated, storyResponse{Message: "Story created successfully", Story: story})
}

func (h *StoryHandler) updateStory(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req updateStoryRequest
	if !h.bindJSON(c, &req) {
		return
	}

	story, err := h.stories.UpdateStory(c.Request.Context(), identity(c), id, service.UpdateStoryInput{
		Title:       req.Title,
		Description: req.Description,
		CoverImage:  req.CoverImage,
		IsDraft:     req.IsDraft,
		IsPublished: req.IsPublished,
		FirstNodeID: req.FirstNodeID,
	})
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}

	graphMutationsTotal.WithLabelValues("story", "update").Inc()
	c.JSON(http.StatusOK, storyResponse{Message: "Story updated successfully", Story: story})
}

func (h *StoryHandler) deleteStory(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.stories.DeleteStory(c.Request.Context(), identity(c), id); err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	graphMutationsTotal.WithLabelValues("story", "delete").Inc()
	messageOK(c, "Story deleted successfully")
}
