package handler

import (
	"net/http"

	"story-server/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *StoryHandler) listNodesByStory(c *gin.Context) {
	storyID, ok := h.parseUUIDParam(c, "storyId")
	if !ok {
		return
	}
	nodes, err := h.nodes.ListByStory(c.Request.Context(), identity(c), storyID)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, nodes)
}

func (h *StoryHandler) getNode(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	node, err := h.nodes.GetNode(c.Request.Context(), identity(c), id)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, node)
}

func (h *StoryHandler) createNode(c *gin.Context) {
	var req createNodeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	node, err := h.nodes.CreateNode(c.Request.Context(), identity(c), service.CreateNodeInput{
		StoryID:  req.StoryID,
		Content:  req.Content,
		Title:    req.Title,
		IsEnding: req.IsEnding,
	})
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}

	graphMutationsTotal.WithLabelValues("node", "create").Inc()
	c.JSON(http.StatusCreated, nodeResponse{Message: "Node created successfully", Node: node})
}

func (h *StoryHandler) updateNode(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req updateNodeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	node, err := h.nodes.UpdateNode(c.Request.Context(), identity(c), id, service.UpdateNodeInput{
		Content:  req.Content,
		Title:    req.Title,
		IsEnding: req.IsEnding,
	})
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}

	graphMutationsTotal.WithLabelValues("node", "update").Inc()
	c.JSON(http.StatusOK, nodeResponse{Message: "Node updated successfully", Node: node})
}

func (h *StoryHandler) deleteNode(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.nodes.DeleteNode(c.Request.Context(), identity(c), id); err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	graphMutationsTotal.WithLabelValues("node", "delete").Inc()
	messageOK(c, "Node deleted successfully")
}
