package handler

import (
	"net/http"

	"story-server/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *StoryHandler) listChoicesByNode(c *gin.Context) {
	nodeID, ok := h.parseUUIDParam(c, "nodeId")
	if !ok {
		return
	}
	choices, err := h.choices.ListByNode(c.Request.Context(), identity(c), nodeID)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, choices)
}

func (h *StoryHandler) createChoice(c *gin.Context) {
	var req createChoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	choice, err := h.choices.CreateChoice(c.Request.Context(), identity(c), service.CreateChoiceInput{
		SourceNodeID: req.SourceNodeID,
		TargetNodeID: req.TargetNodeID,
		Text:         req.Text,
		Order:        req.Order,
	})
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}

	graphMutationsTotal.WithLabelValues("choice", "create").Inc()
	c.JSON(http.StatusCreated, choiceResponse{Message: "Choice created successfully", Choice: choice})
}

func (h *StoryHandler) updateChoice(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req updateChoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	choice, err := h.choices.UpdateChoice(c.Request.Context(), identity(c), id, service.UpdateChoiceInput{
		Text:         req.Text,
		TargetNodeID: req.TargetNodeID,
		Order:        req.Order,
	})
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}

	graphMutationsTotal.WithLabelValues("choice", "update").Inc()
	c.JSON(http.StatusOK, choiceResponse{Message: "Choice updated successfully", Choice: choice})
}

func (h *StoryHandler) deleteChoice(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.choices.DeleteChoice(c.Request.Context(), identity(c), id); err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	graphMutationsTotal.WithLabelValues("choice", "delete").Inc()
	messageOK(c, "Choice deleted successfully")
}

func (h *StoryHandler) reorderChoices(c *gin.Context) {
	nodeID, ok := h.parseUUIDParam(c, "nodeId")
	if !ok {
		return
	}
	var req reorderChoicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "choiceIds must be an array")
		return
	}

	choices, err := h.choices.ReorderChoices(c.Request.Context(), identity(c), nodeID, req.ChoiceIDs)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}

	graphMutationsTotal.WithLabelValues("choice", "reorder").Inc()
	c.JSON(http.StatusOK, choicesResponse{Message: "Choices reordered successfully", Choices: choices})
}
