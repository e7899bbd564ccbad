package handler

import (
	"story-server/internal/models"
	sharedModels "story-server/shared/models"

	"github.com/google/uuid"
)

// --- Auth ---

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
	Token   string       `json:"token"`
}

type profileResponse struct {
	User *models.User `json:"user"`
}

// --- Stories ---
// Указатели различают "поле не передано" и "передано пустым".

type createStoryRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	CoverImage  *string `json:"coverImage"`
}

// description и coverImage со значением null очищаются.
type updateStoryRequest struct {
	Title       *string                       `json:"title"`
	Description sharedModels.Optional[string] `json:"description"`
	CoverImage  sharedModels.Optional[string] `json:"coverImage"`
	IsDraft     *bool                         `json:"isDraft"`
	IsPublished *bool                         `json:"isPublished"`
	FirstNodeID *uuid.UUID                    `json:"firstNodeId"`
}

type storyResponse struct {
	Message string        `json:"message"`
	Story   *models.Story `json:"story"`
}

// --- Nodes ---

type createNodeRequest struct {
	StoryID  uuid.UUID `json:"storyId"`
	Content  string    `json:"content"`
	Title    *string   `json:"title"`
	IsEnding *bool     `json:"isEnding"`
}

type updateNodeRequest struct {
	Content  *string                       `json:"content"`
	Title    sharedModels.Optional[string] `json:"title"`
	IsEnding *bool                         `json:"isEnding"`
}

type nodeResponse struct {
	Message string       `json:"message"`
	Node    *models.Node `json:"node"`
}

// --- Choices ---

type createChoiceRequest struct {
	SourceNodeID uuid.UUID `json:"sourceNodeId"`
	TargetNodeID uuid.UUID `json:"targetNodeId"`
	Text         string    `json:"text"`
	Order        *int      `json:"order"`
}

type updateChoiceRequest struct {
	Text         *string    `json:"text"`
	TargetNodeID *uuid.UUID `json:"targetNodeId"`
	Order        *int       `json:"order"`
}

type reorderChoicesRequest struct {
	ChoiceIDs []uuid.UUID `json:"choiceIds" binding:"required"`
}

type choiceResponse struct {
	Message string         `json:"message"`
	Choice  *models.Choice `json:"choice"`
}

type choicesResponse struct {
	Message string          `json:"message"`
	Choices []models.Choice `json:"choices"`
}
