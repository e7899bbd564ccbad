// Package graph содержит чистые проверки структуры графа истории.
// Функции ничего не читают и не пишут: сущности загружает вызывающий.
package graph

import (
	"fmt"
	"strings"

	"story-server/internal/models"
	sharedModels "story-server/shared/models"

	"github.com/google/uuid"
)

const (
	MaxTitleLength      = 255
	MaxChoiceTextLength = 500
)

// ValidateChoiceEndpoints проверяет, что оба конца выбора существуют и лежат в одной истории.
func ValidateChoiceEndpoints(source, target *models.Node) error {
	if source == nil {
		return fmt.Errorf("source %w", sharedModels.ErrNodeNotFound)
	}
	if target == nil {
		return fmt.Errorf("target %w", sharedModels.ErrNodeNotFound)
	}
	if source.StoryID != target.StoryID {
		return fmt.Errorf("%w: source story %s, target story %s",
			sharedModels.ErrCrossStoryReference, source.StoryID, target.StoryID)
	}
	return nil
}

// ValidateNodeBelongsToStory проверяет принадлежность узла истории.
func ValidateNodeBelongsToStory(node *models.Node, storyID uuid.UUID) error {
	if node == nil {
		return sharedModels.ErrNodeNotFound
	}
	if node.StoryID != storyID {
		return fmt.Errorf("%w: node %s belongs to story %s, not %s",
			sharedModels.ErrStoryMismatch, node.ID, node.StoryID, storyID)
	}
	return nil
}

func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return sharedModels.Validationf("title is required")
	}
	if len(title) > MaxTitleLength {
		return sharedModels.Validationf("title must be at most %d characters", MaxTitleLength)
	}
	return nil
}

func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return sharedModels.Validationf("content is required")
	}
	return nil
}

func ValidateChoiceText(text string) error {
	if strings.TrimSpace(text) == "" {
		return sharedModels.Validationf("text is required")
	}
	if len(text) > MaxChoiceTextLength {
		return sharedModels.Validationf("text must be at most %d characters", MaxChoiceTextLength)
	}
	return nil
}

func ValidateOrder(order int) error {
	if order < 0 {
		return sharedModels.Validationf("order must be non-negative, got %d", order)
	}
	return nil
}
