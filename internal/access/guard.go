package access

import (
	"story-server/internal/models"
	sharedModels "story-server/shared/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var authorizationDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "story_authorization_denials_total",
		Help: "Total number of denied story operations by operation and reason.",
	},
	[]string{"op", "reason"},
)

// Operation labels
const (
	OpRead   = "read"
	OpMutate = "mutate"
)

// IsAuthor сообщает, является ли вызывающий автором истории.
func IsAuthor(identity *sharedModels.Identity, story *models.Story) bool {
	return identity != nil && story != nil && identity.UserID == story.AuthorID
}

// IsVisible сообщает, может ли вызывающий видеть историю.
func IsVisible(identity *sharedModels.Identity, story *models.Story) bool {
	return story != nil && (story.IsPublished || IsAuthor(identity, story))
}

// CanMutate разрешает изменение истории и всех ее узлов и выборов только автору.
func CanMutate(identity *sharedModels.Identity, story *models.Story) error {
	if story == nil {
		return sharedModels.ErrStoryNotFound
	}
	if identity == nil {
		authorizationDenialsTotal.WithLabelValues(OpMutate, "unauthenticated").Inc()
		return sharedModels.ErrUnauthorized
	}
	if identity.UserID != story.AuthorID {
		authorizationDenialsTotal.WithLabelValues(OpMutate, "not_author").Inc()
		return sharedModels.ErrForbidden
	}
	return nil
}

// CanRead разрешает чтение опубликованной истории всем, а неопубликованной только автору.
// Анонимный вызывающий получает ErrForbidden, а не ErrUnauthorized.
func CanRead(identity *sharedModels.Identity, story *models.Story) error {
	if story == nil {
		return sharedModels.ErrStoryNotFound
	}
	if IsVisible(identity, story) {
		return nil
	}
	reason := "not_author"
	if identity == nil {
		reason = "unauthenticated"
	}
	authorizationDenialsTotal.WithLabelValues(OpRead, reason).Inc()
	return sharedModels.ErrForbidden
}
