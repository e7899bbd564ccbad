package service

import (
	"context"

	"story-server/internal/messaging"
	"story-server/internal/models"
	"story-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Deps - общие зависимости сервисов графа историй.
type Deps struct {
	DB      repository.DBTX
	Tx      repository.TxManager
	Stories repository.StoryRepository
	Nodes   repository.NodeRepository
	Choices repository.ChoiceRepository
	Users   repository.UserRepository
	Cache   repository.StoryCache
	Events  messaging.StoryEventPublisher
	Logger  *zap.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Cache == nil {
		d.Cache = repository.NoopStoryCache{}
	}
	if d.Events == nil {
		d.Events = messaging.NoopStoryEventPublisher{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}

// loadStory читает историю через кэш. Все проверки доступа идут через эту историю.
func (d Deps) loadStory(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	if story, ok := d.Cache.Get(ctx, id); ok {
		return story, nil
	}
	story, err := d.Stories.GetByID(ctx, d.DB, id)
	if err != nil {
		return nil, err
	}
	d.Cache.Set(ctx, story)
	return story, nil
}

// publish отправляет событие после успешной записи. Ошибка только логируется.
func (d Deps) publish(ctx context.Context, log *zap.Logger, eventType string, story *models.Story) {
	if err := d.Events.PublishStoryEvent(ctx, messaging.NewStoryEvent(eventType, story)); err != nil {
		log.Warn("Failed to publish story event", zap.String("eventType", eventType), zap.Error(err))
	}
}

func derefBool(b *bool) bool {
	return b != nil && *b
}
