package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"story-server/internal/models"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Типы событий и одновременно routing key в topic exchange.
const (
	EventStoryCreated     = "story.created"
	EventStoryUpdated     = "story.updated"
	EventStoryPublished   = "story.published"
	EventStoryUnpublished = "story.unpublished"
	EventStoryDeleted     = "story.deleted"

	storyEventsExchangeType = "topic"
	publishTimeout          = 5 * time.Second
)

// StoryEvent - сообщение о смене жизненного цикла истории.
type StoryEvent struct {
	EventID     uuid.UUID `json:"eventId"`
	Type        string    `json:"type"`
	StoryID     uuid.UUID `json:"storyId"`
	AuthorID    uuid.UUID `json:"authorId"`
	Title       string    `json:"title"`
	IsPublished bool      `json:"isPublished"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// NewStoryEvent собирает событие из состояния истории.
func NewStoryEvent(eventType string, story *models.Story) StoryEvent {
	return StoryEvent{
		EventID:     uuid.New(),
		Type:        eventType,
		StoryID:     story.ID,
		AuthorID:    story.AuthorID,
		Title:       story.Title,
		IsPublished: story.IsPublished,
		OccurredAt:  time.Now().UTC(),
	}
}

// StoryEventPublisher публикует события историй.
type StoryEventPublisher interface {
	PublishStoryEvent(ctx context.Context, event StoryEvent) error
}

type rabbitMQStoryEventPublisher struct {
	mu       sync.Mutex
	ch       *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewRabbitMQStoryEventPublisher открывает канал и объявляет durable topic exchange.
func NewRabbitMQStoryEventPublisher(conn *amqp.Connection, exchange string, logger *zap.Logger) (StoryEventPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("rabbitmq connection is nil")
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("story event publisher: failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, storyEventsExchangeType, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("story event publisher: failed to declare exchange '%s': %w", exchange, err)
	}
	logger.Info("Story events exchange declared", zap.String("exchange", exchange))
	return &rabbitMQStoryEventPublisher{
		ch:       ch,
		exchange: exchange,
		logger:   logger.Named("StoryEventPublisher"),
	}, nil
}

func (p *rabbitMQStoryEventPublisher) PublishStoryEvent(ctx context.Context, event StoryEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal story event: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(publishCtx,
		p.exchange,
		event.Type,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.EventID.String(),
			Timestamp:    event.OccurredAt,
			Type:         event.Type,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish story event %s: %w", event.Type, err)
	}
	p.logger.Debug("Story event published", zap.String("type", event.Type), zap.Stringer("storyID", event.StoryID))
	return nil
}

// NoopStoryEventPublisher используется, когда RabbitMQ не настроен.
type NoopStoryEventPublisher struct{}

func (NoopStoryEventPublisher) PublishStoryEvent(context.Context, StoryEvent) error { return nil }
