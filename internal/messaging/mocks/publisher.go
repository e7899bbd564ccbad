package mocks

import (
	"context"

	"story-server/internal/messaging"

	"github.com/stretchr/testify/mock"
)

var _ messaging.StoryEventPublisher = (*StoryEventPublisher)(nil)

// Mock StoryEventPublisher
type StoryEventPublisher struct {
	mock.Mock
}

func (m *StoryEventPublisher) PublishStoryEvent(ctx context.Context, event messaging.StoryEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
