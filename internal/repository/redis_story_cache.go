package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"story-server/internal/models"
	"story-server/shared/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StoryCache кэширует строки историй для проверок доступа.
// Ошибки кэша не прерывают запрос: промах означает чтение из базы.
type StoryCache interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Story, bool)
	Set(ctx context.Context, story *models.Story)
	Invalidate(ctx context.Context, id uuid.UUID)
}

var _ StoryCache = (*redisStoryCache)(nil)

type redisStoryCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStoryCache создает кэш историй. nil клиент дает no-op кэш.
func NewRedisStoryCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) StoryCache {
	if client == nil {
		return NoopStoryCache{}
	}
	return &redisStoryCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisStoryCache"),
	}
}

func storyCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("story:%s", id)
}

func (c *redisStoryCache) Get(ctx context.Context, id uuid.UUID) (*models.Story, bool) {
	data, err := c.client.Get(ctx, storyCacheKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Failed to read story from cache", zap.Stringer("storyID", id), zap.Error(err))
		}
		return nil, false
	}
	// Записи старого формата отбрасываются и перечитываются из базы
	story := &models.Story{}
	if err := utils.DecodeStrict(data, story); err != nil {
		c.logger.Warn("Corrupted story cache entry, dropping", zap.Stringer("storyID", id), zap.Error(err))
		c.Invalidate(ctx, id)
		return nil, false
	}
	return story, true
}

func (c *redisStoryCache) Set(ctx context.Context, story *models.Story) {
	data, err := json.Marshal(story)
	if err != nil {
		c.logger.Warn("Failed to marshal story for cache", zap.Stringer("storyID", story.ID), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, storyCacheKey(story.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to write story to cache", zap.Stringer("storyID", story.ID), zap.Error(err))
	}
}

func (c *redisStoryCache) Invalidate(ctx context.Context, id uuid.UUID) {
	if err := c.client.Del(ctx, storyCacheKey(id)).Err(); err != nil {
		c.logger.Warn("Failed to invalidate story cache", zap.Stringer("storyID", id), zap.Error(err))
	}
}

// NoopStoryCache - кэш, который ничего не хранит.
type NoopStoryCache struct{}

func (NoopStoryCache) Get(context.Context, uuid.UUID) (*models.Story, bool) { return nil, false }
func (NoopStoryCache) Set(context.Context, *models.Story)                   {}
func (NoopStoryCache) Invalidate(context.Context, uuid.UUID)                {}
