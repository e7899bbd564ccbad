package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"story-server/internal/models"
	"story-server/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

type RedisStoryCacheSuite struct {
	suite.Suite
	ctx         context.Context
	rdContainer *tcredis.RedisContainer
	client      *redis.Client
}

func TestRedisStoryCacheSuite(t *testing.T) {
	requireDocker(t)
	suite.Run(t, new(RedisStoryCacheSuite))
}

func (s *RedisStoryCacheSuite) SetupSuite() {
	s.ctx = context.Background()

	var err error
	s.rdContainer, err = tcredis.Run(s.ctx,
		"docker.io/redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("* Ready to accept connections").
				WithOccurrence(1).
				WithStartupTimeout(1*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start redis container")

	host, err := s.rdContainer.Host(s.ctx)
	require.NoError(s.T(), err)
	port, err := s.rdContainer.MappedPort(s.ctx, "6379/tcp")
	require.NoError(s.T(), err)

	s.client = redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	require.NoError(s.T(), s.client.Ping(s.ctx).Err())
}

func (s *RedisStoryCacheSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.rdContainer != nil {
		_ = s.rdContainer.Terminate(s.ctx)
	}
}

func (s *RedisStoryCacheSuite) TestSetGetInvalidate() {
	cache := repository.NewRedisStoryCache(s.client, time.Minute, zap.NewNop())
	firstNode := uuid.New()
	story := &models.Story{
		ID:          uuid.New(),
		AuthorID:    uuid.New(),
		Title:       "Cached",
		IsPublished: true,
		FirstNodeID: &firstNode,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}

	_, ok := cache.Get(s.ctx, story.ID)
	assert.False(s.T(), ok)

	cache.Set(s.ctx, story)
	got, ok := cache.Get(s.ctx, story.ID)
	require.True(s.T(), ok)
	assert.Equal(s.T(), story.Title, got.Title)
	assert.Equal(s.T(), story.AuthorID, got.AuthorID)
	require.NotNil(s.T(), got.FirstNodeID)
	assert.Equal(s.T(), firstNode, *got.FirstNodeID)

	cache.Invalidate(s.ctx, story.ID)
	_, ok = cache.Get(s.ctx, story.ID)
	assert.False(s.T(), ok)
}

func (s *RedisStoryCacheSuite) TestTTLAndCorruptedEntry() {
	cache := repository.NewRedisStoryCache(s.client, 30*time.Second, zap.NewNop())
	story := &models.Story{ID: uuid.New(), Title: "Short lived"}
	cache.Set(s.ctx, story)

	ttl, err := s.client.TTL(s.ctx, "story:"+story.ID.String()).Result()
	require.NoError(s.T(), err)
	assert.True(s.T(), ttl > 0 && ttl <= 30*time.Second)

	require.NoError(s.T(), s.client.Set(s.ctx, "story:"+story.ID.String(), "{not json", time.Minute).Err())
	_, ok := cache.Get(s.ctx, story.ID)
	assert.False(s.T(), ok)

	exists, err := s.client.Exists(s.ctx, "story:"+story.ID.String()).Result()
	require.NoError(s.T(), err)
	assert.Zero(s.T(), exists, "corrupted entry should be dropped")
}

func (s *RedisStoryCacheSuite) TestEntryWithUnknownFieldIsMiss() {
	cache := repository.NewRedisStoryCache(s.client, time.Minute, zap.NewNop())
	id := uuid.New()
	key := "story:" + id.String()
	raw := fmt.Sprintf(`{"id":%q,"title":"Old","legacyOwner":"x"}`, id)
	require.NoError(s.T(), s.client.Set(s.ctx, key, raw, time.Minute).Err())

	_, ok := cache.Get(s.ctx, id)
	assert.False(s.T(), ok)

	exists, err := s.client.Exists(s.ctx, key).Result()
	require.NoError(s.T(), err)
	assert.Zero(s.T(), exists, "stale entry should be dropped")
}

func TestNewRedisStoryCache_NilClientIsNoop(t *testing.T) {
	cache := repository.NewRedisStoryCache(nil, time.Minute, zap.NewNop())
	cache.Set(context.Background(), &models.Story{ID: uuid.New()})
	_, ok := cache.Get(context.Background(), uuid.New())
	assert.False(t, ok)
	assert.IsType(t, repository.NoopStoryCache{}, cache)
}
