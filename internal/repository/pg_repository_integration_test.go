package repository_test

import (
	"context"
	"testing"
	"time"

	"story-server/internal/database"
	"story-server/internal/models"
	"story-server/internal/repository"
	"story-server/internal/service"
	sharedModels "story-server/shared/models"

	"github.com/docker/docker/client"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// requireDocker пропускает интеграционные тесты без -short только при доступном Docker.
func requireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		t.Skipf("Docker client init error: %v", err)
	}
	defer cli.Close()
	if _, err := cli.Ping(context.Background()); err != nil {
		t.Skipf("Docker daemon is not running or accessible: %v", err)
	}
}

type PgRepositorySuite struct {
	suite.Suite
	ctx         context.Context
	pgContainer *postgres.PostgresContainer
	pool        *pgxpool.Pool
	logger      *zap.Logger

	stories repository.StoryRepository
	nodes   repository.NodeRepository
	choices repository.ChoiceRepository
	users   repository.UserRepository
	tx      repository.TxManager
}

func TestPgRepositorySuite(t *testing.T) {
	requireDocker(t)
	suite.Run(t, new(PgRepositorySuite))
}

func (s *PgRepositorySuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = zap.NewNop()

	var err error
	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start postgres container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err)
	s.pool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err)

	require.NoError(s.T(), database.NewMigrator(s.pool, s.logger).Up(s.ctx), "Failed to run migrations")

	s.stories = repository.NewPgStoryRepository(s.logger)
	s.nodes = repository.NewPgNodeRepository(s.logger)
	s.choices = repository.NewPgChoiceRepository(s.logger)
	s.users = repository.NewPgUserRepository(s.logger)
	s.tx = repository.NewTxManager(s.pool, s.logger)
}

func (s *PgRepositorySuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(s.ctx)
	}
}

func (s *PgRepositorySuite) SetupTest() {
	_, err := s.pool.Exec(s.ctx, `TRUNCATE users, stories, nodes, choices CASCADE`)
	require.NoError(s.T(), err)
}

func (s *PgRepositorySuite) deps() service.Deps {
	return service.Deps{
		DB:      s.pool,
		Tx:      s.tx,
		Stories: s.stories,
		Nodes:   s.nodes,
		Choices: s.choices,
		Users:   s.users,
		Logger:  s.logger,
	}
}

func (s *PgRepositorySuite) createUser(email string) *models.User {
	user := &models.User{Email: email, PasswordHash: "hash", DisplayName: email}
	require.NoError(s.T(), s.users.Create(s.ctx, s.pool, user))
	return user
}

func (s *PgRepositorySuite) createStory(author *models.User, title string) *models.Story {
	story, err := service.NewStoryService(s.deps()).CreateStory(s.ctx, &sharedModels.Identity{UserID: author.ID}, service.CreateStoryInput{Title: title})
	require.NoError(s.T(), err)
	return story
}

func (s *PgRepositorySuite) TestMigrationsVersion() {
	version, dirty, err := database.NewMigrator(s.pool, s.logger).Version(s.ctx)
	require.NoError(s.T(), err)
	assert.False(s.T(), dirty)
	assert.EqualValues(s.T(), 3, version)
}

func (s *PgRepositorySuite) TestUsers_DuplicateEmail() {
	user := s.createUser("Mixed@Example.com")
	assert.Equal(s.T(), "mixed@example.com", user.Email)

	got, err := s.users.GetByEmail(s.ctx, s.pool, "mixed@example.com")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), user.ID, got.ID)

	dup := &models.User{Email: "mixed@example.com", PasswordHash: "x", DisplayName: "dup"}
	err = s.users.Create(s.ctx, s.pool, dup)
	assert.ErrorIs(s.T(), err, sharedModels.ErrEmailAlreadyExists)

	_, err = s.users.GetByID(s.ctx, s.pool, uuid.New())
	assert.ErrorIs(s.T(), err, sharedModels.ErrUserNotFound)
}

func (s *PgRepositorySuite) TestCreateStory_BootstrapPersisted() {
	author := s.createUser("author@example.com")
	story := s.createStory(author, "Cave")

	stored, err := s.stories.GetByID(s.ctx, s.pool, story.ID)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), stored.FirstNodeID)
	assert.True(s.T(), stored.IsDraft)
	assert.False(s.T(), stored.IsPublished)

	entry, err := s.nodes.GetByID(s.ctx, s.pool, *stored.FirstNodeID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), story.ID, entry.StoryID)
	assert.Equal(s.T(), models.BootstrapNodeContent, entry.Content)
}

func (s *PgRepositorySuite) TestChoices_ImplicitOrderReorderAndCascade() {
	author := s.createUser("graph@example.com")
	identity := &sharedModels.Identity{UserID: author.ID}
	story := s.createStory(author, "Graph")

	nodeSvc := service.NewNodeService(s.deps())
	choiceSvc := service.NewChoiceService(s.deps(), false)

	target, err := nodeSvc.CreateNode(s.ctx, identity, service.CreateNodeInput{StoryID: story.ID, Content: "Room"})
	require.NoError(s.T(), err)

	var ids []uuid.UUID
	for i, text := range []string{"A", "B", "C"} {
		ch, err := choiceSvc.CreateChoice(s.ctx, identity, service.CreateChoiceInput{
			SourceNodeID: *story.FirstNodeID, TargetNodeID: target.ID, Text: text,
		})
		require.NoError(s.T(), err)
		assert.Equal(s.T(), i, ch.Order)
		ids = append(ids, ch.ID)
	}

	reordered, err := choiceSvc.ReorderChoices(s.ctx, identity, *story.FirstNodeID, []uuid.UUID{ids[2], ids[1], ids[0]})
	require.NoError(s.T(), err)
	stored, err := s.choices.ListBySourceNode(s.ctx, s.pool, *story.FirstNodeID)
	require.NoError(s.T(), err)
	require.Len(s.T(), stored, 3)
	for i := range stored {
		assert.Equal(s.T(), reordered[i].ID, stored[i].ID)
		assert.Equal(s.T(), i, stored[i].Order)
	}
	assert.Equal(s.T(), ids[2], stored[0].ID)

	// Повторный reorder с тем же списком ничего не меняет
	again, err := choiceSvc.ReorderChoices(s.ctx, identity, *story.FirstNodeID, []uuid.UUID{ids[2], ids[1], ids[0]})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), reordered[0].ID, again[0].ID)

	// Удаление целевого узла убирает входящие выборы
	require.NoError(s.T(), nodeSvc.DeleteNode(s.ctx, identity, target.ID))
	stored, err = s.choices.ListBySourceNode(s.ctx, s.pool, *story.FirstNodeID)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), stored)

	err = nodeSvc.DeleteNode(s.ctx, identity, *story.FirstNodeID)
	assert.ErrorIs(s.T(), err, sharedModels.ErrEntryNodeDeletion)
}

func (s *PgRepositorySuite) TestDeleteStory_RemovesGraph() {
	author := s.createUser("cascade@example.com")
	identity := &sharedModels.Identity{UserID: author.ID}
	story := s.createStory(author, "Doomed")

	choiceSvc := service.NewChoiceService(s.deps(), false)
	_, err := choiceSvc.CreateChoice(s.ctx, identity, service.CreateChoiceInput{
		SourceNodeID: *story.FirstNodeID, TargetNodeID: *story.FirstNodeID, Text: "Loop",
	})
	require.NoError(s.T(), err)

	require.NoError(s.T(), service.NewStoryService(s.deps()).DeleteStory(s.ctx, identity, story.ID))

	_, err = s.stories.GetByID(s.ctx, s.pool, story.ID)
	assert.ErrorIs(s.T(), err, sharedModels.ErrStoryNotFound)
	nodes, err := s.nodes.ListByStory(s.ctx, s.pool, story.ID)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), nodes)
}

func (s *PgRepositorySuite) TestDeleteEntryNode_RejectedAtCommit() {
	author := s.createUser("entry@example.com")
	story := s.createStory(author, "Guarded")

	err := s.tx.WithTx(s.ctx, func(q repository.DBTX) error {
		if _, err := s.choices.DeleteByNode(s.ctx, q, *story.FirstNodeID); err != nil {
			return err
		}
		return s.nodes.Delete(s.ctx, q, *story.FirstNodeID)
	})
	assert.ErrorIs(s.T(), err, sharedModels.ErrEntryNodeDeletion)

	stored, err := s.stories.GetByID(s.ctx, s.pool, story.ID)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), stored.FirstNodeID)
	assert.Equal(s.T(), *story.FirstNodeID, *stored.FirstNodeID)
	_, err = s.nodes.GetByID(s.ctx, s.pool, *story.FirstNodeID)
	assert.NoError(s.T(), err)
}

func (s *PgRepositorySuite) TestListPublished_KeysetPagination() {
	author := s.createUser("pager@example.com")
	for _, title := range []string{"One", "Two", "Three"} {
		story := s.createStory(author, title)
		story.IsPublished = true
		require.NoError(s.T(), s.stories.Update(s.ctx, s.pool, story))
	}
	s.createStory(author, "Hidden draft")

	first, next, err := s.stories.ListPublished(s.ctx, s.pool, "", 2)
	require.NoError(s.T(), err)
	require.Len(s.T(), first, 2)
	require.NotEmpty(s.T(), next)
	assert.Equal(s.T(), author.DisplayName, first[0].Author.DisplayName)

	second, next, err := s.stories.ListPublished(s.ctx, s.pool, next, 2)
	require.NoError(s.T(), err)
	require.Len(s.T(), second, 1)
	assert.Empty(s.T(), next)

	seen := map[uuid.UUID]bool{}
	for _, st := range append(first, second...) {
		assert.True(s.T(), st.IsPublished)
		assert.False(s.T(), seen[st.ID], "story listed twice")
		seen[st.ID] = true
	}

	_, _, err = s.stories.ListPublished(s.ctx, s.pool, "%%%", 2)
	assert.ErrorIs(s.T(), err, sharedModels.ErrValidation)
}
