package mocks

import (
	"context"

	"story-server/internal/models"
	"story-server/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

var (
	_ repository.StoryRepository  = (*StoryRepository)(nil)
	_ repository.NodeRepository   = (*NodeRepository)(nil)
	_ repository.ChoiceRepository = (*ChoiceRepository)(nil)
	_ repository.UserRepository   = (*UserRepository)(nil)
	_ repository.TxManager        = (*TxManager)(nil)
)

// TxManager выполняет fn сразу, без базы. Querier внутри транзакции - nil.
type TxManager struct {
	Calls int
}

func (m *TxManager) WithTx(ctx context.Context, fn func(q repository.DBTX) error) error {
	m.Calls++
	return fn(nil)
}

// Mock StoryRepository
type StoryRepository struct {
	mock.Mock
}

func (m *StoryRepository) Create(ctx context.Context, q repository.DBTX, story *models.Story) error {
	args := m.Called(ctx, q, story)
	return args.Error(0)
}
func (m *StoryRepository) GetByID(ctx context.Context, q repository.DBTX, id uuid.UUID) (*models.Story, error) {
	args := m.Called(ctx, q, id)
	story, _ := args.Get(0).(*models.Story)
	return story, args.Error(1)
}
func (m *StoryRepository) GetByIDForUpdate(ctx context.Context, q repository.DBTX, id uuid.UUID) (*models.Story, error) {
	args := m.Called(ctx, q, id)
	story, _ := args.Get(0).(*models.Story)
	return story, args.Error(1)
}
func (m *StoryRepository) Update(ctx context.Context, q repository.DBTX, story *models.Story) error {
	args := m.Called(ctx, q, story)
	return args.Error(0)
}
func (m *StoryRepository) SetFirstNode(ctx context.Context, q repository.DBTX, storyID, nodeID uuid.UUID) error {
	args := m.Called(ctx, q, storyID, nodeID)
	return args.Error(0)
}
func (m *StoryRepository) Delete(ctx context.Context, q repository.DBTX, id uuid.UUID) error {
	args := m.Called(ctx, q, id)
	return args.Error(0)
}
func (m *StoryRepository) ListPublished(ctx context.Context, q repository.DBTX, cursor string, limit int) ([]models.StoryWithAuthor, string, error) {
	args := m.Called(ctx, q, cursor, limit)
	stories, _ := args.Get(0).([]models.StoryWithAuthor)
	return stories, args.String(1), args.Error(2)
}
func (m *StoryRepository) ListByAuthor(ctx context.Context, q repository.DBTX, authorID uuid.UUID) ([]models.Story, error) {
	args := m.Called(ctx, q, authorID)
	stories, _ := args.Get(0).([]models.Story)
	return stories, args.Error(1)
}

// Mock NodeRepository
type NodeRepository struct {
	mock.Mock
}

func (m *NodeRepository) Create(ctx context.Context, q repository.DBTX, node *models.Node) error {
	args := m.Called(ctx, q, node)
	return args.Error(0)
}
func (m *NodeRepository) GetByID(ctx context.Context, q repository.DBTX, id uuid.UUID) (*models.Node, error) {
	args := m.Called(ctx, q, id)
	node, _ := args.Get(0).(*models.Node)
	return node, args.Error(1)
}
func (m *NodeRepository) GetByIDForUpdate(ctx context.Context, q repository.DBTX, id uuid.UUID) (*models.Node, error) {
	args := m.Called(ctx, q, id)
	node, _ := args.Get(0).(*models.Node)
	return node, args.Error(1)
}
func (m *NodeRepository) Update(ctx context.Context, q repository.DBTX, node *models.Node) error {
	args := m.Called(ctx, q, node)
	return args.Error(0)
}
func (m *NodeRepository) Delete(ctx context.Context, q repository.DBTX, id uuid.UUID) error {
	args := m.Called(ctx, q, id)
	return args.Error(0)
}
func (m *NodeRepository) DeleteByStory(ctx context.Context, q repository.DBTX, storyID uuid.UUID) (int64, error) {
	args := m.Called(ctx, q, storyID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *NodeRepository) ListByStory(ctx context.Context, q repository.DBTX, storyID uuid.UUID) ([]models.Node, error) {
	args := m.Called(ctx, q, storyID)
	nodes, _ := args.Get(0).([]models.Node)
	return nodes, args.Error(1)
}

// Mock ChoiceRepository
type ChoiceRepository struct {
	mock.Mock
}

func (m *ChoiceRepository) Create(ctx context.Context, q repository.DBTX, choice *models.Choice) error {
	args := m.Called(ctx, q, choice)
	return args.Error(0)
}
func (m *ChoiceRepository) GetByID(ctx context.Context, q repository.DBTX, id uuid.UUID) (*models.Choice, error) {
	args := m.Called(ctx, q, id)
	choice, _ := args.Get(0).(*models.Choice)
	return choice, args.Error(1)
}
func (m *ChoiceRepository) Update(ctx context.Context, q repository.DBTX, choice *models.Choice) error {
	args := m.Called(ctx, q, choice)
	return args.Error(0)
}
func (m *ChoiceRepository) UpdateOrder(ctx context.Context, q repository.DBTX, id uuid.UUID, order int) error {
	args := m.Called(ctx, q, id, order)
	return args.Error(0)
}
func (m *ChoiceRepository) Delete(ctx context.Context, q repository.DBTX, id uuid.UUID) error {
	args := m.Called(ctx, q, id)
	return args.Error(0)
}
func (m *ChoiceRepository) DeleteByNode(ctx context.Context, q repository.DBTX, nodeID uuid.UUID) (int64, error) {
	args := m.Called(ctx, q, nodeID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *ChoiceRepository) DeleteByStory(ctx context.Context, q repository.DBTX, storyID uuid.UUID) (int64, error) {
	args := m.Called(ctx, q, storyID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *ChoiceRepository) ListBySourceNode(ctx context.Context, q repository.DBTX, nodeID uuid.UUID) ([]models.Choice, error) {
	args := m.Called(ctx, q, nodeID)
	choices, _ := args.Get(0).([]models.Choice)
	return choices, args.Error(1)
}
func (m *ChoiceRepository) ListByStory(ctx context.Context, q repository.DBTX, storyID uuid.UUID) ([]models.Choice, error) {
	args := m.Called(ctx, q, storyID)
	choices, _ := args.Get(0).([]models.Choice)
	return choices, args.Error(1)
}

// Mock UserRepository
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, q repository.DBTX, user *models.User) error {
	args := m.Called(ctx, q, user)
	return args.Error(0)
}
func (m *UserRepository) GetByID(ctx context.Context, q repository.DBTX, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, q, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}
func (m *UserRepository) GetByEmail(ctx context.Context, q repository.DBTX, email string) (*models.User, error) {
	args := m.Called(ctx, q, email)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}
