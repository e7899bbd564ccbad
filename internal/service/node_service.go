package service

import (
	"context"
	"errors"

	"story-server/internal/access"
	"story-server/internal/graph"
	"story-server/internal/models"
	"story-server/internal/ordering"
	"story-server/internal/repository"
	sharedModels "story-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CreateNodeInput struct {
	StoryID  uuid.UUID
	Content  string
	Title    *string
	IsEnding *bool
}

// UpdateNodeInput - частичное обновление. Title очищается явным null.
type UpdateNodeInput struct {
	Content  *string
	Title    sharedModels.Optional[string]
	IsEnding *bool
}

type NodeService interface {
	CreateNode(ctx context.Context, identity *sharedModels.Identity, in CreateNodeInput) (*models.Node, error)
	GetNode(ctx context.Context, identity *sharedModels.Identity, id uuid.UUID) (*models.NodeWithChoices, error)
	ListByStory(ctx context.Context, identity *sharedModels.Identity, storyID uuid.UUID) ([]models.NodeWithChoices, error)
	UpdateNode(ctx context.Context, identity *sharedModels.Identity, id uuid.UUID, in UpdateNodeInput) (*models.Node, error)
	DeleteNode(ctx context.Context, identity *sharedModels.Identity, id uuid.UUID) error
}

type nodeServiceImpl struct {
	Deps
	logger *zap.Logger
}

// NewNodeService создает новый экземпляр NodeService.
func NewNodeService(deps Deps) NodeService {
	deps = deps.withDefaults()
	return &nodeServiceImpl{Deps: deps, logger: deps.Logger.Named("NodeService")}
}

// storyOfNode загружает узел и его историю.
func (s *nodeServiceImpl) storyOfNode(ctx context.Context, id uuid.UUID) (*models.Node, *models.Story, error) {
	node, err := s.Nodes.GetByID(ctx, s.DB, id)
	if err != nil {
		return nil, nil, err
	}
	story, err := s.loadStory(ctx, node.StoryID)
	if err != nil {
		return nil, nil, err
	}
	return node, story, nil
}

func (s *nodeServiceImpl) CreateNode(ctx context.Context, identity *sharedModels.Identity, in CreateNodeInput) (*models.Node, error) {
	if identity == nil {
		return nil, sharedModels.ErrUnauthorized
	}
	if in.StoryID == uuid.Nil {
		return nil, sharedModels.Validationf("storyId is required")
	}
	if err := graph.ValidateContent(in.Content); err != nil {
		return nil, err
	}
	if in.Title != nil {
		if err := graph.ValidateTitle(*in.Title); err != nil {
			return nil, err
		}
	}
	log := s.logger.With(zap.Stringer("storyID", in.StoryID), zap.Stringer("userID", identity.UserID))

	story, err := s.loadStory(ctx, in.StoryID)
	if err != nil {
		return nil, err
	}
	if err := access.CanMutate(identity, story); err != nil {
		log.Warn("Node creation denied", zap.Error(err))
		return nil, err
	}

	node := &models.Node{
		StoryID:  story.ID,
		Title:    in.Title,
		Content:  in.Content,
		IsEnding: derefBool(in.IsEnding),
	}
	if err := s.Nodes.Create(ctx, s.DB, node); err != nil {
		log.Error("Failed to create node", zap.Error(err))
		return nil, err
	}
	log.Info("Node created", zap.Stringer("nodeID", node.ID))
	return node, nil
}

func (s *nodeServiceImpl) GetNode(ctx context.Context, identity *sharedModels.Identity, id uuid.UUID) (*models.NodeWithChoices, error) {
	node, story, err := s.storyOfNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.CanRead(identity, story); err != nil {
		return nil, err
	}
	choices, err := s.Choices.ListBySourceNode(ctx, s.DB, node.ID)
	if err != nil {
		return nil, err
	}
	if choices == nil {
		choices = []models.Choice{}
	}
	ordering.Sort(choices)
	return &models.NodeWithChoices{Node: *node, Choices: choices}, nil
}

// ListByStory возвращает все узлы истории, каждый со своими исходящими выборами.
func (s *nodeServiceImpl) ListByStory(ctx context.Context, identity *sharedModels.Identity, storyID uuid.UUID) ([]models.NodeWithChoices, error) {
	story, err := s.loadStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if err := access.CanRead(identity, story); err != nil {
		return nil, err
	}

	nodes, err := s.Nodes.ListByStory(ctx, s.DB, storyID)
	if err != nil {
		return nil, err
	}
	choices, err := s.Choices.ListByStory(ctx, s.DB, storyID)
	if err != nil {
		return nil, err
	}

	bySource := make(map[uuid.UUID][]models.Choice, len(nodes))
	for _, ch := range choices {
		bySource[ch.SourceNodeID] = append(bySource[ch.SourceNodeID], ch)
	}

	result := make([]models.NodeWithChoices, 0, len(nodes))
	for _, n := range nodes {
		out := bySource[n.ID]
		if out == nil {
			out = []models.Choice{}
		}
		ordering.Sort(out)
		result = append(result, models.NodeWithChoices{Node: n, Choices: out})
	}
	return result, nil
}

func (s *nodeServiceImpl) UpdateNode(ctx context.Context, identity *sharedModels.Identity, id uuid.UUID, in UpdateNodeInput) (*models.Node, error) {
	if identity == nil {
		return nil, sharedModels.ErrUnauthorized
	}
	if in.Content != nil {
		if err := graph.ValidateContent(*in.Content); err != nil {
			return nil, err
		}
	}
	if in.Title.Value != nil {
		if err := graph.ValidateTitle(*in.Title.Value); err != nil {
			return nil, err
		}
	}
	log := s.logger.With(zap.Stringer("nodeID", id), zap.Stringer("userID", identity.UserID))

	node, story, err := s.storyOfNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.CanMutate(identity, story); err != nil {
		log.Warn("Node update denied", zap.Error(err))
		return nil, err
	}

	if in.Content != nil {
		node.Content = *in.Content
	}
	if in.Title.Set {
		node.Title = in.Title.Value
	}
	if in.IsEnding != nil {
		node.IsEnding = *in.IsEnding
	}
	if err := s.Nodes.Update(ctx, s.DB, node); err != nil {
		log.Error("Failed to update node", zap.Error(err))
		return nil, err
	}
	log.Info("Node updated")
	return node, nil
}

// DeleteNode удаляет узел вместе с входящими и исходящими выборами.
// Начальный узел истории удалить нельзя.
func (s *nodeServiceImpl) DeleteNode(ctx context.Context, identity *sharedModels.Identity, id uuid.UUID) error {
	if identity == nil {
		return sharedModels.ErrUnauthorized
	}
	log := s.logger.With(zap.Stringer("nodeID", id), zap.Stringer("userID", identity.UserID))

	node, story, err := s.storyOfNode(ctx, id)
	if err != nil {
		return err
	}
	if err := access.CanMutate(identity, story); err != nil {
		log.Warn("Node deletion denied", zap.Error(err))
		return err
	}

	// FirstNodeID проверяется по заблокированной строке в БД, не по кэшу.
	var choicesDeleted int64
	err = s.Tx.WithTx(ctx, func(q repository.DBTX) error {
		current, txErr := s.Stories.GetByIDForUpdate(ctx, q, story.ID)
		if txErr != nil {
			return txErr
		}
		if current.FirstNodeID != nil && *current.FirstNodeID == node.ID {
			return sharedModels.ErrEntryNodeDeletion
		}
		if choicesDeleted, txErr = s.Choices.DeleteByNode(ctx, q, node.ID); txErr != nil {
			return txErr
		}
		return s.Nodes.Delete(ctx, q, node.ID)
	})
	if err != nil {
		switch {
		case errors.Is(err, sharedModels.ErrEntryNodeDeletion):
			log.Warn("Entry node deletion rejected")
		case !errors.Is(err, sharedModels.ErrNotFound):
			log.Error("Failed to delete node", zap.Error(err))
		}
		return err
	}
	log.Info("Node deleted", zap.Int64("choicesDeleted", choicesDeleted))
	return nil
}
