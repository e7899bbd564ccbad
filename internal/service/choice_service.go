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

type CreateChoiceInput struct {
	SourceNodeID uuid.UUID
	TargetNodeID uuid.UUID
	Text         string
	// Order == nil - поставить выбор последним.
	Order *int
}

type UpdateChoiceInput struct {
	Text         *string
	TargetNodeID *uuid.UUID
	Order        *int
}

type ChoiceService interface {
	ListByNode(ctx context.Context, identity *sharedModels.Identity, nodeID uuid.UUID) ([]models.Choice, error)
	CreateChoice(ctx context.Context, identity *sharedModels.Identity, in CreateChoiceInput) (*models.Choice, error)
	UpdateChoice(ctx context.Context, identity *sharedModels.Identity, id uuid.UUID, in UpdateChoiceInput) (*models.Choice, error)
	DeleteChoice(ctx context.Context, identity *sharedModels.Identity, id uuid.UUID) error
	ReorderChoices(ctx context.Context, identity *sharedModels.Identity, nodeID uuid.UUID, orderedIDs []uuid.UUID) ([]models.Choice, error)
}

type choiceServiceImpl struct {
	Deps
	logger         *zap.Logger
	requireFullSet bool
}

// NewChoiceService создает новый экземпляр ChoiceService.
// requireFullSet требует, чтобы переупорядочивание перечисляло все выборы узла.
func NewChoiceService(deps Deps, requireFullSet bool) ChoiceService {
	deps = deps.withDefaults()
	return &choiceServiceImpl{
		Deps:           deps,
		logger:         deps.Logger.Named("ChoiceService"),
		requireFullSet: requireFullSet,
	}
}

// findNode возвращает nil без ошибки, если узла нет.
func (s *choiceServiceImpl) findNode(ctx context.Context, id uuid.UUID) (*models.Node, error) {
	node, err := s.Nodes.GetByID(ctx, s.DB, id)
	if errors.Is(err, sharedModels.ErrNotFound) {
		return nil, nil
	}
	return node, err
}

// authorizeNode загружает узел и проверяет право автора менять его историю.
func (s *choiceServiceImpl) authorizeNode(ctx context.Context, identity *sharedModels.Identity, nodeID uuid.UUID) (*models.Node, *models.Story, error) {
	node, err := s.Nodes.GetByID(ctx, s.DB, nodeID)
	if err != nil {
		return nil, nil, err
	}
	story, err := s.loadStory(ctx, node.StoryID)
	if err != nil {
		return nil, nil, err
	}
	if err := access.CanMutate(identity, story); err != nil {
		return nil, nil, err
	}
	return node, story, nil
}

func (s *choiceServiceImpl) ListByNode(ctx context.Context, identity *sharedModels.Identity, nodeID uuid.UUID) ([]models.Choice, error) {
	node, err := s.Nodes.GetByID(ctx, s.DB, nodeID)
	if err != nil {
		return nil, err
	}
	story, err := s.loadStory(ctx, node.StoryID)
	if err != nil {
		return nil, err
	}
	if err := access.CanRead(identity, story); err != nil {
		return nil, err
	}
	choices, err := s.Choices.ListBySourceNode(ctx, s.DB, nodeID)
	if err != nil {
		return nil, err
	}
	if choices == nil {
		choices = []models.Choice{}
	}
	ordering.Sort(choices)
	return choices, nil
}

// CreateChoice проверяет поля, источник и авторство, затем цель и общую историю.
func (s *choiceServiceImpl) CreateChoice(ctx context.Context, identity *sharedModels.Identity, in CreateChoiceInput) (*models.Choice, error) {
	if identity == nil {
		return nil, sharedModels.ErrUnauthorized
	}
	if in.SourceNodeID == uuid.Nil || in.TargetNodeID == uuid.Nil {
		return nil, sharedModels.Validationf("sourceNodeId and targetNodeId are required")
	}
	if err := graph.ValidateChoiceText(in.Text); err != nil {
		return nil, err
	}
	if in.Order != nil {
		if err := graph.ValidateOrder(*in.Order); err != nil {
			return nil, err
		}
	}
	log := s.logger.With(zap.Stringer("sourceNodeID", in.SourceNodeID), zap.Stringer("userID", identity.UserID))

	source, err := s.findNode(ctx, in.SourceNodeID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, graph.ValidateChoiceEndpoints(nil, nil)
	}

	// Права автора проверяются до чтения цели.
	story, err := s.loadStory(ctx, source.StoryID)
	if err != nil {
		return nil, err
	}
	if err := access.CanMutate(identity, story); err != nil {
		log.Warn("Choice creation denied", zap.Error(err))
		return nil, err
	}

	target, err := s.findNode(ctx, in.TargetNodeID)
	if err != nil {
		return nil, err
	}
	if err := graph.ValidateChoiceEndpoints(source, target); err != nil {
		log.Warn("Invalid choice endpoints", zap.Error(err))
		return nil, err
	}

	choice := &models.Choice{
		SourceNodeID: source.ID,
		TargetNodeID: target.ID,
		Text:         in.Text,
	}
	if in.Order != nil {
		choice.Order = *in.Order
		err = s.Choices.Create(ctx, s.DB, choice)
	} else {
		// Блокировка узла сериализует вычисление следующего order
		err = s.Tx.WithTx(ctx, func(q repository.DBTX) error {
			if _, txErr := s.Nodes.GetByIDForUpdate(ctx, q, source.ID); txErr != nil {
				return txErr
			}
			existing, txErr := s.Choices.ListBySourceNode(ctx, q, source.ID)
			if txErr != nil {
				return txErr
			}
			choice.Order = ordering.NextOrder(existing)
			return s.Choices.Create(ctx, q, choice)
		})
	}
	if err != nil {
		log.Error("Failed to create choice", zap.Error(err))
		return nil, err
	}
	log.Info("Choice created", zap.Stringer("choiceID", choice.ID), zap.Int("order", choice.Order))
	return choice, nil
}

func (s *choiceServiceImpl) UpdateChoice(ctx context.Context, identity *sharedModels.Identity, id uuid.UUID, in UpdateChoiceInput) (*models.Choice, error) {
	if identity == nil {
		return nil, sharedModels.ErrUnauthorized
	}
	if in.Text != nil {
		if err := graph.ValidateChoiceText(*in.Text); err != nil {
			return nil, err
		}
	}
	if in.Order != nil {
		if err := graph.ValidateOrder(*in.Order); err != nil {
			return nil, err
		}
	}
	log := s.logger.With(zap.Stringer("choiceID", id), zap.Stringer("userID", identity.UserID))

	choice, err := s.Choices.GetByID(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	source, _, err := s.authorizeNode(ctx, identity, choice.SourceNodeID)
	if err != nil {
		log.Warn("Choice update denied", zap.Error(err))
		return nil, err
	}

	if in.TargetNodeID != nil && *in.TargetNodeID != choice.TargetNodeID {
		target, err := s.findNode(ctx, *in.TargetNodeID)
		if err != nil {
			return nil, err
		}
		if err := graph.ValidateChoiceEndpoints(source, target); err != nil {
			log.Warn("Invalid choice target", zap.Error(err))
			return nil, err
		}
		choice.TargetNodeID = target.ID
	}
	if in.Text != nil {
		choice.Text = *in.Text
	}
	if in.Order != nil {
		choice.Order = *in.Order
	}

	if err := s.Choices.Update(ctx, s.DB, choice); err != nil {
		log.Error("Failed to update choice", zap.Error(err))
		return nil, err
	}
	log.Info("Choice updated")
	return choice, nil
}

func (s *choiceServiceImpl) DeleteChoice(ctx context.Context, identity *sharedModels.Identity, id uuid.UUID) error {
	if identity == nil {
		return sharedModels.ErrUnauthorized
	}
	log := s.logger.With(zap.Stringer("choiceID", id), zap.Stringer("userID", identity.UserID))

	choice, err := s.Choices.GetByID(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if _, _, err := s.authorizeNode(ctx, identity, choice.SourceNodeID); err != nil {
		log.Warn("Choice deletion denied", zap.Error(err))
		return err
	}
	if err := s.Choices.Delete(ctx, s.DB, id); err != nil {
		log.Error("Failed to delete choice", zap.Error(err))
		return err
	}
	log.Info("Choice deleted")
	return nil
}

// ReorderChoices присваивает перечисленным выборам order 0..n-1 атомарно.
func (s *choiceServiceImpl) ReorderChoices(ctx context.Context, identity *sharedModels.Identity, nodeID uuid.UUID, orderedIDs []uuid.UUID) ([]models.Choice, error) {
	if identity == nil {
		return nil, sharedModels.ErrUnauthorized
	}
	log := s.logger.With(zap.Stringer("nodeID", nodeID), zap.Stringer("userID", identity.UserID), zap.Int("count", len(orderedIDs)))

	if _, _, err := s.authorizeNode(ctx, identity, nodeID); err != nil {
		log.Warn("Choice reorder denied", zap.Error(err))
		return nil, err
	}

	var result []models.Choice
	err := s.Tx.WithTx(ctx, func(q repository.DBTX) error {
		if _, err := s.Nodes.GetByIDForUpdate(ctx, q, nodeID); err != nil {
			return err
		}
		existing, err := s.Choices.ListBySourceNode(ctx, q, nodeID)
		if err != nil {
			return err
		}
		plan, err := ordering.PlanReorder(existing, orderedIDs, s.requireFullSet)
		if err != nil {
			return err
		}
		for _, a := range plan {
			if err := s.Choices.UpdateOrder(ctx, q, a.ChoiceID, a.Order); err != nil {
				return err
			}
		}
		result = ordering.Apply(existing, plan)
		return nil
	})
	if err != nil {
		if errors.Is(err, sharedModels.ErrInvalidChoiceSet) {
			log.Warn("Rejected choice reorder", zap.Error(err))
		} else {
			log.Error("Failed to reorder choices", zap.Error(err))
		}
		return nil, err
	}
	log.Info("Choices reordered")
	return result, nil
}
