package service

import (
	"context"
	"errors"
	"fmt"

	"story-server/internal/access"
	"story-server/internal/graph"
	"story-server/internal/messaging"
	"story-server/internal/models"
	"story-server/internal/repository"
	sharedModels "story-server/shared/models"
	"story-server/shared/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultStoryPageSize = 20
	maxStoryPageSize     = 100
)

type CreateStoryInput struct {
	Title       string
	Description *string
	CoverImage  *string
}

// UpdateStoryInput - частичное обновление: nil означает "не менять".
// Description и CoverImage можно очистить явным null.
type UpdateStoryInput struct {
	Title       *string
	Description sharedModels.Optional[string]
	CoverImage  sharedModels.Optional[string]
	IsDraft     *bool
	IsPublished *bool
	FirstNodeID *uuid.UUID
}

type StoryService interface {
	CreateStory(ctx context.Context, identity *sharedModels.Identity, in CreateStoryInput) (*models.Story, error)
	GetStory(ctx context.Context, identity *sharedModels.Identity, id uuid.UUID) (*models.StoryWithAuthor, error)
	ListPublished(ctx context.Context, cursor string, limit int) (*models.StoryPage, error)
	ListMine(ctx context.Context, identity *sharedModels.Identity) ([]models.Story, error)
	UpdateStory(ctx context.Context, identity *sharedModels.Identity, id uuid.UUID, in UpdateStoryInput) (*models.Story, error)
	DeleteStory(ctx context.Context, identity *sharedModels.Identity, id uuid.UUID) error
}

type storyServiceImpl struct {
	Deps
	logger *zap.Logger
}

// NewStoryService создает новый экземпляр StoryService.
func NewStoryService(deps Deps) StoryService {
	deps = deps.withDefaults()
	return &storyServiceImpl{Deps: deps, logger: deps.Logger.Named("StoryService")}
}

// CreateStory создает историю вместе с начальным узлом в одной транзакции.
func (s *storyServiceImpl) CreateStory(ctx context.Context, identity *sharedModels.Identity, in CreateStoryInput) (*models.Story, error) {
	if identity == nil {
		return nil, sharedModels.ErrUnauthorized
	}
	if err := graph.ValidateTitle(in.Title); err != nil {
		return nil, err
	}
	log := s.logger.With(zap.Stringer("authorID", identity.UserID))

	story := &models.Story{
		Title:       in.Title,
		Description: in.Description,
		CoverImage:  in.CoverImage,
		IsDraft:     true,
		IsPublished: false,
		AuthorID:    identity.UserID,
	}
	bootstrapTitle := models.BootstrapNodeTitle
	node := &models.Node{Content: models.BootstrapNodeContent, Title: &bootstrapTitle}

	err := s.Tx.WithTx(ctx, func(q repository.DBTX) error {
		if err := s.Stories.Create(ctx, q, story); err != nil {
			return err
		}
		node.StoryID = story.ID
		if err := s.Nodes.Create(ctx, q, node); err != nil {
			return err
		}
		if err := s.Stories.SetFirstNode(ctx, q, story.ID, node.ID); err != nil {
			return err
		}
		story.FirstNodeID = &node.ID
		return nil
	})
	if err != nil {
		log.Error("Failed to create story with bootstrap node", zap.Error(err))
		return nil, err
	}

	s.Cache.Invalidate(ctx, story.ID)
	log.Info("Story created", zap.Stringer("storyID", story.ID), zap.Stringer("firstNodeID", node.ID))
	s.publish(ctx, log, messaging.EventStoryCreated, story)
	return story, nil
}

func (s *storyServiceImpl) GetStory(ctx context.Context, identity *sharedModels.Identity, id uuid.UUID) (*models.StoryWithAuthor, error) {
	story, err := s.loadStory(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.CanRead(identity, story); err != nil {
		return nil, err
	}

	result := &models.StoryWithAuthor{Story: *story, Author: models.AuthorSummary{ID: story.AuthorID}}
	author, err := s.Users.GetByID(ctx, s.DB, story.AuthorID)
	switch {
	case err == nil:
		result.Author.DisplayName = author.DisplayName
	case errors.Is(err, sharedModels.ErrNotFound):
		s.logger.Warn("Story author not found", zap.Stringer("storyID", id), zap.Stringer("authorID", story.AuthorID))
	default:
		return nil, err
	}
	return result, nil
}

func (s *storyServiceImpl) ListPublished(ctx context.Context, cursor string, limit int) (*models.StoryPage, error) {
	limit = utils.ClampLimit(limit, defaultStoryPageSize, maxStoryPageSize)
	stories, next, err := s.Stories.ListPublished(ctx, s.DB, cursor, limit)
	if err != nil {
		return nil, err
	}
	if stories == nil {
		stories = []models.StoryWithAuthor{}
	}
	return &models.StoryPage{Stories: stories, NextCursor: next}, nil
}

func (s *storyServiceImpl) ListMine(ctx context.Context, identity *sharedModels.Identity) ([]models.Story, error) {
	if identity == nil {
		return nil, sharedModels.ErrUnauthorized
	}
	stories, err := s.Stories.ListByAuthor(ctx, s.DB, identity.UserID)
	if err != nil {
		return nil, err
	}
	if stories == nil {
		stories = []models.Story{}
	}
	return stories, nil
}

func (s *storyServiceImpl) UpdateStory(ctx context.Context, identity *sharedModels.Identity, id uuid.UUID, in UpdateStoryInput) (*models.Story, error) {
	if identity == nil {
		return nil, sharedModels.ErrUnauthorized
	}
	if in.Title != nil {
		if err := graph.ValidateTitle(*in.Title); err != nil {
			return nil, err
		}
	}
	log := s.logger.With(zap.Stringer("storyID", id), zap.Stringer("userID", identity.UserID))

	story, err := s.Stories.GetByID(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if err := access.CanMutate(identity, story); err != nil {
		log.Warn("Story update denied", zap.Error(err))
		return nil, err
	}

	if in.FirstNodeID != nil {
		node, err := s.Nodes.GetByID(ctx, s.DB, *in.FirstNodeID)
		if err != nil && !errors.Is(err, sharedModels.ErrNotFound) {
			return nil, err
		}
		if err := graph.ValidateNodeBelongsToStory(node, story.ID); err != nil {
			return nil, fmt.Errorf("firstNodeId: %w", err)
		}
		story.FirstNodeID = in.FirstNodeID
	}

	wasPublished := story.IsPublished
	if in.Title != nil {
		story.Title = *in.Title
	}
	if in.Description.Set {
		story.Description = in.Description.Value
	}
	if in.CoverImage.Set {
		story.CoverImage = in.CoverImage.Value
	}
	if in.IsDraft != nil {
		story.IsDraft = *in.IsDraft
	}
	if in.IsPublished != nil {
		story.IsPublished = *in.IsPublished
	}

	if err := s.Stories.Update(ctx, s.DB, story); err != nil {
		log.Error("Failed to update story", zap.Error(err))
		return nil, err
	}
	s.Cache.Invalidate(ctx, story.ID)
	log.Info("Story updated", zap.Bool("isDraft", story.IsDraft), zap.Bool("isPublished", story.IsPublished))

	s.publish(ctx, log, messaging.EventStoryUpdated, story)
	switch {
	case !wasPublished && story.IsPublished:
		s.publish(ctx, log, messaging.EventStoryPublished, story)
	case wasPublished && !story.IsPublished:
		s.publish(ctx, log, messaging.EventStoryUnpublished, story)
	}
	return story, nil
}

// DeleteStory удаляет выборы, узлы и саму историю в одной транзакции.
func (s *storyServiceImpl) DeleteStory(ctx context.Context, identity *sharedModels.Identity, id uuid.UUID) error {
	if identity == nil {
		return sharedModels.ErrUnauthorized
	}
	log := s.logger.With(zap.Stringer("storyID", id), zap.Stringer("userID", identity.UserID))

	story, err := s.Stories.GetByID(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if err := access.CanMutate(identity, story); err != nil {
		log.Warn("Story deletion denied", zap.Error(err))
		return err
	}

	var choicesDeleted, nodesDeleted int64
	err = s.Tx.WithTx(ctx, func(q repository.DBTX) error {
		var txErr error
		if choicesDeleted, txErr = s.Choices.DeleteByStory(ctx, q, id); txErr != nil {
			return txErr
		}
		if nodesDeleted, txErr = s.Nodes.DeleteByStory(ctx, q, id); txErr != nil {
			return txErr
		}
		return s.Stories.Delete(ctx, q, id)
	})
	if err != nil {
		log.Error("Failed to delete story", zap.Error(err))
		return err
	}
	s.Cache.Invalidate(ctx, id)

	log.Info("Story deleted", zap.Int64("nodesDeleted", nodesDeleted), zap.Int64("choicesDeleted", choicesDeleted))
	s.publish(ctx, log, messaging.EventStoryDeleted, story)
	return nil
}
