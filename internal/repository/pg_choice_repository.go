package repository

import (
	"context"

	"story-server/internal/models"
	sharedModels "story-server/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var _ ChoiceRepository = (*pgChoiceRepository)(nil)

const (
	choiceColumns = `c.id, c.source_node_id, c.target_node_id, c.text, c."order", c.created_at, c.updated_at`
	choiceOrderBy = ` ORDER BY c."order" ASC, c.created_at ASC, c.id ASC`
)

type pgChoiceRepository struct {
	logger *zap.Logger
}

func NewPgChoiceRepository(logger *zap.Logger) ChoiceRepository {
	return &pgChoiceRepository{logger: logger.Named("PgChoiceRepo")}
}

func (r *pgChoiceRepository) Create(ctx context.Context, q DBTX, choice *models.Choice) error {
	if choice.ID == uuid.Nil {
		choice.ID = uuid.New()
	}
	query := `
		INSERT INTO choices (id, source_node_id, target_node_id, text, "order")
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`
	err := q.QueryRow(ctx, query, choice.ID, choice.SourceNodeID, choice.TargetNodeID, choice.Text, choice.Order).
		Scan(&choice.CreatedAt, &choice.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create choice",
			zap.Stringer("sourceNodeID", choice.SourceNodeID),
			zap.Stringer("targetNodeID", choice.TargetNodeID),
			zap.Error(err),
		)
		return storeError("failed to create choice", err)
	}
	return nil
}

func (r *pgChoiceRepository) GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*models.Choice, error) {
	query := `SELECT ` + choiceColumns + ` FROM choices c WHERE c.id = $1`
	choice := &models.Choice{}
	if err := pgxscan.Get(ctx, q, choice, query, id); err != nil {
		if pgxscan.NotFound(err) {
			return nil, sharedModels.ErrChoiceNotFound
		}
		r.logger.Error("Failed to get choice", zap.Stringer("choiceID", id), zap.Error(err))
		return nil, storeError("failed to get choice", err)
	}
	return choice, nil
}

// Update не меняет source_node_id: выбор всегда принадлежит исходному узлу.
func (r *pgChoiceRepository) Update(ctx context.Context, q DBTX, choice *models.Choice) error {
	query := `
		UPDATE choices SET target_node_id = $2, text = $3, "order" = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := q.QueryRow(ctx, query, choice.ID, choice.TargetNodeID, choice.Text, choice.Order).Scan(&choice.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to update choice", zap.Stringer("choiceID", choice.ID), zap.Error(err))
		return notFoundOr("failed to update choice", err, sharedModels.ErrChoiceNotFound)
	}
	return nil
}

func (r *pgChoiceRepository) UpdateOrder(ctx context.Context, q DBTX, id uuid.UUID, order int) error {
	tag, err := q.Exec(ctx, `UPDATE choices SET "order" = $2, updated_at = NOW() WHERE id = $1`, id, order)
	if err != nil {
		r.logger.Error("Failed to update choice order", zap.Stringer("choiceID", id), zap.Int("order", order), zap.Error(err))
		return storeError("failed to update choice order", err)
	}
	if tag.RowsAffected() == 0 {
		return sharedModels.ErrChoiceNotFound
	}
	return nil
}

func (r *pgChoiceRepository) Delete(ctx context.Context, q DBTX, id uuid.UUID) error {
	tag, err := q.Exec(ctx, `DELETE FROM choices WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete choice", zap.Stringer("choiceID", id), zap.Error(err))
		return storeError("failed to delete choice", err)
	}
	if tag.RowsAffected() == 0 {
		return sharedModels.ErrChoiceNotFound
	}
	return nil
}

func (r *pgChoiceRepository) DeleteByNode(ctx context.Context, q DBTX, nodeID uuid.UUID) (int64, error) {
	tag, err := q.Exec(ctx, `DELETE FROM choices WHERE source_node_id = $1 OR target_node_id = $1`, nodeID)
	if err != nil {
		r.logger.Error("Failed to delete choices by node", zap.Stringer("nodeID", nodeID), zap.Error(err))
		return 0, storeError("failed to delete choices by node", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgChoiceRepository) DeleteByStory(ctx context.Context, q DBTX, storyID uuid.UUID) (int64, error) {
	query := `
		DELETE FROM choices
		WHERE source_node_id IN (SELECT id FROM nodes WHERE story_id = $1)
		   OR target_node_id IN (SELECT id FROM nodes WHERE story_id = $1)`
	tag, err := q.Exec(ctx, query, storyID)
	if err != nil {
		r.logger.Error("Failed to delete choices by story", zap.Stringer("storyID", storyID), zap.Error(err))
		return 0, storeError("failed to delete choices by story", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgChoiceRepository) ListBySourceNode(ctx context.Context, q DBTX, nodeID uuid.UUID) ([]models.Choice, error) {
	query := `SELECT ` + choiceColumns + ` FROM choices c WHERE c.source_node_id = $1` + choiceOrderBy
	choices := make([]models.Choice, 0)
	if err := pgxscan.Select(ctx, q, &choices, query, nodeID); err != nil {
		r.logger.Error("Failed to list choices by node", zap.Stringer("nodeID", nodeID), zap.Error(err))
		return nil, storeError("failed to list choices by node", err)
	}
	return choices, nil
}

func (r *pgChoiceRepository) ListByStory(ctx context.Context, q DBTX, storyID uuid.UUID) ([]models.Choice, error) {
	query := `SELECT ` + choiceColumns + `
		FROM choices c
		JOIN nodes n ON n.id = c.source_node_id
		WHERE n.story_id = $1` + choiceOrderBy
	choices := make([]models.Choice, 0)
	if err := pgxscan.Select(ctx, q, &choices, query, storyID); err != nil {
		r.logger.Error("Failed to list choices by story", zap.Stringer("storyID", storyID), zap.Error(err))
		return nil, storeError("failed to list choices by story", err)
	}
	return choices, nil
}
