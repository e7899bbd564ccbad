package repository

import (
	"context"

	"story-server/internal/models"
	sharedModels "story-server/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var _ NodeRepository = (*pgNodeRepository)(nil)

const nodeColumns = `id, story_id, title, content, is_ending, created_at, updated_at`

type pgNodeRepository struct {
	logger *zap.Logger
}

func NewPgNodeRepository(logger *zap.Logger) NodeRepository {
	return &pgNodeRepository{logger: logger.Named("PgNodeRepo")}
}

func (r *pgNodeRepository) Create(ctx context.Context, q DBTX, node *models.Node) error {
	if node.ID == uuid.Nil {
		node.ID = uuid.New()
	}
	query := `
		INSERT INTO nodes (id, story_id, title, content, is_ending)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`
	err := q.QueryRow(ctx, query, node.ID, node.StoryID, node.Title, node.Content, node.IsEnding).
		Scan(&node.CreatedAt, &node.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create node", zap.Stringer("storyID", node.StoryID), zap.Error(err))
		return storeError("failed to create node", err)
	}
	r.logger.Debug("Node created", zap.Stringer("nodeID", node.ID), zap.Stringer("storyID", node.StoryID))
	return nil
}

func (r *pgNodeRepository) GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*models.Node, error) {
	return r.get(ctx, q, `SELECT `+nodeColumns+` FROM nodes WHERE id = $1`, id)
}

func (r *pgNodeRepository) GetByIDForUpdate(ctx context.Context, q DBTX, id uuid.UUID) (*models.Node, error) {
	return r.get(ctx, q, `SELECT `+nodeColumns+` FROM nodes WHERE id = $1 FOR UPDATE`, id)
}

func (r *pgNodeRepository) get(ctx context.Context, q DBTX, query string, id uuid.UUID) (*models.Node, error) {
	node := &models.Node{}
	if err := pgxscan.Get(ctx, q, node, query, id); err != nil {
		if pgxscan.NotFound(err) {
			r.logger.Debug("Node not found", zap.Stringer("nodeID", id))
			return nil, sharedModels.ErrNodeNotFound
		}
		r.logger.Error("Failed to get node", zap.Stringer("nodeID", id), zap.Error(err))
		return nil, storeError("failed to get node", err)
	}
	return node, nil
}

// Update не трогает story_id: узел не переезжает между историями.
func (r *pgNodeRepository) Update(ctx context.Context, q DBTX, node *models.Node) error {
	query := `
		UPDATE nodes SET title = $2, content = $3, is_ending = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := q.QueryRow(ctx, query, node.ID, node.Title, node.Content, node.IsEnding).Scan(&node.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to update node", zap.Stringer("nodeID", node.ID), zap.Error(err))
		return notFoundOr("failed to update node", err, sharedModels.ErrNodeNotFound)
	}
	return nil
}

func (r *pgNodeRepository) Delete(ctx context.Context, q DBTX, id uuid.UUID) error {
	tag, err := q.Exec(ctx, `DELETE FROM nodes WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete node", zap.Stringer("nodeID", id), zap.Error(err))
		return storeError("failed to delete node", err)
	}
	if tag.RowsAffected() == 0 {
		return sharedModels.ErrNodeNotFound
	}
	return nil
}

func (r *pgNodeRepository) DeleteByStory(ctx context.Context, q DBTX, storyID uuid.UUID) (int64, error) {
	tag, err := q.Exec(ctx, `DELETE FROM nodes WHERE story_id = $1`, storyID)
	if err != nil {
		r.logger.Error("Failed to delete nodes by story", zap.Stringer("storyID", storyID), zap.Error(err))
		return 0, storeError("failed to delete nodes by story", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgNodeRepository) ListByStory(ctx context.Context, q DBTX, storyID uuid.UUID) ([]models.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE story_id = $1 ORDER BY created_at ASC, id ASC`
	nodes := make([]models.Node, 0)
	if err := pgxscan.Select(ctx, q, &nodes, query, storyID); err != nil {
		r.logger.Error("Failed to list nodes by story", zap.Stringer("storyID", storyID), zap.Error(err))
		return nil, storeError("failed to list nodes by story", err)
	}
	return nodes, nil
}
