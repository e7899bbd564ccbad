package repository

import (
	"context"
	"fmt"

	"story-server/internal/models"
	sharedModels "story-server/shared/models"
	"story-server/shared/utils"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var _ StoryRepository = (*pgStoryRepository)(nil)

const storyColumns = `id, title, description, cover_image, is_draft, is_published, author_id, first_node_id, created_at, updated_at`

type pgStoryRepository struct {
	logger *zap.Logger
}

// NewPgStoryRepository создает репозиторий историй для PostgreSQL.
func NewPgStoryRepository(logger *zap.Logger) StoryRepository {
	return &pgStoryRepository{logger: logger.Named("PgStoryRepo")}
}

func (r *pgStoryRepository) Create(ctx context.Context, q DBTX, story *models.Story) error {
	if story.ID == uuid.Nil {
		story.ID = uuid.New()
	}
	query := `
		INSERT INTO stories (id, title, description, cover_image, is_draft, is_published, author_id, first_node_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`
	logFields := []zap.Field{zap.Stringer("storyID", story.ID), zap.Stringer("authorID", story.AuthorID)}
	r.logger.Debug("Creating story", logFields...)

	err := q.QueryRow(ctx, query,
		story.ID, story.Title, story.Description, story.CoverImage,
		story.IsDraft, story.IsPublished, story.AuthorID, story.FirstNodeID,
	).Scan(&story.CreatedAt, &story.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create story", append(logFields, zap.Error(err))...)
		return storeError("failed to create story", err)
	}
	return nil
}

func (r *pgStoryRepository) GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*models.Story, error) {
	return r.get(ctx, q, `SELECT `+storyColumns+` FROM stories WHERE id = $1`, id)
}

func (r *pgStoryRepository) GetByIDForUpdate(ctx context.Context, q DBTX, id uuid.UUID) (*models.Story, error) {
	return r.get(ctx, q, `SELECT `+storyColumns+` FROM stories WHERE id = $1 FOR UPDATE`, id)
}

func (r *pgStoryRepository) get(ctx context.Context, q DBTX, query string, id uuid.UUID) (*models.Story, error) {
	story := &models.Story{}
	if err := pgxscan.Get(ctx, q, story, query, id); err != nil {
		if pgxscan.NotFound(err) {
			r.logger.Debug("Story not found", zap.Stringer("storyID", id))
			return nil, sharedModels.ErrStoryNotFound
		}
		r.logger.Error("Failed to get story", zap.Stringer("storyID", id), zap.Error(err))
		return nil, storeError("failed to get story", err)
	}
	return story, nil
}

// Update перезаписывает изменяемые поля. author_id не обновляется никогда.
func (r *pgStoryRepository) Update(ctx context.Context, q DBTX, story *models.Story) error {
	query := `
		UPDATE stories
		SET title = $2, description = $3, cover_image = $4, is_draft = $5, is_published = $6,
		    first_node_id = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := q.QueryRow(ctx, query,
		story.ID, story.Title, story.Description, story.CoverImage,
		story.IsDraft, story.IsPublished, story.FirstNodeID,
	).Scan(&story.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to update story", zap.Stringer("storyID", story.ID), zap.Error(err))
		return notFoundOr("failed to update story", err, sharedModels.ErrStoryNotFound)
	}
	return nil
}

func (r *pgStoryRepository) SetFirstNode(ctx context.Context, q DBTX, storyID, nodeID uuid.UUID) error {
	query := `UPDATE stories SET first_node_id = $2, updated_at = NOW() WHERE id = $1`
	tag, err := q.Exec(ctx, query, storyID, nodeID)
	if err != nil {
		r.logger.Error("Failed to set first node", zap.Stringer("storyID", storyID), zap.Stringer("nodeID", nodeID), zap.Error(err))
		return storeError("failed to set first node", err)
	}
	if tag.RowsAffected() == 0 {
		return sharedModels.ErrStoryNotFound
	}
	return nil
}

func (r *pgStoryRepository) Delete(ctx context.Context, q DBTX, id uuid.UUID) error {
	tag, err := q.Exec(ctx, `DELETE FROM stories WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete story", zap.Stringer("storyID", id), zap.Error(err))
		return storeError("failed to delete story", err)
	}
	if tag.RowsAffected() == 0 {
		return sharedModels.ErrStoryNotFound
	}
	r.logger.Info("Story deleted", zap.Stringer("storyID", id))
	return nil
}

type publishedStoryRow struct {
	models.Story
	AuthorDisplayName string `db:"author_display_name"`
}

// ListPublished использует keyset-пагинацию по (created_at, id).
// Запрашивается limit+1 строк, чтобы понять, есть ли следующая страница.
func (r *pgStoryRepository) ListPublished(ctx context.Context, q DBTX, cursor string, limit int) ([]models.StoryWithAuthor, string, error) {
	cursorTime, cursorID, err := utils.DecodeCursor(cursor)
	if err != nil {
		return nil, "", sharedModels.Validationf("invalid cursor: %v", err)
	}

	query := `
		SELECT s.id, s.title, s.description, s.cover_image, s.is_draft, s.is_published, s.author_id,
		       s.first_node_id, s.created_at, s.updated_at, u.display_name AS author_display_name
		FROM stories s
		JOIN users u ON u.id = s.author_id
		WHERE s.is_published`
	args := []any{}
	if cursorID != uuid.Nil {
		query += ` AND (s.created_at, s.id) < ($1, $2)`
		args = append(args, cursorTime, cursorID)
	}
	query += fmt.Sprintf(` ORDER BY s.created_at DESC, s.id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit+1)

	var rows []publishedStoryRow
	if err := pgxscan.Select(ctx, q, &rows, query, args...); err != nil {
		r.logger.Error("Failed to list published stories", zap.Error(err))
		return nil, "", storeError("failed to list published stories", err)
	}

	var nextCursor string
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		nextCursor = utils.EncodeCursor(last.CreatedAt, last.ID)
	}

	stories := make([]models.StoryWithAuthor, 0, len(rows))
	for _, row := range rows {
		stories = append(stories, models.StoryWithAuthor{
			Story:  row.Story,
			Author: models.AuthorSummary{ID: row.AuthorID, DisplayName: row.AuthorDisplayName},
		})
	}
	return stories, nextCursor, nil
}

func (r *pgStoryRepository) ListByAuthor(ctx context.Context, q DBTX, authorID uuid.UUID) ([]models.Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories WHERE author_id = $1 ORDER BY updated_at DESC, id DESC`
	stories := make([]models.Story, 0)
	if err := pgxscan.Select(ctx, q, &stories, query, authorID); err != nil {
		r.logger.Error("Failed to list stories by author", zap.Stringer("authorID", authorID), zap.Error(err))
		return nil, storeError("failed to list stories by author", err)
	}
	return stories, nil
}
