package repository

import (
	"context"
	"errors"
	"fmt"

	"story-server/internal/models"
	sharedModels "story-server/shared/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DBTX - общий интерфейс для pgxpool.Pool и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ DBTX = (*pgxpool.Pool)(nil)
	_ DBTX = (pgx.Tx)(nil)
)

// TxManager выполняет fn в одной транзакции.
type TxManager interface {
	WithTx(ctx context.Context, fn func(q DBTX) error) error
}

// StoryRepository хранит истории.
type StoryRepository interface {
	Create(ctx context.Context, q DBTX, story *models.Story) error
	GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*models.Story, error)
	// GetByIDForUpdate читает историю из БД и блокирует строку до конца транзакции.
	GetByIDForUpdate(ctx context.Context, q DBTX, id uuid.UUID) (*models.Story, error)
	Update(ctx context.Context, q DBTX, story *models.Story) error
	SetFirstNode(ctx context.Context, q DBTX, storyID, nodeID uuid.UUID) error
	Delete(ctx context.Context, q DBTX, id uuid.UUID) error
	// ListPublished возвращает страницу опубликованных историй (новые первыми) и курсор следующей.
	ListPublished(ctx context.Context, q DBTX, cursor string, limit int) ([]models.StoryWithAuthor, string, error)
	ListByAuthor(ctx context.Context, q DBTX, authorID uuid.UUID) ([]models.Story, error)
}

// NodeRepository хранит узлы.
type NodeRepository interface {
	Create(ctx context.Context, q DBTX, node *models.Node) error
	GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*models.Node, error)
	// GetByIDForUpdate блокирует строку узла до конца транзакции.
	GetByIDForUpdate(ctx context.Context, q DBTX, id uuid.UUID) (*models.Node, error)
	Update(ctx context.Context, q DBTX, node *models.Node) error
	Delete(ctx context.Context, q DBTX, id uuid.UUID) error
	DeleteByStory(ctx context.Context, q DBTX, storyID uuid.UUID) (int64, error)
	ListByStory(ctx context.Context, q DBTX, storyID uuid.UUID) ([]models.Node, error)
}

// ChoiceRepository хранит выборы. Списки отсортированы по order, created_at, id.
type ChoiceRepository interface {
	Create(ctx context.Context, q DBTX, choice *models.Choice) error
	GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*models.Choice, error)
	Update(ctx context.Context, q DBTX, choice *models.Choice) error
	UpdateOrder(ctx context.Context, q DBTX, id uuid.UUID, order int) error
	Delete(ctx context.Context, q DBTX, id uuid.UUID) error
	// DeleteByNode удаляет исходящие и входящие выборы узла.
	DeleteByNode(ctx context.Context, q DBTX, nodeID uuid.UUID) (int64, error)
	// DeleteByStory удаляет выборы, у которых источник или цель лежат в истории.
	DeleteByStory(ctx context.Context, q DBTX, storyID uuid.UUID) (int64, error)
	ListBySourceNode(ctx context.Context, q DBTX, nodeID uuid.UUID) ([]models.Choice, error)
	ListByStory(ctx context.Context, q DBTX, storyID uuid.UUID) ([]models.Choice, error)
}

// UserRepository хранит пользователей.
type UserRepository interface {
	Create(ctx context.Context, q DBTX, user *models.User) error
	GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, q DBTX, email string) (*models.User, error)
}

// storeError оборачивает ошибку драйвера в ErrStoreUnavailable, сохраняя исходный текст.
func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, sharedModels.ErrStoreUnavailable, err)
}

// notFoundOr превращает pgx.ErrNoRows в notFound, остальное - в ErrStoreUnavailable.
func notFoundOr(op string, err, notFound error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	return storeError(op, err)
}

const (
	foreignKeyViolationCode = "23503"
	// Отложенный FK: нарушается при коммите, если удален текущий начальный узел.
	storiesFirstNodeKey = "stories_first_node_id_fkey"
)

// pgTxManager - реализация TxManager поверх пула.
type pgTxManager struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewTxManager(pool *pgxpool.Pool, logger *zap.Logger) TxManager {
	return &pgTxManager{pool: pool, logger: logger.Named("TxManager")}
}

// WithTx коммитит при успехе, откатывает при ошибке или панике.
func (m *pgTxManager) WithTx(ctx context.Context, fn func(q DBTX) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return storeError("failed to begin tx", err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(context.Background())
			panic(r)
		}
	}()
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			m.logger.Warn("Failed to rollback tx", zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode && pgErr.ConstraintName == storiesFirstNodeKey {
			m.logger.Warn("Commit rejected: story entry node is gone", zap.String("detail", pgErr.Detail))
			return sharedModels.ErrEntryNodeDeletion
		}
		return storeError("failed to commit tx", err)
	}
	return nil
}
