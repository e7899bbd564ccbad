package repository

import (
	"context"
	"errors"
	"strings"

	"story-server/internal/models"
	sharedModels "story-server/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

var _ UserRepository = (*pgUserRepository)(nil)

const (
	userColumns         = `id, email, password_hash, display_name, bio, is_admin, created_at, updated_at`
	uniqueViolationCode = "23505"
	usersEmailKey       = "users_email_key"
)

type pgUserRepository struct {
	logger *zap.Logger
}

// NewPgUserRepository creates a new PostgreSQL-backed UserRepository.
func NewPgUserRepository(logger *zap.Logger) UserRepository {
	return &pgUserRepository{logger: logger.Named("PgUserRepo")}
}

// Create вставляет пользователя. Email хранится в нижнем регистре.
func (r *pgUserRepository) Create(ctx context.Context, q DBTX, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	query := `
		INSERT INTO users (id, email, password_hash, display_name, bio, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`
	logFields := []zap.Field{zap.Stringer("userID", user.ID), zap.String("email", user.Email)}

	err := q.QueryRow(ctx, query, user.ID, user.Email, user.PasswordHash, user.DisplayName, user.Bio, user.IsAdmin).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode && pgErr.ConstraintName == usersEmailKey {
			r.logger.Warn("Attempted to create duplicate user by email", logFields...)
			return sharedModels.ErrEmailAlreadyExists
		}
		r.logger.Error("Failed to create user in postgres", append(logFields, zap.Error(err))...)
		return storeError("failed to create user", err)
	}
	r.logger.Info("User created successfully", logFields...)
	return nil
}

func (r *pgUserRepository) GetByID(ctx context.Context, q DBTX, id uuid.UUID) (*models.User, error) {
	return r.get(ctx, q, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *pgUserRepository) GetByEmail(ctx context.Context, q DBTX, email string) (*models.User, error) {
	return r.get(ctx, q, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *pgUserRepository) get(ctx context.Context, q DBTX, query string, arg any) (*models.User, error) {
	user := &models.User{}
	if err := pgxscan.Get(ctx, q, user, query, arg); err != nil {
		if pgxscan.NotFound(err) {
			return nil, sharedModels.ErrUserNotFound
		}
		r.logger.Error("Failed to get user from postgres", zap.Error(err))
		return nil, storeError("failed to get user", err)
	}
	return user, nil
}
