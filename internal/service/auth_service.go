package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"story-server/internal/models"
	"story-server/internal/repository"
	sharedModels "story-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer выпускает токен доступа для пользователя.
type TokenIssuer interface {
	IssueToken(userID uuid.UUID, isAdmin bool) (string, time.Time, error)
}

// AuthResult - пользователь и выданный ему токен.
type AuthResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

type AuthService interface {
	Register(ctx context.Context, email, password, displayName string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Profile(ctx context.Context, identity *sharedModels.Identity) (*models.User, error)
}

type authServiceImpl struct {
	db     repository.DBTX
	users  repository.UserRepository
	issuer TokenIssuer
	logger *zap.Logger
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(db repository.DBTX, users repository.UserRepository, issuer TokenIssuer, logger *zap.Logger) AuthService {
	return &authServiceImpl{
		db:     db,
		users:  users,
		issuer: issuer,
		logger: logger.Named("AuthService"),
	}
}

func (s *authServiceImpl) Register(ctx context.Context, email, password, displayName string) (*AuthResult, error) {
	// Приводим email к нижнему регистру и убираем пробелы
	email = strings.ToLower(strings.TrimSpace(email))
	displayName = strings.TrimSpace(displayName)
	log := s.logger.With(zap.String("email", email))

	if email == "" || password == "" || displayName == "" {
		return nil, sharedModels.Validationf("email, password and username are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		log.Warn("Registration attempt with invalid email format", zap.Error(err))
		return nil, sharedModels.Validationf("invalid email format")
	}

	existing, err := s.users.GetByEmail(ctx, s.db, email)
	if err != nil && !errors.Is(err, sharedModels.ErrNotFound) {
		log.Error("Error checking existing email during registration", zap.Error(err))
		return nil, err
	}
	if existing != nil {
		log.Warn("Registration attempt for existing email")
		return nil, sharedModels.ErrEmailAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		log.Warn("Registration attempt with password over bcrypt limit", zap.Int("length", len(password)))
		return nil, sharedModels.Validationf("password must be at most 72 bytes")
	}
	if err != nil {
		log.Error("Failed to hash password during registration", zap.Error(err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
	}
	// Гонка двух регистраций ловится уникальным индексом в репозитории
	if err := s.users.Create(ctx, s.db, user); err != nil {
		if !errors.Is(err, sharedModels.ErrEmailAlreadyExists) {
			log.Error("Failed to create user", zap.Error(err))
		}
		return nil, err
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	log.Info("User registered successfully", zap.Stringer("userID", user.ID))
	return result, nil
}

func (s *authServiceImpl) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, sharedModels.Validationf("email and password are required")
	}
	log := s.logger.With(zap.String("email", email))

	user, err := s.users.GetByEmail(ctx, s.db, email)
	if err != nil {
		if errors.Is(err, sharedModels.ErrNotFound) {
			log.Warn("Login attempt for unknown email")
			return nil, sharedModels.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Warn("Login attempt with wrong password", zap.Stringer("userID", user.ID))
		return nil, sharedModels.ErrInvalidCredentials
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	log.Info("User logged in", zap.Stringer("userID", user.ID))
	return result, nil
}

func (s *authServiceImpl) Profile(ctx context.Context, identity *sharedModels.Identity) (*models.User, error) {
	if identity == nil {
		return nil, sharedModels.ErrUnauthorized
	}
	return s.users.GetByID(ctx, s.db, identity.UserID)
}

func (s *authServiceImpl) issue(user *models.User) (*AuthResult, error) {
	token, expiresAt, err := s.issuer.IssueToken(user.ID, user.IsAdmin)
	if err != nil {
		s.logger.Error("Failed to issue token", zap.Stringer("userID", user.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}
