package service

import (
	"context"
	"errors"

	userserrors "roomly/internal/users/errors"
	"roomly/internal/users/repository"
	"roomly/pkg/auth"
	"roomly/pkg/config"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/model"
	"roomly/pkg/sanitizer"

	"github.com/go-playground/validator/v10"
)

type UserService interface {
	Register(ctx context.Context, registration *model.UserRegistration) (*model.User, error)
	Login(ctx context.Context, credentials *model.Credentials) (string, *model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

type userService struct {
	repo   repository.UserRepository
	tokens *auth.TokenManager
	cfg    *config.Config
}

func NewUserService(repo repository.UserRepository, tokens *auth.TokenManager, cfg *config.Config) UserService {
	return &userService{
		repo:   repo,
		tokens: tokens,
		cfg:    cfg,
	}
}

func (s *userService) Register(ctx context.Context, registration *model.UserRegistration) (*model.User, error) {
	registration.FullName = sanitizer.NormalizeName(registration.FullName)
	registration.Email = sanitizer.NormalizeEmail(registration.Email)

	if err := validator.New().Struct(registration); err != nil {
		s.cfg.Log.Warn("User registration validation failed", "error", err)
		return nil, apperrors.Validation("Registration validation failed", map[string]any{"error": err.Error()})
	}

	hash, err := auth.HashPassword(registration.Password)
	if err != nil {
		return nil, apperrors.Internal("Failed to process password", err)
	}

	user := &model.User{
		FullName:       registration.FullName,
		Email:          registration.Email,
		HashedPassword: hash,
		IsActive:       true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, userserrors.ErrDuplicateEmail) {
			return nil, apperrors.Conflict("Email is already registered")
		}
		s.cfg.Log.Error("Failed to create user", "email", user.Email, "error", err)
		return nil, apperrors.Store("Failed to create user", err)
	}

	s.cfg.Log.Info("User registered", "id", user.ID, "email", user.Email)
	return user, nil
}

// Login verifies credentials and issues an access token. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *userService) Login(ctx context.Context, credentials *model.Credentials) (string, *model.User, error) {
	credentials.Email = sanitizer.NormalizeEmail(credentials.Email)

	if err := validator.New().Struct(credentials); err != nil {
		return "", nil, apperrors.Validation("Login validation failed", map[string]any{"error": err.Error()})
	}

	user, err := s.repo.FindByEmail(ctx, credentials.Email)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return "", nil, apperrors.Unauthorized("Invalid email or password")
		}
		return "", nil, apperrors.Store("Failed to retrieve user", err)
	}
	if !user.IsActive {
		return "", nil, apperrors.Unauthorized("Invalid email or password")
	}
	if err := auth.CheckPassword(user.HashedPassword, credentials.Password); err != nil {
		return "", nil, apperrors.Unauthorized("Invalid email or password")
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		s.cfg.Log.Error("Failed to issue token", "user_id", user.ID, "error", err)
		return "", nil, apperrors.Internal("Failed to issue access token", err)
	}

	s.cfg.Log.Info("User logged in", "id", user.ID)
	return token, user, nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("User ID cannot be empty")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", id)
		}
		if errors.Is(err, userserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid user ID format")
		}
		return nil, apperrors.Store("Failed to retrieve user", err)
	}

	return user, nil
}
