package service

import (
	"context"
	"io"
	"testing"
	"time"

	userserrors "roomly/internal/users/errors"
	"roomly/pkg/auth"
	"roomly/pkg/config"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/logger"
	"roomly/pkg/model"

	"github.com/google/uuid"
)

type mockUserRepository struct {
	byID    map[string]*model.User
	byEmail map[string]*model.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		byID:    make(map[string]*model.User),
		byEmail: make(map[string]*model.User),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	if _, exists := m.byEmail[user.Email]; exists {
		return userserrors.ErrDuplicateEmail
	}
	user.ID = uuid.NewString()
	clone := *user
	m.byID[user.ID] = &clone
	m.byEmail[user.Email] = &clone
	return nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, ok := m.byID[id]
	if !ok {
		return nil, userserrors.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, ok := m.byEmail[email]
	if !ok {
		return nil, userserrors.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (m *mockUserRepository) EnsureIndexes(ctx context.Context) error { return nil }

func newTestService(repo *mockUserRepository) UserService {
	cfg := &config.Config{Log: logger.New(logger.Config{Output: io.Discard})}
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return NewUserService(repo, tokens, cfg)
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newMockUserRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	user, err := svc.Register(ctx, &model.UserRegistration{
		FullName: "  Alice Example ",
		Email:    " Alice@Example.COM ",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("expected normalized email, got %q", user.Email)
	}
	if user.HashedPassword == "correct horse battery" || user.HashedPassword == "" {
		t.Error("password must be stored hashed")
	}

	token, loggedIn, err := svc.Login(ctx, &model.Credentials{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token == "" {
		t.Error("expected a token")
	}
	if loggedIn.ID != user.ID {
		t.Errorf("expected user %s, got %s", user.ID, loggedIn.ID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newMockUserRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	registration := model.UserRegistration{
		FullName: "Alice Example",
		Email:    "alice@example.com",
		Password: "correct horse battery",
	}
	if _, err := svc.Register(ctx, &registration); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	again := registration
	_, err := svc.Register(ctx, &again)
	if !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict on duplicate email, got %v", err)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc := newTestService(newMockUserRepository())

	_, err := svc.Register(context.Background(), &model.UserRegistration{
		FullName: "Alice Example",
		Email:    "alice@example.com",
		Password: "short",
	})
	if !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newMockUserRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	if _, err := svc.Register(ctx, &model.UserRegistration{
		FullName: "Alice Example",
		Email:    "alice@example.com",
		Password: "correct horse battery",
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, _, err := svc.Login(ctx, &model.Credentials{Email: "alice@example.com", Password: "wrong password"})
	if !apperrors.IsCode(err, apperrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for wrong password, got %v", err)
	}

	_, _, err = svc.Login(ctx, &model.Credentials{Email: "nobody@example.com", Password: "whatever password"})
	if !apperrors.IsCode(err, apperrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	repo := newMockUserRepository()
	svc := newTestService(repo)
	ctx := context.Background()

	user, err := svc.Register(ctx, &model.UserRegistration{
		FullName: "Alice Example",
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	repo.byEmail[user.Email].IsActive = false

	_, _, err = svc.Login(ctx, &model.Credentials{Email: "alice@example.com", Password: "correct horse battery"})
	if !apperrors.IsCode(err, apperrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for inactive user, got %v", err)
	}
}
