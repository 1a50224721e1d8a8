package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/Alkitu/alkitu-template-sub002/internal/database"
	"github.com/Alkitu/alkitu-template-sub002/internal/domain"
	"github.com/Alkitu/alkitu-template-sub002/internal/models"

	"github.com/rs/zerolog"
)

type UserService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewUserService(repo domain.Repository, logger *zerolog.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

// CreateUser registers a user with a freshly issued API token. Only admins
// may create non-client users.
func (s *UserService) CreateUser(ctx context.Context, email, name string, role models.Role, actor models.Principal) (*models.User, error) {
	if email == "" {
		return nil, domain.BadRequestf("email is required")
	}
	if !role.Valid() {
		return nil, domain.BadRequestf("unknown role %q", role)
	}
	if role != models.RoleClient && !actor.IsAdmin() {
		return nil, domain.Forbiddenf("only admins may create %s users", role)
	}

	token, err := generateToken()
	if err != nil {
		return nil, domain.WrapInternal(err, "generate token")
	}

	now := time.Now()
	user := &models.User{
		Email:     email,
		Name:      name,
		Role:      role,
		Token:     token,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, domain.BadRequestf("user with email %s already exists", email)
		}
		return nil, domain.WrapInternal(err, "create user")
	}

	s.logger.Info().Int64("user_id", user.ID).Str("role", string(role)).Msg("user created")
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, domain.NotFoundf("user %d not found", id)
		}
		return nil, domain.WrapInternal(err, "get user")
	}
	return user, nil
}

// Authenticate resolves a bearer token to a principal.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, domain.Forbiddenf("missing token")
	}
	user, err := s.repo.GetUserByToken(ctx, token)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, domain.Forbiddenf("invalid token")
		}
		return nil, domain.WrapInternal(err, "authenticate")
	}
	return user, nil
}

func (s *UserService) ListByRole(ctx context.Context, role models.Role) ([]*models.User, error) {
	if !role.Valid() {
		return nil, domain.BadRequestf("unknown role %q", role)
	}
	users, err := s.repo.ListUsersByRole(ctx, role)
	if err != nil {
		return nil, domain.WrapInternal(err, "list users")
	}
	return users, nil
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
