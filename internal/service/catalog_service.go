package service

import (
	"context"
	"errors"
	"time"

	"github.com/Alkitu/alkitu-template-sub002/internal/database"
	"github.com/Alkitu/alkitu-template-sub002/internal/domain"
	"github.com/Alkitu/alkitu-template-sub002/internal/models"

	"github.com/rs/zerolog"
)

// CatalogService manages the services and locations requests are created
// against.
type CatalogService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewCatalogService(repo domain.Repository, logger *zerolog.Logger) *CatalogService {
	return &CatalogService{repo: repo, logger: logger}
}

func (s *CatalogService) CreateService(ctx context.Context, name string, template models.JSONMap, actor models.Principal) (*models.Service, error) {
	if !actor.IsAdmin() {
		return nil, domain.Forbiddenf("only admins may manage the service catalog")
	}
	if name == "" {
		return nil, domain.BadRequestf("service name is required")
	}

	now := time.Now()
	svc := &models.Service{
		Name:      name,
		Template:  template,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateService(ctx, svc); err != nil {
		return nil, domain.WrapInternal(err, "create service")
	}
	return svc, nil
}

func (s *CatalogService) GetService(ctx context.Context, id int64) (*models.Service, error) {
	svc, err := s.repo.GetService(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, domain.NotFoundf("service %d not found", id)
		}
		return nil, domain.WrapInternal(err, "get service")
	}
	return svc, nil
}

func (s *CatalogService) ListServices(ctx context.Context) ([]*models.Service, error) {
	services, err := s.repo.ListServices(ctx)
	if err != nil {
		return nil, domain.WrapInternal(err, "list services")
	}
	return services, nil
}

func (s *CatalogService) CreateLocation(ctx context.Context, name, address string, actor models.Principal) (*models.Location, error) {
	if name == "" {
		return nil, domain.BadRequestf("location name is required")
	}

	now := time.Now()
	loc := &models.Location{
		UserID:    actor.UserID,
		Name:      name,
		Address:   address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateLocation(ctx, loc); err != nil {
		return nil, domain.WrapInternal(err, "create location")
	}
	return loc, nil
}

func (s *CatalogService) GetLocation(ctx context.Context, id int64, actor models.Principal) (*models.Location, error) {
	loc, err := s.repo.GetLocation(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, domain.NotFoundf("location %d not found", id)
		}
		return nil, domain.WrapInternal(err, "get location")
	}
	// Чужая локация неотличима от несуществующей
	if !actor.IsAdmin() && loc.UserID != actor.UserID {
		return nil, domain.NotFoundf("location %d not found", id)
	}
	return loc, nil
}
