package service

import (
	"context"
	"errors"
	"sync"

	resourceserrors "roomly/internal/resources/errors"
	"roomly/internal/resources/repository"
	"roomly/pkg/config"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/model"
	"roomly/pkg/sanitizer"

	"github.com/go-playground/validator/v10"
)

type ResourceService interface {
	Create(ctx context.Context, resource *model.Resource) error
	GetByID(ctx context.Context, id string) (*model.Resource, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Resource, int64, error)
}

type resourceService struct {
	repo     repository.ResourceRepository
	validate *validator.Validate
	cfg      *config.Config
}

func NewResourceService(repo repository.ResourceRepository, cfg *config.Config) ResourceService {
	return &resourceService{
		repo:     repo,
		validate: validator.New(),
		cfg:      cfg,
	}
}

func (s *resourceService) Create(ctx context.Context, resource *model.Resource) error {
	resource.Name = sanitizer.NormalizeName(resource.Name)
	resource.Type = sanitizer.NormalizeLabel(resource.Type)
	resource.Location = sanitizer.NormalizeName(resource.Location)
	if resource.Capacity <= 0 {
		resource.Capacity = 1
	}
	resource.IsActive = true

	if err := s.validate.Struct(resource); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			s.cfg.Log.Warn("Resource validation failed", "error", err)
			return apperrors.Validation("Invalid resource", map[string]any{"error": validationErrs.Error()})
		}
		return apperrors.Internal("Failed to validate resource", err)
	}

	if err := s.repo.Create(ctx, resource); err != nil {
		if errors.Is(err, resourceserrors.ErrDuplicateName) {
			return apperrors.Conflict("A resource with this name already exists")
		}
		s.cfg.Log.Error("Failed to create resource", "name", resource.Name, "error", err)
		return apperrors.Store("Failed to create resource", err)
	}

	s.cfg.Log.Info("Resource created",
		"id", resource.ID,
		"name", resource.Name,
		"type", resource.Type,
		"capacity", resource.Capacity,
	)
	return nil
}

func (s *resourceService) GetByID(ctx context.Context, id string) (*model.Resource, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Resource ID cannot be empty")
	}

	resource, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, resourceserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Resource", id)
		}
		if errors.Is(err, resourceserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid resource ID format")
		}
		return nil, apperrors.Store("Failed to retrieve resource", err)
	}

	return resource, nil
}

func (s *resourceService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Resource, int64, error) {
	var count int64
	var resources []*model.Resource
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count resources", "error", errCount)
			errCount = apperrors.Store("Failed to count resources", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		resources, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list resources", "error", errFind)
			errFind = apperrors.Store("Failed to retrieve resources", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return resources, count, nil
}
