package services

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/onnwee/agrisync/backend/internal/cachekey"
	"github.com/onnwee/agrisync/backend/internal/domaincache"
	"github.com/onnwee/agrisync/backend/internal/models"
)

type CooperativeRepository interface {
	List(ctx context.Context, f models.CooperativeFilters) ([]models.Cooperative, error)
	Get(ctx context.Context, id string) (models.Cooperative, error)
	GetWithDetails(ctx context.Context, id string) (models.CooperativeWithDetails, error)
	Create(ctx context.Context, c models.Cooperative) (models.Cooperative, error)
	Update(ctx context.Context, id string, c models.Cooperative) (models.Cooperative, error)
	Delete(ctx context.Context, id string) (models.Cooperative, error)
}

type CooperativeService struct {
	repo   CooperativeRepository
	caches *domaincache.Caches
	group  singleflight.Group
}

func NewCooperativeService(repo CooperativeRepository, caches *domaincache.Caches) *CooperativeService {
	return &CooperativeService{repo: repo, caches: caches}
}

func (s *CooperativeService) List(ctx context.Context, f models.CooperativeFilters) ([]models.Cooperative, error) {
	c := s.caches.Cooperatives
	return readThrough(ctx, &s.group, "cooperatives.list",
		cachekey.List(cachekey.Cooperatives, f),
		func(ctx context.Context) ([]models.Cooperative, bool) { return c.GetList(ctx, f) },
		func(ctx context.Context) ([]models.Cooperative, error) { return s.repo.List(ctx, f) },
		func(ctx context.Context, v []models.Cooperative) { c.SetList(ctx, f, v, 0) },
	)
}

func (s *CooperativeService) Get(ctx context.Context, id string) (models.Cooperative, error) {
	c := s.caches.Cooperatives
	return readThrough(ctx, &s.group, "cooperatives.get",
		cachekey.Item(cachekey.Cooperatives, id),
		func(ctx context.Context) (models.Cooperative, bool) { return c.GetItem(ctx, id) },
		func(ctx context.Context) (models.Cooperative, error) { return s.repo.Get(ctx, id) },
		func(ctx context.Context, v models.Cooperative) { c.SetItem(ctx, id, v, 0) },
	)
}

func (s *CooperativeService) GetWithDetails(ctx context.Context, id string) (models.CooperativeWithDetails, error) {
	c := s.caches.Cooperatives
	return readThrough(ctx, &s.group, "cooperatives.get_details",
		cachekey.Details(cachekey.Cooperatives, id),
		func(ctx context.Context) (models.CooperativeWithDetails, bool) { return c.GetItemWithDetails(ctx, id) },
		func(ctx context.Context) (models.CooperativeWithDetails, error) {
			return s.repo.GetWithDetails(ctx, id)
		},
		func(ctx context.Context, v models.CooperativeWithDetails) { c.SetItemWithDetails(ctx, id, v, 0) },
	)
}

func validateCooperative(c models.Cooperative) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	return nil
}

func (s *CooperativeService) Create(ctx context.Context, coop models.Cooperative) (models.Cooperative, error) {
	if err := validateCooperative(coop); err != nil {
		return models.Cooperative{}, err
	}
	created, err := s.repo.Create(ctx, coop)
	if err != nil {
		return models.Cooperative{}, err
	}
	s.caches.Cooperatives.InvalidateMutation(ctx, "")
	return created, nil
}

func (s *CooperativeService) Update(ctx context.Context, id string, coop models.Cooperative) (models.Cooperative, error) {
	if err := validateCooperative(coop); err != nil {
		return models.Cooperative{}, err
	}
	updated, err := s.repo.Update(ctx, id, coop)
	if err != nil {
		return models.Cooperative{}, err
	}
	s.invalidate(ctx, id)
	return updated, nil
}

func (s *CooperativeService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// invalidate drops the cooperative and every view embedding it: producer
// details carry their cooperative, and participants are listed per cooperative.
func (s *CooperativeService) invalidate(ctx context.Context, id string) {
	s.caches.Cooperatives.InvalidateMutation(ctx, id)
	s.caches.Producers.InvalidateAllDetails(ctx)
	s.caches.Participants.InvalidateByCooperative(ctx, id)
}
