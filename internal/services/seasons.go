package services

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/onnwee/agrisync/backend/internal/cachekey"
	"github.com/onnwee/agrisync/backend/internal/domaincache"
	"github.com/onnwee/agrisync/backend/internal/models"
)

type SeasonRepository interface {
	List(ctx context.Context) ([]models.Season, error)
	Active(ctx context.Context) (models.Season, error)
}

type SeasonService struct {
	repo   SeasonRepository
	caches *domaincache.Caches
	group  singleflight.Group
}

func NewSeasonService(repo SeasonRepository, caches *domaincache.Caches) *SeasonService {
	return &SeasonService{repo: repo, caches: caches}
}

func (s *SeasonService) List(ctx context.Context) ([]models.Season, error) {
	c := s.caches.Seasons
	return readThrough(ctx, &s.group, "seasons.list",
		cachekey.List(cachekey.Seasons, nil),
		func(ctx context.Context) ([]models.Season, bool) { return c.GetList(ctx, nil) },
		s.repo.List,
		func(ctx context.Context, v []models.Season) { c.SetList(ctx, nil, v, 0) },
	)
}

func (s *SeasonService) Active(ctx context.Context) (models.Season, error) {
	c := s.caches.Seasons
	return readThrough(ctx, &s.group, "seasons.active",
		cachekey.Scalar(cachekey.Seasons, "active", "current"),
		c.GetActive,
		s.repo.Active,
		c.SetActive,
	)
}
