package services

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/onnwee/agrisync/backend/internal/cachekey"
	"github.com/onnwee/agrisync/backend/internal/domaincache"
	"github.com/onnwee/agrisync/backend/internal/logger"
	"github.com/onnwee/agrisync/backend/internal/models"
)

// ProducerRepository is the backend surface used by ProducerService.
type ProducerRepository interface {
	List(ctx context.Context, f models.ProducerFilters) ([]models.Producer, error)
	ListByAgent(ctx context.Context, agentID string, f models.ProducerFilters) ([]models.Producer, error)
	Get(ctx context.Context, id string) (models.Producer, error)
	GetWithDetails(ctx context.Context, id string) (models.ProducerWithDetails, error)
	Stats(ctx context.Context) (models.ProducerStats, error)
	Create(ctx context.Context, p models.Producer) (models.Producer, error)
	Update(ctx context.Context, id string, p models.Producer) (models.Producer, error)
	Delete(ctx context.Context, id string) (models.Producer, error)
}

type ProducerService struct {
	repo   ProducerRepository
	caches *domaincache.Caches
	group  singleflight.Group
}

func NewProducerService(repo ProducerRepository, caches *domaincache.Caches) *ProducerService {
	return &ProducerService{repo: repo, caches: caches}
}

// GetProducersByAgentID lists the producers assigned to one field agent.
func (s *ProducerService) GetProducersByAgentID(ctx context.Context, agentID string, f models.ProducerFilters) ([]models.Producer, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, fmt.Errorf("%w: agent id is required", ErrInvalid)
	}
	c := s.caches.Producers
	return readThrough(ctx, &s.group, "producers.by_agent",
		cachekey.Index(cachekey.Producers, domaincache.IndexAgent, agentID, f),
		func(ctx context.Context) ([]models.Producer, bool) { return c.GetByAgent(ctx, agentID, f) },
		func(ctx context.Context) ([]models.Producer, error) { return s.repo.ListByAgent(ctx, agentID, f) },
		func(ctx context.Context, v []models.Producer) { c.SetByAgent(ctx, agentID, f, v) },
	)
}

func (s *ProducerService) ListProducers(ctx context.Context, f models.ProducerFilters) ([]models.Producer, error) {
	c := s.caches.Producers
	return readThrough(ctx, &s.group, "producers.list",
		cachekey.List(cachekey.Producers, f),
		func(ctx context.Context) ([]models.Producer, bool) { return c.GetList(ctx, f) },
		func(ctx context.Context) ([]models.Producer, error) { return s.repo.List(ctx, f) },
		func(ctx context.Context, v []models.Producer) { c.SetList(ctx, f, v, 0) },
	)
}

func (s *ProducerService) GetProducer(ctx context.Context, id string) (models.Producer, error) {
	c := s.caches.Producers
	return readThrough(ctx, &s.group, "producers.get",
		cachekey.Item(cachekey.Producers, id),
		func(ctx context.Context) (models.Producer, bool) { return c.GetItem(ctx, id) },
		func(ctx context.Context) (models.Producer, error) { return s.repo.Get(ctx, id) },
		func(ctx context.Context, v models.Producer) { c.SetItem(ctx, id, v, 0) },
	)
}

func (s *ProducerService) GetProducerWithDetails(ctx context.Context, id string) (models.ProducerWithDetails, error) {
	c := s.caches.Producers
	return readThrough(ctx, &s.group, "producers.get_details",
		cachekey.Details(cachekey.Producers, id),
		func(ctx context.Context) (models.ProducerWithDetails, bool) { return c.GetItemWithDetails(ctx, id) },
		func(ctx context.Context) (models.ProducerWithDetails, error) { return s.repo.GetWithDetails(ctx, id) },
		func(ctx context.Context, v models.ProducerWithDetails) { c.SetItemWithDetails(ctx, id, v, 0) },
	)
}

func (s *ProducerService) GetStats(ctx context.Context) (models.ProducerStats, error) {
	c := s.caches.Producers
	return readThrough(ctx, &s.group, "producers.stats",
		cachekey.Stats(cachekey.Producers),
		c.GetStats,
		s.repo.Stats,
		func(ctx context.Context, v models.ProducerStats) { c.SetStats(ctx, v, 0) },
	)
}

func validateProducer(p models.Producer) error {
	if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
		return fmt.Errorf("%w: first_name and last_name are required", ErrInvalid)
	}
	return nil
}

func (s *ProducerService) CreateProducer(ctx context.Context, p models.Producer) (models.Producer, error) {
	if err := validateProducer(p); err != nil {
		return models.Producer{}, err
	}
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return models.Producer{}, err
	}
	s.afterCreate(ctx, created)
	return created, nil
}

func (s *ProducerService) afterCreate(ctx context.Context, p models.Producer) {
	s.caches.Producers.InvalidateMutation(ctx, "")
	if p.CooperativeID != nil {
		s.caches.Cooperatives.InvalidateItem(ctx, *p.CooperativeID)
	}
}

func (s *ProducerService) UpdateProducer(ctx context.Context, id string, p models.Producer) (models.Producer, error) {
	if err := validateProducer(p); err != nil {
		return models.Producer{}, err
	}
	prior, known := s.current(ctx, id)
	updated, err := s.repo.Update(ctx, id, p)
	if err != nil {
		return models.Producer{}, err
	}
	s.invalidateProducer(ctx, updated)
	switch {
	case !known:
		s.caches.Cooperatives.InvalidateAllDetails(ctx)
	case !sameCooperative(prior.CooperativeID, updated.CooperativeID) && prior.CooperativeID != nil:
		s.caches.Cooperatives.InvalidateItem(ctx, *prior.CooperativeID)
	}
	return updated, nil
}

// current returns the row as it was before a mutation, from the cache when
// possible. known is false when the row could not be read.
func (s *ProducerService) current(ctx context.Context, id string) (models.Producer, bool) {
	if p, ok := s.caches.Producers.GetItem(ctx, id); ok {
		return p, true
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		logger.DebugContext(ctx, "Previous producer row unavailable", "producer_id", id, "error", err)
		return models.Producer{}, false
	}
	return p, true
}

func sameCooperative(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *ProducerService) DeleteProducer(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.invalidateProducer(ctx, deleted)
	s.caches.Plots.InvalidateByProducer(ctx, id)
	// Assignments of the deleted producer are not known here.
	s.caches.AgentAssignments.InvalidateAllAgents(ctx)
	return nil
}

// invalidateProducer drops everything that may show p. The agents it is
// assigned to are not known here, so every agent list goes.
func (s *ProducerService) invalidateProducer(ctx context.Context, p models.Producer) {
	s.caches.Producers.InvalidateMutation(ctx, p.ID)
	s.caches.Producers.InvalidateAllAgents(ctx)
	if p.CooperativeID != nil {
		s.caches.Cooperatives.InvalidateItem(ctx, *p.CooperativeID)
	}
}

// BulkCreateProducers creates rows in order and stops at the first failure.
// Rows created before the failure are returned and the cache is invalidated
// for them; nothing is invalidated when no row was created.
func (s *ProducerService) BulkCreateProducers(ctx context.Context, rows []models.Producer) ([]models.Producer, error) {
	created := make([]models.Producer, 0, len(rows))
	var failure error
	for i, p := range rows {
		if err := validateProducer(p); err != nil {
			failure = fmt.Errorf("row %d: %w", i, err)
			break
		}
		c, err := s.repo.Create(ctx, p)
		if err != nil {
			failure = fmt.Errorf("row %d: %w", i, err)
			break
		}
		created = append(created, c)
	}

	if len(created) > 0 {
		s.caches.Producers.InvalidateMutation(ctx, "")
		for _, p := range created {
			if p.CooperativeID != nil {
				s.caches.Cooperatives.InvalidateItem(ctx, *p.CooperativeID)
			}
		}
	}
	if failure != nil {
		logger.WarnContext(ctx, "Bulk producer import stopped early",
			"created", len(created), "requested", len(rows), "error", failure)
		return created, failure
	}
	return created, nil
}
