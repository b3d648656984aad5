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

type AssignmentRepository interface {
	ListByAgent(ctx context.Context, agentID string) ([]models.AgentAssignment, error)
	Create(ctx context.Context, a models.AgentAssignment) (models.AgentAssignment, error)
	Delete(ctx context.Context, id string) (models.AgentAssignment, error)
}

type AssignmentService struct {
	repo   AssignmentRepository
	caches *domaincache.Caches
	group  singleflight.Group
}

func NewAssignmentService(repo AssignmentRepository, caches *domaincache.Caches) *AssignmentService {
	return &AssignmentService{repo: repo, caches: caches}
}

func (s *AssignmentService) ListByAgent(ctx context.Context, agentID string) ([]models.AgentAssignment, error) {
	c := s.caches.AgentAssignments
	return readThrough(ctx, &s.group, "assignments.by_agent",
		cachekey.Index(cachekey.AgentAssignments, domaincache.IndexAgent, agentID, nil),
		func(ctx context.Context) ([]models.AgentAssignment, bool) { return c.GetByAgent(ctx, agentID) },
		func(ctx context.Context) ([]models.AgentAssignment, error) { return s.repo.ListByAgent(ctx, agentID) },
		func(ctx context.Context, v []models.AgentAssignment) { c.SetByAgent(ctx, agentID, v) },
	)
}

// Workload counts the distinct producers assigned to an agent.
func (s *AssignmentService) Workload(ctx context.Context, agentID string) (models.Workload, error) {
	w := s.caches.AgentAssignments.Workload
	return readThrough(ctx, &s.group, "assignments.workload",
		cachekey.Scalar(cachekey.AgentAssignments, "workload", agentID),
		func(ctx context.Context) (models.Workload, bool) { return w.Get(ctx, agentID) },
		func(ctx context.Context) (models.Workload, error) {
			rows, err := s.ListByAgent(ctx, agentID)
			if err != nil {
				return models.Workload{}, err
			}
			seen := make(map[string]struct{}, len(rows))
			for _, a := range rows {
				seen[a.ProducerID] = struct{}{}
			}
			return models.Workload{AgentID: agentID, ProducerCount: len(seen)}, nil
		},
		func(ctx context.Context, v models.Workload) { w.Set(ctx, agentID, v, 0) },
	)
}

func (s *AssignmentService) Assign(ctx context.Context, a models.AgentAssignment) (models.AgentAssignment, error) {
	if strings.TrimSpace(a.AgentID) == "" || strings.TrimSpace(a.ProducerID) == "" {
		return models.AgentAssignment{}, fmt.Errorf("%w: agent_id and producer_id are required", ErrInvalid)
	}
	created, err := s.repo.Create(ctx, a)
	if err != nil {
		return models.AgentAssignment{}, err
	}
	s.invalidate(ctx, created)
	return created, nil
}

func (s *AssignmentService) Unassign(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.invalidate(ctx, deleted)
	return nil
}

func (s *AssignmentService) invalidate(ctx context.Context, a models.AgentAssignment) {
	s.caches.AgentAssignments.InvalidateMutation(ctx, a.ID)
	s.caches.AgentAssignments.InvalidateAgent(ctx, a.AgentID)
	s.caches.Producers.InvalidateByAgent(ctx, a.AgentID)
}
