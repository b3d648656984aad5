package backend

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/onnwee/agrisync/backend/internal/models"
	postgrest "github.com/supabase-community/postgrest-go"
)

// Producers implements the producer repository.
type Producers struct {
	c *Client
}

func NewProducers(c *Client) *Producers { return &Producers{c: c} }

func producerFilter(f models.ProducerFilters) func(*postgrest.FilterBuilder) *postgrest.FilterBuilder {
	return func(q *postgrest.FilterBuilder) *postgrest.FilterBuilder {
		if f.Region != "" {
			q = q.Eq("region", f.Region)
		}
		if f.CooperativeID != "" {
			q = q.Eq("cooperative_id", f.CooperativeID)
		}
		if f.ActiveOnly {
			q = q.Eq("is_active", "true")
		}
		if f.Search != "" {
			q = q.Ilike("last_name", "%"+f.Search+"%")
		}
		return q
	}
}

func (r *Producers) List(ctx context.Context, f models.ProducerFilters) ([]models.Producer, error) {
	var rows []models.Producer
	if err := r.c.selectAll(ctx, tableProducers, &rows, producerFilter(f)); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByAgent returns the producers assigned to agentID that match f.
func (r *Producers) ListByAgent(ctx context.Context, agentID string, f models.ProducerFilters) ([]models.Producer, error) {
	var assignments []models.AgentAssignment
	err := r.c.selectAll(ctx, tableAssignments, &assignments, func(q *postgrest.FilterBuilder) *postgrest.FilterBuilder {
		return q.Eq("agent_id", agentID)
	})
	if err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return []models.Producer{}, nil
	}

	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.ProducerID)
	}
	var rows []models.Producer
	apply := producerFilter(f)
	err = r.c.selectAll(ctx, tableProducers, &rows, func(q *postgrest.FilterBuilder) *postgrest.FilterBuilder {
		return apply(q.In("id", ids))
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Producers) Get(ctx context.Context, id string) (models.Producer, error) {
	return selectOne[models.Producer](ctx, r.c, tableProducers, id)
}

// GetWithDetails loads the producer, its plots and its cooperative.
func (r *Producers) GetWithDetails(ctx context.Context, id string) (models.ProducerWithDetails, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return models.ProducerWithDetails{}, err
	}
	out := models.ProducerWithDetails{Producer: p, Plots: []models.Plot{}}

	err = r.c.selectAll(ctx, tablePlots, &out.Plots, func(q *postgrest.FilterBuilder) *postgrest.FilterBuilder {
		return q.Eq("producer_id", id)
	})
	if err != nil {
		return models.ProducerWithDetails{}, err
	}

	if p.CooperativeID != nil && *p.CooperativeID != "" {
		coop, err := selectOne[models.Cooperative](ctx, r.c, tableCooperatives, *p.CooperativeID)
		switch {
		case err == nil:
			out.Cooperative = &coop
		case !isNotFound(err):
			return models.ProducerWithDetails{}, err
		}
	}
	return out, nil
}

func (r *Producers) Stats(ctx context.Context) (models.ProducerStats, error) {
	rows, err := r.List(ctx, models.ProducerFilters{})
	if err != nil {
		return models.ProducerStats{}, err
	}
	return producerStats(rows), nil
}

func producerStats(rows []models.Producer) models.ProducerStats {
	s := models.ProducerStats{Total: len(rows), ByRegion: make(map[string]int)}
	for _, p := range rows {
		if p.IsActive {
			s.Active++
		}
		region := p.Region
		if region == "" {
			region = "unknown"
		}
		s.ByRegion[region]++
	}
	return s
}

func (r *Producers) Create(ctx context.Context, p models.Producer) (models.Producer, error) {
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt, p.UpdatedAt = now, now
	return insertOne(ctx, r.c, tableProducers, p)
}

func (r *Producers) Update(ctx context.Context, id string, p models.Producer) (models.Producer, error) {
	p.ID = id
	p.UpdatedAt = time.Now().UTC()
	return updateOne[models.Producer](ctx, r.c, tableProducers, id, p)
}

func (r *Producers) Delete(ctx context.Context, id string) (models.Producer, error) {
	return deleteOne[models.Producer](ctx, r.c, tableProducers, id)
}
