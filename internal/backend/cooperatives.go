package backend

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/onnwee/agrisync/backend/internal/models"
	postgrest "github.com/supabase-community/postgrest-go"
)

type Cooperatives struct {
	c *Client
}

func NewCooperatives(c *Client) *Cooperatives { return &Cooperatives{c: c} }

func (r *Cooperatives) List(ctx context.Context, f models.CooperativeFilters) ([]models.Cooperative, error) {
	var rows []models.Cooperative
	err := r.c.selectAll(ctx, tableCooperatives, &rows, func(q *postgrest.FilterBuilder) *postgrest.FilterBuilder {
		if f.Region != "" {
			q = q.Eq("region", f.Region)
		}
		if f.Search != "" {
			q = q.Ilike("name", "%"+f.Search+"%")
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Cooperatives) Get(ctx context.Context, id string) (models.Cooperative, error) {
	return selectOne[models.Cooperative](ctx, r.c, tableCooperatives, id)
}

// GetWithDetails adds the member count.
func (r *Cooperatives) GetWithDetails(ctx context.Context, id string) (models.CooperativeWithDetails, error) {
	coop, err := r.Get(ctx, id)
	if err != nil {
		return models.CooperativeWithDetails{}, err
	}
	var members []models.Producer
	err = r.c.selectAll(ctx, tableProducers, &members, func(q *postgrest.FilterBuilder) *postgrest.FilterBuilder {
		return q.Eq("cooperative_id", id)
	})
	if err != nil {
		return models.CooperativeWithDetails{}, err
	}
	return models.CooperativeWithDetails{Cooperative: coop, ProducerCount: len(members)}, nil
}

func (r *Cooperatives) Create(ctx context.Context, coop models.Cooperative) (models.Cooperative, error) {
	if coop.ID == "" {
		coop.ID = uuid.NewString()
	}
	coop.CreatedAt = time.Now().UTC()
	return insertOne(ctx, r.c, tableCooperatives, coop)
}

func (r *Cooperatives) Update(ctx context.Context, id string, coop models.Cooperative) (models.Cooperative, error) {
	coop.ID = id
	return updateOne[models.Cooperative](ctx, r.c, tableCooperatives, id, coop)
}

func (r *Cooperatives) Delete(ctx context.Context, id string) (models.Cooperative, error) {
	return deleteOne[models.Cooperative](ctx, r.c, tableCooperatives, id)
}
