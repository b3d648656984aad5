package backend

import (
	"context"

	"github.com/onnwee/agrisync/backend/internal/models"
	postgrest "github.com/supabase-community/postgrest-go"
)

type Seasons struct {
	c *Client
}

func NewSeasons(c *Client) *Seasons { return &Seasons{c: c} }

func (r *Seasons) List(ctx context.Context) ([]models.Season, error) {
	var rows []models.Season
	if err := r.c.selectAll(ctx, tableSeasons, &rows, nil); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Seasons) Active(ctx context.Context) (models.Season, error) {
	var rows []models.Season
	err := r.c.selectAll(ctx, tableSeasons, &rows, func(q *postgrest.FilterBuilder) *postgrest.FilterBuilder {
		return q.Eq("is_active", "true")
	})
	if err != nil {
		return models.Season{}, err
	}
	if len(rows) == 0 {
		return models.Season{}, models.ErrNotFound
	}
	return rows[0], nil
}
