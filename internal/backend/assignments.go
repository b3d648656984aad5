package backend

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/onnwee/agrisync/backend/internal/models"
	postgrest "github.com/supabase-community/postgrest-go"
)

type Assignments struct {
	c *Client
}

func NewAssignments(c *Client) *Assignments { return &Assignments{c: c} }

func (r *Assignments) ListByAgent(ctx context.Context, agentID string) ([]models.AgentAssignment, error) {
	var rows []models.AgentAssignment
	err := r.c.selectAll(ctx, tableAssignments, &rows, func(q *postgrest.FilterBuilder) *postgrest.FilterBuilder {
		return q.Eq("agent_id", agentID)
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Assignments) Create(ctx context.Context, a models.AgentAssignment) (models.AgentAssignment, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.AssignedAt = time.Now().UTC()
	return insertOne(ctx, r.c, tableAssignments, a)
}

func (r *Assignments) Delete(ctx context.Context, id string) (models.AgentAssignment, error) {
	return deleteOne[models.AgentAssignment](ctx, r.c, tableAssignments, id)
}
