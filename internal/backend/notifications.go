package backend

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/onnwee/agrisync/backend/internal/models"
	postgrest "github.com/supabase-community/postgrest-go"
)

type Notifications struct {
	c *Client
}

func NewNotifications(c *Client) *Notifications { return &Notifications{c: c} }

func (r *Notifications) ListForUser(ctx context.Context, userID string, f models.NotificationFilters) ([]models.Notification, error) {
	var rows []models.Notification
	err := r.c.selectAll(ctx, tableNotifications, &rows, func(q *postgrest.FilterBuilder) *postgrest.FilterBuilder {
		q = q.Eq("user_id", userID)
		if f.UnreadOnly {
			q = q.Eq("is_read", "false")
		}
		if f.Type != "" {
			q = q.Eq("type", f.Type)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(rows)
	if f.Limit > 0 && len(rows) > f.Limit {
		rows = rows[:f.Limit]
	}
	return rows, nil
}

func (r *Notifications) UnreadCount(ctx context.Context, userID string) (int, error) {
	rows, err := r.ListForUser(ctx, userID, models.NotificationFilters{UnreadOnly: true})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// MarkRead flags one notification as read and returns it.
func (r *Notifications) MarkRead(ctx context.Context, id string) (models.Notification, error) {
	return updateOne[models.Notification](ctx, r.c, tableNotifications, id, map[string]any{"is_read": true})
}

// MarkAllRead flags every unread notification of userID and returns how many changed.
func (r *Notifications) MarkAllRead(ctx context.Context, userID string) (int, error) {
	var out []models.Notification
	err := r.c.do(ctx, tableNotifications, "update", func() error {
		_, err := r.c.from(tableNotifications).
			Update(map[string]any{"is_read": true}, "representation", "").
			Eq("user_id", userID).
			Eq("is_read", "false").
			ExecuteTo(&out)
		return err
	})
	if err != nil {
		return 0, err
	}
	return len(out), nil
}

func (r *Notifications) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now().UTC()
	return insertOne(ctx, r.c, tableNotifications, n)
}
