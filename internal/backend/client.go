// Package backend reads and writes domain rows in the hosted Postgres
// backend through its REST API.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/onnwee/agrisync/backend/internal/circuitbreaker"
	"github.com/onnwee/agrisync/backend/internal/logger"
	"github.com/onnwee/agrisync/backend/internal/metrics"
	"github.com/onnwee/agrisync/backend/internal/models"
	postgrest "github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

// Tables.
const (
	tableProducers     = "producers"
	tablePlots         = "plots"
	tableCooperatives  = "cooperatives"
	tableNotifications = "notifications"
	tableAssignments   = "agent_assignments"
	tableSeasons       = "seasons"
)

// Client wraps the backend client with a circuit breaker and request metrics.
type Client struct {
	sb *supabase.Client
	cb *circuitbreaker.CircuitBreaker
}

// Options configures NewClient.
type Options struct {
	URL              string
	Key              string
	FailureThreshold int
	Timeout          time.Duration
}

// NewClient creates a backend client.
func NewClient(opts Options) (*Client, error) {
	if opts.URL == "" || opts.Key == "" {
		return nil, errors.New("backend URL and key are required")
	}
	sb, err := supabase.NewClient(opts.URL, opts.Key, nil)
	if err != nil {
		return nil, fmt.Errorf("create backend client: %w", err)
	}
	return &Client{
		sb: sb,
		cb: circuitbreaker.New(circuitbreaker.Config{
			Name:             "backend",
			FailureThreshold: opts.FailureThreshold,
			Timeout:          opts.Timeout,
			IsFailure: func(err error) bool {
				return !errors.Is(err, models.ErrNotFound) && !errors.Is(err, context.Canceled)
			},
		}),
	}, nil
}

// Check reports whether the backend is accepting requests. It does not
// call the backend; an open breaker is the only failure signal.
func (c *Client) Check(ctx context.Context) error {
	return c.cb.Err()
}

// do runs one request through the breaker and records its outcome. The
// REST client takes no context, so cancellation is only checked up front.
func (c *Client) do(ctx context.Context, table, op string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := c.cb.Call(fn)

	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, models.ErrNotFound):
		status = "not_found"
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		status = "circuit_open"
	default:
		status = "error"
	}
	metrics.BackendRequests.WithLabelValues(table, op, status).Inc()

	if err != nil && status != "not_found" {
		logger.WarnContext(ctx, "Backend request failed",
			"table", table, "operation", op, "duration", time.Since(start), "error", err)
		return fmt.Errorf("%s %s: %w", op, table, err)
	}
	return err
}

func (c *Client) from(table string) *postgrest.QueryBuilder {
	return c.sb.From(table)
}

// selectAll lists table rows narrowed by apply.
func (c *Client) selectAll(ctx context.Context, table string, out any, apply func(*postgrest.FilterBuilder) *postgrest.FilterBuilder) error {
	return c.do(ctx, table, "select", func() error {
		q := c.from(table).Select("*", "", false)
		if apply != nil {
			q = apply(q)
		}
		_, err := q.ExecuteTo(out)
		return err
	})
}

// selectOne loads the row with id into out. Missing rows give models.ErrNotFound.
func selectOne[T any](ctx context.Context, c *Client, table, id string) (T, error) {
	var rows []T
	var zero T
	err := c.selectAll(ctx, table, &rows, func(q *postgrest.FilterBuilder) *postgrest.FilterBuilder {
		return q.Eq("id", id)
	})
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, models.ErrNotFound
	}
	return rows[0], nil
}

func insertOne[T any](ctx context.Context, c *Client, table string, row T) (T, error) {
	var out []T
	var zero T
	err := c.do(ctx, table, "insert", func() error {
		_, err := c.from(table).Insert(row, false, "", "representation", "").ExecuteTo(&out)
		return err
	})
	if err != nil {
		return zero, err
	}
	if len(out) == 0 {
		return zero, fmt.Errorf("insert %s: no row returned", table)
	}
	return out[0], nil
}

func updateOne[T any](ctx context.Context, c *Client, table, id string, patch any) (T, error) {
	var out []T
	var zero T
	err := c.do(ctx, table, "update", func() error {
		_, err := c.from(table).Update(patch, "representation", "").Eq("id", id).ExecuteTo(&out)
		return err
	})
	if err != nil {
		return zero, err
	}
	if len(out) == 0 {
		return zero, models.ErrNotFound
	}
	return out[0], nil
}

func deleteOne[T any](ctx context.Context, c *Client, table, id string) (T, error) {
	var out []T
	var zero T
	err := c.do(ctx, table, "delete", func() error {
		_, err := c.from(table).Delete("representation", "").Eq("id", id).ExecuteTo(&out)
		return err
	})
	if err != nil {
		return zero, err
	}
	if len(out) == 0 {
		return zero, models.ErrNotFound
	}
	return out[0], nil
}
