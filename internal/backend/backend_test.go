package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/onnwee/agrisync/backend/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Options{URL: srv.URL, Key: "test-key", FailureThreshold: 3, Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(Options{URL: "http://localhost"}); err == nil {
		t.Error("expected error without key")
	}
	if _, err := NewClient(Options{Key: "k"}); err == nil {
		t.Error("expected error without url")
	}
}

func TestProducersList(t *testing.T) {
	var gotPath, gotRegion string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRegion = r.URL.Query().Get("region")
		writeJSON(w, []models.Producer{{ID: "p1", Region: "Dakar"}, {ID: "p2", Region: "Dakar"}})
	})

	rows, err := NewProducers(c).List(context.Background(), models.ProducerFilters{Region: "Dakar"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("rows = %d, want 2", len(rows))
	}
	if gotPath != "/rest/v1/producers" {
		t.Errorf("path = %q", gotPath)
	}
	if gotRegion != "eq.Dakar" {
		t.Errorf("region filter = %q, want eq.Dakar", gotRegion)
	}
}

func TestGetNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []models.Producer{})
	})
	_, err := NewProducers(c).Get(context.Background(), "missing")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCanceledContextSkipsRequest(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		writeJSON(w, []models.Season{})
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewSeasons(c).List(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if called {
		t.Error("request sent with a canceled context")
	}
}

func TestProducerStats(t *testing.T) {
	rows := []models.Producer{
		{ID: "1", Region: "Dakar", IsActive: true},
		{ID: "2", Region: "Dakar"},
		{ID: "3", Region: "Thiès", IsActive: true},
		{ID: "4"},
	}
	s := producerStats(rows)
	if s.Total != 4 || s.Active != 2 {
		t.Errorf("total/active = %d/%d, want 4/2", s.Total, s.Active)
	}
	if s.ByRegion["Dakar"] != 2 || s.ByRegion["Thiès"] != 1 || s.ByRegion["unknown"] != 1 {
		t.Errorf("by region = %v", s.ByRegion)
	}
}

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := []models.Notification{
		{ID: "old", CreatedAt: base},
		{ID: "new", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "mid", CreatedAt: base.Add(time.Hour)},
	}
	sortNewestFirst(rows)
	if rows[0].ID != "new" || rows[1].ID != "mid" || rows[2].ID != "old" {
		t.Errorf("order = %s,%s,%s", rows[0].ID, rows[1].ID, rows[2].ID)
	}
}
