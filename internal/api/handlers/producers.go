package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/onnwee/agrisync/backend/internal/apierr"
	"github.com/onnwee/agrisync/backend/internal/middleware"
	"github.com/onnwee/agrisync/backend/internal/models"
)

// maxBulkProducers bounds one bulk import request.
const maxBulkProducers = 500

// ProducerAPI is the producer service surface used by the handlers.
type ProducerAPI interface {
	GetProducersByAgentID(ctx context.Context, agentID string, f models.ProducerFilters) ([]models.Producer, error)
	ListProducers(ctx context.Context, f models.ProducerFilters) ([]models.Producer, error)
	GetProducer(ctx context.Context, id string) (models.Producer, error)
	GetProducerWithDetails(ctx context.Context, id string) (models.ProducerWithDetails, error)
	GetStats(ctx context.Context) (models.ProducerStats, error)
	CreateProducer(ctx context.Context, p models.Producer) (models.Producer, error)
	UpdateProducer(ctx context.Context, id string, p models.Producer) (models.Producer, error)
	DeleteProducer(ctx context.Context, id string) error
	BulkCreateProducers(ctx context.Context, rows []models.Producer) ([]models.Producer, error)
}

func producerFilters(r *http.Request) models.ProducerFilters {
	q := r.URL.Query()
	return models.ProducerFilters{
		Region:        strings.TrimSpace(q.Get("region")),
		CooperativeID: strings.TrimSpace(q.Get("cooperative_id")),
		Search:        strings.TrimSpace(q.Get("search")),
		ActiveOnly:    queryBool(r, "active_only"),
	}
}

// ListProducers lists producers, or one agent's producers when agent_id is set.
// GET /api/producers?region=&cooperative_id=&search=&active_only=&agent_id=
func ListProducers(s ProducerAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := producerFilters(r)
		var (
			rows []models.Producer
			err  error
		)
		if agentID := strings.TrimSpace(r.URL.Query().Get("agent_id")); agentID != "" {
			rows, err = s.GetProducersByAgentID(r.Context(), agentID, f)
		} else {
			rows, err = s.ListProducers(r.Context(), f)
		}
		if err != nil {
			writeServiceError(w, r, "producer", err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// MyProducers lists the producers assigned to the calling agent.
// GET /api/me/producers
func MyProducers(s ProducerAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, ok := ProfileFrom(r.Context())
		if !ok {
			apierr.WriteErrorWithContext(w, r, apierr.AuthMissing(""))
			return
		}
		rows, err := s.GetProducersByAgentID(r.Context(), profile.UserID, producerFilters(r))
		if err != nil {
			writeServiceError(w, r, "producer", err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// GetProducer returns one producer.
// GET /api/producers/{id}
func GetProducer(s ProducerAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := s.GetProducer(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeServiceError(w, r, "producer", err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// GetProducerDetails returns a producer with its plots and cooperative.
// GET /api/producers/{id}/details
func GetProducerDetails(s ProducerAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := s.GetProducerWithDetails(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeServiceError(w, r, "producer", err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// GetProducerStats returns the aggregate producer counts.
// GET /api/producers/stats
func GetProducerStats(s ProducerAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.GetStats(r.Context())
		if err != nil {
			writeServiceError(w, r, "producer stats", err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// CreateProducer POST /api/producers
func CreateProducer(s ProducerAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p models.Producer
		if apiErr := middleware.DecodeJSON(r, &p, false); apiErr != nil {
			apierr.WriteErrorWithContext(w, r, apiErr)
			return
		}
		created, err := s.CreateProducer(r.Context(), p)
		if err != nil {
			writeServiceError(w, r, "producer", err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

// BulkCreateProducers imports several producers. Rows created before a
// failure are returned alongside the error.
// POST /api/producers/bulk
func BulkCreateProducers(s ProducerAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []models.Producer
		if apiErr := middleware.DecodeJSON(r, &rows, false); apiErr != nil {
			apierr.WriteErrorWithContext(w, r, apiErr)
			return
		}
		if len(rows) == 0 {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationMissingField("producers"))
			return
		}
		if len(rows) > maxBulkProducers {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("producers", "Too many producers in one request"))
			return
		}
		created, err := s.BulkCreateProducers(r.Context(), rows)
		if err != nil {
			if len(created) == 0 {
				writeServiceError(w, r, "producer", err)
				return
			}
			writeJSON(w, http.StatusMultiStatus, map[string]interface{}{
				"created": created,
				"error":   err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{"created": created})
	}
}

// UpdateProducer PATCH /api/producers/{id}
func UpdateProducer(s ProducerAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p models.Producer
		if apiErr := middleware.DecodeJSON(r, &p, false); apiErr != nil {
			apierr.WriteErrorWithContext(w, r, apiErr)
			return
		}
		updated, err := s.UpdateProducer(r.Context(), mux.Vars(r)["id"], p)
		if err != nil {
			writeServiceError(w, r, "producer", err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

// DeleteProducer DELETE /api/producers/{id}
func DeleteProducer(s ProducerAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.DeleteProducer(r.Context(), mux.Vars(r)["id"]); err != nil {
			writeServiceError(w, r, "producer", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
