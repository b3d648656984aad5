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

type CooperativeAPI interface {
	List(ctx context.Context, f models.CooperativeFilters) ([]models.Cooperative, error)
	Get(ctx context.Context, id string) (models.Cooperative, error)
	GetWithDetails(ctx context.Context, id string) (models.CooperativeWithDetails, error)
	Create(ctx context.Context, c models.Cooperative) (models.Cooperative, error)
	Update(ctx context.Context, id string, c models.Cooperative) (models.Cooperative, error)
	Delete(ctx context.Context, id string) error
}

// GET /api/cooperatives?region=&search=
func ListCooperatives(s CooperativeAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		rows, err := s.List(r.Context(), models.CooperativeFilters{
			Region: strings.TrimSpace(q.Get("region")),
			Search: strings.TrimSpace(q.Get("search")),
		})
		if err != nil {
			writeServiceError(w, r, "cooperative", err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// GET /api/cooperatives/{id}
func GetCooperative(s CooperativeAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := s.Get(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeServiceError(w, r, "cooperative", err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

// GET /api/cooperatives/{id}/details
func GetCooperativeDetails(s CooperativeAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := s.GetWithDetails(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeServiceError(w, r, "cooperative", err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

// POST /api/cooperatives
func CreateCooperative(s CooperativeAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c models.Cooperative
		if apiErr := middleware.DecodeJSON(r, &c, false); apiErr != nil {
			apierr.WriteErrorWithContext(w, r, apiErr)
			return
		}
		created, err := s.Create(r.Context(), c)
		if err != nil {
			writeServiceError(w, r, "cooperative", err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

// PATCH /api/cooperatives/{id}
func UpdateCooperative(s CooperativeAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c models.Cooperative
		if apiErr := middleware.DecodeJSON(r, &c, false); apiErr != nil {
			apierr.WriteErrorWithContext(w, r, apiErr)
			return
		}
		updated, err := s.Update(r.Context(), mux.Vars(r)["id"], c)
		if err != nil {
			writeServiceError(w, r, "cooperative", err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

// DELETE /api/cooperatives/{id}
func DeleteCooperative(s CooperativeAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
			writeServiceError(w, r, "cooperative", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
