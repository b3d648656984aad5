package handlers

import (
	"context"
	"net/http"

	"github.com/onnwee/agrisync/backend/internal/models"
)

type SeasonAPI interface {
	List(ctx context.Context) ([]models.Season, error)
	Active(ctx context.Context) (models.Season, error)
}

// GET /api/seasons
func ListSeasons(s SeasonAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := s.List(r.Context())
		if err != nil {
			writeServiceError(w, r, "season", err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// GET /api/seasons/active
func ActiveSeason(s SeasonAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		season, err := s.Active(r.Context())
		if err != nil {
			writeServiceError(w, r, "active season", err)
			return
		}
		writeJSON(w, http.StatusOK, season)
	}
}
