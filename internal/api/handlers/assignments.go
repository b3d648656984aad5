package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/onnwee/agrisync/backend/internal/apierr"
	"github.com/onnwee/agrisync/backend/internal/middleware"
	"github.com/onnwee/agrisync/backend/internal/models"
)

type AssignmentAPI interface {
	ListByAgent(ctx context.Context, agentID string) ([]models.AgentAssignment, error)
	Workload(ctx context.Context, agentID string) (models.Workload, error)
	Assign(ctx context.Context, a models.AgentAssignment) (models.AgentAssignment, error)
	Unassign(ctx context.Context, id string) error
}

// GET /api/agents/{agentID}/assignments
func ListAgentAssignments(s AssignmentAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := s.ListByAgent(r.Context(), mux.Vars(r)["agentID"])
		if err != nil {
			writeServiceError(w, r, "assignment", err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// GET /api/agents/{agentID}/workload
func GetAgentWorkload(s AssignmentAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wl, err := s.Workload(r.Context(), mux.Vars(r)["agentID"])
		if err != nil {
			writeServiceError(w, r, "workload", err)
			return
		}
		writeJSON(w, http.StatusOK, wl)
	}
}

// POST /api/assignments
func CreateAssignment(s AssignmentAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var a models.AgentAssignment
		if apiErr := middleware.DecodeJSON(r, &a, false); apiErr != nil {
			apierr.WriteErrorWithContext(w, r, apiErr)
			return
		}
		if profile, ok := ProfileFrom(r.Context()); ok && a.AssignedBy == "" {
			a.AssignedBy = profile.UserID
		}
		created, err := s.Assign(r.Context(), a)
		if err != nil {
			writeServiceError(w, r, "assignment", err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

// DELETE /api/assignments/{id}
func DeleteAssignment(s AssignmentAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Unassign(r.Context(), mux.Vars(r)["id"]); err != nil {
			writeServiceError(w, r, "assignment", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
