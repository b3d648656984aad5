package handlers

import (
	"context"
	"net/http"

	"github.com/onnwee/agrisync/backend/internal/apierr"
	"github.com/onnwee/agrisync/backend/internal/logger"
	"github.com/onnwee/agrisync/backend/internal/middleware"
	"github.com/onnwee/agrisync/backend/internal/models"
)

// ProfileResolver turns an access token into the caller's profile.
type ProfileResolver interface {
	Profile(ctx context.Context, token string) (models.AuthProfile, error)
	SignOut(ctx context.Context, token string)
}

type profileKey struct{}

// ProfileFrom returns the profile stored by RequireUser.
func ProfileFrom(ctx context.Context) (models.AuthProfile, bool) {
	p, ok := ctx.Value(profileKey{}).(models.AuthProfile)
	return p, ok
}

// RequireUser resolves the bearer token and rejects anonymous requests.
func RequireUser(auth ProfileResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := middleware.BearerToken(r)
			if token == "" {
				apierr.WriteErrorWithContext(w, r, apierr.AuthMissing(""))
				return
			}
			profile, err := auth.Profile(r.Context(), token)
			if err != nil {
				writeServiceError(w, r, "profile", err)
				return
			}
			ctx := logger.WithUserID(r.Context(), profile.UserID)
			ctx = context.WithValue(ctx, profileKey{}, profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Me returns the caller's cached profile.
// GET /api/me
func Me(w http.ResponseWriter, r *http.Request) {
	profile, ok := ProfileFrom(r.Context())
	if !ok {
		apierr.WriteErrorWithContext(w, r, apierr.AuthMissing(""))
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// SignOut drops the caller's cached session.
// POST /api/auth/signout
func SignOut(auth ProfileResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := middleware.BearerToken(r); token != "" {
			auth.SignOut(r.Context(), token)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
