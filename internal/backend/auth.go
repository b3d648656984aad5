package backend

import (
	"context"
	"fmt"

	"github.com/onnwee/agrisync/backend/internal/models"
)

// Auth resolves access tokens to user profiles.
type Auth struct {
	c *Client
}

func NewAuth(c *Client) *Auth { return &Auth{c: c} }

// Profile validates token against the auth service and returns the user's profile.
func (r *Auth) Profile(ctx context.Context, token string) (models.AuthProfile, error) {
	var profile models.AuthProfile
	err := r.c.do(ctx, "auth", "get_user", func() error {
		user, err := r.c.sb.Auth.WithToken(token).GetUser()
		if err != nil {
			return err
		}
		profile = models.AuthProfile{
			UserID: user.ID.String(),
			Role:   user.Role,
		}
		if name, ok := user.UserMetadata["full_name"].(string); ok {
			profile.DisplayName = name
		} else {
			profile.DisplayName = user.Email
		}
		if role, ok := user.AppMetadata["role"].(string); ok && role != "" {
			profile.Role = role
		}
		return nil
	})
	if err != nil {
		return models.AuthProfile{}, fmt.Errorf("resolve auth profile: %w", err)
	}
	return profile, nil
}
