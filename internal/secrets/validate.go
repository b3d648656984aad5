package secrets

import (
	"fmt"
	"sort"
	"strings"

	"github.com/onnwee/agrisync/backend/internal/config"
)

// ValidationError lists required settings that are absent or blank.
type ValidationError struct {
	Missing []string
	Empty   []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Empty) > 0 {
		parts = append(parts, fmt.Sprintf("empty values for required environment variables: %s", strings.Join(e.Empty, ", ")))
	}
	return strings.Join(parts, "; ")
}

// ValidateRequired reports every blank value in secrets, sorted by name.
func ValidateRequired(secrets map[string]string) error {
	var empty []string
	for key, value := range secrets {
		if strings.TrimSpace(value) == "" {
			empty = append(empty, key)
		}
	}
	if len(empty) == 0 {
		return nil
	}
	sort.Strings(empty)
	return &ValidationError{Empty: empty}
}

// Required returns the settings cfg cannot run without. The persistent
// cache tier's connection settings are only required for that tier.
func Required(cfg *config.Config) map[string]string {
	req := map[string]string{
		"SUPABASE_URL":              cfg.SupabaseURL,
		"SUPABASE_SERVICE_ROLE_KEY": cfg.SupabaseKey,
	}
	switch cfg.CacheStore {
	case "postgres":
		req["DATABASE_URL"] = cfg.DatabaseURL
	case "redis":
		req["REDIS_ADDR"] = cfg.RedisAddr
	}
	return req
}

// ValidateConfig checks Required(cfg).
func ValidateConfig(cfg *config.Config) error {
	return ValidateRequired(Required(cfg))
}
