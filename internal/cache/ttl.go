package cache

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TTL presets shared by every domain.
const (
	Short    = time.Minute
	Medium   = 5 * time.Minute
	Long     = 30 * time.Minute
	Extended = time.Hour
)

var presets = map[string]time.Duration{
	"short":    Short,
	"medium":   Medium,
	"long":     Long,
	"extended": Extended,
}

// ResolveTTL turns a preset name ("short", "medium", "long", "extended"), a
// Go duration ("90s") or a bare millisecond count ("60000") into a duration.
func ResolveTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, ok := presets[strings.ToLower(s)]; ok {
		return d, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms <= 0 {
			return 0, fmt.Errorf("ttl must be positive, got %d", ms)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid ttl %q", s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("ttl must be positive, got %s", d)
	}
	return d, nil
}
