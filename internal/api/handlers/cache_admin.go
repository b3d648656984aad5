package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/onnwee/agrisync/backend/internal/apierr"
	"github.com/onnwee/agrisync/backend/internal/cache"
	"github.com/onnwee/agrisync/backend/internal/logger"
	"github.com/onnwee/agrisync/backend/internal/middleware"
)

// CacheAdmin is the engine surface exposed to operators.
type CacheAdmin interface {
	cache.Cache
	Stats() cache.Stats
	Metrics() cache.Metrics
	Clear(ctx context.Context)
	PurgeExpired(ctx context.Context) int
	SaveMetrics(ctx context.Context) error
}

// CacheAdminHandler handles cache administration endpoints.
type CacheAdminHandler struct {
	cache CacheAdmin
}

// NewCacheAdminHandler creates a new cache admin handler.
func NewCacheAdminHandler(c CacheAdmin) *CacheAdminHandler {
	return &CacheAdminHandler{cache: c}
}

// GetCacheStats returns the memory tier summary and the running counters.
// GET /api/admin/cache/stats
func (h *CacheAdminHandler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stats":   h.cache.Stats(),
		"metrics": h.cache.Metrics(),
	})
}

// GetCacheMetrics GET /api/admin/cache/metrics
func (h *CacheAdminHandler) GetCacheMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.Metrics())
}

// invalidateRequest accepts before as either epoch milliseconds or RFC 3339.
type invalidateRequest struct {
	Pattern string          `json:"pattern"`
	Tags    []string        `json:"tags"`
	Before  json.RawMessage `json:"before"`
}

func parseBefore(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}
	var ms int64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return time.UnixMilli(ms), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, err
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(n), nil
	}
	return time.Parse(time.RFC3339, s)
}

// InvalidateCache removes every entry selected by pattern, tags and before.
// POST /api/admin/cache/invalidate
func (h *CacheAdminHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if apiErr := middleware.DecodeJSON(r, &req, false); apiErr != nil {
		apierr.WriteErrorWithContext(w, r, apiErr)
		return
	}
	before, err := parseBefore(req.Before)
	if err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("before", "before must be epoch milliseconds or RFC 3339"))
		return
	}
	opts := cache.InvalidateOptions{
		Pattern: strings.TrimSpace(req.Pattern),
		Tags:    req.Tags,
		Before:  before,
	}
	if opts.IsZero() {
		apierr.WriteErrorWithContext(w, r, apierr.CacheInvalidPattern("pattern, tags or before is required"))
		return
	}

	removed := h.cache.Invalidate(r.Context(), opts)
	logger.InfoContext(r.Context(), "Cache invalidated by admin",
		"pattern", opts.Pattern, "tags", opts.Tags, "removed", removed)
	writeJSON(w, http.StatusOK, map[string]interface{}{"removed": removed})
}

type putEntryRequest struct {
	Value json.RawMessage `json:"value"`
	TTL   string          `json:"ttl"`
	Tags  []string        `json:"tags"`
}

// PutCacheEntry seeds one key, e.g. to warm reference data after a deploy.
// PUT /api/admin/cache/keys/{key}
func (h *CacheAdminHandler) PutCacheEntry(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	var req putEntryRequest
	if apiErr := middleware.DecodeJSON(r, &req, false); apiErr != nil {
		apierr.WriteErrorWithContext(w, r, apiErr)
		return
	}
	if len(bytes.TrimSpace(req.Value)) == 0 {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationMissingField("value"))
		return
	}
	ttl := cache.Medium
	if req.TTL != "" {
		d, err := cache.ResolveTTL(req.TTL)
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.CacheInvalidTTL(err.Error()))
			return
		}
		ttl = d
	}
	h.cache.Set(r.Context(), key, req.Value, ttl, req.Tags...)
	writeJSON(w, http.StatusOK, map[string]interface{}{"key": key, "ttl_ms": ttl.Milliseconds()})
}

// DeleteCacheKey DELETE /api/admin/cache/keys/{key}
func (h *CacheAdminHandler) DeleteCacheKey(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if !h.cache.Delete(r.Context(), key) {
		apierr.WriteErrorWithContext(w, r, apierr.SystemUnavailable("Cache store rejected the delete"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearCache empties both tiers and resets the counters.
// POST /api/admin/cache/clear
func (h *CacheAdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.cache.Clear(r.Context())
	logger.InfoContext(r.Context(), "Cache cleared by admin")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// PurgeExpired POST /api/admin/cache/purge-expired
func (h *CacheAdminHandler) PurgeExpired(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"removed": h.cache.PurgeExpired(r.Context())})
}

// SnapshotMetrics persists the counters now instead of waiting for the schedule.
// POST /api/admin/cache/snapshot
func (h *CacheAdminHandler) SnapshotMetrics(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.SaveMetrics(r.Context()); err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.SystemUnavailable("Could not persist cache metrics"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
