package cache

import (
	"encoding/json"
	"errors"
)

var errEmptyEntry = errors.New("cache entry has no data")

// Entry is the unit of storage in both tiers.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"` // write time, ms since epoch
	TTL       int64           `json:"ttl"`       // ms
	Key       string          `json:"key"`
	Tags      []string        `json:"tags,omitempty"`
	Size      int             `json:"size"` // length of Data in bytes
}

// Expired reports whether the entry is stale at nowMs.
func (e *Entry) Expired(nowMs int64) bool {
	return nowMs-e.Timestamp > e.TTL
}

// HasAnyTag reports whether the entry carries one of tags.
func (e *Entry) HasAnyTag(tags []string) bool {
	for _, want := range tags {
		for _, have := range e.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

func decodeEntry(raw []byte) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	if len(e.Data) == 0 {
		return nil, errEmptyEntry
	}
	return &e, nil
}
