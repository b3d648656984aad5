package cache

import (
	"slices"
	"strings"

	"github.com/onnwee/agrisync/backend/internal/cachekey"
	"github.com/onnwee/agrisync/backend/internal/metrics"
)

// ExportPrometheus registers a listener that mirrors cache events into the
// prometheus counters, labelled by key domain. It has no effect when events
// are disabled.
func (e *Engine) ExportPrometheus() ListenerID {
	return e.AddEventListener(func(ev Event) {
		domain := keyDomain(ev.Key)
		switch ev.Type {
		case EventHit:
			metrics.CacheHits.WithLabelValues(domain, ev.Tier).Inc()
			metrics.CacheGetDuration.WithLabelValues("hit").Observe(ev.Elapsed.Seconds())
		case EventMiss:
			metrics.CacheMisses.WithLabelValues(domain).Inc()
			metrics.CacheGetDuration.WithLabelValues("miss").Observe(ev.Elapsed.Seconds())
		case EventSet:
			metrics.CacheSets.WithLabelValues(domain).Inc()
			metrics.CacheEntrySize.Observe(float64(ev.Size))
		case EventDelete:
			metrics.CacheDeletes.WithLabelValues(domain).Inc()
		case EventInvalidate:
			metrics.CacheInvalidatedEntries.WithLabelValues(domain).Add(float64(ev.Count))
		}
	})
}

// Sample feeds the periodic metrics collector. It only reads memory state.
func (e *Engine) Sample() metrics.Sample {
	st := e.Stats()
	m := e.Metrics()
	return metrics.Sample{
		MemoryEntries:  st.MemoryKeys,
		ExpiredEntries: st.ExpiredKeys,
		MemoryBytes:    m.MemorySize,
		StorageKeys:    m.StorageSize,
		HitRate:        m.HitRate,
	}
}

// keyDomain returns the first key segment when it names a known domain and
// "other" for anything else, which keeps the label set bounded.
func keyDomain(key string) string {
	domain, _, _ := strings.Cut(key, ":")
	if !slices.Contains(cachekey.Domains, domain) {
		return "other"
	}
	return domain
}
