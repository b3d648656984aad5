package cache

import (
	"time"

	"github.com/onnwee/agrisync/backend/internal/logger"
)

// EventType names a cache operation.
type EventType string

const (
	EventHit        EventType = "hit"
	EventMiss       EventType = "miss"
	EventSet        EventType = "set"
	EventDelete     EventType = "delete"
	EventInvalidate EventType = "invalidate"
)

// Event is delivered to listeners after the operation took effect.
type Event struct {
	Type         EventType `json:"type"`
	Key          string    `json:"key"` // the pattern for invalidate events
	Timestamp    int64     `json:"timestamp"`
	ResponseTime int64     `json:"responseTime,omitempty"` // ms, hit and miss
	Size         int       `json:"size,omitempty"`         // set only
	Count        int       `json:"count,omitempty"`        // invalidate only
	Tier         string    `json:"tier,omitempty"`         // hit only: memory or storage

	Elapsed time.Duration `json:"-"`
}

// Listener observes cache events. It runs synchronously on the calling goroutine.
type Listener func(Event)

// ListenerID identifies a registered listener.
type ListenerID uint64

type listenerEntry struct {
	id ListenerID
	fn Listener
}

// AddEventListener registers fn. Listeners only fire when metrics are enabled.
func (e *Engine) AddEventListener(fn Listener) ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextListener++
	id := e.nextListener
	e.listeners = append(e.listeners, listenerEntry{id: id, fn: fn})
	return id
}

// RemoveEventListener unregisters a listener. Unknown ids are ignored.
func (e *Engine) RemoveEventListener(id ListenerID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, l := range e.listeners {
		if l.id == id {
			e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
			return
		}
	}
}

func (e *Engine) emit(ev Event) {
	if !e.cfg.EnableMetrics {
		return
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = e.nowMs()
	}

	e.mu.Lock()
	listeners := make([]listenerEntry, len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.Unlock()

	for _, l := range listeners {
		e.notify(l, ev)
	}
}

func (e *Engine) notify(l listenerEntry, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Cache event listener panicked",
				"listener", l.id, "event", ev.Type, "key", ev.Key, "panic", r)
		}
	}()
	l.fn(ev)
}
