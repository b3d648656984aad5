package cache

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/onnwee/agrisync/backend/internal/store"
)

// countingStore records calls per operation and can be switched to fail.
type countingStore struct {
	*store.Memory

	mu     sync.Mutex
	calls  map[string]int
	failOn map[string]bool
}

var errStoreDown = errors.New("store down")

func newCountingStore() *countingStore {
	return &countingStore{
		Memory: store.NewMemory(),
		calls:  make(map[string]int),
		failOn: make(map[string]bool),
	}
}

func (s *countingStore) hit(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	if s.failOn[op] {
		return errStoreDown
	}
	return nil
}

func (s *countingStore) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *countingStore) reset() {
	s.mu.Lock()
	s.calls = make(map[string]int)
	s.mu.Unlock()
}

func (s *countingStore) fail(ops ...string) {
	s.mu.Lock()
	for _, op := range ops {
		s.failOn[op] = true
	}
	s.mu.Unlock()
}

func (s *countingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := s.hit("get"); err != nil {
		return nil, false, err
	}
	return s.Memory.Get(ctx, key)
}

func (s *countingStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.hit("set"); err != nil {
		return err
	}
	return s.Memory.Set(ctx, key, value)
}

func (s *countingStore) Delete(ctx context.Context, key string) error {
	if err := s.hit("delete"); err != nil {
		return err
	}
	return s.Memory.Delete(ctx, key)
}

func (s *countingStore) DeleteMany(ctx context.Context, keys []string) error {
	if err := s.hit("delete_many"); err != nil {
		return err
	}
	return s.Memory.DeleteMany(ctx, keys)
}

func (s *countingStore) Keys(ctx context.Context) ([]string, error) {
	if err := s.hit("keys"); err != nil {
		return nil, err
	}
	return s.Memory.Keys(ctx)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *countingStore, *fakeClock) {
	t.Helper()
	s := newCountingStore()
	clock := newFakeClock()
	cfg.Clock = clock.Now
	e := New(s, cfg)
	t.Cleanup(func() { e.patterns.close() })
	return e, s, clock
}

func inMemory(e *Engine, key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.memory[key]
	return ok
}

type producer struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Region string   `json:"region"`
	Crops  []string `json:"crops"`
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t, Config{})

	t.Run("struct", func(t *testing.T) {
		want := producer{ID: "p1", Name: "Awa Diop", Region: "Thiès", Crops: []string{"millet", "groundnut"}}
		e.Set(ctx, "producers:item:p1", want, time.Minute)
		got, ok := GetAs[producer](ctx, e, "producers:item:p1")
		if !ok {
			t.Fatal("expected hit")
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %+v, want %+v", got, want)
		}
	})

	t.Run("slice", func(t *testing.T) {
		want := []producer{{ID: "a"}, {ID: "b", Crops: []string{"rice"}}}
		e.Set(ctx, "producers:list:{}", want, 0)
		got, ok := GetAs[[]producer](ctx, e, "producers:list:{}")
		if !ok || !reflect.DeepEqual(got, want) {
			t.Errorf("got %+v (ok=%v), want %+v", got, ok, want)
		}
	})

	t.Run("scalar", func(t *testing.T) {
		e.Set(ctx, "notifications:unread:u1", 7, Short)
		got, ok := GetAs[int](ctx, e, "notifications:unread:u1")
		if !ok || got != 7 {
			t.Errorf("got %d (ok=%v), want 7", got, ok)
		}
	})

	t.Run("returned bytes are a copy", func(t *testing.T) {
		e.Set(ctx, "k", "abc", 0)
		raw, _ := e.Get(ctx, "k")
		raw[1] = 'z'
		again, _ := e.Get(ctx, "k")
		if string(again) != `"abc"` {
			t.Errorf("cached value mutated through returned slice: %s", again)
		}
	})

	t.Run("type mismatch is a miss", func(t *testing.T) {
		e.Set(ctx, "mismatch", "text", 0)
		if _, ok := GetAs[int](ctx, e, "mismatch"); ok {
			t.Error("expected miss when decoding string into int")
		}
	})
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	e, s, clock := newTestEngine(t, Config{})

	e.Set(ctx, "seasons:active", "2024-hivernage", time.Second)

	clock.Advance(time.Second)
	if _, ok := e.Get(ctx, "seasons:active"); !ok {
		t.Fatal("entry must still be served at exactly write time + ttl")
	}

	clock.Advance(time.Millisecond)
	if _, ok := e.Get(ctx, "seasons:active"); ok {
		t.Fatal("expired entry was served")
	}
	if inMemory(e, "seasons:active") {
		t.Error("expired entry left in memory")
	}
	if _, ok, _ := s.Memory.Get(ctx, DefaultKeyPrefix+"seasons:active"); ok {
		t.Error("expired entry left in store")
	}
}

func TestTierFallback(t *testing.T) {
	ctx := context.Background()
	e, s, clock := newTestEngine(t, Config{})
	e.Initialize(ctx)

	entry := Entry{
		Data:      json.RawMessage(`{"id":"c1","name":"Coop Niayes"}`),
		Timestamp: clock.Now().UnixMilli(),
		TTL:       Medium.Milliseconds(),
		Key:       "cooperatives:item:c1",
	}
	raw, _ := json.Marshal(entry)
	if err := s.Memory.Set(ctx, DefaultKeyPrefix+"cooperatives:item:c1", raw); err != nil {
		t.Fatal(err)
	}
	s.reset()

	var tiers []string
	e.cfg.EnableMetrics = true
	e.AddEventListener(func(ev Event) {
		if ev.Type == EventHit {
			tiers = append(tiers, ev.Tier)
		}
	})

	first, ok := e.Get(ctx, "cooperatives:item:c1")
	if !ok || string(first) != string(entry.Data) {
		t.Fatalf("first Get = %s (ok=%v), want %s", first, ok, entry.Data)
	}
	if _, ok := e.Get(ctx, "cooperatives:item:c1"); !ok {
		t.Fatal("second Get missed")
	}

	if got := s.count("get"); got != 1 {
		t.Errorf("store Get calls = %d, want 1", got)
	}
	if !reflect.DeepEqual(tiers, []string{"storage", "memory"}) {
		t.Errorf("hit tiers = %v, want [storage memory]", tiers)
	}
}

func TestMissCounting(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t, Config{})

	if _, ok := e.Get(ctx, "producers:item:never"); ok {
		t.Fatal("unexpected hit")
	}
	m := e.Metrics()
	if m.Misses != 1 || m.Hits != 0 {
		t.Errorf("hits/misses = %d/%d, want 0/1", m.Hits, m.Misses)
	}
	if m.HitRate != 0 {
		t.Errorf("hit rate = %v, want 0", m.HitRate)
	}

	e.Set(ctx, "producers:item:p1", producer{ID: "p1"}, 0)
	e.Get(ctx, "producers:item:p1")
	e.Get(ctx, "producers:item:p1")
	e.Get(ctx, "producers:item:p1")

	m = e.Metrics()
	if m.Misses != 1 || m.Hits != 3 {
		t.Errorf("hits/misses = %d/%d, want 3/1", m.Hits, m.Misses)
	}
	if m.HitRate != 75 {
		t.Errorf("hit rate = %v, want 75", m.HitRate)
	}
}

func TestInvalidatePatternScoping(t *testing.T) {
	keys := []string{"plots:1", "plots:10", "plots:1:extra"}
	tests := []struct {
		pattern   string
		want      int
		remaining []string
	}{
		{pattern: "plots:1:*", want: 1, remaining: []string{"plots:1", "plots:10"}},
		{pattern: "plots:1*", want: 3},
		{pattern: "plots:1", want: 1, remaining: []string{"plots:10", "plots:1:extra"}},
		{pattern: "plots:*:extra", want: 1, remaining: []string{"plots:1", "plots:10"}},
		{pattern: "plots:2*", want: 0, remaining: keys},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			ctx := context.Background()
			e, s, _ := newTestEngine(t, Config{})
			for _, k := range keys {
				e.Set(ctx, k, k, 0)
			}

			if got := e.Invalidate(ctx, InvalidateOptions{Pattern: tt.pattern}); got != tt.want {
				t.Errorf("Invalidate(%q) = %d, want %d", tt.pattern, got, tt.want)
			}

			for _, k := range keys {
				want := contains(tt.remaining, k)
				if inMemory(e, k) != want {
					t.Errorf("memory has %q = %v, want %v", k, !want, want)
				}
				_, persisted, _ := s.Memory.Get(ctx, DefaultKeyPrefix+k)
				if persisted != want {
					t.Errorf("store has %q = %v, want %v", k, persisted, want)
				}
			}
		})
	}
}

func TestInvalidateCountsKeysOnce(t *testing.T) {
	ctx := context.Background()
	e, s, clock := newTestEngine(t, Config{EnableMetrics: true})

	var events []Event
	e.AddEventListener(func(ev Event) {
		if ev.Type == EventInvalidate {
			events = append(events, ev)
		}
	})

	e.Set(ctx, "inputs:list:{}", []string{"urea"}, 0)
	// persisted only
	raw, _ := json.Marshal(Entry{Data: json.RawMessage(`[]`), Timestamp: clock.Now().UnixMilli(), TTL: 60000, Key: "inputs:list:{\"type\":\"seed\"}"})
	_ = s.Memory.Set(ctx, DefaultKeyPrefix+`inputs:list:{"type":"seed"}`, raw)
	// outside the cache namespace
	_ = s.Memory.Set(ctx, "inputs:list:foreign", []byte(`"x"`))

	if got := e.Invalidate(ctx, InvalidateOptions{Pattern: "inputs:list:*"}); got != 2 {
		t.Errorf("Invalidate = %d, want 2", got)
	}
	if len(events) != 1 || events[0].Count != 2 || events[0].Key != "inputs:list:*" {
		t.Errorf("invalidate events = %+v, want one with count 2", events)
	}
	if _, ok, _ := s.Memory.Get(ctx, "inputs:list:foreign"); !ok {
		t.Error("key outside the cache prefix was removed")
	}
	if e.Metrics().Invalidations != 2 {
		t.Errorf("Invalidations = %d, want 2", e.Metrics().Invalidations)
	}

	events = nil
	if got := e.Invalidate(ctx, InvalidateOptions{Pattern: "inputs:list:*"}); got != 0 {
		t.Errorf("second Invalidate = %d, want 0", got)
	}
	if len(events) != 0 {
		t.Errorf("no event expected when nothing was removed, got %+v", events)
	}
}

func TestInvalidateOptions(t *testing.T) {
	ctx := context.Background()

	t.Run("empty options remove nothing", func(t *testing.T) {
		e, _, _ := newTestEngine(t, Config{})
		e.Set(ctx, "a", 1, 0)
		if got := e.Invalidate(ctx, InvalidateOptions{}); got != 0 {
			t.Errorf("Invalidate({}) = %d, want 0", got)
		}
		if _, ok := e.Get(ctx, "a"); !ok {
			t.Error("entry removed by empty options")
		}
	})

	t.Run("before", func(t *testing.T) {
		e, s, clock := newTestEngine(t, Config{MaxMemoryEntries: 1})
		e.Set(ctx, "recommendations:item:old", "old", Long)
		clock.Advance(time.Minute)
		cutoff := clock.Now()
		e.Set(ctx, "recommendations:item:new", "new", Long)

		// "old" now lives only in the store because of the cap
		if inMemory(e, "recommendations:item:old") {
			t.Fatal("expected old entry to be evicted from memory")
		}

		got := e.Invalidate(ctx, InvalidateOptions{Pattern: "recommendations:*", Before: cutoff})
		if got != 1 {
			t.Errorf("Invalidate(before) = %d, want 1", got)
		}
		if _, ok, _ := s.Memory.Get(ctx, DefaultKeyPrefix+"recommendations:item:old"); ok {
			t.Error("old entry still persisted")
		}
		if _, ok := e.Get(ctx, "recommendations:item:new"); !ok {
			t.Error("entry written at the cutoff must survive")
		}
	})

	t.Run("tags", func(t *testing.T) {
		e, _, _ := newTestEngine(t, Config{})
		e.Set(ctx, "participants:item:1", "a", 0, "session:9")
		e.Set(ctx, "participants:item:2", "b", 0, "session:9", "vip")
		e.Set(ctx, "participants:item:3", "c", 0)

		if got := e.Invalidate(ctx, InvalidateOptions{Tags: []string{"session:9"}}); got != 2 {
			t.Errorf("Invalidate(tags) = %d, want 2", got)
		}
		if _, ok := e.Get(ctx, "participants:item:3"); !ok {
			t.Error("untagged entry removed")
		}
	})

	t.Run("metacharacters are literal", func(t *testing.T) {
		e, _, _ := newTestEngine(t, Config{})
		e.Set(ctx, "a.b", 1, 0)
		e.Set(ctx, "axb", 1, 0)
		e.Set(ctx, "(x)+", 1, 0)

		if got := e.Invalidate(ctx, InvalidateOptions{Pattern: "a.b"}); got != 1 {
			t.Errorf("Invalidate(a.b) = %d, want 1", got)
		}
		if _, ok := e.Get(ctx, "axb"); !ok {
			t.Error("'.' must not act as a wildcard")
		}
		if got := e.Invalidate(ctx, InvalidateOptions{Pattern: "(x)+"}); got != 1 {
			t.Errorf("Invalidate((x)+) = %d, want 1", got)
		}
	})
}

func TestCapacityEviction(t *testing.T) {
	ctx := context.Background()
	e, s, clock := newTestEngine(t, Config{MaxMemoryEntries: 3})

	for _, k := range []string{"k1", "k2", "k3", "k4"} {
		e.Set(ctx, k, k, 0)
		clock.Advance(time.Millisecond)
	}

	if got := e.Stats().MemoryKeys; got != 3 {
		t.Errorf("memory keys = %d, want 3", got)
	}
	if inMemory(e, "k1") {
		t.Error("oldest key k1 still in memory")
	}
	for _, k := range []string{"k2", "k3", "k4"} {
		if !inMemory(e, k) {
			t.Errorf("%s missing from memory", k)
		}
	}
	if got := e.Metrics().Evictions; got != 1 {
		t.Errorf("evictions = %d, want 1", got)
	}

	s.reset()
	for i := 0; i < 2; i++ {
		got, ok := GetAs[string](ctx, e, "k1")
		if !ok || got != "k1" {
			t.Errorf("read %d of evicted key: got %q (ok=%v)", i+1, got, ok)
		}
	}
	if got := s.count("get"); got != 1 {
		t.Errorf("store gets after two reads = %d, want 1", got)
	}
	if !inMemory(e, "k1") {
		t.Error("k1 must stay in memory after being read back from the store")
	}
	if got := e.Stats().MemoryKeys; got != 3 {
		t.Errorf("memory keys after read-back = %d, want 3", got)
	}
	if inMemory(e, "k2") {
		t.Error("k2 is now the oldest and must make room for k1")
	}
}

func TestCapacityEvictionTiesUseInsertionOrder(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t, Config{MaxMemoryEntries: 2})

	e.Set(ctx, "a", 1, 0)
	e.Set(ctx, "b", 2, 0)
	e.Set(ctx, "c", 3, 0)

	if inMemory(e, "a") || !inMemory(e, "b") || !inMemory(e, "c") {
		t.Error("with equal timestamps the first inserted key must be evicted")
	}
}

func TestInitializeIdempotent(t *testing.T) {
	ctx := context.Background()
	e, s, _ := newTestEngine(t, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Initialize(ctx)
		}()
	}
	wg.Wait()
	e.Initialize(ctx)
	e.Get(ctx, "anything")

	if got := s.count("keys"); got != 1 {
		t.Errorf("store Keys calls = %d, want 1", got)
	}
	// one for the metrics snapshot, one for the Get above
	if got := s.count("get"); got != 2 {
		t.Errorf("store Get calls = %d, want 2", got)
	}
}

func TestInitializePurgesStore(t *testing.T) {
	ctx := context.Background()
	s := newCountingStore()
	clock := newFakeClock()
	now := clock.Now().UnixMilli()

	put := func(key string, entry Entry) {
		raw, _ := json.Marshal(entry)
		_ = s.Memory.Set(ctx, DefaultKeyPrefix+key, raw)
	}
	put("fresh", Entry{Data: json.RawMessage(`1`), Timestamp: now, TTL: 60000})
	put("stale", Entry{Data: json.RawMessage(`1`), Timestamp: now - 120000, TTL: 60000})
	_ = s.Memory.Set(ctx, DefaultKeyPrefix+"corrupt", []byte("{not json"))
	_ = s.Memory.Set(ctx, "auth_token", []byte("unrelated"))

	e := New(s, Config{Clock: clock.Now})
	defer e.patterns.close()
	e.Initialize(ctx)

	keys, _ := s.Memory.Keys(ctx)
	want := map[string]bool{DefaultKeyPrefix + "fresh": true, "auth_token": true}
	if len(keys) != len(want) {
		t.Fatalf("store keys after init = %v", keys)
	}
	for _, k := range keys {
		if !want[k] {
			t.Errorf("unexpected key %q survived initialization", k)
		}
	}
	if got := e.Metrics().StorageSize; got != 1 {
		t.Errorf("StorageSize = %d, want 1", got)
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	e, s, _ := newTestEngine(t, Config{})

	for _, k := range []string{"a", "b", "c"} {
		e.Set(ctx, k, k, 0)
	}
	e.Get(ctx, "a")
	e.Get(ctx, "missing")
	_ = e.SaveMetrics(ctx)
	_ = s.Memory.Set(ctx, "user_prefs", []byte(`{}`))

	e.Clear(ctx)

	if got := e.Stats().TotalKeys; got != 0 {
		t.Errorf("TotalKeys = %d, want 0", got)
	}
	m := e.Metrics()
	if m != (Metrics{}) {
		t.Errorf("metrics after clear = %+v, want zero", m)
	}
	keys, _ := s.Memory.Keys(ctx)
	if len(keys) != 1 || keys[0] != "user_prefs" {
		t.Errorf("store keys after clear = %v, want [user_prefs]", keys)
	}
	if _, ok := e.Get(ctx, "a"); ok {
		t.Error("cleared key still served")
	}
}

func TestCorruptEntrySelfHeals(t *testing.T) {
	ctx := context.Background()
	e, s, _ := newTestEngine(t, Config{})
	e.Initialize(ctx)

	for _, raw := range []string{"garbage", `{"timestamp":1}`} {
		_ = s.Memory.Set(ctx, DefaultKeyPrefix+"producers:item:bad", []byte(raw))

		if _, ok := e.Get(ctx, "producers:item:bad"); ok {
			t.Fatalf("corrupt entry %q served", raw)
		}
		if _, ok, _ := s.Memory.Get(ctx, DefaultKeyPrefix+"producers:item:bad"); ok {
			t.Errorf("corrupt entry %q not deleted", raw)
		}
	}
	if got := e.Metrics().Misses; got != 2 {
		t.Errorf("misses = %d, want 2", got)
	}
}

func TestStoreFailureDegradesToMemory(t *testing.T) {
	ctx := context.Background()
	e, s, _ := newTestEngine(t, Config{EnableMetrics: true})
	s.fail("get", "set", "delete", "delete_many", "keys")

	e.Initialize(ctx)
	e.Set(ctx, "intervenants:item:1", "vet", 0)

	got, ok := GetAs[string](ctx, e, "intervenants:item:1")
	if !ok || got != "vet" {
		t.Errorf("memory copy must survive a failed store write, got %q (ok=%v)", got, ok)
	}
	if _, ok := e.Get(ctx, "intervenants:item:2"); ok {
		t.Error("expected miss")
	}
	var deleted []string
	e.AddEventListener(func(ev Event) {
		if ev.Type == EventDelete {
			deleted = append(deleted, ev.Key)
		}
	})
	if e.Delete(ctx, "intervenants:item:1") {
		t.Error("Delete must report false when the store fails")
	}
	if got := e.Metrics().Deletes; got != 1 {
		t.Errorf("Deletes after failed store delete = %d, want 1", got)
	}
	if !reflect.DeepEqual(deleted, []string{"intervenants:item:1"}) {
		t.Errorf("delete events = %v", deleted)
	}
	if _, ok := e.Get(ctx, "intervenants:item:1"); ok {
		t.Error("memory copy must be gone after Delete")
	}

	e.Set(ctx, "intervenants:item:3", "agronomist", 0)
	if got := e.Invalidate(ctx, InvalidateOptions{Pattern: "intervenants:*"}); got != 1 {
		t.Errorf("Invalidate with broken store = %d, want 1 (memory only)", got)
	}
	e.Clear(ctx)
	if err := e.SaveMetrics(ctx); err == nil {
		t.Error("SaveMetrics must surface the store error")
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	e, s, _ := newTestEngine(t, Config{EnableMetrics: true})

	var deleted []string
	e.AddEventListener(func(ev Event) {
		if ev.Type == EventDelete {
			deleted = append(deleted, ev.Key)
		}
	})

	e.Set(ctx, "seasons:list:{}", []string{"2024"}, 0)
	if !e.Delete(ctx, "seasons:list:{}") {
		t.Fatal("Delete returned false")
	}
	if _, ok, _ := s.Memory.Get(ctx, DefaultKeyPrefix+"seasons:list:{}"); ok {
		t.Error("key still persisted")
	}
	if !e.Delete(ctx, "never-set") {
		t.Error("deleting a missing key is not a failure")
	}
	if got := e.Metrics().Deletes; got != 2 {
		t.Errorf("Deletes = %d, want 2", got)
	}
	if !reflect.DeepEqual(deleted, []string{"seasons:list:{}", "never-set"}) {
		t.Errorf("delete events = %v", deleted)
	}
}

func TestEventListeners(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled metrics emit nothing", func(t *testing.T) {
		e, _, _ := newTestEngine(t, Config{EnableMetrics: false})
		called := false
		e.AddEventListener(func(Event) { called = true })
		e.Set(ctx, "a", 1, 0)
		e.Get(ctx, "a")
		if called {
			t.Error("listener called with metrics disabled")
		}
	})

	t.Run("panicking listener is isolated", func(t *testing.T) {
		e, _, _ := newTestEngine(t, Config{EnableMetrics: true})
		e.AddEventListener(func(Event) { panic("boom") })
		var types []EventType
		e.AddEventListener(func(ev Event) { types = append(types, ev.Type) })

		e.Set(ctx, "a", 1, 0)
		e.Get(ctx, "a")
		e.Get(ctx, "b")

		want := []EventType{EventSet, EventHit, EventMiss}
		if !reflect.DeepEqual(types, want) {
			t.Errorf("events = %v, want %v", types, want)
		}
		if _, ok := e.Get(ctx, "a"); !ok {
			t.Error("engine unusable after listener panic")
		}
	})

	t.Run("remove", func(t *testing.T) {
		e, _, _ := newTestEngine(t, Config{EnableMetrics: true})
		n := 0
		id := e.AddEventListener(func(Event) { n++ })
		e.Set(ctx, "a", 1, 0)
		e.RemoveEventListener(id)
		e.RemoveEventListener(id)
		e.Set(ctx, "b", 1, 0)
		if n != 1 {
			t.Errorf("listener calls = %d, want 1", n)
		}
	})

	t.Run("set carries size", func(t *testing.T) {
		e, _, _ := newTestEngine(t, Config{EnableMetrics: true})
		var ev Event
		e.AddEventListener(func(got Event) { ev = got })
		e.Set(ctx, "size", "abcd", 0)
		if ev.Type != EventSet || ev.Size != len(`"abcd"`) || ev.Timestamp == 0 {
			t.Errorf("set event = %+v", ev)
		}
	})
}

func TestSetUncacheableValue(t *testing.T) {
	ctx := context.Background()
	e, s, _ := newTestEngine(t, Config{})
	e.Initialize(ctx)
	s.reset()

	e.Set(ctx, "bad", make(chan int), 0)

	if _, ok := e.Get(ctx, "bad"); ok {
		t.Error("unencodable value was cached")
	}
	if s.count("set") != 0 {
		t.Error("store written for unencodable value")
	}
	if e.Metrics().Sets != 0 {
		t.Error("Sets counted for unencodable value")
	}
}

func TestSetWithPreset(t *testing.T) {
	ctx := context.Background()
	e, _, clock := newTestEngine(t, Config{})

	e.SetWithPreset(ctx, "auth:profile:u1", "profile", "extended")
	e.SetWithPreset(ctx, "notifications:unread:u1", 3, "short")
	e.SetWithPreset(ctx, "unknown", 1, "forever")

	clock.Advance(2 * time.Minute)
	if _, ok := e.Get(ctx, "notifications:unread:u1"); ok {
		t.Error("short preset outlived one minute")
	}
	if _, ok := e.Get(ctx, "auth:profile:u1"); !ok {
		t.Error("extended preset expired early")
	}
	if _, ok := e.Get(ctx, "unknown"); !ok {
		t.Error("unknown preset should fall back to medium")
	}
}

func TestMetricsSnapshotSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	s := newCountingStore()

	first := New(s, Config{})
	first.Set(ctx, "a", 1, 0)
	first.Get(ctx, "a")
	first.Get(ctx, "b")
	if err := first.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second := New(s, Config{})
	defer second.patterns.close()
	second.Initialize(ctx)
	m := second.Metrics()
	if m.Hits != 1 || m.Misses != 1 || m.Sets != 1 || m.HitRate != 50 {
		t.Errorf("restored metrics = %+v", m)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	e, _, clock := newTestEngine(t, Config{})
	if got := e.Stats(); got != (Stats{}) {
		t.Errorf("empty stats = %+v", got)
	}

	start := clock.Now().UnixMilli()
	e.Set(ctx, "short", 1, time.Second)
	clock.Advance(5 * time.Second)
	e.Set(ctx, "long", 1, time.Hour)

	st := e.Stats()
	if st.TotalKeys != 2 || st.MemoryKeys != 2 || st.ExpiredKeys != 1 {
		t.Errorf("stats = %+v", st)
	}
	if st.OldestEntry != start || st.NewestEntry != start+5000 {
		t.Errorf("oldest/newest = %d/%d, want %d/%d", st.OldestEntry, st.NewestEntry, start, start+5000)
	}
}

func TestPurgeExpired(t *testing.T) {
	ctx := context.Background()
	e, s, clock := newTestEngine(t, Config{MaxMemoryEntries: 2})

	e.Set(ctx, "a", 1, time.Second)
	e.Set(ctx, "b", 1, time.Second)
	e.Set(ctx, "c", 1, time.Hour)
	clock.Advance(2 * time.Second)

	// "a" was evicted from memory and only lives in the store
	if got := e.PurgeExpired(ctx); got != 2 {
		t.Errorf("PurgeExpired = %d, want 2", got)
	}
	keys, _ := s.Memory.Keys(ctx)
	if len(keys) != 1 || !strings.HasSuffix(keys[0], ":c") {
		t.Errorf("store keys = %v, want only c", keys)
	}
}

func TestResolveTTL(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "short", want: time.Minute},
		{in: "Medium", want: 5 * time.Minute},
		{in: "long", want: 30 * time.Minute},
		{in: "extended", want: time.Hour},
		{in: "90s", want: 90 * time.Second},
		{in: "60000", want: time.Minute},
		{in: "0", wantErr: true},
		{in: "-5s", wantErr: true},
		{in: "soon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ResolveTTL(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveTTL(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveTTL(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSetCopiesTags(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t, Config{})

	tags := []string{"coop-1", "north"}
	e.Set(ctx, "producers:item:1", "p", 0, tags...)
	tags[0] = "coop-2"

	if got := e.Invalidate(ctx, InvalidateOptions{Tags: []string{"coop-2"}}); got != 0 {
		t.Errorf("caller mutation leaked into the entry: invalidated %d", got)
	}
	if got := e.Invalidate(ctx, InvalidateOptions{Tags: []string{"coop-1"}}); got != 1 {
		t.Errorf("invalidate by original tag = %d, want 1", got)
	}
}

func TestKeyDomain(t *testing.T) {
	tests := map[string]string{
		"plots:producer:1":   "plots",
		"plots:*":            "plots",
		"auth:session:ab12":  "auth",
		"*":                  "other",
		"":                   "other",
		"single":             "other",
		"admin-put-1234:key": "other",
	}
	for in, want := range tests {
		if got := keyDomain(in); got != want {
			t.Errorf("keyDomain(%q) = %q, want %q", in, got, want)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
