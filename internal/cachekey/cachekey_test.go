package cachekey

import (
	"regexp"
	"strings"
	"testing"
)

// matches mirrors the cache engine's wildcard semantics.
func matches(pattern, key string) bool {
	quoted := regexp.QuoteMeta(pattern)
	re := regexp.MustCompile("^" + strings.ReplaceAll(quoted, `\*`, ".*") + "$")
	return re.MatchString(key)
}

type producerFilters struct {
	Region string `json:"region,omitempty"`
	Status string `json:"status,omitempty"`
}

func TestBuilders(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"item", Item(Producers, "42"), "producers:item:42"},
		{"details", Details(Producers, "42"), "producers:details:42"},
		{"list nil filters", List(Producers, nil), "producers:list:{}"},
		{"list struct filters", List(Producers, producerFilters{Region: "Dakar"}), `producers:list:{"region":"Dakar"}`},
		{"list map filters sorted", List(Plots, map[string]any{"b": 2, "a": 1}), `plots:list:{"a":1,"b":2}`},
		{"stats", Stats(Cooperatives), "cooperatives:stats"},
		{"index", Index(Plots, "producer", "7", nil), "plots:producer:7:{}"},
		{"scalar", Scalar(Notifications, "unread", "u1"), "notifications:unread:u1"},
		{"list pattern", ListPattern(Producers), "producers:list:*"},
		{"index pattern", IndexPattern(Plots, "producer", "7"), "plots:producer:7:*"},
		{"index all pattern", IndexAllPattern(Plots, "producer"), "plots:producer:*"},
		{"domain pattern", DomainPattern(Seasons), "seasons:*"},
		{"scope pattern", ScopePattern(AgentAssignments, "agent"), "agent_assignments:agent:*"},
		{"escaped id", Item(Producers, "a:b*c%"), "producers:item:a%3Ab%2Ac%25"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestFiltersDeterministic(t *testing.T) {
	a := List(Producers, map[string]string{"region": "Dakar", "status": "active"})
	b := List(Producers, map[string]string{"status": "active", "region": "Dakar"})
	if a != b {
		t.Errorf("equal filters gave different keys: %q vs %q", a, b)
	}
	c := List(Producers, map[string]string{"region": "Thiès"})
	if a == c {
		t.Error("different filters gave the same key")
	}
	if List(Producers, nil) != List(Producers, (*producerFilters)(nil)) {
		t.Error("nil pointer filters should serialise like nil")
	}
}

func TestPatternScoping(t *testing.T) {
	p1 := IndexPattern(Plots, "producer", "1")

	if !matches(p1, Index(Plots, "producer", "1", nil)) {
		t.Error("pattern must select its own index value")
	}
	if !matches(p1, Index(Plots, "producer", "1", map[string]string{"crop": "rice"})) {
		t.Error("pattern must select every filter variant")
	}
	if matches(p1, Index(Plots, "producer", "10", nil)) {
		t.Error("pattern for id 1 selected id 10")
	}
	if matches(ListPattern(Producers), Item(Producers, "list")) {
		t.Error("list pattern selected an item")
	}
}

func TestEscapedIDsCannotWiden(t *testing.T) {
	// an id containing a wildcard must not select other producers
	pattern := Key{Domain: Plots, Scope: "producer", ID: "*"}.Pattern()
	if matches(pattern, Index(Plots, "producer", "5", nil)) {
		t.Error("wildcard id leaked into the pattern")
	}
	// an id containing the separator must not reach a deeper scope
	plain := Key{Domain: Producers, Scope: ScopeItem, ID: "1"}.String()
	if Item(Producers, "1:extra") == plain+":extra" {
		t.Error("separator in id was not escaped")
	}
}

func TestDomainsCoverAll(t *testing.T) {
	if len(Domains) != 11 {
		t.Errorf("len(Domains) = %d, want 11", len(Domains))
	}
	seen := make(map[string]bool)
	for _, d := range Domains {
		if seen[d] {
			t.Errorf("duplicate domain %q", d)
		}
		seen[d] = true
	}
}
