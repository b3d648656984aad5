// Package cachekey builds cache keys and invalidation patterns.
//
// Keys are colon-separated: <domain>:<scope>[:<id>][:<filters>]. Identifier
// segments are escaped so an id can never add a segment or a wildcard, and
// every pattern ends in ":*" so scoping on id 1 never reaches id 10.
package cachekey

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Separator joins key segments.
const Separator = ":"

// Wildcard matches any run of characters in a pattern.
const Wildcard = "*"

// Domains known to the cache.
const (
	Cooperatives     = "cooperatives"
	Producers        = "producers"
	Plots            = "plots"
	Notifications    = "notifications"
	Participants     = "participants"
	Recommendations  = "recommendations"
	Seasons          = "seasons"
	Inputs           = "inputs"
	Intervenants     = "intervenants"
	AgentAssignments = "agent_assignments"
	Auth             = "auth"
)

// Domains lists every known domain.
var Domains = []string{
	Cooperatives, Producers, Plots, Notifications, Participants, Recommendations,
	Seasons, Inputs, Intervenants, AgentAssignments, Auth,
}

// Fixed scopes.
const (
	ScopeItem    = "item"
	ScopeDetails = "details"
	ScopeList    = "list"
	ScopeStats   = "stats"
)

// Key is a structured cache key. It is only turned into a string when it
// is stored or matched.
type Key struct {
	Domain string
	Scope  string
	ID     string
	// Filters are serialised as JSON into the last segment when HasFilters
	// is set. A nil value serialises as {}.
	Filters    any
	HasFilters bool
}

var escaper = strings.NewReplacer("%", "%25", ":", "%3A", "*", "%2A")

// Escape makes s safe to use as a single key segment.
func Escape(s string) string {
	return escaper.Replace(s)
}

func (k Key) segments() []string {
	segs := make([]string, 0, 4)
	for _, s := range []string{k.Domain, k.Scope, k.ID} {
		if s != "" {
			segs = append(segs, Escape(s))
		}
	}
	return segs
}

// String renders the key.
func (k Key) String() string {
	segs := k.segments()
	if k.HasFilters {
		segs = append(segs, SerializeFilters(k.Filters))
	}
	return strings.Join(segs, Separator)
}

// Pattern returns a wildcard selecting every key nested under k, ignoring
// filters. The trailing separator keeps sibling ids apart.
func (k Key) Pattern() string {
	return strings.Join(k.segments(), Separator) + Separator + Wildcard
}

// SerializeFilters renders filters as JSON. Map keys are sorted and struct
// fields keep declaration order, so equal filters give equal strings.
func SerializeFilters(filters any) string {
	if filters == nil {
		return "{}"
	}
	b, err := json.Marshal(filters)
	if err != nil {
		return Escape(fmt.Sprintf("%+v", filters))
	}
	if string(b) == "null" {
		return "{}"
	}
	return string(b)
}

// Item is the key of one entity: <domain>:item:<id>.
func Item(domain, id string) string {
	return Key{Domain: domain, Scope: ScopeItem, ID: id}.String()
}

// Details is the key of one entity with its related rows: <domain>:details:<id>.
func Details(domain, id string) string {
	return Key{Domain: domain, Scope: ScopeDetails, ID: id}.String()
}

// List is the key of a filtered list: <domain>:list:<filters>.
func List(domain string, filters any) string {
	return Key{Domain: domain, Scope: ScopeList, Filters: filters, HasFilters: true}.String()
}

// ListPattern selects every filtered list of domain.
func ListPattern(domain string) string {
	return Key{Domain: domain, Scope: ScopeList}.Pattern()
}

// Stats is the key of the domain aggregate: <domain>:stats.
func Stats(domain string) string {
	return Key{Domain: domain, Scope: ScopeStats}.String()
}

// Index is the key of a list reached through a secondary index, e.g. the
// plots of one producer: plots:producer:<id>:<filters>.
func Index(domain, index, value string, filters any) string {
	return Key{Domain: domain, Scope: index, ID: value, Filters: filters, HasFilters: true}.String()
}

// IndexPattern selects every filter variant of one index value.
func IndexPattern(domain, index, value string) string {
	return Key{Domain: domain, Scope: index, ID: value}.Pattern()
}

// IndexAllPattern selects every value of an index.
func IndexAllPattern(domain, index string) string {
	return Key{Domain: domain, Scope: index}.Pattern()
}

// Scalar is the key of a single derived value such as an unread count:
// <domain>:<name>:<id>.
func Scalar(domain, name, id string) string {
	return Key{Domain: domain, Scope: name, ID: id}.String()
}

// DomainPattern selects every key of domain.
func DomainPattern(domain string) string {
	return Key{Domain: domain}.Pattern()
}

// ScopePattern selects every key under <domain>:<scope>.
func ScopePattern(domain, scope string) string {
	return Key{Domain: domain, Scope: scope}.Pattern()
}
