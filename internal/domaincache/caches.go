package domaincache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/onnwee/agrisync/backend/internal/cache"
	"github.com/onnwee/agrisync/backend/internal/cachekey"
	m "github.com/onnwee/agrisync/backend/internal/models"
)

// Secondary index names.
const (
	IndexAgent       = "agent"
	IndexProducer    = "producer"
	IndexCooperative = "cooperative"
	IndexUser        = "user"
	IndexStatus      = "status"
	IndexType        = "type"
)

type ProducerCache struct {
	*Wrapper[m.Producer, m.ProducerWithDetails, m.ProducerStats]
}

func (p *ProducerCache) GetByAgent(ctx context.Context, agentID string, f m.ProducerFilters) ([]m.Producer, bool) {
	return p.GetIndexed(ctx, IndexAgent, agentID, f)
}

func (p *ProducerCache) SetByAgent(ctx context.Context, agentID string, f m.ProducerFilters, items []m.Producer) {
	p.SetIndexed(ctx, IndexAgent, agentID, f, items, 0)
}

// InvalidateList drops every producer list, including the per-agent ones:
// an agent's list is a filtered view of the same rows.
func (p *ProducerCache) InvalidateList(ctx context.Context) int {
	return p.Wrapper.InvalidateList(ctx) + p.InvalidateAllAgents(ctx)
}

func (p *ProducerCache) InvalidateByAgent(ctx context.Context, agentID string) int {
	return p.InvalidateIndex(ctx, IndexAgent, agentID)
}

// InvalidateAllAgents drops every per-agent producer list. Bulk changes use
// it when the affected agents are not known.
func (p *ProducerCache) InvalidateAllAgents(ctx context.Context) int {
	return p.InvalidateIndexAll(ctx, IndexAgent)
}

type PlotCache struct {
	*Wrapper[m.Plot, m.Plot, m.PlotStats]
}

func (p *PlotCache) GetByProducer(ctx context.Context, producerID string) ([]m.Plot, bool) {
	return p.GetIndexed(ctx, IndexProducer, producerID, nil)
}

func (p *PlotCache) SetByProducer(ctx context.Context, producerID string, plots []m.Plot) {
	p.SetIndexed(ctx, IndexProducer, producerID, nil, plots, 0)
}

func (p *PlotCache) InvalidateByProducer(ctx context.Context, producerID string) int {
	return p.InvalidateIndex(ctx, IndexProducer, producerID)
}

type CooperativeCache struct {
	*Wrapper[m.Cooperative, m.CooperativeWithDetails, m.CooperativeStats]
}

type NotificationCache struct {
	*Wrapper[m.Notification, m.Notification, m.NotificationStats]
	Unread *Scalar[int]
}

func (n *NotificationCache) GetForUser(ctx context.Context, userID string, f m.NotificationFilters) ([]m.Notification, bool) {
	return n.GetIndexed(ctx, IndexUser, userID, f)
}

func (n *NotificationCache) SetForUser(ctx context.Context, userID string, f m.NotificationFilters, items []m.Notification) {
	n.SetIndexed(ctx, IndexUser, userID, f, items, 0)
}

func (n *NotificationCache) InvalidateUnreadCount(ctx context.Context, userID string) {
	n.Unread.Invalidate(ctx, userID)
}

// InvalidateUser drops the user's notification lists and unread count.
func (n *NotificationCache) InvalidateUser(ctx context.Context, userID string) {
	n.InvalidateIndex(ctx, IndexUser, userID)
	n.InvalidateUnreadCount(ctx, userID)
}

type AssignmentCache struct {
	*Wrapper[m.AgentAssignment, m.AgentAssignment, m.AssignmentStats]
	Workload *Scalar[m.Workload]
}

func (a *AssignmentCache) GetByAgent(ctx context.Context, agentID string) ([]m.AgentAssignment, bool) {
	return a.GetIndexed(ctx, IndexAgent, agentID, nil)
}

func (a *AssignmentCache) SetByAgent(ctx context.Context, agentID string, items []m.AgentAssignment) {
	a.SetIndexed(ctx, IndexAgent, agentID, nil, items, 0)
}

func (a *AssignmentCache) InvalidateWorkload(ctx context.Context, agentID string) {
	a.Workload.Invalidate(ctx, agentID)
}

// InvalidateAgent drops the agent's assignment lists and workload.
func (a *AssignmentCache) InvalidateAgent(ctx context.Context, agentID string) {
	a.InvalidateIndex(ctx, IndexAgent, agentID)
	a.InvalidateWorkload(ctx, agentID)
}

// InvalidateAllAgents drops every agent's assignment lists and workload.
func (a *AssignmentCache) InvalidateAllAgents(ctx context.Context) int {
	return a.InvalidateIndexAll(ctx, IndexAgent) + a.Workload.InvalidateAll(ctx)
}

type SeasonCache struct {
	*Wrapper[m.Season, m.Season, m.Empty]
	Active *Scalar[m.Season]
}

// activeSeasonID keys the single active season.
const activeSeasonID = "current"

func (s *SeasonCache) GetActive(ctx context.Context) (m.Season, bool) {
	return s.Active.Get(ctx, activeSeasonID)
}

func (s *SeasonCache) SetActive(ctx context.Context, season m.Season) {
	s.Active.Set(ctx, activeSeasonID, season, 0)
}

func (s *SeasonCache) InvalidateActive(ctx context.Context) {
	s.Active.Invalidate(ctx, activeSeasonID)
}

type ParticipantCache struct {
	*Wrapper[m.Participant, m.Participant, m.Empty]
}

func (p *ParticipantCache) InvalidateByCooperative(ctx context.Context, cooperativeID string) int {
	return p.InvalidateIndex(ctx, IndexCooperative, cooperativeID)
}

type RecommendationCache struct {
	*Wrapper[m.Recommendation, m.Recommendation, m.Empty]
}

func (r *RecommendationCache) InvalidateByStatus(ctx context.Context, status string) int {
	return r.InvalidateIndex(ctx, IndexStatus, status)
}

func (r *RecommendationCache) InvalidateByProducer(ctx context.Context, producerID string) int {
	return r.InvalidateIndex(ctx, IndexProducer, producerID)
}

type InputCache struct {
	*Wrapper[m.Input, m.Input, m.Empty]
}

func (i *InputCache) InvalidateByType(ctx context.Context, inputType string) int {
	return i.InvalidateIndex(ctx, IndexType, inputType)
}

type IntervenantCache struct {
	*Wrapper[m.Intervenant, m.Intervenant, m.Empty]
}

func (i *IntervenantCache) InvalidateByProducer(ctx context.Context, producerID string) int {
	return i.InvalidateIndex(ctx, IndexProducer, producerID)
}

// AuthCache keeps resolved sessions keyed by a digest of the access token,
// so raw tokens never become cache keys.
type AuthCache struct {
	Sessions *Scalar[m.AuthProfile]
	c        cache.Cache
}

func sessionID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}

// SessionKey is the cache key of the session for token.
func SessionKey(token string) string {
	return cachekey.Scalar(cachekey.Auth, "session", sessionID(token))
}

func (a *AuthCache) GetSession(ctx context.Context, token string) (m.AuthProfile, bool) {
	return a.Sessions.Get(ctx, sessionID(token))
}

func (a *AuthCache) SetSession(ctx context.Context, token string, p m.AuthProfile) {
	a.Sessions.Set(ctx, sessionID(token), p, 0)
}

func (a *AuthCache) InvalidateSession(ctx context.Context, token string) {
	a.Sessions.Invalidate(ctx, sessionID(token))
}

// InvalidateAll drops every auth key.
func (a *AuthCache) InvalidateAll(ctx context.Context) int {
	return a.c.Invalidate(ctx, cache.InvalidateOptions{Pattern: cachekey.DomainPattern(cachekey.Auth)})
}

// Caches holds one typed cache per domain, all sharing one engine.
type Caches struct {
	Cooperatives     *CooperativeCache
	Producers        *ProducerCache
	Plots            *PlotCache
	Notifications    *NotificationCache
	Participants     *ParticipantCache
	Recommendations  *RecommendationCache
	Seasons          *SeasonCache
	Inputs           *InputCache
	Intervenants     *IntervenantCache
	AgentAssignments *AssignmentCache
	Auth             *AuthCache
}

// NewCaches builds every domain cache over c. overrides replaces the
// default TTL of a domain, keyed by domain name.
func NewCaches(c cache.Cache, overrides map[string]time.Duration) *Caches {
	ttl := func(domain string, def time.Duration) time.Duration {
		if d, ok := overrides[domain]; ok && d > 0 {
			return d
		}
		return def
	}
	spec := func(domain string, def time.Duration) Spec {
		d := ttl(domain, def)
		return Spec{Domain: domain, DefaultTTL: d, ListTTL: d, StatsTTL: d}
	}

	return &Caches{
		Cooperatives: &CooperativeCache{New[m.Cooperative, m.CooperativeWithDetails, m.CooperativeStats](
			c, spec(cachekey.Cooperatives, cache.Long))},
		Producers: &ProducerCache{New[m.Producer, m.ProducerWithDetails, m.ProducerStats](
			c, spec(cachekey.Producers, cache.Medium))},
		Plots: &PlotCache{New[m.Plot, m.Plot, m.PlotStats](
			c, spec(cachekey.Plots, cache.Medium))},
		Notifications: &NotificationCache{
			Wrapper: New[m.Notification, m.Notification, m.NotificationStats](
				c, spec(cachekey.Notifications, 2*time.Minute)),
			Unread: NewScalar[int](c, cachekey.Notifications, "unread", ttl(cachekey.Notifications+"_unread", cache.Short)),
		},
		Participants: &ParticipantCache{New[m.Participant, m.Participant, m.Empty](
			c, spec(cachekey.Participants, cache.Medium))},
		Recommendations: &RecommendationCache{New[m.Recommendation, m.Recommendation, m.Empty](
			c, spec(cachekey.Recommendations, cache.Medium))},
		Seasons: &SeasonCache{
			Wrapper: New[m.Season, m.Season, m.Empty](c, spec(cachekey.Seasons, cache.Long)),
			Active:  NewScalar[m.Season](c, cachekey.Seasons, "active", ttl(cachekey.Seasons, cache.Long)),
		},
		Inputs: &InputCache{New[m.Input, m.Input, m.Empty](
			c, spec(cachekey.Inputs, cache.Long))},
		Intervenants: &IntervenantCache{New[m.Intervenant, m.Intervenant, m.Empty](
			c, spec(cachekey.Intervenants, cache.Medium))},
		AgentAssignments: &AssignmentCache{
			Wrapper: New[m.AgentAssignment, m.AgentAssignment, m.AssignmentStats](
				c, spec(cachekey.AgentAssignments, cache.Medium)),
			Workload: NewScalar[m.Workload](c, cachekey.AgentAssignments, "workload", ttl(cachekey.AgentAssignments+"_workload", cache.Short)),
		},
		Auth: &AuthCache{
			Sessions: NewScalar[m.AuthProfile](c, cachekey.Auth, "session", ttl(cachekey.Auth, cache.Extended)),
			c:        c,
		},
	}
}
