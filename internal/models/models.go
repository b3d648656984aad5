// Package models holds the rows exchanged with the hosted backend and
// stored in the cache.
package models

import (
	"errors"
	"time"
)

type Producer struct {
	ID            string    `json:"id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Phone         string    `json:"phone,omitempty"`
	Gender        string    `json:"gender,omitempty"`
	Region        string    `json:"region,omitempty"`
	Department    string    `json:"department,omitempty"`
	Commune       string    `json:"commune,omitempty"`
	CooperativeID *string   `json:"cooperative_id,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProducerFilters narrows producer lists. Field order is part of the cache
// key, so new fields go at the end.
type ProducerFilters struct {
	Region        string `json:"region,omitempty"`
	CooperativeID string `json:"cooperative_id,omitempty"`
	Search        string `json:"search,omitempty"`
	ActiveOnly    bool   `json:"active_only,omitempty"`
}

type ProducerWithDetails struct {
	Producer
	Plots       []Plot       `json:"plots"`
	Cooperative *Cooperative `json:"cooperative,omitempty"`
}

type ProducerStats struct {
	Total    int            `json:"total"`
	Active   int            `json:"active"`
	ByRegion map[string]int `json:"by_region"`
}

type Plot struct {
	ID           string    `json:"id"`
	ProducerID   string    `json:"producer_id"`
	Name         string    `json:"name"`
	AreaHectares float64   `json:"area_hectares"`
	SoilType     string    `json:"soil_type,omitempty"`
	WaterSource  string    `json:"water_source,omitempty"`
	Status       string    `json:"status,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type PlotStats struct {
	Total       int     `json:"total"`
	TotalArea   float64 `json:"total_area"`
	AverageArea float64 `json:"average_area"`
}

type Cooperative struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Region      string    `json:"region,omitempty"`
	Department  string    `json:"department,omitempty"`
	Commune     string    `json:"commune,omitempty"`
	ContactName string    `json:"contact_name,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type CooperativeFilters struct {
	Region string `json:"region,omitempty"`
	Search string `json:"search,omitempty"`
}

type CooperativeWithDetails struct {
	Cooperative
	ProducerCount int `json:"producer_count"`
}

type CooperativeStats struct {
	Total    int            `json:"total"`
	ByRegion map[string]int `json:"by_region"`
}

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Type      string    `json:"type,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type NotificationFilters struct {
	UnreadOnly bool   `json:"unread_only,omitempty"`
	Type       string `json:"type,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

type NotificationStats struct {
	Total  int `json:"total"`
	Unread int `json:"unread"`
}

type AgentAssignment struct {
	ID         string    `json:"id"`
	AgentID    string    `json:"agent_id"`
	ProducerID string    `json:"producer_id"`
	AssignedBy string    `json:"assigned_by,omitempty"`
	AssignedAt time.Time `json:"assigned_at"`
}

// Workload summarises one agent's assignments.
type Workload struct {
	AgentID       string `json:"agent_id"`
	ProducerCount int    `json:"producer_count"`
}

type AssignmentStats struct {
	Total  int `json:"total"`
	Agents int `json:"agents"`
}

type Season struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsActive  bool      `json:"is_active"`
}

type Participant struct {
	ID            string `json:"id"`
	CooperativeID string `json:"cooperative_id,omitempty"`
	FullName      string `json:"full_name"`
	Role          string `json:"role,omitempty"`
	Phone         string `json:"phone,omitempty"`
}

type Recommendation struct {
	ID         string    `json:"id"`
	ProducerID string    `json:"producer_id,omitempty"`
	PlotID     string    `json:"plot_id,omitempty"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	Priority   string    `json:"priority,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Input struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"` // seed, fertilizer, pesticide
	Unit     string  `json:"unit,omitempty"`
	Quantity float64 `json:"quantity"`
}

type Intervenant struct {
	ID         string `json:"id"`
	ProducerID string `json:"producer_id,omitempty"`
	FullName   string `json:"full_name"`
	Role       string `json:"role,omitempty"`
}

// AuthProfile is the signed-in user's profile and role.
type AuthProfile struct {
	UserID      string   `json:"user_id"`
	DisplayName string   `json:"display_name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
}

// Empty fills wrapper type parameters a domain does not use.
type Empty struct{}

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")
