/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package models contains the persisted domain entities shared by the
// scheduling engine and its storage adapters.
package models

import "time"

// JobStatus enumerates the lifecycle states of a field-service job.
type JobStatus string

const (
	JobStatusOpen      JobStatus = "open"
	JobStatusAssigned  JobStatus = "assigned"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Contractor is a field technician who can be matched to jobs.
type Contractor struct {
	ID       string `gorm:"type:uuid;primaryKey" json:"id"`
	Name     string `gorm:"index" json:"name"`
	Timezone string `gorm:"type:varchar(64);not null" json:"timezone"`

	// Rating on a 0-100 scale, maintained by the review subsystem.
	Rating float64 `gorm:"not null;default:50" json:"rating"`

	// Home base used for the base-to-first-job travel leg.
	BaseLat     float64 `json:"base_lat"`
	BaseLon     float64 `json:"base_lon"`
	BaseAddress string  `gorm:"type:text" json:"base_address,omitempty"`

	Active bool `gorm:"not null;default:true;index" json:"active"`

	WeeklyHours []WeeklyWorkingHours `gorm:"foreignKey:ContractorID" json:"weekly_hours,omitempty"`
	Exceptions  []CalendarException  `gorm:"foreignKey:ContractorID" json:"exceptions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Contractor) TableName() string {
	return "contractors"
}

// Job is a unit of field-service work to be scheduled.
type Job struct {
	ID              string    `gorm:"type:uuid;primaryKey" json:"id"`
	Status          JobStatus `gorm:"type:varchar(16);not null;default:'open';index" json:"status"`
	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`
	Rush            bool      `gorm:"not null;default:false" json:"rush"`

	// Requested service window (UTC).
	WindowStart time.Time `gorm:"not null;index" json:"window_start"`
	WindowEnd   time.Time `gorm:"not null" json:"window_end"`

	SiteLat     float64 `json:"site_lat"`
	SiteLon     float64 `json:"site_lon"`
	SiteAddress string  `gorm:"type:text" json:"site_address,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Job) TableName() string {
	return "jobs"
}

// Assignment is a confirmed booking of a contractor for a job.
type Assignment struct {
	ID           string `gorm:"type:uuid;primaryKey" json:"id"`
	ContractorID string `gorm:"type:uuid;index:idx_assignments_contractor;uniqueIndex:idx_assignments_contractor_start,priority:1;not null" json:"contractor_id"`
	JobID        string `gorm:"type:uuid;index;not null" json:"job_id"`

	StartsAt time.Time `gorm:"not null;uniqueIndex:idx_assignments_contractor_start,priority:2" json:"starts_at"`
	EndsAt   time.Time `gorm:"not null" json:"ends_at"`

	Contractor *Contractor `gorm:"foreignKey:ContractorID" json:"contractor,omitempty"`
	Job        *Job        `gorm:"foreignKey:JobID" json:"job,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Assignment) TableName() string {
	return "assignments"
}

// RecommendationAudit is the persisted snapshot of one ranked recommendation
// response, kept for dispatcher review and postmortems.
type RecommendationAudit struct {
	ID            string         `gorm:"type:uuid;primaryKey" json:"id"`
	JobID         string         `gorm:"type:uuid;index;not null" json:"job_id"`
	ConfigVersion string         `gorm:"type:varchar(32);not null" json:"config_version"`
	Results       map[string]any `gorm:"type:jsonb;serializer:json" json:"results"`
	CreatedAt     time.Time      `json:"created_at"`
}

// TableName returns the table name for GORM.
func (RecommendationAudit) TableName() string {
	return "recommendation_audits"
}
