/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package store provides the gorm-backed repositories for contractors,
// jobs, assignments, and recommendation audits.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fieldlinehq/fieldline/internal/models"
	"github.com/fieldlinehq/fieldline/internal/schedule"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store wraps the database handle with typed accessors.
type Store struct {
	db *gorm.DB
}

// New creates a store.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for transactional callers.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// ActiveContractors returns all active contractors with their weekly hours
// and calendar exceptions preloaded.
func (s *Store) ActiveContractors(ctx context.Context) ([]models.Contractor, error) {
	var contractors []models.Contractor
	err := s.db.WithContext(ctx).
		Preload("WeeklyHours").
		Preload("Exceptions").
		Where("active = ?", true).
		Order("id").
		Find(&contractors).Error
	if err != nil {
		return nil, fmt.Errorf("load active contractors: %w", err)
	}
	return contractors, nil
}

// ContractorByID loads one contractor with schedule data preloaded.
func (s *Store) ContractorByID(ctx context.Context, id string) (*models.Contractor, error) {
	var contractor models.Contractor
	err := s.db.WithContext(ctx).
		Preload("WeeklyHours").
		Preload("Exceptions").
		First(&contractor, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("contractor %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load contractor %s: %w", id, err)
	}
	return &contractor, nil
}

// JobByID loads one job.
func (s *Store) JobByID(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	return &job, nil
}

// AssignmentsInRange returns a contractor's assignments overlapping
// [from, to), ordered by start.
func (s *Store) AssignmentsInRange(ctx context.Context, contractorID string, from, to time.Time) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := s.db.WithContext(ctx).
		Where("contractor_id = ? AND starts_at < ? AND ends_at > ?", contractorID, to, from).
		Order("starts_at").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("load assignments for contractor %s: %w", contractorID, err)
	}
	return assignments, nil
}

// AssignmentWindows converts a contractor's assignments in range to UTC time
// windows for the scheduling pipeline.
func (s *Store) AssignmentWindows(ctx context.Context, contractorID string, from, to time.Time) ([]schedule.TimeWindow, error) {
	assignments, err := s.AssignmentsInRange(ctx, contractorID, from, to)
	if err != nil {
		return nil, err
	}

	windows := make([]schedule.TimeWindow, 0, len(assignments))
	for _, a := range assignments {
		w, err := schedule.NewTimeWindow(a.StartsAt.UTC(), a.EndsAt.UTC())
		if err != nil {
			return nil, fmt.Errorf("assignment %s has invalid window: %w", a.ID, err)
		}
		windows = append(windows, w)
	}
	return windows, nil
}

// SaveAudit persists a recommendation audit record.
func (s *Store) SaveAudit(ctx context.Context, audit *models.RecommendationAudit) error {
	if err := s.db.WithContext(ctx).Create(audit).Error; err != nil {
		return fmt.Errorf("save recommendation audit: %w", err)
	}
	return nil
}

// AuditsForJob returns the audit history for one job, newest first.
func (s *Store) AuditsForJob(ctx context.Context, jobID string) ([]models.RecommendationAudit, error) {
	var audits []models.RecommendationAudit
	err := s.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at DESC").
		Find(&audits).Error
	if err != nil {
		return nil, fmt.Errorf("load audits for job %s: %w", jobID, err)
	}
	return audits, nil
}
