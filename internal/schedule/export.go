/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/fieldlinehq/fieldline/internal/models"
)

// ExportService renders a contractor's confirmed assignments as an iCal
// feed for calendar subscriptions.
type ExportService struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewExportService creates a new export service.
func NewExportService(db *gorm.DB, logger zerolog.Logger) *ExportService {
	return &ExportService{
		db:     db,
		logger: logger.With().Str("component", "schedule_export").Logger(),
	}
}

// ExportICalResult contains the iCal export data.
type ExportICalResult struct {
	Data        []byte
	Filename    string
	ContentType string
}

// ExportToICal exports a contractor's assignments within [start, end) to
// iCal format.
func (s *ExportService) ExportToICal(ctx context.Context, contractorID string, start, end time.Time) (*ExportICalResult, error) {
	var contractor models.Contractor
	if err := s.db.WithContext(ctx).First(&contractor, "id = ?", contractorID).Error; err != nil {
		return nil, fmt.Errorf("contractor not found: %w", err)
	}

	var assignments []models.Assignment
	if err := s.db.WithContext(ctx).
		Where("contractor_id = ? AND starts_at >= ? AND starts_at < ?", contractorID, start, end).
		Preload("Job").
		Order("starts_at ASC").
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch assignments: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("BEGIN:VCALENDAR\r\n")
	buf.WriteString("VERSION:2.0\r\n")
	buf.WriteString("PRODID:-//Fieldline//Schedule Export//EN\r\n")
	buf.WriteString(fmt.Sprintf("X-WR-CALNAME:%s Assignments\r\n", escapeICalText(contractor.Name)))
	buf.WriteString("CALSCALE:GREGORIAN\r\n")
	buf.WriteString("METHOD:PUBLISH\r\n")

	for _, a := range assignments {
		buf.WriteString("BEGIN:VEVENT\r\n")
		buf.WriteString(fmt.Sprintf("UID:%s@fieldline\r\n", a.ID))
		buf.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", formatICalTime(time.Now())))
		buf.WriteString(fmt.Sprintf("DTSTART:%s\r\n", formatICalTime(a.StartsAt)))
		buf.WriteString(fmt.Sprintf("DTEND:%s\r\n", formatICalTime(a.EndsAt)))

		summary := "Field service job"
		if a.Job != nil && a.Job.SiteAddress != "" {
			summary = fmt.Sprintf("Job at %s", a.Job.SiteAddress)
			buf.WriteString(fmt.Sprintf("LOCATION:%s\r\n", escapeICalText(a.Job.SiteAddress)))
		}
		buf.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICalText(summary)))
		if a.Job != nil {
			buf.WriteString(fmt.Sprintf("DESCRIPTION:%s\r\n", escapeICalText(fmt.Sprintf("Job %s, %d minutes", a.JobID, a.Job.DurationMinutes))))
			buf.WriteString(fmt.Sprintf("GEO:%.6f;%.6f\r\n", a.Job.SiteLat, a.Job.SiteLon))
		}

		buf.WriteString("END:VEVENT\r\n")
	}

	buf.WriteString("END:VCALENDAR\r\n")

	filename := fmt.Sprintf("%s-assignments-%s-to-%s.ics",
		slugify(contractor.Name),
		start.Format("2006-01-02"),
		end.Format("2006-01-02"))

	s.logger.Info().
		Str("contractor_id", contractorID).
		Int("assignments", len(assignments)).
		Msg("iCal export generated")

	return &ExportICalResult{
		Data:        buf.Bytes(),
		Filename:    filename,
		ContentType: "text/calendar; charset=utf-8",
	}, nil
}

func formatICalTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

func escapeICalText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
