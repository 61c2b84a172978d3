/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidDayRange indicates a weekly entry whose start does not
	// precede its end. Overnight spans (end < start) are rejected; an
	// Override exception expresses them per date instead.
	ErrInvalidDayRange = errors.New("working hours start must precede end within the same day")

	// ErrInvalidTimezone indicates an unloadable IANA timezone name.
	ErrInvalidTimezone = errors.New("invalid timezone identifier")

	// ErrOverrideWithoutHours indicates an override exception constructed
	// without replacement hours.
	ErrOverrideWithoutHours = errors.New("override exception requires replacement hours")
)

// WeeklyWorkingHours is one recurring day-of-week entry of a contractor's
// weekly schedule. Times are minutes since local midnight.
type WeeklyWorkingHours struct {
	ID           string `gorm:"type:uuid;primaryKey" json:"id"`
	ContractorID string `gorm:"type:uuid;index:idx_weekly_hours_contractor;not null" json:"contractor_id"`

	DayOfWeek   int    `gorm:"not null" json:"day_of_week"` // 0=Sunday, 6=Saturday
	StartMinute int    `gorm:"not null" json:"start_minute"`
	EndMinute   int    `gorm:"not null" json:"end_minute"`
	Timezone    string `gorm:"type:varchar(64);not null" json:"timezone"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (WeeklyWorkingHours) TableName() string {
	return "weekly_working_hours"
}

// Validate checks the entry invariants: day in range, start < end within one
// day, loadable timezone.
func (w WeeklyWorkingHours) Validate() error {
	if w.DayOfWeek < 0 || w.DayOfWeek > 6 {
		return fmt.Errorf("day_of_week %d out of range", w.DayOfWeek)
	}
	if w.StartMinute < 0 || w.EndMinute > 24*60 || w.StartMinute >= w.EndMinute {
		return fmt.Errorf("%w: start=%d end=%d", ErrInvalidDayRange, w.StartMinute, w.EndMinute)
	}
	if _, err := time.LoadLocation(w.Timezone); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTimezone, w.Timezone)
	}
	return nil
}

// ExceptionType distinguishes the two calendar exception kinds.
type ExceptionType string

const (
	ExceptionHoliday  ExceptionType = "holiday"  // full day off
	ExceptionOverride ExceptionType = "override" // full replacement hours for one date
)

// CalendarException is a single-date deviation from the weekly schedule.
type CalendarException struct {
	ID           string        `gorm:"type:uuid;primaryKey" json:"id"`
	ContractorID string        `gorm:"type:uuid;index:idx_calendar_exceptions_contractor;not null" json:"contractor_id"`
	Type         ExceptionType `gorm:"type:varchar(16);not null" json:"type"`

	// Date in the contractor's local calendar, stored as YYYY-MM-DD.
	Date string `gorm:"type:varchar(10);not null;index" json:"date"`

	// Replacement hours, required for overrides, absent for holidays.
	StartMinute *int `json:"start_minute,omitempty"`
	EndMinute   *int `json:"end_minute,omitempty"`

	Note string `gorm:"type:text" json:"note,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (CalendarException) TableName() string {
	return "calendar_exceptions"
}

// Validate enforces that overrides carry replacement hours and holidays do not.
func (e CalendarException) Validate() error {
	if _, err := time.Parse("2006-01-02", e.Date); err != nil {
		return fmt.Errorf("exception date %q: %w", e.Date, err)
	}
	switch e.Type {
	case ExceptionHoliday:
		return nil
	case ExceptionOverride:
		if e.StartMinute == nil || e.EndMinute == nil {
			return ErrOverrideWithoutHours
		}
		if *e.StartMinute < 0 || *e.EndMinute > 24*60 || *e.StartMinute >= *e.EndMinute {
			return fmt.Errorf("%w: start=%d end=%d", ErrInvalidDayRange, *e.StartMinute, *e.EndMinute)
		}
		return nil
	default:
		return fmt.Errorf("unknown exception type %q", e.Type)
	}
}

// ContractorCalendar bundles a contractor's exceptions and break policy for
// a resolution pass.
type ContractorCalendar struct {
	Holidays          map[string]struct{} // YYYY-MM-DD in contractor-local time
	Exceptions        []CalendarException
	DailyBreakMinutes int
}

// ExceptionFor returns the override exception for a local date, if any.
// Holiday exceptions are folded into Holidays by IsHoliday.
func (c *ContractorCalendar) ExceptionFor(date string) (CalendarException, bool) {
	if c == nil {
		return CalendarException{}, false
	}
	for _, exc := range c.Exceptions {
		if exc.Type == ExceptionOverride && exc.Date == date {
			return exc, true
		}
	}
	return CalendarException{}, false
}

// IsHoliday reports whether the local date is fully blocked.
func (c *ContractorCalendar) IsHoliday(date string) bool {
	if c == nil {
		return false
	}
	if _, ok := c.Holidays[date]; ok {
		return true
	}
	for _, exc := range c.Exceptions {
		if exc.Type == ExceptionHoliday && exc.Date == date {
			return true
		}
	}
	return false
}
