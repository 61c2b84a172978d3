package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fieldlinehq/fieldline/internal/db"
	"github.com/fieldlinehq/fieldline/internal/events"
	"github.com/fieldlinehq/fieldline/internal/models"
	"github.com/fieldlinehq/fieldline/internal/schedule"
)

// recordingBus captures published events for assertions.
type recordingBus struct {
	mu     sync.Mutex
	events []events.EventType
}

func (b *recordingBus) Publish(eventType events.EventType, _ events.Payload) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, eventType)
}

func (b *recordingBus) has(eventType events.EventType) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.events {
		if e == eventType {
			return true
		}
	}
	return false
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, err := conn.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return conn
}

func seedContractor(t *testing.T, conn *gorm.DB) models.Contractor {
	t.Helper()
	contractor := models.Contractor{
		ID:       uuid.NewString(),
		Name:     "Dana Reyes",
		Timezone: "America/New_York",
		Rating:   82,
		Active:   true,
		WeeklyHours: []models.WeeklyWorkingHours{
			{ID: uuid.NewString(), DayOfWeek: 1, StartMinute: 9 * 60, EndMinute: 17 * 60, Timezone: "America/New_York"},
		},
	}
	if err := conn.Create(&contractor).Error; err != nil {
		t.Fatalf("seed contractor: %v", err)
	}
	return contractor
}

func seedJob(t *testing.T, conn *gorm.DB) models.Job {
	t.Helper()
	job := models.Job{
		ID:              uuid.NewString(),
		Status:          models.JobStatusOpen,
		DurationMinutes: 60,
		WindowStart:     time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC),
		WindowEnd:       time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC),
		SiteLat:         40.75,
		SiteLon:         -73.98,
	}
	if err := conn.Create(&job).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}

func newBookingService(conn *gorm.DB, bus Publisher) *Service {
	resolver := schedule.NewWorkingHoursResolver(zerolog.Nop())
	availability := schedule.NewAvailabilityEngine(resolver, zerolog.Nop())
	fatigue := schedule.NewFatigueEvaluator(zerolog.Nop())
	return NewService(conn, availability, fatigue, bus, zerolog.Nop())
}

func mondaySlot(t *testing.T, hourUTC int) schedule.TimeWindow {
	t.Helper()
	start := time.Date(2026, 3, 2, hourUTC, 0, 0, 0, time.UTC)
	w, err := schedule.NewTimeWindow(start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("slot window: %v", err)
	}
	return w
}

func TestConfirmPersistsAssignmentAndAssignsJob(t *testing.T) {
	conn := openTestDB(t)
	bus := &recordingBus{}
	svc := newBookingService(conn, bus)

	contractor := seedContractor(t, conn)
	job := seedJob(t, conn)

	assignment, err := svc.Confirm(context.Background(), ConfirmRequest{
		Contractor: contractor,
		Job:        job,
		Slot:       mondaySlot(t, 15), // 10:00 ET, inside working hours
	})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if assignment.ID == "" {
		t.Fatal("assignment id not set")
	}

	var stored models.Assignment
	if err := conn.First(&stored, "id = ?", assignment.ID).Error; err != nil {
		t.Fatalf("load assignment: %v", err)
	}
	if stored.ContractorID != contractor.ID || stored.JobID != job.ID {
		t.Fatalf("stored = %+v", stored)
	}

	var storedJob models.Job
	if err := conn.First(&storedJob, "id = ?", job.ID).Error; err != nil {
		t.Fatalf("load job: %v", err)
	}
	if storedJob.Status != models.JobStatusAssigned {
		t.Fatalf("job status = %q, want assigned", storedJob.Status)
	}

	if !bus.has(events.EventBookingConfirmed) {
		t.Fatal("booking.confirmed event not published")
	}
}

func TestConfirmOverlapIsConflict(t *testing.T) {
	conn := openTestDB(t)
	bus := &recordingBus{}
	svc := newBookingService(conn, bus)

	contractor := seedContractor(t, conn)
	first := seedJob(t, conn)
	second := seedJob(t, conn)

	if _, err := svc.Confirm(context.Background(), ConfirmRequest{
		Contractor: contractor,
		Job:        first,
		Slot:       mondaySlot(t, 15),
	}); err != nil {
		t.Fatalf("first confirm: %v", err)
	}

	// Overlapping 15:30-16:30 against the booked 15:00-16:00.
	start := time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC)
	slot, err := schedule.NewTimeWindow(start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("slot: %v", err)
	}

	if _, err := svc.Confirm(context.Background(), ConfirmRequest{
		Contractor: contractor,
		Job:        second,
		Slot:       slot,
	}); !errors.Is(err, ErrBookingConflict) {
		t.Fatalf("err = %v, want ErrBookingConflict", err)
	}
	if !bus.has(events.EventBookingConflict) {
		t.Fatal("booking.conflict event not published")
	}
}

func TestConfirmOutsideWorkingHoursIsInfeasible(t *testing.T) {
	conn := openTestDB(t)
	svc := newBookingService(conn, &recordingBus{})

	contractor := seedContractor(t, conn)
	job := seedJob(t, conn)

	// 23:00 UTC is 18:00 ET, outside the 09:00-17:00 schedule.
	if _, err := svc.Confirm(context.Background(), ConfirmRequest{
		Contractor: contractor,
		Job:        job,
		Slot:       mondaySlot(t, 23),
	}); !errors.Is(err, ErrInfeasible) {
		t.Fatalf("err = %v, want ErrInfeasible", err)
	}
}

func TestConfirmFatigueBlocksOverloadedDay(t *testing.T) {
	conn := openTestDB(t)
	svc := newBookingService(conn, &recordingBus{})

	contractor := seedContractor(t, conn)
	job := seedJob(t, conn)

	// 09:30-19:00 ET booked: 9.5 hours, one more non-rush hour breaks the cap.
	busy := models.Assignment{
		ID:           uuid.NewString(),
		ContractorID: contractor.ID,
		JobID:        uuid.NewString(),
		StartsAt:     time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC),
		EndsAt:       time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
	}
	if err := conn.Create(&busy).Error; err != nil {
		t.Fatalf("seed assignment: %v", err)
	}

	start := time.Date(2026, 3, 3, 0, 30, 0, 0, time.UTC) // 19:30 ET same local day
	slot, err := schedule.NewTimeWindow(start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("slot: %v", err)
	}

	if _, err := svc.Confirm(context.Background(), ConfirmRequest{
		Contractor: contractor,
		Job:        job,
		Slot:       slot,
	}); !errors.Is(err, ErrInfeasible) {
		t.Fatalf("err = %v, want ErrInfeasible", err)
	}
}

func TestConfirmRejectsInvalidSlot(t *testing.T) {
	conn := openTestDB(t)
	svc := newBookingService(conn, &recordingBus{})

	contractor := seedContractor(t, conn)
	job := seedJob(t, conn)

	if _, err := svc.Confirm(context.Background(), ConfirmRequest{
		Contractor: contractor,
		Job:        job,
		Slot:       schedule.TimeWindow{},
	}); !errors.Is(err, schedule.ErrInvalidWindow) {
		t.Fatalf("err = %v, want ErrInvalidWindow", err)
	}
}
