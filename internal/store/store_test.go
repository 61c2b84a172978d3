package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fieldlinehq/fieldline/internal/db"
	"github.com/fieldlinehq/fieldline/internal/models"
)

func openTestStore(t *testing.T) *Store {
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
	return New(conn)
}

func seedContractor(t *testing.T, s *Store, name string, active bool) models.Contractor {
	t.Helper()
	contractor := models.Contractor{
		ID:       uuid.NewString(),
		Name:     name,
		Timezone: "America/New_York",
		Rating:   75,
		Active:   active,
		WeeklyHours: []models.WeeklyWorkingHours{
			{ID: uuid.NewString(), DayOfWeek: 1, StartMinute: 540, EndMinute: 1020, Timezone: "America/New_York"},
		},
		Exceptions: []models.CalendarException{
			{ID: uuid.NewString(), Type: models.ExceptionHoliday, Date: "2026-07-04"},
		},
	}
	if err := s.DB().Create(&contractor).Error; err != nil {
		t.Fatalf("seed contractor: %v", err)
	}
	return contractor
}

func TestActiveContractorsPreloadsSchedule(t *testing.T) {
	s := openTestStore(t)

	seedContractor(t, s, "Active One", true)
	seedContractor(t, s, "Inactive", false)

	contractors, err := s.ActiveContractors(context.Background())
	if err != nil {
		t.Fatalf("active contractors: %v", err)
	}
	if len(contractors) != 1 {
		t.Fatalf("got %d contractors, want 1", len(contractors))
	}
	got := contractors[0]
	if got.Name != "Active One" {
		t.Errorf("name = %q", got.Name)
	}
	if len(got.WeeklyHours) != 1 {
		t.Errorf("weekly hours not preloaded: %v", got.WeeklyHours)
	}
	if len(got.Exceptions) != 1 {
		t.Errorf("exceptions not preloaded: %v", got.Exceptions)
	}
}

func TestContractorByID(t *testing.T) {
	s := openTestStore(t)
	seeded := seedContractor(t, s, "Lookup", true)

	got, err := s.ContractorByID(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("contractor by id: %v", err)
	}
	if got.ID != seeded.ID || len(got.WeeklyHours) != 1 {
		t.Fatalf("got = %+v", got)
	}

	if _, err := s.ContractorByID(context.Background(), uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing contractor: err = %v, want ErrNotFound", err)
	}
}

func TestJobByID(t *testing.T) {
	s := openTestStore(t)

	job := models.Job{
		ID:              uuid.NewString(),
		Status:          models.JobStatusOpen,
		DurationMinutes: 90,
		WindowStart:     time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC),
		WindowEnd:       time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC),
	}
	if err := s.DB().Create(&job).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}

	got, err := s.JobByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("job by id: %v", err)
	}
	if got.DurationMinutes != 90 {
		t.Fatalf("duration = %d", got.DurationMinutes)
	}

	if _, err := s.JobByID(context.Background(), uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing job: err = %v, want ErrNotFound", err)
	}
}

func TestAssignmentWindowsOverlapSemantics(t *testing.T) {
	s := openTestStore(t)
	contractor := seedContractor(t, s, "Busy", true)

	mk := func(startHour, endHour int) models.Assignment {
		return models.Assignment{
			ID:           uuid.NewString(),
			ContractorID: contractor.ID,
			JobID:        uuid.NewString(),
			StartsAt:     time.Date(2026, 3, 2, startHour, 0, 0, 0, time.UTC),
			EndsAt:       time.Date(2026, 3, 2, endHour, 0, 0, 0, time.UTC),
		}
	}
	for _, a := range []models.Assignment{mk(9, 10), mk(13, 15), mk(20, 22)} {
		if err := s.DB().Create(&a).Error; err != nil {
			t.Fatalf("seed assignment: %v", err)
		}
	}

	from := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC)

	windows, err := s.AssignmentWindows(context.Background(), contractor.ID, from, to)
	if err != nil {
		t.Fatalf("assignment windows: %v", err)
	}
	// Only 13:00-15:00 overlaps the half-open range: 09:00-10:00 touches the
	// boundary and 20:00-22:00 starts at the exclusive end.
	if len(windows) != 1 {
		t.Fatalf("got %d windows, want 1: %v", len(windows), windows)
	}
	if !windows[0].Start.Equal(time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)) {
		t.Fatalf("window = %v", windows[0])
	}
}

func TestAuditRoundTrip(t *testing.T) {
	s := openTestStore(t)
	jobID := uuid.NewString()

	audit := &models.RecommendationAudit{
		ID:            uuid.NewString(),
		JobID:         jobID,
		ConfigVersion: "default",
		Results: map[string]any{
			"recommended": 3,
			"explanation": "",
		},
	}
	if err := s.SaveAudit(context.Background(), audit); err != nil {
		t.Fatalf("save audit: %v", err)
	}

	audits, err := s.AuditsForJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("audits for job: %v", err)
	}
	if len(audits) != 1 {
		t.Fatalf("got %d audits, want 1", len(audits))
	}
	if audits[0].ConfigVersion != "default" {
		t.Errorf("config version = %q", audits[0].ConfigVersion)
	}
	if v, ok := audits[0].Results["recommended"]; !ok || v == nil {
		t.Errorf("results not round-tripped: %v", audits[0].Results)
	}
}
