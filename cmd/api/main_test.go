package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unicampus/registrar-api/internal/models"
)

// fakeStore serves canned snapshot records and swallows saves.
type fakeStore struct {
	courses       []models.CourseRecord
	registrations []models.RegistrationRecord
	users         []models.UserRecord
}

func (s *fakeStore) LoadCourses(context.Context) ([]models.CourseRecord, error) {
	return s.courses, nil
}

func (s *fakeStore) SaveCourses(context.Context, []models.CourseRecord) error { return nil }

func (s *fakeStore) LoadRegistrations(context.Context) ([]models.RegistrationRecord, error) {
	return s.registrations, nil
}

func (s *fakeStore) SaveRegistrations(context.Context, []models.RegistrationRecord) error {
	return nil
}

func (s *fakeStore) LoadUsers(context.Context) ([]models.UserRecord, error) { return s.users, nil }

func (s *fakeStore) SaveUsers(context.Context, []models.UserRecord) error { return nil }

func (s *fakeStore) Close() error { return nil }

func courseRecord(t *testing.T, id string, capacity, enrolled int, active bool) models.CourseRecord {
	t.Helper()
	now := time.Now().UTC().Format(time.RFC3339)
	return models.CourseRecord{
		ID:        id,
		Name:      "Course " + id,
		Credits:   3,
		Capacity:  capacity,
		Enrolled:  enrolled,
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func enrolledRecord(t *testing.T, id, studentID, courseID string) models.RegistrationRecord {
	t.Helper()
	return models.RegistrationRecord{
		ID:             id,
		StudentID:      studentID,
		CourseID:       courseID,
		Status:         string(models.RegistrationStatusEnrolled),
		EnrollmentDate: time.Now().UTC().Format(time.RFC3339),
	}
}

func droppedRecord(t *testing.T, id, studentID, courseID string) models.RegistrationRecord {
	t.Helper()
	rec := enrolledRecord(t, id, studentID, courseID)
	rec.Status = string(models.RegistrationStatusDropped)
	when := time.Now().UTC().Format(time.RFC3339)
	rec.DropDate = &when
	return rec
}

func TestBuildRegistriesRecomputesSeatCounters(t *testing.T) {
	// the persisted enrolled counter is stale on purpose; only the ledger
	// decides how many seats are taken after a restore
	st := &fakeStore{
		courses: []models.CourseRecord{courseRecord(t, "CS101", 10, 7, true)},
		registrations: []models.RegistrationRecord{
			enrolledRecord(t, "R1", "S001", "CS101"),
			enrolledRecord(t, "R2", "S002", "CS101"),
			droppedRecord(t, "R3", "S003", "CS101"),
		},
	}

	catalog, ledger, accounts, err := buildRegistries(context.Background(), st)
	require.NoError(t, err)

	course := catalog.Get("CS101")
	require.NotNil(t, course)
	assert.Equal(t, 2, course.Enrolled)
	assert.Equal(t, 3, ledger.Len())
	assert.Equal(t, 0, accounts.Len())
}

func TestBuildRegistriesRestoresRemovedCourseWithEnrollments(t *testing.T) {
	// a soft-removed course keeps the students it had when it was removed;
	// a snapshot in that shape must boot cleanly
	st := &fakeStore{
		courses: []models.CourseRecord{courseRecord(t, "CS101", 10, 1, false)},
		registrations: []models.RegistrationRecord{
			enrolledRecord(t, "R1", "S001", "CS101"),
		},
	}

	catalog, _, _, err := buildRegistries(context.Background(), st)
	require.NoError(t, err)

	course := catalog.Get("CS101")
	require.NotNil(t, course)
	assert.False(t, course.Active)
	assert.Equal(t, 1, course.Enrolled)
	// the counter is accounted for but the course still refuses new students
	assert.False(t, catalog.Enroll("CS101"))
}

func TestBuildRegistriesRejectsUnknownCourseReference(t *testing.T) {
	st := &fakeStore{
		courses: []models.CourseRecord{courseRecord(t, "CS101", 10, 0, true)},
		registrations: []models.RegistrationRecord{
			enrolledRecord(t, "R1", "S001", "GHOST"),
		},
	}

	_, _, _, err := buildRegistries(context.Background(), st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GHOST")
}

func TestBuildRegistriesRejectsOversubscribedLedger(t *testing.T) {
	st := &fakeStore{
		courses: []models.CourseRecord{courseRecord(t, "CS101", 1, 1, true)},
		registrations: []models.RegistrationRecord{
			enrolledRecord(t, "R1", "S001", "CS101"),
			enrolledRecord(t, "R2", "S002", "CS101"),
		},
	}

	_, _, _, err := buildRegistries(context.Background(), st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oversubscribed")
}

func TestBuildRegistriesRejectsCorruptRegistration(t *testing.T) {
	dropped := droppedRecord(t, "R1", "S001", "CS101")
	dropped.DropDate = nil

	st := &fakeStore{
		courses:       []models.CourseRecord{courseRecord(t, "CS101", 10, 0, true)},
		registrations: []models.RegistrationRecord{dropped},
	}

	_, _, _, err := buildRegistries(context.Background(), st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drop_date")
}

func TestBuildRegistriesRejectsCorruptCourse(t *testing.T) {
	bad := courseRecord(t, "CS101", 10, 0, true)
	bad.CreatedAt = "yesterday"

	st := &fakeStore{courses: []models.CourseRecord{bad}}

	_, _, _, err := buildRegistries(context.Background(), st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "created_at")
}

func TestBuildRegistriesRejectsDuplicateCourse(t *testing.T) {
	st := &fakeStore{
		courses: []models.CourseRecord{
			courseRecord(t, "CS101", 10, 0, true),
			courseRecord(t, "CS101", 20, 0, true),
		},
	}

	_, _, _, err := buildRegistries(context.Background(), st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate course")
}
