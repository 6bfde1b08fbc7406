package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unicampus/registrar-api/internal/models"
)

func testCourseRecord(t *testing.T, id string) models.CourseRecord {
	t.Helper()
	course, err := models.NewCourse(id, "Course "+id, "intro", 3, "Dr. Smith", 25, []string{"MATH100"})
	require.NoError(t, err)
	sched, err := models.NewSchedule([]string{models.Monday, models.Wednesday}, "10:00-11:30", "B-204")
	require.NoError(t, err)
	course.SetSchedule(sched)
	return course.Record()
}

func TestJSONStoreMissingFilesReadEmpty(t *testing.T) {
	s, err := NewJSONStore(t.TempDir(), nil)
	require.NoError(t, err)

	courses, err := s.LoadCourses(context.Background())
	require.NoError(t, err)
	assert.Empty(t, courses)

	regs, err := s.LoadRegistrations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, regs)

	users, err := s.LoadUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestJSONStoreCoursesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONStore(dir, nil)
	require.NoError(t, err)

	want := []models.CourseRecord{testCourseRecord(t, "CS101"), testCourseRecord(t, "MATH201")}
	require.NoError(t, s.SaveCourses(context.Background(), want))

	got, err := s.LoadCourses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// every record survives decoding back into the domain
	for _, rec := range got {
		_, err := models.CourseFromRecord(rec)
		require.NoError(t, err)
	}
}

func TestJSONStoreRegistrationsRoundTrip(t *testing.T) {
	s, err := NewJSONStore(t.TempDir(), nil)
	require.NoError(t, err)

	reg, err := models.NewRegistration("S001", "CS101")
	require.NoError(t, err)
	reg.AddNote("placement test waived")
	require.True(t, reg.Drop())

	want := []models.RegistrationRecord{reg.Record()}
	require.NoError(t, s.SaveRegistrations(context.Background(), want))

	got, err := s.LoadRegistrations(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, want[0], got[0])
}

func TestJSONStoreUsersRoundTrip(t *testing.T) {
	s, err := NewJSONStore(t.TempDir(), nil)
	require.NoError(t, err)

	user := &models.User{
		ID:           "u1",
		Username:     "alice",
		Email:        "alice@example.edu",
		PasswordHash: "$2a$10$hash",
		Role:         models.RoleStudent,
		Student:      &models.StudentProfile{StudentNumber: "STU0001", Major: "CS"},
		Active:       true,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.SaveUsers(context.Background(), []models.UserRecord{user.Record()}))

	got, err := s.LoadUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "$2a$10$hash", got[0].PasswordHash)

	restored, err := models.UserFromRecord(got[0])
	require.NoError(t, err)
	assert.Equal(t, "STU0001", restored.Student.StudentNumber)
}

func TestJSONStoreSaveOverwritesWholeCollection(t *testing.T) {
	s, err := NewJSONStore(t.TempDir(), nil)
	require.NoError(t, err)

	require.NoError(t, s.SaveCourses(context.Background(), []models.CourseRecord{
		testCourseRecord(t, "CS101"),
		testCourseRecord(t, "CS102"),
	}))
	require.NoError(t, s.SaveCourses(context.Background(), []models.CourseRecord{
		testCourseRecord(t, "CS103"),
	}))

	got, err := s.LoadCourses(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "CS103", got[0].ID)
}

func TestJSONStoreMalformedFileIsAnError(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONStore(dir, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, coursesFile), []byte("{not json"), 0o644))

	_, err = s.LoadCourses(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestJSONStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONStore(dir, nil)
	require.NoError(t, err)

	require.NoError(t, s.SaveCourses(context.Background(), []models.CourseRecord{testCourseRecord(t, "CS101")}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, coursesFile, entries[0].Name())
}
