package persist

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unicampus/registrar-api/internal/models"
)

type recordingStore struct {
	mu            sync.Mutex
	courses       [][]models.CourseRecord
	registrations [][]models.RegistrationRecord
	users         [][]models.UserRecord
}

func (r *recordingStore) LoadCourses(context.Context) ([]models.CourseRecord, error) {
	return nil, nil
}

func (r *recordingStore) SaveCourses(_ context.Context, recs []models.CourseRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.courses = append(r.courses, recs)
	return nil
}

func (r *recordingStore) LoadRegistrations(context.Context) ([]models.RegistrationRecord, error) {
	return nil, nil
}

func (r *recordingStore) SaveRegistrations(_ context.Context, recs []models.RegistrationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registrations = append(r.registrations, recs)
	return nil
}

func (r *recordingStore) LoadUsers(context.Context) ([]models.UserRecord, error) {
	return nil, nil
}

func (r *recordingStore) SaveUsers(_ context.Context, recs []models.UserRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, recs)
	return nil
}

func (r *recordingStore) Close() error { return nil }

func (r *recordingStore) courseSaves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.courses)
}

func testSources(courseID string) Sources {
	return Sources{
		Courses: func() []models.CourseRecord {
			return []models.CourseRecord{{ID: courseID}}
		},
		Registrations: func() []models.RegistrationRecord { return nil },
		Users:         func() []models.UserRecord { return nil },
	}
}

func TestSnapshotterPersistsRequestedCollection(t *testing.T) {
	st := &recordingStore{}
	s := NewSnapshotter(st, testSources("CS101"), Config{Workers: 1})
	s.Start(context.Background())
	defer s.Stop()

	s.RequestCourses()

	require.Eventually(t, func() bool { return st.courseSaves() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, "CS101", st.courses[0][0].ID)
	assert.Empty(t, st.registrations)
}

func TestSnapshotterReadsStateAtExecutionTime(t *testing.T) {
	st := &recordingStore{}
	var mu sync.Mutex
	id := "before"
	sources := Sources{
		Courses: func() []models.CourseRecord {
			mu.Lock()
			defer mu.Unlock()
			return []models.CourseRecord{{ID: id}}
		},
		Registrations: func() []models.RegistrationRecord { return nil },
		Users:         func() []models.UserRecord { return nil },
	}

	s := NewSnapshotter(st, sources, Config{Workers: 1})
	mu.Lock()
	id = "after"
	mu.Unlock()
	s.Start(context.Background())
	defer s.Stop()

	s.RequestCourses()
	require.Eventually(t, func() bool { return st.courseSaves() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, "after", st.courses[0][0].ID)
}

func TestSnapshotterFlushWritesEverything(t *testing.T) {
	st := &recordingStore{}
	s := NewSnapshotter(st, testSources("CS101"), Config{})

	require.NoError(t, s.Flush(context.Background()))
	assert.Len(t, st.courses, 1)
	assert.Len(t, st.registrations, 1)
	assert.Len(t, st.users, 1)
}

func TestSnapshotterRequestBeforeStartIsDropped(t *testing.T) {
	st := &recordingStore{}
	s := NewSnapshotter(st, testSources("CS101"), Config{})

	// must not panic or block
	s.RequestCourses()
	assert.Zero(t, st.courseSaves())
}
