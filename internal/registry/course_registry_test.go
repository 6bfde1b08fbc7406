package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unicampus/registrar-api/internal/models"
)

func newTestCourse(t *testing.T, id string, capacity int) *models.Course {
	t.Helper()
	course, err := models.NewCourse(id, "Course "+id, "", 3, "Dr. Smith", capacity, nil)
	require.NoError(t, err)
	return course
}

func withSchedule(t *testing.T, course *models.Course, days []string, timeRange string) *models.Course {
	t.Helper()
	sched, err := models.NewSchedule(days, timeRange, "A-101")
	require.NoError(t, err)
	course.SetSchedule(sched)
	return course
}

func TestCourseRegistryAddRejectsDuplicates(t *testing.T) {
	reg := NewCourseRegistry()

	require.True(t, reg.Add(newTestCourse(t, "CS101", 30)))
	assert.False(t, reg.Add(newTestCourse(t, "CS101", 50)))
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, 30, reg.Get("CS101").Capacity)
}

func TestCourseRegistryGetReturnsCopy(t *testing.T) {
	reg := NewCourseRegistry()
	require.True(t, reg.Add(newTestCourse(t, "CS101", 30)))

	first := reg.Get("CS101")
	first.Name = "mutated"

	assert.Equal(t, "Course CS101", reg.Get("CS101").Name)
	assert.Nil(t, reg.Get("NOPE"))
}

func TestCourseRegistryListKeepsInsertionOrder(t *testing.T) {
	reg := NewCourseRegistry()
	for _, id := range []string{"MATH201", "CS101", "ENG105"} {
		require.True(t, reg.Add(newTestCourse(t, id, 10)))
	}

	courses := reg.List()
	require.Len(t, courses, 3)
	assert.Equal(t, "MATH201", courses[0].ID)
	assert.Equal(t, "CS101", courses[1].ID)
	assert.Equal(t, "ENG105", courses[2].ID)
}

func TestCourseRegistryListActiveSkipsRemoved(t *testing.T) {
	reg := NewCourseRegistry()
	require.True(t, reg.Add(newTestCourse(t, "CS101", 10)))
	require.True(t, reg.Add(newTestCourse(t, "CS102", 10)))

	reg.Remove("CS101")

	active := reg.ListActive()
	require.Len(t, active, 1)
	assert.Equal(t, "CS102", active[0].ID)

	// soft delete: the course is still resolvable, just inactive
	removed := reg.Get("CS101")
	require.NotNil(t, removed)
	assert.False(t, removed.Active)
}

func TestCourseRegistryRemoveUnknownIsNoop(t *testing.T) {
	reg := NewCourseRegistry()
	reg.Remove("NOPE")
	assert.Equal(t, 0, reg.Len())
}

func TestCourseRegistryFindByInstructorIgnoresCase(t *testing.T) {
	reg := NewCourseRegistry()
	c := newTestCourse(t, "CS101", 10)
	c.Instructor = "Dr. Grace Hopper"
	require.True(t, reg.Add(c))
	require.True(t, reg.Add(newTestCourse(t, "CS102", 10)))

	found := reg.FindByInstructor("dr. grace hopper")
	require.Len(t, found, 1)
	assert.Equal(t, "CS101", found[0].ID)

	assert.Empty(t, reg.FindByInstructor("Grace"))
}

func TestCourseRegistryFindByCreditRange(t *testing.T) {
	reg := NewCourseRegistry()
	for id, credits := range map[string]int{"A": 1, "B": 3, "C": 5} {
		course, err := models.NewCourse(id, "Course "+id, "", credits, "", 10, nil)
		require.NoError(t, err)
		require.True(t, reg.Add(course))
	}

	max := 3
	bounded := reg.FindByCreditRange(2, &max)
	require.Len(t, bounded, 1)
	assert.Equal(t, "B", bounded[0].ID)

	unbounded := reg.FindByCreditRange(3, nil)
	assert.Len(t, unbounded, 2)
}

func TestCourseRegistryFindConflicts(t *testing.T) {
	reg := NewCourseRegistry()
	require.True(t, reg.Add(withSchedule(t, newTestCourse(t, "CS101", 10), []string{models.Monday, models.Wednesday}, "10:00-11:30")))
	require.True(t, reg.Add(withSchedule(t, newTestCourse(t, "MATH201", 10), []string{models.Monday}, "11:00-12:00")))
	require.True(t, reg.Add(withSchedule(t, newTestCourse(t, "ENG105", 10), []string{models.Monday}, "11:30-13:00")))
	require.True(t, reg.Add(newTestCourse(t, "SEMINAR", 10))) // no schedule

	conflicts := reg.FindConflicts([]string{"CS101", "MATH201", "ENG105", "SEMINAR", "GHOST"})
	require.Len(t, conflicts, 2)
	// pairs surface in input order, each once
	assert.Equal(t, models.CourseConflict{CourseA: "CS101", CourseB: "MATH201"}, conflicts[0])
	assert.Equal(t, models.CourseConflict{CourseA: "MATH201", CourseB: "ENG105"}, conflicts[1])
}

func TestCourseRegistryEnrollRespectsCapacity(t *testing.T) {
	reg := NewCourseRegistry()
	require.True(t, reg.Add(newTestCourse(t, "CS101", 1)))

	assert.True(t, reg.Enroll("CS101"))
	assert.False(t, reg.Enroll("CS101"))
	assert.Equal(t, 1, reg.Get("CS101").Enrolled)

	assert.True(t, reg.Release("CS101"))
	assert.False(t, reg.Release("CS101"))
	assert.Equal(t, 0, reg.Get("CS101").Enrolled)
}

func TestCourseRegistryEnrollRejectsInactiveAndUnknown(t *testing.T) {
	reg := NewCourseRegistry()
	require.True(t, reg.Add(newTestCourse(t, "CS101", 5)))
	reg.Remove("CS101")

	assert.False(t, reg.Enroll("CS101"))
	assert.False(t, reg.Enroll("GHOST"))
}

func TestCourseRegistrySeatIgnoresInactiveButNotCapacity(t *testing.T) {
	reg := NewCourseRegistry()
	require.True(t, reg.Add(newTestCourse(t, "CS101", 2)))
	reg.Remove("CS101")

	// replaying the ledger seats students even on a removed course
	assert.True(t, reg.Seat("CS101"))
	assert.True(t, reg.Seat("CS101"))
	assert.Equal(t, 2, reg.Get("CS101").Enrolled)

	// capacity still binds, and unknown ids still fail
	assert.False(t, reg.Seat("CS101"))
	assert.False(t, reg.Seat("GHOST"))
}

func TestCourseRegistryConcurrentEnrollNeverOversubscribes(t *testing.T) {
	reg := NewCourseRegistry()
	require.True(t, reg.Add(newTestCourse(t, "CS101", 25)))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.Enroll("CS101")
		}()
	}
	wg.Wait()

	assert.Equal(t, 25, reg.Get("CS101").Enrolled)
}

func TestCourseRegistryUpdate(t *testing.T) {
	reg := NewCourseRegistry()
	require.True(t, reg.Add(newTestCourse(t, "CS101", 5)))

	ok := reg.Update("CS101", func(c *models.Course) { c.Capacity = 40 })
	require.True(t, ok)
	assert.Equal(t, 40, reg.Get("CS101").Capacity)

	assert.False(t, reg.Update("GHOST", func(c *models.Course) {}))
}

func TestCourseRegistryRecordsRoundTrip(t *testing.T) {
	reg := NewCourseRegistry()
	require.True(t, reg.Add(withSchedule(t, newTestCourse(t, "CS101", 10), []string{models.Friday}, "09:00-10:00")))
	require.True(t, reg.Enroll("CS101"))

	records := reg.Records()
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].Enrolled)

	restored, err := models.CourseFromRecord(records[0])
	require.NoError(t, err)
	assert.Equal(t, "CS101", restored.ID)
	assert.Equal(t, []string{models.Friday}, restored.Schedule.Days())
}
