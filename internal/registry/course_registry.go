package registry

import (
	"strings"
	"sync"

	"github.com/unicampus/registrar-api/internal/models"
)

// CourseRegistry is the in-memory catalog. It exclusively owns every Course
// instance; readers receive deep copies and every mutation runs under the
// registry lock, which makes the check-then-increment inside Course.Enroll a
// single critical section.
type CourseRegistry struct {
	mu      sync.RWMutex
	courses map[string]*models.Course
	order   []string
}

// NewCourseRegistry builds an empty catalog.
func NewCourseRegistry() *CourseRegistry {
	return &CourseRegistry{courses: make(map[string]*models.Course)}
}

// Add inserts a course. Existing ids are never overwritten; adding a
// duplicate returns false and leaves the catalog untouched.
func (r *CourseRegistry) Add(course *models.Course) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.courses[course.ID]; exists {
		return false
	}
	r.courses[course.ID] = course
	r.order = append(r.order, course.ID)
	return true
}

// Get returns a copy of the course, or nil when unknown.
func (r *CourseRegistry) Get(id string) *models.Course {
	r.mu.RLock()
	defer r.mu.RUnlock()
	course, ok := r.courses[id]
	if !ok {
		return nil
	}
	return course.Clone()
}

// List returns every course in insertion order.
func (r *CourseRegistry) List() []*models.Course {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Course, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.courses[id].Clone())
	}
	return out
}

// ListActive returns active courses in insertion order.
func (r *CourseRegistry) ListActive() []*models.Course {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Course
	for _, id := range r.order {
		if course := r.courses[id]; course.Active {
			out = append(out, course.Clone())
		}
	}
	return out
}

// FindByInstructor matches the instructor name exactly, ignoring case.
func (r *CourseRegistry) FindByInstructor(name string) []*models.Course {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Course
	for _, id := range r.order {
		if course := r.courses[id]; strings.EqualFold(course.Instructor, name) {
			out = append(out, course.Clone())
		}
	}
	return out
}

// FindByCreditRange returns courses whose credits fall inside the inclusive
// range. A nil max leaves the range unbounded above.
func (r *CourseRegistry) FindByCreditRange(min int, max *int) []*models.Course {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Course
	for _, id := range r.order {
		course := r.courses[id]
		if course.Credits < min {
			continue
		}
		if max != nil && course.Credits > *max {
			continue
		}
		out = append(out, course.Clone())
	}
	return out
}

// FindConflicts scans every unordered pair drawn from the given course ids
// and reports the pairs whose schedules collide. Ids that do not resolve are
// silently skipped, each pair is reported once, and emission follows the
// input's pairwise order (i < j).
func (r *CourseRegistry) FindConflicts(courseIDs []string) []models.CourseConflict {
	r.mu.RLock()
	defer r.mu.RUnlock()
	resolved := make([]*models.Course, 0, len(courseIDs))
	for _, id := range courseIDs {
		if course, ok := r.courses[id]; ok {
			resolved = append(resolved, course)
		}
	}
	var conflicts []models.CourseConflict
	for i := 0; i < len(resolved); i++ {
		for j := i + 1; j < len(resolved); j++ {
			if resolved[i].ConflictsWith(resolved[j]) {
				conflicts = append(conflicts, models.CourseConflict{
					CourseA: resolved[i].ID,
					CourseB: resolved[j].ID,
				})
			}
		}
	}
	return conflicts
}

// Remove soft-deletes a course, retaining its id and history. Unknown ids are
// a no-op, not an error.
func (r *CourseRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if course, ok := r.courses[id]; ok && course.Active {
		course.Deactivate()
	}
}

// Enroll atomically takes one seat. It returns false when the course is
// unknown, inactive or full; callers re-fetch the course to learn which.
func (r *CourseRegistry) Enroll(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	course, ok := r.courses[id]
	if !ok {
		return false
	}
	return course.Enroll()
}

// Release atomically returns one seat.
func (r *CourseRegistry) Release(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	course, ok := r.courses[id]
	if !ok {
		return false
	}
	return course.Drop()
}

// Seat takes one seat ignoring the active flag, bounded by capacity. It is
// the replay path for rebuilding counters from the registration ledger, where
// inactive courses keep the students they had when they were removed. False
// means the id is unknown or the ledger holds more active registrations than
// the course has seats.
func (r *CourseRegistry) Seat(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	course, ok := r.courses[id]
	if !ok {
		return false
	}
	return course.Seat()
}

// Update applies a mutation to a course under the registry lock. It returns
// false when the id is unknown.
func (r *CourseRegistry) Update(id string, mutate func(*models.Course)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	course, ok := r.courses[id]
	if !ok {
		return false
	}
	mutate(course)
	return true
}

// Records snapshots the whole catalog for the persistence collaborator.
func (r *CourseRegistry) Records() []models.CourseRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.CourseRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.courses[id].Record())
	}
	return out
}

// Len reports the catalog size.
func (r *CourseRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.courses)
}
