package registry

import (
	"sync"
	"time"

	"github.com/unicampus/registrar-api/internal/models"
)

// CourseSeater is the slice of the course catalog the registration registry
// needs: atomically taking and returning seats.
type CourseSeater interface {
	Enroll(courseID string) bool
	Release(courseID string) bool
}

type pairKey struct {
	studentID string
	courseID  string
}

// RegistrationRegistry owns every Registration. Lookups go through two
// incrementally maintained indexes (by id and by student/course pair) instead
// of scans, and a single registry-wide mutex serializes the lookup-then-insert
// critical section so two concurrent creates for the same pair cannot both
// pass the duplicate-active guard.
type RegistrationRegistry struct {
	mu      sync.Mutex
	courses CourseSeater
	byID    map[string]*models.Registration
	byPair  map[pairKey][]string
	order   []string
}

// NewRegistrationRegistry builds an empty registry wired to the course
// catalog's seat accounting.
func NewRegistrationRegistry(courses CourseSeater) *RegistrationRegistry {
	return &RegistrationRegistry{
		courses: courses,
		byID:    make(map[string]*models.Registration),
		byPair:  make(map[pairKey][]string),
	}
}

// Load seeds the registry from persisted registrations without touching seat
// counters; callers replay seats through the catalog afterwards. Intended for
// boot, before the registry is shared.
func (r *RegistrationRegistry) Load(regs []*models.Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, reg := range regs {
		if _, exists := r.byID[reg.ID]; exists {
			continue
		}
		r.insertLocked(reg)
	}
}

// Create registers a student for a course. It returns nil without side
// effects when an ENROLLED registration for the pair already exists (the
// duplicate-active guard) or when the course rejects the enrollment
// (unknown, inactive or full). A DROPPED history for the same pair does not
// block a fresh registration; history is append-only.
func (r *RegistrationRegistry) Create(studentID, courseID string) *models.Registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeForPairLocked(studentID, courseID) != nil {
		return nil
	}
	if !r.courses.Enroll(courseID) {
		return nil
	}
	reg, err := models.NewRegistration(studentID, courseID)
	if err != nil {
		r.courses.Release(courseID)
		return nil
	}
	r.insertLocked(reg)
	return reg.Clone()
}

// DropFor finds the ENROLLED registration for the pair, transitions it to
// DROPPED and returns the seat. False when no active registration exists.
func (r *RegistrationRegistry) DropFor(studentID, courseID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg := r.activeForPairLocked(studentID, courseID)
	if reg == nil {
		return false
	}
	if !reg.Drop() {
		return false
	}
	r.courses.Release(courseID)
	return true
}

// ReEnrollFor transitions the most recent DROPPED registration for the pair
// back to ENROLLED, re-seating it through the course's capacity gate. False
// when the pair has an active registration, no dropped history, or the course
// cannot seat another student.
func (r *RegistrationRegistry) ReEnrollFor(studentID, courseID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeForPairLocked(studentID, courseID) != nil {
		return false
	}
	ids := r.byPair[pairKey{studentID, courseID}]
	for i := len(ids) - 1; i >= 0; i-- {
		reg := r.byID[ids[i]]
		if !reg.IsDropped() {
			continue
		}
		if !r.courses.Enroll(courseID) {
			return false
		}
		if !reg.ReEnroll() {
			r.courses.Release(courseID)
			return false
		}
		return true
	}
	return false
}

// SetStatus applies an administrative status override, keeping seat counters
// consistent: leaving ENROLLED returns the seat, entering ENROLLED takes one
// (and fails when the course cannot provide it). Entering DROPPED stamps the
// drop date; only re-enrollment clears it, so a DROPPED record pushed to
// WAITLISTED or PENDING keeps its drop history.
func (r *RegistrationRegistry) SetStatus(id string, status models.RegistrationStatus) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.byID[id]
	if !ok {
		return false
	}
	if reg.Status == status {
		return true
	}
	wasActive := reg.IsActive()
	becomesActive := status == models.RegistrationStatusEnrolled
	if becomesActive && !wasActive {
		if r.activeForPairLocked(reg.StudentID, reg.CourseID) != nil {
			return false
		}
		if !r.courses.Enroll(reg.CourseID) {
			return false
		}
	}
	if wasActive && !becomesActive {
		r.courses.Release(reg.CourseID)
	}
	reg.Status = status
	switch status {
	case models.RegistrationStatusDropped:
		now := time.Now().UTC()
		reg.DropDate = &now
	case models.RegistrationStatusEnrolled:
		reg.DropDate = nil
	}
	return true
}

// SetGrade records a grade on a registration.
func (r *RegistrationRegistry) SetGrade(id, grade string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.byID[id]
	if !ok {
		return false
	}
	reg.SetGrade(grade)
	return true
}

// AddNote appends a note to a registration.
func (r *RegistrationRegistry) AddNote(id, note string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.byID[id]
	if !ok {
		return false
	}
	reg.AddNote(note)
	return true
}

// Get returns a copy of the registration, or nil when unknown.
func (r *RegistrationRegistry) Get(id string) *models.Registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.byID[id]
	if !ok {
		return nil
	}
	return reg.Clone()
}

// GetForPair returns the most recent registration for the pair in any status.
func (r *RegistrationRegistry) GetForPair(studentID, courseID string) *models.Registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := r.byPair[pairKey{studentID, courseID}]
	if len(ids) == 0 {
		return nil
	}
	return r.byID[ids[len(ids)-1]].Clone()
}

// ActiveForPair returns the ENROLLED registration for the pair, or nil.
func (r *RegistrationRegistry) ActiveForPair(studentID, courseID string) *models.Registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reg := r.activeForPairLocked(studentID, courseID); reg != nil {
		return reg.Clone()
	}
	return nil
}

// ForStudent returns the student's registrations in creation order,
// optionally restricted to active ones.
func (r *RegistrationRegistry) ForStudent(studentID string, activeOnly bool) []*models.Registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Registration
	for _, id := range r.order {
		reg := r.byID[id]
		if reg.StudentID != studentID {
			continue
		}
		if activeOnly && !reg.IsActive() {
			continue
		}
		out = append(out, reg.Clone())
	}
	return out
}

// ForCourse returns the course's registrations in creation order, optionally
// restricted to active ones.
func (r *RegistrationRegistry) ForCourse(courseID string, activeOnly bool) []*models.Registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Registration
	for _, id := range r.order {
		reg := r.byID[id]
		if reg.CourseID != courseID {
			continue
		}
		if activeOnly && !reg.IsActive() {
			continue
		}
		out = append(out, reg.Clone())
	}
	return out
}

// Statistics aggregates registry-wide counts. The enrollment rate is zero,
// not a division error, on an empty registry.
func (r *RegistrationRegistry) Statistics() models.RegistrationStatistics {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := models.RegistrationStatistics{Total: len(r.byID)}
	for _, reg := range r.byID {
		switch {
		case reg.IsActive():
			stats.Active++
		case reg.IsDropped():
			stats.Dropped++
		}
	}
	if stats.Total > 0 {
		stats.EnrollmentRate = float64(stats.Active) / float64(stats.Total) * 100
	}
	return stats
}

// CourseEnrollmentSummary aggregates counts for one course. A course with no
// registrations yields a zero retention rate.
func (r *RegistrationRegistry) CourseEnrollmentSummary(courseID string) models.CourseEnrollmentSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary := models.CourseEnrollmentSummary{CourseID: courseID}
	for _, id := range r.order {
		reg := r.byID[id]
		if reg.CourseID != courseID {
			continue
		}
		summary.Total++
		switch {
		case reg.IsActive():
			summary.Active++
		case reg.IsDropped():
			summary.Dropped++
		}
	}
	if summary.Total > 0 {
		summary.RetentionRate = float64(summary.Active) / float64(summary.Total) * 100
	}
	return summary
}

// Cleanup deletes DROPPED registrations whose drop date is older than the
// given number of days. Records in any other status are never removed,
// whatever their age. Returns the number of removed records.
func (r *RegistrationRegistry) Cleanup(daysOld int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().UTC().AddDate(0, 0, -daysOld)
	removed := 0
	kept := r.order[:0]
	for _, id := range r.order {
		reg := r.byID[id]
		if reg.IsDropped() && reg.DropDate != nil && reg.DropDate.Before(cutoff) {
			delete(r.byID, id)
			r.removePairLocked(reg)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
	return removed
}

// Records snapshots every registration for the persistence collaborator.
func (r *RegistrationRegistry) Records() []models.RegistrationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.RegistrationRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].Record())
	}
	return out
}

// Len reports the number of stored registrations.
func (r *RegistrationRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func (r *RegistrationRegistry) insertLocked(reg *models.Registration) {
	key := pairKey{reg.StudentID, reg.CourseID}
	r.byID[reg.ID] = reg
	r.byPair[key] = append(r.byPair[key], reg.ID)
	r.order = append(r.order, reg.ID)
}

func (r *RegistrationRegistry) activeForPairLocked(studentID, courseID string) *models.Registration {
	for _, id := range r.byPair[pairKey{studentID, courseID}] {
		if reg := r.byID[id]; reg.IsActive() {
			return reg
		}
	}
	return nil
}

func (r *RegistrationRegistry) removePairLocked(reg *models.Registration) {
	key := pairKey{reg.StudentID, reg.CourseID}
	ids := r.byPair[key]
	for i, id := range ids {
		if id == reg.ID {
			r.byPair[key] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(r.byPair[key]) == 0 {
		delete(r.byPair, key)
	}
}
