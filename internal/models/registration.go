package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RegistrationStatus represents the lifecycle of a registration.
type RegistrationStatus string

// Possible registration statuses. WAITLISTED and PENDING are declared for
// admission-control workflows; the enrollment flow itself only ever produces
// ENROLLED and DROPPED.
const (
	RegistrationStatusEnrolled   RegistrationStatus = "enrolled"
	RegistrationStatusDropped    RegistrationStatus = "dropped"
	RegistrationStatusWaitlisted RegistrationStatus = "waitlisted"
	RegistrationStatusPending    RegistrationStatus = "pending"
)

// ParseRegistrationStatus validates a wire status value.
func ParseRegistrationStatus(raw string) (RegistrationStatus, error) {
	switch RegistrationStatus(raw) {
	case RegistrationStatusEnrolled, RegistrationStatusDropped, RegistrationStatusWaitlisted, RegistrationStatusPending:
		return RegistrationStatus(raw), nil
	default:
		return "", fmt.Errorf("unknown registration status %q", raw)
	}
}

// Registration captures a student's relationship with a course. The identity
// triple (ID, StudentID, CourseID) never changes after construction; only the
// status machine and the grade/notes side channels do.
type Registration struct {
	ID             string
	StudentID      string
	CourseID       string
	Status         RegistrationStatus
	EnrollmentDate time.Time
	DropDate       *time.Time
	Grade          *string
	Notes          string
}

// RegistrationRecord is the wire representation of a Registration.
type RegistrationRecord struct {
	ID             string  `json:"id"`
	StudentID      string  `json:"student_id"`
	CourseID       string  `json:"course_id"`
	Status         string  `json:"status"`
	EnrollmentDate string  `json:"enrollment_date"`
	DropDate       *string `json:"drop_date"`
	Grade          *string `json:"grade"`
	Notes          string  `json:"notes"`
}

// NewRegistration creates a registration in ENROLLED.
func NewRegistration(studentID, courseID string) (*Registration, error) {
	if studentID == "" || courseID == "" {
		return nil, fmt.Errorf("registration requires student and course ids")
	}
	return &Registration{
		ID:             uuid.NewString(),
		StudentID:      studentID,
		CourseID:       courseID,
		Status:         RegistrationStatusEnrolled,
		EnrollmentDate: time.Now().UTC(),
	}, nil
}

// Drop transitions ENROLLED to DROPPED and stamps the drop date. Any other
// source state is a no-op returning false.
func (r *Registration) Drop() bool {
	if r.Status != RegistrationStatusEnrolled {
		return false
	}
	now := time.Now().UTC()
	r.Status = RegistrationStatusDropped
	r.DropDate = &now
	return true
}

// ReEnroll transitions DROPPED back to ENROLLED and clears the drop date.
func (r *Registration) ReEnroll() bool {
	if r.Status != RegistrationStatusDropped {
		return false
	}
	r.Status = RegistrationStatusEnrolled
	r.DropDate = nil
	return true
}

// SetGrade records a grade. Grades are independent of status and legal in any
// state.
func (r *Registration) SetGrade(grade string) {
	r.Grade = &grade
}

// AddNote appends free text to the semicolon-joined notes field.
func (r *Registration) AddNote(note string) {
	if r.Notes == "" {
		r.Notes = note
		return
	}
	r.Notes += "; " + note
}

// IsActive reports whether the registration counts toward a seat.
func (r *Registration) IsActive() bool {
	return r.Status == RegistrationStatusEnrolled
}

// IsDropped reports whether the registration has been dropped.
func (r *Registration) IsDropped() bool {
	return r.Status == RegistrationStatusDropped
}

// Clone returns a copy safe to hand outside the registry lock.
func (r *Registration) Clone() *Registration {
	clone := *r
	if r.DropDate != nil {
		d := *r.DropDate
		clone.DropDate = &d
	}
	if r.Grade != nil {
		g := *r.Grade
		clone.Grade = &g
	}
	return &clone
}

// Record converts the registration into its wire representation.
func (r *Registration) Record() RegistrationRecord {
	rec := RegistrationRecord{
		ID:             r.ID,
		StudentID:      r.StudentID,
		CourseID:       r.CourseID,
		Status:         string(r.Status),
		EnrollmentDate: r.EnrollmentDate.Format(time.RFC3339),
		Notes:          r.Notes,
	}
	if r.DropDate != nil {
		d := r.DropDate.Format(time.RFC3339)
		rec.DropDate = &d
	}
	if r.Grade != nil {
		g := *r.Grade
		rec.Grade = &g
	}
	return rec
}

// RegistrationFromRecord decodes a wire record, failing loudly on missing or
// corrupt fields.
func RegistrationFromRecord(rec RegistrationRecord) (*Registration, error) {
	if rec.ID == "" {
		return nil, fmt.Errorf("registration record missing id")
	}
	if rec.StudentID == "" || rec.CourseID == "" {
		return nil, fmt.Errorf("registration %s missing student or course id", rec.ID)
	}
	status, err := ParseRegistrationStatus(rec.Status)
	if err != nil {
		return nil, fmt.Errorf("registration %s: %w", rec.ID, err)
	}
	enrolledAt, err := time.Parse(time.RFC3339, rec.EnrollmentDate)
	if err != nil {
		return nil, fmt.Errorf("registration %s has invalid enrollment_date: %w", rec.ID, err)
	}
	reg := &Registration{
		ID:             rec.ID,
		StudentID:      rec.StudentID,
		CourseID:       rec.CourseID,
		Status:         status,
		EnrollmentDate: enrolledAt,
		Notes:          rec.Notes,
	}
	if rec.DropDate != nil {
		droppedAt, err := time.Parse(time.RFC3339, *rec.DropDate)
		if err != nil {
			return nil, fmt.Errorf("registration %s has invalid drop_date: %w", rec.ID, err)
		}
		reg.DropDate = &droppedAt
	}
	if status == RegistrationStatusDropped && reg.DropDate == nil {
		return nil, fmt.Errorf("registration %s dropped without a drop_date", rec.ID)
	}
	if rec.Grade != nil {
		g := *rec.Grade
		reg.Grade = &g
	}
	return reg, nil
}

// RegistrationStatistics aggregates registry-wide counts.
type RegistrationStatistics struct {
	Total          int     `json:"total"`
	Active         int     `json:"active"`
	Dropped        int     `json:"dropped"`
	EnrollmentRate float64 `json:"enrollment_rate"`
}

// CourseEnrollmentSummary aggregates per-course counts.
type CourseEnrollmentSummary struct {
	CourseID      string  `json:"course_id"`
	Total         int     `json:"total"`
	Active        int     `json:"active"`
	Dropped       int     `json:"dropped"`
	RetentionRate float64 `json:"retention_rate"`
}
