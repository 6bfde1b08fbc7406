package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/unicampus/registrar-api/internal/models"
	appErrors "github.com/unicampus/registrar-api/pkg/errors"
)

const failingGrade = "F"

type registrationLedger interface {
	Create(studentID, courseID string) *models.Registration
	DropFor(studentID, courseID string) bool
	ReEnrollFor(studentID, courseID string) bool
	SetStatus(id string, status models.RegistrationStatus) bool
	SetGrade(id, grade string) bool
	AddNote(id, note string) bool
	Get(id string) *models.Registration
	ActiveForPair(studentID, courseID string) *models.Registration
	GetForPair(studentID, courseID string) *models.Registration
	ForStudent(studentID string, activeOnly bool) []*models.Registration
	ForCourse(courseID string, activeOnly bool) []*models.Registration
	Cleanup(daysOld int) int
}

type catalogReader interface {
	Get(id string) *models.Course
}

type registrationSnapshots interface {
	RequestRegistrations()
	RequestCourses()
}

// EnrollRequest registers a student for a course.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
}

// StatusUpdateRequest carries an administrative status override.
type StatusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

// GradeRequest records a grade on a registration.
type GradeRequest struct {
	Grade string `json:"grade" validate:"required"`
}

// NoteRequest appends a note to a registration.
type NoteRequest struct {
	Note string `json:"note" validate:"required"`
}

// RegistrationPolicy tunes enrollment behaviour.
type RegistrationPolicy struct {
	// RejectConflicts turns timetable collisions into hard errors instead of
	// best-effort warnings.
	RejectConflicts bool
	// CleanupAfterDays is the retention window for dropped registrations.
	CleanupAfterDays int
}

// RegistrationService orchestrates enrollment workflows.
type RegistrationService struct {
	ledger    registrationLedger
	catalog   catalogReader
	snapshots registrationSnapshots
	policy    RegistrationPolicy
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRegistrationService constructs RegistrationService.
func NewRegistrationService(ledger registrationLedger, catalog catalogReader, snapshots registrationSnapshots, policy RegistrationPolicy, validate *validator.Validate, logger *zap.Logger) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.CleanupAfterDays <= 0 {
		policy.CleanupAfterDays = 365
	}
	return &RegistrationService{ledger: ledger, catalog: catalog, snapshots: snapshots, policy: policy, validator: validate, logger: logger}
}

// Enroll registers a student for a course. Pre-checks surface specific
// errors; the ledger's atomic create remains the final gate, so a request
// losing a race still fails cleanly rather than oversubscribing.
func (s *RegistrationService) Enroll(ctx context.Context, req EnrollRequest) (*models.Registration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	course := s.catalog.Get(req.CourseID)
	if course == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	if !course.Active {
		return nil, appErrors.Clone(appErrors.ErrCourseInactive, "")
	}
	if course.AvailableSeats() == 0 {
		return nil, appErrors.Clone(appErrors.ErrCourseFull, "")
	}
	if s.ledger.ActiveForPair(req.StudentID, req.CourseID) != nil {
		return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "")
	}
	if !course.MeetsPrerequisites(s.completedCourses(req.StudentID)) {
		return nil, appErrors.Clone(appErrors.ErrPrerequisitesUnmet, "")
	}
	if s.policy.RejectConflicts {
		if conflict := s.timetableConflict(req.StudentID, course); conflict != "" {
			return nil, appErrors.Clone(appErrors.ErrScheduleConflict, "course conflicts with "+conflict)
		}
	}

	reg := s.ledger.Create(req.StudentID, req.CourseID)
	if reg == nil {
		// lost a race since the pre-checks; re-derive the reason
		if s.ledger.ActiveForPair(req.StudentID, req.CourseID) != nil {
			return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "")
		}
		if current := s.catalog.Get(req.CourseID); current != nil && !current.Active {
			return nil, appErrors.Clone(appErrors.ErrCourseInactive, "")
		}
		return nil, appErrors.Clone(appErrors.ErrCourseFull, "")
	}

	s.afterMutation()
	s.logger.Info("student enrolled",
		zap.String("student_id", req.StudentID),
		zap.String("course_id", req.CourseID),
		zap.String("registration_id", reg.ID))
	return reg, nil
}

// Drop withdraws a student from a course, freeing the seat. The registration
// record is retained as history.
func (s *RegistrationService) Drop(ctx context.Context, req EnrollRequest) (*models.Registration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid drop payload")
	}
	if !s.ledger.DropFor(req.StudentID, req.CourseID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no active registration for course")
	}
	s.afterMutation()
	s.logger.Info("student dropped",
		zap.String("student_id", req.StudentID),
		zap.String("course_id", req.CourseID))
	return s.ledger.GetForPair(req.StudentID, req.CourseID), nil
}

// ReEnroll reverses a drop, subject to the course's current capacity.
func (s *RegistrationService) ReEnroll(ctx context.Context, req EnrollRequest) (*models.Registration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid re-enroll payload")
	}
	if s.ledger.ActiveForPair(req.StudentID, req.CourseID) != nil {
		return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "")
	}
	existing := s.ledger.GetForPair(req.StudentID, req.CourseID)
	if existing == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no registration history for course")
	}
	if !s.ledger.ReEnrollFor(req.StudentID, req.CourseID) {
		if course := s.catalog.Get(req.CourseID); course != nil && !course.CanEnroll() {
			if !course.Active {
				return nil, appErrors.Clone(appErrors.ErrCourseInactive, "")
			}
			return nil, appErrors.Clone(appErrors.ErrCourseFull, "")
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "registration is not dropped")
	}
	s.afterMutation()
	return s.ledger.ActiveForPair(req.StudentID, req.CourseID), nil
}

// SetStatus applies an administrative status override.
func (s *RegistrationService) SetStatus(ctx context.Context, id string, req StatusUpdateRequest) (*models.Registration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	status, err := models.ParseRegistrationStatus(req.Status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown registration status")
	}
	if s.ledger.Get(id) == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
	}
	if !s.ledger.SetStatus(id, status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "")
	}
	s.afterMutation()
	return s.ledger.Get(id), nil
}

// SetGrade records a grade on a registration.
func (s *RegistrationService) SetGrade(ctx context.Context, id string, req GradeRequest) (*models.Registration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if !s.ledger.SetGrade(id, req.Grade) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
	}
	if s.snapshots != nil {
		s.snapshots.RequestRegistrations()
	}
	return s.ledger.Get(id), nil
}

// AddNote appends a note to a registration.
func (s *RegistrationService) AddNote(ctx context.Context, id string, req NoteRequest) (*models.Registration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid note payload")
	}
	if !s.ledger.AddNote(id, req.Note) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
	}
	if s.snapshots != nil {
		s.snapshots.RequestRegistrations()
	}
	return s.ledger.Get(id), nil
}

// Get returns a registration by id.
func (s *RegistrationService) Get(_ context.Context, id string) (*models.Registration, error) {
	reg := s.ledger.Get(id)
	if reg == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
	}
	return reg, nil
}

// ForStudent returns a student's registrations.
func (s *RegistrationService) ForStudent(_ context.Context, studentID string, activeOnly bool) ([]*models.Registration, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id required")
	}
	return s.ledger.ForStudent(studentID, activeOnly), nil
}

// ForCourse returns a course's registrations.
func (s *RegistrationService) ForCourse(_ context.Context, courseID string, activeOnly bool) ([]*models.Registration, error) {
	if courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course id required")
	}
	if s.catalog.Get(courseID) == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return s.ledger.ForCourse(courseID, activeOnly), nil
}

// Timetable assembles the weekly meetings for a student's active courses.
// Courses without a schedule are omitted.
func (s *RegistrationService) Timetable(_ context.Context, studentID string) ([]models.TimetableEntry, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id required")
	}
	var entries []models.TimetableEntry
	for _, reg := range s.ledger.ForStudent(studentID, true) {
		course := s.catalog.Get(reg.CourseID)
		if course == nil || course.Schedule == nil {
			continue
		}
		entries = append(entries, models.TimetableEntry{
			CourseID:   course.ID,
			CourseName: course.Name,
			Instructor: course.Instructor,
			Days:       course.Schedule.Days(),
			Time:       course.Schedule.TimeRange(),
			Room:       course.Schedule.Room(),
		})
	}
	return entries, nil
}

// Cleanup purges dropped registrations older than the retention window and
// returns the number removed.
func (s *RegistrationService) Cleanup(ctx context.Context) int {
	removed := s.ledger.Cleanup(s.policy.CleanupAfterDays)
	if removed > 0 {
		if s.snapshots != nil {
			s.snapshots.RequestRegistrations()
		}
		s.logger.Info("purged dropped registrations",
			zap.Int("removed", removed),
			zap.Int("older_than_days", s.policy.CleanupAfterDays))
	}
	return removed
}

// completedCourses lists course ids the student has finished with a passing
// grade. Dropped registrations never count, whatever grade they carry: a
// student who withdrew did not complete the course.
func (s *RegistrationService) completedCourses(studentID string) map[string]struct{} {
	completed := make(map[string]struct{})
	for _, reg := range s.ledger.ForStudent(studentID, false) {
		if reg.IsDropped() {
			continue
		}
		if reg.Grade != nil && *reg.Grade != failingGrade {
			completed[reg.CourseID] = struct{}{}
		}
	}
	return completed
}

// timetableConflict returns the id of the first enrolled course whose
// schedule collides with the candidate, or empty when the timetable is clear.
func (s *RegistrationService) timetableConflict(studentID string, candidate *models.Course) string {
	if candidate.Schedule == nil {
		return ""
	}
	for _, reg := range s.ledger.ForStudent(studentID, true) {
		course := s.catalog.Get(reg.CourseID)
		if course != nil && candidate.ConflictsWith(course) {
			return course.ID
		}
	}
	return ""
}

func (s *RegistrationService) afterMutation() {
	if s.snapshots == nil {
		return
	}
	s.snapshots.RequestRegistrations()
	s.snapshots.RequestCourses()
}
