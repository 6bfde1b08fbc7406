package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/unicampus/registrar-api/internal/models"
	appErrors "github.com/unicampus/registrar-api/pkg/errors"
)

const (
	catalogCacheKeyAll    = "catalog:all"
	catalogCacheKeyActive = "catalog:active"
	catalogCachePattern   = "catalog:*"
)

type courseCatalog interface {
	Add(course *models.Course) bool
	Get(id string) *models.Course
	List() []*models.Course
	ListActive() []*models.Course
	FindByInstructor(name string) []*models.Course
	FindByCreditRange(min int, max *int) []*models.Course
	FindConflicts(courseIDs []string) []models.CourseConflict
	Remove(id string)
	Update(id string, mutate func(*models.Course)) bool
}

type courseSnapshots interface {
	RequestCourses()
}

// ScheduleRequest describes a meeting pattern payload.
type ScheduleRequest struct {
	Days []string `json:"days" validate:"required,min=1"`
	Time string   `json:"time" validate:"required"`
	Room string   `json:"room" validate:"required"`
}

// CreateCourseRequest describes course creation.
type CreateCourseRequest struct {
	ID            string           `json:"id" validate:"required"`
	Name          string           `json:"name" validate:"required"`
	Description   string           `json:"description"`
	Credits       int              `json:"credits" validate:"required,gt=0"`
	Instructor    string           `json:"instructor"`
	Capacity      int              `json:"capacity" validate:"required,gt=0"`
	Prerequisites []string         `json:"prerequisites"`
	Schedule      *ScheduleRequest `json:"schedule"`
}

// UpdateCourseRequest carries a partial course update. The enrolled counter is
// deliberately absent: it only moves through the enrollment flow.
type UpdateCourseRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Credits     *int    `json:"credits" validate:"omitempty,gt=0"`
	Instructor  *string `json:"instructor"`
	Capacity    *int    `json:"capacity" validate:"omitempty,gt=0"`
}

// CourseService orchestrates catalog workflows.
type CourseService struct {
	catalog   courseCatalog
	cache     *CacheService
	snapshots courseSnapshots
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(catalog courseCatalog, cache *CacheService, snapshots courseSnapshots, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{catalog: catalog, cache: cache, snapshots: snapshots, validator: validate, logger: logger}
}

// Create adds a course to the catalog.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := models.NewCourse(req.ID, req.Name, req.Description, req.Credits, req.Instructor, req.Capacity, req.Prerequisites)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if req.Schedule != nil {
		sched, err := models.NewSchedule(req.Schedule.Days, req.Schedule.Time, req.Schedule.Room)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
		}
		course.SetSchedule(sched)
	}
	if !s.catalog.Add(course) {
		return nil, appErrors.Clone(appErrors.ErrDuplicateCourse, "")
	}
	s.afterMutation(ctx)
	s.logger.Info("course created", zap.String("course_id", course.ID))
	return course.Clone(), nil
}

// Get returns a course by id.
func (s *CourseService) Get(_ context.Context, id string) (*models.Course, error) {
	course := s.catalog.Get(id)
	if course == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return course, nil
}

// List returns the catalog, from cache when possible. Inactive courses are
// only included on request.
func (s *CourseService) List(ctx context.Context, includeInactive bool) ([]*models.Course, error) {
	key := catalogCacheKeyActive
	if includeInactive {
		key = catalogCacheKeyAll
	}

	var cached []models.CourseRecord
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		courses, err := coursesFromRecords(cached)
		if err == nil {
			return courses, nil
		}
		s.logger.Warn("discarding corrupt catalog cache entry", zap.String("key", key), zap.Error(err))
	}

	var courses []*models.Course
	if includeInactive {
		courses = s.catalog.List()
	} else {
		courses = s.catalog.ListActive()
	}

	records := make([]models.CourseRecord, 0, len(courses))
	for _, course := range courses {
		records = append(records, course.Record())
	}
	_ = s.cache.Set(ctx, key, records, 0)

	return courses, nil
}

// Update applies a partial update. Capacity can never be lowered below the
// current enrollment.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	var updateErr *appErrors.Error
	found := s.catalog.Update(id, func(course *models.Course) {
		if req.Capacity != nil && *req.Capacity < course.Enrolled {
			updateErr = appErrors.Clone(appErrors.ErrPreconditionFailed, "capacity below current enrollment")
			return
		}
		if req.Name != nil {
			course.Name = *req.Name
		}
		if req.Description != nil {
			course.Description = *req.Description
		}
		if req.Credits != nil {
			course.Credits = *req.Credits
		}
		if req.Instructor != nil {
			course.Instructor = *req.Instructor
		}
		if req.Capacity != nil {
			course.Capacity = *req.Capacity
		}
	})
	if !found {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	if updateErr != nil {
		return nil, updateErr
	}
	s.afterMutation(ctx)
	return s.catalog.Get(id), nil
}

// SetSchedule replaces a course's meeting pattern.
func (s *CourseService) SetSchedule(ctx context.Context, id string, req ScheduleRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	sched, err := models.NewSchedule(req.Days, req.Time, req.Room)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	if !s.catalog.Update(id, func(course *models.Course) { course.SetSchedule(sched) }) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	s.afterMutation(ctx)
	return s.catalog.Get(id), nil
}

// Remove soft-deletes a course. Its registrations and history are retained.
func (s *CourseService) Remove(ctx context.Context, id string) error {
	if s.catalog.Get(id) == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	s.catalog.Remove(id)
	s.afterMutation(ctx)
	s.logger.Info("course deactivated", zap.String("course_id", id))
	return nil
}

// FindByInstructor returns courses taught by the named instructor.
func (s *CourseService) FindByInstructor(_ context.Context, name string) ([]*models.Course, error) {
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "instructor name required")
	}
	return s.catalog.FindByInstructor(name), nil
}

// FindByCreditRange returns courses within the inclusive credit range.
func (s *CourseService) FindByCreditRange(_ context.Context, min int, max *int) ([]*models.Course, error) {
	if min < 0 || (max != nil && *max < min) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid credit range")
	}
	return s.catalog.FindByCreditRange(min, max), nil
}

// Conflicts reports schedule collisions among the given courses.
func (s *CourseService) Conflicts(_ context.Context, courseIDs []string) ([]models.CourseConflict, error) {
	if len(courseIDs) < 2 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least two course ids required")
	}
	return s.catalog.FindConflicts(courseIDs), nil
}

func (s *CourseService) afterMutation(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, catalogCachePattern)
	if s.snapshots != nil {
		s.snapshots.RequestCourses()
	}
}

func coursesFromRecords(records []models.CourseRecord) ([]*models.Course, error) {
	courses := make([]*models.Course, 0, len(records))
	for _, rec := range records {
		course, err := models.CourseFromRecord(rec)
		if err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}
	return courses, nil
}
