package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unicampus/registrar-api/internal/models"
	"github.com/unicampus/registrar-api/internal/store"
	"github.com/unicampus/registrar-api/pkg/jobs"
)

// Collection identifiers used as job types.
const (
	CollectionCourses       = "courses"
	CollectionRegistrations = "registrations"
	CollectionUsers         = "users"
)

// Sources supplies snapshots of the live registries. Records are read at job
// execution time, not enqueue time, so coalesced requests always persist the
// latest state.
type Sources struct {
	Courses       func() []models.CourseRecord
	Registrations func() []models.RegistrationRecord
	Users         func() []models.UserRecord
}

// Config tunes the snapshot worker pool. OnSave, when set, is invoked after
// each successful save with the collection name.
type Config struct {
	Workers int
	Retries int
	Logger  *zap.Logger
	OnSave  func(collection string)
}

// Snapshotter pushes registry snapshots to the store in the background.
// Mutating requests trigger it after their critical section, keeping
// persistence off the request path.
type Snapshotter struct {
	store   store.Store
	sources Sources
	queue   *jobs.Queue
	logger  *zap.Logger
	onSave  func(collection string)
}

// NewSnapshotter wires the snapshot queue but does not start it.
func NewSnapshotter(st store.Store, sources Sources, cfg Config) *Snapshotter {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Snapshotter{store: st, sources: sources, logger: logger, onSave: cfg.OnSave}
	s.queue = jobs.NewQueue("snapshots", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		RetryDelay: 2 * time.Second,
		Logger:     logger,
	})
	return s
}

// Start launches the snapshot workers.
func (s *Snapshotter) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *Snapshotter) Stop() {
	s.queue.Stop()
}

// RequestCourses schedules a course snapshot.
func (s *Snapshotter) RequestCourses() {
	s.request(CollectionCourses)
}

// RequestRegistrations schedules a registration snapshot.
func (s *Snapshotter) RequestRegistrations() {
	s.request(CollectionRegistrations)
}

// RequestUsers schedules a user snapshot.
func (s *Snapshotter) RequestUsers() {
	s.request(CollectionUsers)
}

// Flush writes every collection synchronously. Used at shutdown, after the
// queue has stopped, to guarantee the final state reaches the store.
func (s *Snapshotter) Flush(ctx context.Context) error {
	if err := s.store.SaveCourses(ctx, s.sources.Courses()); err != nil {
		return fmt.Errorf("flush courses: %w", err)
	}
	if err := s.store.SaveRegistrations(ctx, s.sources.Registrations()); err != nil {
		return fmt.Errorf("flush registrations: %w", err)
	}
	if err := s.store.SaveUsers(ctx, s.sources.Users()); err != nil {
		return fmt.Errorf("flush users: %w", err)
	}
	return nil
}

func (s *Snapshotter) request(collection string) {
	err := s.queue.Enqueue(jobs.Job{
		ID:   uuid.NewString(),
		Type: collection,
	})
	if err != nil {
		s.logger.Warn("snapshot request dropped", zap.String("collection", collection), zap.Error(err))
	}
}

func (s *Snapshotter) handle(ctx context.Context, job jobs.Job) error {
	var err error
	switch job.Type {
	case CollectionCourses:
		err = s.store.SaveCourses(ctx, s.sources.Courses())
	case CollectionRegistrations:
		err = s.store.SaveRegistrations(ctx, s.sources.Registrations())
	case CollectionUsers:
		err = s.store.SaveUsers(ctx, s.sources.Users())
	default:
		return fmt.Errorf("unknown snapshot collection %q", job.Type)
	}
	if err == nil && s.onSave != nil {
		s.onSave(job.Type)
	}
	return err
}
