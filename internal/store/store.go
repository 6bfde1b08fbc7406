package store

import (
	"context"

	"github.com/unicampus/registrar-api/internal/models"
)

// Store persists whole-collection snapshots. The registries are the source of
// truth at runtime; a save always overwrites the previous snapshot in full,
// and a load reads whatever the last save produced. Partial updates are not
// part of the contract.
type Store interface {
	LoadCourses(ctx context.Context) ([]models.CourseRecord, error)
	SaveCourses(ctx context.Context, records []models.CourseRecord) error

	LoadRegistrations(ctx context.Context) ([]models.RegistrationRecord, error)
	SaveRegistrations(ctx context.Context, records []models.RegistrationRecord) error

	LoadUsers(ctx context.Context) ([]models.UserRecord, error)
	SaveUsers(ctx context.Context, records []models.UserRecord) error

	Close() error
}
