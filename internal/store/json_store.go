package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/unicampus/registrar-api/internal/models"
)

const (
	coursesFile       = "courses.json"
	registrationsFile = "registrations.json"
	usersFile         = "users.json"
)

type coursesDocument struct {
	Courses []models.CourseRecord `json:"courses"`
}

type registrationsDocument struct {
	Registrations []models.RegistrationRecord `json:"registrations"`
}

type usersDocument struct {
	Users []models.UserRecord `json:"users"`
}

// JSONStore keeps each collection in its own JSON file under a data
// directory. Writes go through a temp file and an atomic rename, so a crash
// mid-save leaves the previous snapshot intact. A missing file reads as an
// empty collection; a malformed file is an error, never silently reset.
type JSONStore struct {
	dir    string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewJSONStore creates the data directory if needed.
func NewJSONStore(dir string, logger *zap.Logger) (*JSONStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &JSONStore{dir: dir, logger: logger}, nil
}

func (s *JSONStore) LoadCourses(_ context.Context) ([]models.CourseRecord, error) {
	var doc coursesDocument
	if err := s.read(coursesFile, &doc); err != nil {
		return nil, err
	}
	return doc.Courses, nil
}

func (s *JSONStore) SaveCourses(_ context.Context, records []models.CourseRecord) error {
	return s.write(coursesFile, coursesDocument{Courses: records})
}

func (s *JSONStore) LoadRegistrations(_ context.Context) ([]models.RegistrationRecord, error) {
	var doc registrationsDocument
	if err := s.read(registrationsFile, &doc); err != nil {
		return nil, err
	}
	return doc.Registrations, nil
}

func (s *JSONStore) SaveRegistrations(_ context.Context, records []models.RegistrationRecord) error {
	return s.write(registrationsFile, registrationsDocument{Registrations: records})
}

func (s *JSONStore) LoadUsers(_ context.Context) ([]models.UserRecord, error) {
	var doc usersDocument
	if err := s.read(usersFile, &doc); err != nil {
		return nil, err
	}
	return doc.Users, nil
}

func (s *JSONStore) SaveUsers(_ context.Context, records []models.UserRecord) error {
	return s.write(usersFile, usersDocument{Users: records})
}

func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) read(name string, out interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (s *JSONStore) write(name string, doc interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}

	s.logger.Debug("snapshot written", zap.String("file", name), zap.Int("bytes", len(data)))
	return nil
}
