package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/unicampus/registrar-api/internal/models"
)

const (
	coursesTable       = "course_snapshots"
	registrationsTable = "registration_snapshots"
	usersTable         = "user_snapshots"
)

// PostgresStore keeps each collection as (id, doc) rows in its own table,
// documents encoded as JSONB. Saves replace the whole table inside a single
// transaction, matching the overwrite semantics of the JSON driver.
type PostgresStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

type snapshotRow struct {
	ID  string `db:"id"`
	Doc []byte `db:"doc"`
}

// NewPostgresStore ensures the snapshot tables exist.
func NewPostgresStore(db *sqlx.DB, logger *zap.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PostgresStore{db: db, logger: logger}
	for _, table := range []string{coursesTable, registrationsTable, usersTable} {
		stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			doc JSONB NOT NULL
		)`, table)
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("ensure table %s: %w", table, err)
		}
	}
	return s, nil
}

func (s *PostgresStore) LoadCourses(ctx context.Context) ([]models.CourseRecord, error) {
	rows, err := s.load(ctx, coursesTable)
	if err != nil {
		return nil, err
	}
	records := make([]models.CourseRecord, 0, len(rows))
	for _, row := range rows {
		var rec models.CourseRecord
		if err := json.Unmarshal(row.Doc, &rec); err != nil {
			return nil, fmt.Errorf("decode course %s: %w", row.ID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *PostgresStore) SaveCourses(ctx context.Context, records []models.CourseRecord) error {
	rows := make([]snapshotRow, 0, len(records))
	for _, rec := range records {
		doc, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode course %s: %w", rec.ID, err)
		}
		rows = append(rows, snapshotRow{ID: rec.ID, Doc: doc})
	}
	return s.save(ctx, coursesTable, rows)
}

func (s *PostgresStore) LoadRegistrations(ctx context.Context) ([]models.RegistrationRecord, error) {
	rows, err := s.load(ctx, registrationsTable)
	if err != nil {
		return nil, err
	}
	records := make([]models.RegistrationRecord, 0, len(rows))
	for _, row := range rows {
		var rec models.RegistrationRecord
		if err := json.Unmarshal(row.Doc, &rec); err != nil {
			return nil, fmt.Errorf("decode registration %s: %w", row.ID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *PostgresStore) SaveRegistrations(ctx context.Context, records []models.RegistrationRecord) error {
	rows := make([]snapshotRow, 0, len(records))
	for _, rec := range records {
		doc, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode registration %s: %w", rec.ID, err)
		}
		rows = append(rows, snapshotRow{ID: rec.ID, Doc: doc})
	}
	return s.save(ctx, registrationsTable, rows)
}

func (s *PostgresStore) LoadUsers(ctx context.Context) ([]models.UserRecord, error) {
	rows, err := s.load(ctx, usersTable)
	if err != nil {
		return nil, err
	}
	records := make([]models.UserRecord, 0, len(rows))
	for _, row := range rows {
		var rec models.UserRecord
		if err := json.Unmarshal(row.Doc, &rec); err != nil {
			return nil, fmt.Errorf("decode user %s: %w", row.ID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *PostgresStore) SaveUsers(ctx context.Context, records []models.UserRecord) error {
	rows := make([]snapshotRow, 0, len(records))
	for _, rec := range records {
		doc, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode user %s: %w", rec.ID, err)
		}
		rows = append(rows, snapshotRow{ID: rec.ID, Doc: doc})
	}
	return s.save(ctx, usersTable, rows)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) load(ctx context.Context, table string) ([]snapshotRow, error) {
	var rows []snapshotRow
	query := fmt.Sprintf("SELECT id, doc FROM %s ORDER BY id", table)
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}
	return rows, nil
}

func (s *PostgresStore) save(ctx context.Context, table string, rows []snapshotRow) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save %s: %w", table, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (id, doc) VALUES ($1, $2)", table)
	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, insert, row.ID, row.Doc); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save %s: %w", table, err)
	}
	s.logger.Debug("snapshot saved", zap.String("table", table), zap.Int("rows", len(rows)))
	return nil
}
