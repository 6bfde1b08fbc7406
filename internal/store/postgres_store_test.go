package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unicampus/registrar-api/internal/models"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	for range []string{coursesTable, registrationsTable, usersTable} {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	db := sqlx.NewDb(mockDB, "sqlmock")
	s, err := NewPostgresStore(db, nil)
	require.NoError(t, err)
	return s, mock
}

func TestPostgresStoreLoadCourses(t *testing.T) {
	s, mock := newMockStore(t)

	rec := testCourseRecord(t, "CS101")
	doc, err := json.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, doc FROM course_snapshots").
		WillReturnRows(sqlmock.NewRows([]string{"id", "doc"}).AddRow("CS101", doc))

	got, err := s.LoadCourses(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec, got[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreLoadCoursesCorruptDocument(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, doc FROM course_snapshots").
		WillReturnRows(sqlmock.NewRows([]string{"id", "doc"}).AddRow("CS101", []byte("{broken")))

	_, err := s.LoadCourses(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode course CS101")
}

func TestPostgresStoreSaveRegistrationsReplacesTable(t *testing.T) {
	s, mock := newMockStore(t)

	reg, err := models.NewRegistration("S001", "CS101")
	require.NoError(t, err)
	rec := reg.Record()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM registration_snapshots").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO registration_snapshots").
		WithArgs(rec.ID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.SaveRegistrations(context.Background(), []models.RegistrationRecord{rec}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreSaveEmptyCollectionClearsTable(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM user_snapshots").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	require.NoError(t, s.SaveUsers(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreSaveRollsBackOnInsertFailure(t *testing.T) {
	s, mock := newMockStore(t)

	rec := testCourseRecord(t, "CS101")

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM course_snapshots").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO course_snapshots").
		WithArgs(rec.ID, sqlmock.AnyArg()).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := s.SaveCourses(context.Background(), []models.CourseRecord{rec})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
