package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unicampus/registrar-api/pkg/errors"
)

func newReportFixture(t *testing.T) (*ReportService, *regFixture) {
	t.Helper()
	f := newRegFixture(t, RegistrationPolicy{})
	metrics := NewMetricsService(RegistrySizes{
		Courses:       f.catalog.Len,
		Registrations: f.ledger.Len,
	})
	return NewReportService(f.ledger, f.catalog, metrics, nil), f
}

func TestReportServiceStatistics(t *testing.T) {
	svc, f := newReportFixture(t)
	f.addCourse(t, "CS101", 10, nil, nil, "")

	_, err := f.svc.Enroll(context.Background(), EnrollRequest{StudentID: "S001", CourseID: "CS101"})
	require.NoError(t, err)
	_, err = f.svc.Enroll(context.Background(), EnrollRequest{StudentID: "S002", CourseID: "CS101"})
	require.NoError(t, err)
	_, err = f.svc.Drop(context.Background(), EnrollRequest{StudentID: "S002", CourseID: "CS101"})
	require.NoError(t, err)

	stats := svc.Statistics(context.Background())
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.Dropped)
	assert.InDelta(t, 50.0, stats.EnrollmentRate, 0.001)
}

func TestReportServiceCourseSummary(t *testing.T) {
	svc, f := newReportFixture(t)
	f.addCourse(t, "CS101", 10, nil, nil, "")

	_, err := svc.CourseSummary(context.Background(), "GHOST")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	summary, err := svc.CourseSummary(context.Background(), "CS101")
	require.NoError(t, err)
	assert.Equal(t, "CS101", summary.CourseID)
	assert.Zero(t, summary.RetentionRate)
}

func TestReportServiceExportCSV(t *testing.T) {
	svc, f := newReportFixture(t)
	f.addCourse(t, "CS101", 10, nil, nil, "")
	reg, err := f.svc.Enroll(context.Background(), EnrollRequest{StudentID: "S001", CourseID: "CS101"})
	require.NoError(t, err)
	_, err = f.svc.SetGrade(context.Background(), reg.ID, GradeRequest{Grade: "A"})
	require.NoError(t, err)

	result, err := svc.ExportRegistrations(context.Background(), "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasSuffix(result.FileName, ".csv"))

	body := string(result.Data)
	assert.Contains(t, body, "Registration ID")
	assert.Contains(t, body, "S001")
	assert.Contains(t, body, "Course CS101")
	assert.Contains(t, body, ",A")
}

func TestReportServiceExportPDF(t *testing.T) {
	svc, f := newReportFixture(t)
	f.addCourse(t, "CS101", 10, nil, nil, "")
	_, err := f.svc.Enroll(context.Background(), EnrollRequest{StudentID: "S001", CourseID: "CS101"})
	require.NoError(t, err)

	result, err := svc.ExportRegistrations(context.Background(), "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Data), "%PDF"))
}

func TestReportServiceExportUnknownFormat(t *testing.T) {
	svc, _ := newReportFixture(t)

	_, err := svc.ExportRegistrations(context.Background(), "xlsx")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceSystemMetrics(t *testing.T) {
	svc, _ := newReportFixture(t)

	snapshot := svc.SystemMetrics(context.Background())
	assert.False(t, snapshot.GeneratedAt.IsZero())
	assert.Positive(t, snapshot.Goroutines)
}
