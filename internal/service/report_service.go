package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/unicampus/registrar-api/internal/models"
	appErrors "github.com/unicampus/registrar-api/pkg/errors"
	"github.com/unicampus/registrar-api/pkg/export"
)

// Export formats accepted by the report endpoints.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type registrationReporter interface {
	Statistics() models.RegistrationStatistics
	CourseEnrollmentSummary(courseID string) models.CourseEnrollmentSummary
	Records() []models.RegistrationRecord
}

// ExportResult bundles a rendered document with its transport metadata.
type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ReportService aggregates statistics and renders admin exports.
type ReportService struct {
	registrations registrationReporter
	catalog       catalogReader
	metrics       *MetricsService
	csv           *export.CSVExporter
	pdf           *export.PDFExporter
	logger        *zap.Logger
}

// NewReportService constructs ReportService.
func NewReportService(registrations registrationReporter, catalog catalogReader, metrics *MetricsService, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		registrations: registrations,
		catalog:       catalog,
		metrics:       metrics,
		csv:           export.NewCSVExporter(),
		pdf:           export.NewPDFExporter(),
		logger:        logger,
	}
}

// Statistics returns registry-wide registration counts.
func (s *ReportService) Statistics(_ context.Context) models.RegistrationStatistics {
	return s.registrations.Statistics()
}

// CourseSummary returns per-course enrollment counts.
func (s *ReportService) CourseSummary(_ context.Context, courseID string) (models.CourseEnrollmentSummary, error) {
	if s.catalog.Get(courseID) == nil {
		return models.CourseEnrollmentSummary{}, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return s.registrations.CourseEnrollmentSummary(courseID), nil
}

// SystemMetrics returns a lightweight runtime snapshot.
func (s *ReportService) SystemMetrics(_ context.Context) models.SystemMetrics {
	return s.metrics.Snapshot()
}

// ExportRegistrations renders every registration record as CSV or PDF.
func (s *ReportService) ExportRegistrations(_ context.Context, format string) (*ExportResult, error) {
	dataset := s.registrationDataset()
	stamp := time.Now().UTC().Format("20060102-150405")

	switch strings.ToLower(format) {
	case ExportFormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("registrations-%s.csv", stamp),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case ExportFormatPDF:
		data, err := s.pdf.Render(dataset, "Registration Report")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("registrations-%s.pdf", stamp),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func (s *ReportService) registrationDataset() export.Dataset {
	headers := []string{"Registration ID", "Student ID", "Course ID", "Course Name", "Status", "Enrolled At", "Dropped At", "Grade"}
	records := s.registrations.Records()
	rows := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		courseName := ""
		if course := s.catalog.Get(rec.CourseID); course != nil {
			courseName = course.Name
		}
		row := map[string]string{
			"Registration ID": rec.ID,
			"Student ID":      rec.StudentID,
			"Course ID":       rec.CourseID,
			"Course Name":     courseName,
			"Status":          rec.Status,
			"Enrolled At":     rec.EnrollmentDate,
		}
		if rec.DropDate != nil {
			row["Dropped At"] = *rec.DropDate
		}
		if rec.Grade != nil {
			row["Grade"] = *rec.Grade
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
