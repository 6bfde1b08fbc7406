package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unicampus/registrar-api/internal/models"
	"github.com/unicampus/registrar-api/internal/registry"
	"github.com/unicampus/registrar-api/internal/service"
)

type apiFixture struct {
	router  *gin.Engine
	catalog *registry.CourseRegistry
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalog := registry.NewCourseRegistry()
	ledger := registry.NewRegistrationRegistry(catalog)
	accounts := registry.NewUserRegistry()

	auth := service.NewAuthService(accounts, nil, nil, nil, service.AuthConfig{
		Secret:            "router-test-secret",
		AccessTokenExpiry: time.Hour,
		RefreshExpiry:     time.Hour,
		Issuer:            "registrar-api-test",
	})
	cache := service.NewCacheService(nil, nil, 0, nil, false)
	courses := service.NewCourseService(catalog, cache, nil, nil, nil)
	registrations := service.NewRegistrationService(ledger, catalog, nil, service.RegistrationPolicy{}, nil, nil)
	metrics := service.NewMetricsService(service.RegistrySizes{})
	reports := service.NewReportService(ledger, catalog, metrics, nil)

	router := gin.New()
	RegisterRoutes(router, "/api/v1", Dependencies{
		Auth:           auth,
		Courses:        courses,
		Registrations:  registrations,
		Reports:        reports,
		Metrics:        metrics,
		Logger:         zap.NewNop(),
		ReportsEnabled: true,
	})

	return &apiFixture{router: router, catalog: catalog}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) registerAndLogin(t *testing.T, username, role string) (string, string) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.edu",
		"password": "correct-horse",
		"role":     role,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var envelope struct {
		Data models.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data.AccessToken, envelope.Data.User.StudentNumber
}

func courseBody(id string) map[string]interface{} {
	return map[string]interface{}{
		"id":       id,
		"name":     "Course " + id,
		"credits":  3,
		"capacity": 30,
		"schedule": map[string]interface{}{
			"days": []string{"Monday", "Wednesday"},
			"time": "10:00-11:30",
			"room": "A-101",
		},
	}
}

func TestRouterRequiresAuthentication(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/courses", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterCourseLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	admin, _ := f.registerAndLogin(t, "dean", "ADMINISTRATOR")

	rec := f.do(t, http.MethodPost, "/api/v1/courses", admin, courseBody("CS101"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/v1/courses/CS101", admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/courses", admin, courseBody("CS101"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/courses/CS101", admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/courses", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listEnvelope struct {
		Data []json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listEnvelope))
	assert.Empty(t, listEnvelope.Data)
}

func TestRouterCourseMutationForbiddenForStudents(t *testing.T) {
	f := newAPIFixture(t)
	student, _ := f.registerAndLogin(t, "alice", "STUDENT")

	rec := f.do(t, http.MethodPost, "/api/v1/courses", student, courseBody("CS101"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouterEnrollmentFlow(t *testing.T) {
	f := newAPIFixture(t)
	admin, _ := f.registerAndLogin(t, "dean", "ADMINISTRATOR")
	student, studentNumber := f.registerAndLogin(t, "alice", "STUDENT")

	rec := f.do(t, http.MethodPost, "/api/v1/courses", admin, courseBody("CS101"))
	require.Equal(t, http.StatusCreated, rec.Code)

	// the student id in the payload is ignored for student callers
	rec = f.do(t, http.MethodPost, "/api/v1/registrations", student, map[string]string{
		"student_id": "SOMEONE-ELSE",
		"course_id":  "CS101",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var envelope struct {
		Data models.Registration `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, studentNumber, envelope.Data.StudentID)
	assert.Equal(t, 1, f.catalog.Get("CS101").Enrolled)

	// duplicate active registration
	rec = f.do(t, http.MethodPost, "/api/v1/registrations", student, map[string]string{"course_id": "CS101"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	path := fmt.Sprintf("/api/v1/students/%s/registrations", studentNumber)
	rec = f.do(t, http.MethodGet, path, student, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// students cannot read another student's registrations
	rec = f.do(t, http.MethodGet, "/api/v1/students/STUOTHER1/registrations", student, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/v1/students/STUOTHER1/registrations", admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/registrations/drop", student, map[string]string{"course_id": "CS101"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 0, f.catalog.Get("CS101").Enrolled)
}

func TestRouterReportsAdminOnly(t *testing.T) {
	f := newAPIFixture(t)
	admin, _ := f.registerAndLogin(t, "dean", "ADMINISTRATOR")
	student, _ := f.registerAndLogin(t, "alice", "STUDENT")

	rec := f.do(t, http.MethodGet, "/api/v1/reports/statistics", student, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/reports/statistics", admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/reports/registrations/export?format=csv", admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
}

func TestRouterMetricsEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goroutines_total")
}
