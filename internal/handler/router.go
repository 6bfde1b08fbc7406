package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/unicampus/registrar-api/internal/middleware"
	"github.com/unicampus/registrar-api/internal/models"
	"github.com/unicampus/registrar-api/internal/service"
)

// Dependencies bundles everything the route table needs.
type Dependencies struct {
	Auth           *service.AuthService
	Courses        *service.CourseService
	Registrations  *service.RegistrationService
	Reports        *service.ReportService
	Metrics        *service.MetricsService
	Logger         *zap.Logger
	ReportsEnabled bool
}

// RegisterRoutes mounts the API under the given prefix.
func RegisterRoutes(r *gin.Engine, prefix string, deps Dependencies) {
	authHandler := NewAuthHandler(deps.Auth)
	courseHandler := NewCourseHandler(deps.Courses)
	registrationHandler := NewRegistrationHandler(deps.Registrations)

	api := r.Group(prefix)
	api.Use(middleware.Metrics(deps.Metrics))

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/me", middleware.JWT(deps.Auth), authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(deps.Auth))

	adminOnly := middleware.RequireRoles(models.RoleAdministrator)

	courses := protected.Group("/courses")
	{
		courses.GET("", courseHandler.List)
		courses.GET("/conflicts", courseHandler.Conflicts)
		courses.GET("/:id", courseHandler.Get)
		courses.GET("/:id/registrations", adminOnly, registrationHandler.ForCourse)

		courses.POST("", adminOnly, middleware.Audit(deps.Logger, "create", "course"), courseHandler.Create)
		courses.PUT("/:id", adminOnly, middleware.Audit(deps.Logger, "update", "course"), courseHandler.Update)
		courses.PUT("/:id/schedule", adminOnly, middleware.Audit(deps.Logger, "schedule", "course"), courseHandler.SetSchedule)
		courses.DELETE("/:id", adminOnly, middleware.Audit(deps.Logger, "deactivate", "course"), courseHandler.Delete)
	}

	registrations := protected.Group("/registrations")
	{
		registrations.POST("", middleware.Audit(deps.Logger, "enroll", "registration"), registrationHandler.Enroll)
		registrations.POST("/drop", middleware.Audit(deps.Logger, "drop", "registration"), registrationHandler.Drop)
		registrations.POST("/re-enroll", middleware.Audit(deps.Logger, "re-enroll", "registration"), registrationHandler.ReEnroll)
		registrations.GET("/:id", registrationHandler.Get)

		registrations.PUT("/:id/status", adminOnly, middleware.Audit(deps.Logger, "status", "registration"), registrationHandler.SetStatus)
		registrations.PUT("/:id/grade", adminOnly, middleware.Audit(deps.Logger, "grade", "registration"), registrationHandler.SetGrade)
		registrations.POST("/:id/notes", adminOnly, middleware.Audit(deps.Logger, "note", "registration"), registrationHandler.AddNote)
	}

	selfOrAdmin := middleware.RBAC(string(models.RoleAdministrator), middleware.RoleSelf)
	students := protected.Group("/students")
	{
		students.GET("/:studentId/registrations", selfOrAdmin, registrationHandler.ForStudent)
		students.GET("/:studentId/timetable", selfOrAdmin, registrationHandler.Timetable)
	}

	if deps.ReportsEnabled {
		reportHandler := NewReportHandler(deps.Reports)
		reports := protected.Group("/reports", adminOnly)
		{
			reports.GET("/statistics", reportHandler.Statistics)
			reports.GET("/courses/:id", reportHandler.CourseSummary)
			reports.GET("/system", reportHandler.SystemMetrics)
			reports.GET("/registrations/export", reportHandler.Export)
		}
	}

	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
}
