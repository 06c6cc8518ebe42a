package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-api/internal/middleware"
	"github.com/noah-isme/classroom-api/internal/models"
)

// Routes bundles the handlers and guards mounted under the API prefix.
type Routes struct {
	Auth     *AuthHandler
	Students *StudentHandler
	Results  *ResultHandler
	Progress *ProgressHandler
	Rankings *RankingHandler
	Profiles *ProfileHandler
	Catalog  *CatalogHandler
	Exports  *ExportHandler
	Metrics  *MetricsHandler

	// Authenticate and Gate are middleware.JWT and middleware.RequireGate bound to their services.
	Authenticate gin.HandlerFunc
	Gate         gin.HandlerFunc
}

// Register mounts the classroom API on group.
func (r Routes) Register(group *gin.RouterGroup) {
	teacherOnly := middleware.RequireRoles(models.RoleTeacher)
	selfOnly := middleware.RBAC(middleware.Self)
	teacherOrSelf := middleware.TeacherOrSelf()

	group.POST("/auth/login", r.Auth.Login)
	group.POST("/students", r.Students.Register)

	group.GET("/catalog/units", r.Catalog.Units)
	group.GET("/catalog/exams", r.Catalog.Exams)

	// Signed tokens are the credential for downloads.
	group.GET("/exports/:token", r.Exports.Download)

	secured := group.Group("")
	secured.Use(r.Authenticate)
	secured.GET("/auth/me", r.Auth.Me)

	students := secured.Group("/students")
	students.GET("", teacherOnly, r.Students.List)
	students.GET("/:id", teacherOrSelf, r.Students.Get)
	students.PUT("/:id", teacherOnly, r.Students.Update)
	students.DELETE("/:id", teacherOnly, r.Students.Delete)
	students.GET("/:id/profile", teacherOrSelf, r.Profiles.Get)
	students.POST("/:id/results", selfOnly, r.Results.Submit)
	students.GET("/:id/results", teacherOrSelf, r.Results.GradeSheet)
	students.GET("/:id/results/export", teacherOrSelf, r.Exports.GradeSheet)
	students.POST("/:id/progress/toggle", selfOnly, r.Progress.Toggle)
	students.GET("/:id/progress", teacherOrSelf, r.Progress.Status)

	rankings := secured.Group("/rankings")
	rankings.Use(middleware.WithResponseMeta())
	rankings.GET("/:examId", r.Gate, r.Rankings.Leaderboard)
	rankings.POST("/:examId/export", teacherOnly, r.Exports.Leaderboard)

	secured.GET("/ops/metrics", teacherOnly, r.Metrics.Snapshot)
}

// RegisterProbes mounts liveness, readiness and Prometheus scraping at the root.
func (r Routes) RegisterProbes(engine *gin.Engine) {
	engine.GET("/health", r.Metrics.Health)
	engine.GET("/ready", r.Metrics.Ready)
	engine.GET("/metrics", r.Metrics.Prometheus)
}
