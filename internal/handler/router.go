package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sf10-api/internal/middleware"
	"github.com/noah-isme/sf10-api/internal/service"
)

// Handlers groups every route handler for registration.
type Handlers struct {
	Auth     *AuthHandler
	Enrollee *EnrolleeHandler
	Student  *StudentHandler
	Section  *SectionHandler
	Teacher  *TeacherHandler
	Log      *LogHandler
}

// Register mounts the API routes under the prefix. Every route except login
// runs behind the JWT and route-access middlewares.
func Register(r *gin.Engine, prefix string, auth *service.AuthService, h Handlers) {
	api := r.Group(prefix)
	api.Use(middleware.Audit())

	api.POST("/login", h.Auth.Login)
	api.DELETE("/login", middleware.JWT(auth), h.Auth.Logout)

	protected := api.Group("")
	protected.Use(middleware.JWT(auth))
	protected.Use(middleware.RBAC(middleware.DefaultAccessTable(prefix)))

	protected.POST("/enroll", h.Enrollee.Enroll)
	protected.DELETE("/enroll/:lrn", h.Enrollee.Unenroll)

	protected.GET("/students", h.Student.Handled)
	protected.POST("/students", h.Student.Register)
	protected.GET("/students/:id", h.Student.Get)
	protected.PUT("/students/:id", h.Student.Update)
	protected.POST("/students/:id", h.Student.AddRecord)
	protected.PUT("/students/:id/records/:recordId", h.Student.EditRecord)
	protected.POST("/students/:id/grades", h.Student.EncodeGrade)
	protected.DELETE("/students/:id/grades", h.Student.UnencodeGrade)
	protected.GET("/students/:id/downloads/sf10", h.Student.DownloadSF10)
	protected.GET("/students/:id/downloads/reportCard", h.Student.DownloadReportCard)

	protected.GET("/sections", h.Section.List)
	protected.POST("/sections", h.Section.Create)
	protected.GET("/sections/:id", h.Section.Get)
	protected.PUT("/sections/:id", h.Section.Update)
	protected.DELETE("/sections/:id", h.Section.Delete)
	protected.POST("/sections/:id/adviser", h.Section.AssignAdviser)
	protected.DELETE("/sections/:id/adviser", h.Section.UnassignAdviser)
	protected.POST("/sections/:id/teacher", h.Section.AssignSubjectTeacher)
	protected.DELETE("/sections/:id/teacher", h.Section.UnassignSubjectTeacher)
	protected.GET("/sections/:id/downloads/sf1", h.Section.DownloadSF1)
	protected.POST("/sections/:id/:studentId", h.Section.RemoveStudent)

	protected.GET("/teachers", h.Teacher.List)
	protected.POST("/teachers", h.Teacher.Create)
	protected.GET("/teachers/:id", h.Teacher.Get)
	protected.PUT("/teachers/:id", h.Teacher.Update)
	protected.PUT("/teachers/:id/resetpassword", h.Teacher.ResetPassword)

	protected.GET("/logs", h.Log.Recent)
	protected.GET("/logs/:id", h.Log.Own)
}
