package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-core-api/internal/middleware"
	"github.com/noah-isme/academic-core-api/internal/models"
)

// Handlers groups the route handlers mounted under the API prefix.
type Handlers struct {
	Enrollments *EnrollmentHandler
	Grades      *GradeHandler
	Attendance  *AttendanceHandler
}

// Register mounts the academic routes on group behind auth.
func (h Handlers) Register(group *gin.RouterGroup, auth gin.HandlerFunc) {
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty)
	anyone := middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty, models.RoleStudent)

	secured := group.Group("", auth)

	enrollments := secured.Group("/enrollments")
	enrollments.GET("", anyone, h.Enrollments.List)
	enrollments.POST("", anyone, h.Enrollments.Create)
	enrollments.POST("/drop", anyone, h.Enrollments.Drop)
	enrollments.GET("/:id", staff, h.Enrollments.Get)
	enrollments.POST("/:id/final-grade", staff, h.Enrollments.FinalGrade)

	courses := secured.Group("/courses/:id")
	courses.GET("/enrollments/count", anyone, h.Enrollments.Count)
	courses.POST("/grades", staff, h.Grades.Create)
	courses.POST("/grades/bulk", staff, h.Grades.Bulk)
	courses.GET("/grades/stats", staff, h.Grades.Stats)
	courses.PUT("/attendance", staff, h.Attendance.Mark)
	courses.POST("/attendance/bulk", staff, h.Attendance.Bulk)
	courses.GET("/attendance/students/:studentId", anyone, h.Attendance.Summary)
	courses.GET("/attendance/alerts", staff, h.Attendance.Alerts)
	courses.GET("/attendance/export", staff, h.Attendance.Export)

	secured.GET("/grades", anyone, h.Grades.List)
	secured.GET("/attendance", anyone, h.Attendance.List)
	secured.GET("/students/:id/gpa", anyone, h.Grades.GPA)
	secured.GET("/students/:id/cgpa", anyone, h.Grades.CGPA)
}
