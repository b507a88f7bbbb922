package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-core-api/internal/models"
	"github.com/noah-isme/academic-core-api/internal/service"
	"github.com/noah-isme/academic-core-api/pkg/response"
)

type gradeService interface {
	EnterGrade(ctx context.Context, actor models.Actor, courseID string, req service.EnterGradeRequest) (*models.Grade, error)
	BulkEnterGrades(ctx context.Context, actor models.Actor, courseID string, req service.BulkGradeRequest) (*models.BulkResult, error)
	CourseStats(ctx context.Context, courseID string) (*models.CourseGradeStats, error)
	StudentGPA(ctx context.Context, studentID string) (*models.StudentGradePoints, error)
	StudentCGPA(ctx context.Context, studentID string) (*models.StudentGradePoints, error)
	List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, *models.Pagination, error)
}

// GradeHandler exposes grade entry and aggregate endpoints.
type GradeHandler struct {
	grades gradeService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades gradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// Create godoc
// @Summary Enter an assessment grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.EnterGradeRequest true "Grade payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/grades [post]
func (h *GradeHandler) Create(c *gin.Context) {
	var req service.EnterGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	grade, err := h.grades.EnterGrade(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grade)
}

// Bulk godoc
// @Summary Enter grades in bulk
// @Description Items are applied independently; the response lists each outcome.
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.BulkGradeRequest true "Grade items"
// @Success 207 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/grades/bulk [post]
func (h *GradeHandler) Bulk(c *gin.Context) {
	var req service.BulkGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	result, err := h.grades.BulkEnterGrades(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.MultiStatus(c, result)
}

// List godoc
// @Summary List grades
// @Tags Grades
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param courseId query string false "Filter by course"
// @Param assessmentType query string false "QUIZ, ASSIGNMENT, MIDTERM, FINAL, PROJECT or LAB"
// @Param from query string false "Graded on or after"
// @Param to query string false "Graded on or before"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /grades [get]
func (h *GradeHandler) List(c *gin.Context) {
	window, err := historyFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.GradeFilter{
		HistoryFilter:  window,
		StudentID:      c.Query("studentId"),
		CourseID:       c.Query("courseId"),
		AssessmentType: models.AssessmentType(strings.ToUpper(c.Query("assessmentType"))),
		SortOrder:      c.Query("order"),
	}
	if actor := actorFromContext(c); actor.Role == models.RoleStudent {
		filter.StudentID = actor.ID
	}
	filter.Page, filter.PageSize = pageFromQuery(c)

	grades, pagination, err := h.grades.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, pagination)
}

// Stats godoc
// @Summary Course grade statistics
// @Tags Grades
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/grades/stats [get]
func (h *GradeHandler) Stats(c *gin.Context) {
	stats, err := h.grades.CourseStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// GPA godoc
// @Summary Student GPA across all grades
// @Tags Grades
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id}/gpa [get]
func (h *GradeHandler) GPA(c *gin.Context) {
	if !h.allowStudentRead(c) {
		return
	}
	points, err := h.grades.StudentGPA(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, points)
}

// CGPA godoc
// @Summary Student CGPA over completed enrollments
// @Tags Grades
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{id}/cgpa [get]
func (h *GradeHandler) CGPA(c *gin.Context) {
	if !h.allowStudentRead(c) {
		return
	}
	points, err := h.grades.StudentCGPA(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, points)
}

// allowStudentRead restricts students to their own aggregates.
func (h *GradeHandler) allowStudentRead(c *gin.Context) bool {
	actor := actorFromContext(c)
	if actor.Role == models.RoleStudent && actor.ID != c.Param("id") {
		response.Error(c, errForbiddenSelf)
		return false
	}
	return true
}
