package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-core-api/internal/models"
	"github.com/noah-isme/academic-core-api/internal/service"
	"github.com/noah-isme/academic-core-api/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, actor models.Actor, req service.EnrollRequest) (*models.Enrollment, error)
	Drop(ctx context.Context, actor models.Actor, req service.EnrollRequest) (*models.Enrollment, error)
	AssignFinalGrade(ctx context.Context, actor models.Actor, enrollmentID string, req service.FinalGradeRequest) (*models.Enrollment, error)
	CurrentEnrollmentCount(ctx context.Context, courseID string) (int, error)
	Get(ctx context.Context, id string) (*models.Enrollment, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error)
}

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param courseId query string false "Filter by course"
// @Param status query string false "Comma separated statuses"
// @Param from query string false "Enrolled on or after (YYYY-MM-DD)"
// @Param to query string false "Enrolled on or before (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	window, err := historyFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.EnrollmentFilter{
		HistoryFilter: window,
		StudentID:     c.Query("studentId"),
		CourseID:      c.Query("courseId"),
		SortOrder:     c.Query("order"),
	}
	if actor := actorFromContext(c); actor.Role == models.RoleStudent {
		filter.StudentID = actor.ID
	}
	for _, s := range listFromQuery(c, "status") {
		filter.Statuses = append(filter.Statuses, models.EnrollmentStatus(s))
	}
	filter.Page, filter.PageSize = pageFromQuery(c)

	items, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	enrollment, err := h.enrollments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, enrollment)
}

// Create godoc
// @Summary Enroll student in course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Drop godoc
// @Summary Drop enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.EnrollRequest true "Student and course"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/drop [post]
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	enrollment, err := h.enrollments.Drop(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, enrollment)
}

// FinalGrade godoc
// @Summary Assign final grade and complete enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body service.FinalGradeRequest true "Final letter grade"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/{id}/final-grade [post]
func (h *EnrollmentHandler) FinalGrade(c *gin.Context) {
	var req service.FinalGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	enrollment, err := h.enrollments.AssignFinalGrade(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, enrollment)
}

// Count godoc
// @Summary Current enrollment count
// @Tags Enrollments
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/enrollments/count [get]
func (h *EnrollmentHandler) Count(c *gin.Context) {
	count, err := h.enrollments.CurrentEnrollmentCount(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"course_id": c.Param("id"), "enrolled": count})
}
