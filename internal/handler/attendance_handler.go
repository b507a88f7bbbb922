package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-core-api/internal/models"
	"github.com/noah-isme/academic-core-api/internal/service"
	"github.com/noah-isme/academic-core-api/pkg/response"
)

type attendanceService interface {
	MarkAttendance(ctx context.Context, actor models.Actor, courseID string, req service.MarkAttendanceRequest) (*models.AttendanceRecord, error)
	BulkMarkAttendance(ctx context.Context, actor models.Actor, courseID string, req service.BulkAttendanceRequest) (*models.BulkResult, error)
	Summary(ctx context.Context, studentID, courseID string) (*models.AttendanceSummary, error)
	CourseAlerts(ctx context.Context, courseID string) ([]models.AttendanceSummary, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, *models.Pagination, error)
}

type exportService interface {
	CourseAttendanceSheet(ctx context.Context, courseID, format string) (*service.ExportResult, error)
}

// AttendanceHandler exposes attendance endpoints.
type AttendanceHandler struct {
	attendance attendanceService
	exports    exportService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance attendanceService, exports exportService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, exports: exports}
}

// Mark godoc
// @Summary Mark attendance for one student
// @Description Marking the same student and day again replaces the status.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.MarkAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/attendance [put]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req service.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	record, err := h.attendance.MarkAttendance(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, record)
}

// Bulk godoc
// @Summary Mark a whole session
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.BulkAttendanceRequest true "Session payload"
// @Success 207 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/attendance/bulk [post]
func (h *AttendanceHandler) Bulk(c *gin.Context) {
	var req service.BulkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	result, err := h.attendance.BulkMarkAttendance(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.MultiStatus(c, result)
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param courseId query string false "Filter by course"
// @Param status query string false "Comma separated statuses"
// @Param from query string false "On or after"
// @Param to query string false "On or before"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	window, err := historyFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.AttendanceFilter{
		HistoryFilter: window,
		StudentID:     c.Query("studentId"),
		CourseID:      c.Query("courseId"),
		SortOrder:     c.Query("order"),
	}
	if actor := actorFromContext(c); actor.Role == models.RoleStudent {
		filter.StudentID = actor.ID
	}
	for _, s := range listFromQuery(c, "status") {
		filter.Statuses = append(filter.Statuses, models.AttendanceStatus(s))
	}
	filter.Page, filter.PageSize = pageFromQuery(c)

	records, pagination, err := h.attendance.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Summary godoc
// @Summary Attendance summary for a student in a course
// @Tags Attendance
// @Produce json
// @Param id path string true "Course ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/attendance/students/{studentId} [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	studentID := c.Param("studentId")
	if actor := actorFromContext(c); actor.Role == models.RoleStudent && actor.ID != studentID {
		response.Error(c, errForbiddenSelf)
		return
	}
	summary, err := h.attendance.Summary(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// Alerts godoc
// @Summary Students below the attendance thresholds
// @Tags Attendance
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/attendance/alerts [get]
func (h *AttendanceHandler) Alerts(c *gin.Context) {
	alerts, err := h.attendance.CourseAlerts(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, alerts)
}

// Export godoc
// @Summary Export course attendance sheet
// @Tags Attendance
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Course ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /courses/{id}/attendance/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	result, err := h.exports.CourseAttendanceSheet(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Payload)
}
