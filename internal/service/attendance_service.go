package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-core-api/internal/models"
	"github.com/noah-isme/academic-core-api/pkg/config"
	appErrors "github.com/noah-isme/academic-core-api/pkg/errors"
)

const (
	defaultWarningThreshold  = 75.0
	defaultCriticalThreshold = 50.0
)

type attendanceStore interface {
	Upsert(ctx context.Context, studentID, courseID string, date time.Time, status models.AttendanceStatus, remarks *string) (*models.AttendanceRecord, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
	CountsFor(ctx context.Context, studentID, courseID string) (*models.AttendanceCounts, error)
	CourseCounts(ctx context.Context, courseID string) ([]models.AttendanceCounts, error)
}

// MarkAttendanceRequest records one session for one student. Date accepts
// YYYY-MM-DD or RFC3339 and is reduced to its UTC calendar day.
type MarkAttendanceRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	Date      string  `json:"date" validate:"required"`
	Status    string  `json:"status" validate:"required,attendance_status"`
	Remarks   *string `json:"remarks" validate:"omitempty,max=500"`
}

// BulkAttendanceItem is one student row in a bulk submission.
type BulkAttendanceItem struct {
	StudentID string  `json:"student_id" validate:"required"`
	Status    string  `json:"status" validate:"required,attendance_status"`
	Remarks   *string `json:"remarks" validate:"omitempty,max=500"`
}

// BulkAttendanceRequest marks a whole session in one call.
type BulkAttendanceRequest struct {
	Date  string               `json:"date" validate:"required"`
	Items []BulkAttendanceItem `json:"items" validate:"required,min=1"`
}

// AttendanceService records course attendance and derives percentages and alerts.
type AttendanceService struct {
	repo      attendanceStore
	guard     *Guard
	policy    Policy
	cache     *CacheService
	metrics   *MetricsService
	warning   float64
	critical  float64
	bulkLimit int
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs AttendanceService. Zero thresholds fall
// back to 75 (warning) and 50 (critical).
func NewAttendanceService(repo attendanceStore, guard *Guard, policy Policy, cache *CacheService, metrics *MetricsService, thresholds config.AttendanceConfig, bulkLimit int, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if policy == nil {
		policy = NewCoursePolicy(guard)
	}
	if thresholds.WarningThreshold <= 0 {
		thresholds.WarningThreshold = defaultWarningThreshold
	}
	if thresholds.CriticalThreshold <= 0 {
		thresholds.CriticalThreshold = defaultCriticalThreshold
	}
	if bulkLimit <= 0 {
		bulkLimit = defaultBulkLimit
	}
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		repo:      repo,
		guard:     guard,
		policy:    policy,
		cache:     cache,
		metrics:   metrics,
		warning:   thresholds.WarningThreshold,
		critical:  thresholds.CriticalThreshold,
		bulkLimit: bulkLimit,
		validator: validate,
		logger:    logger,
	}
}

// MarkAttendance upserts the student's status for the day. Marking the same
// day again replaces the earlier status.
func (s *AttendanceService) MarkAttendance(ctx context.Context, actor models.Actor, courseID string, req MarkAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := validateStruct(s.validator, req); err != nil {
		return nil, err
	}
	date, err := parseAttendanceDate(req.Date)
	if err != nil {
		return nil, err
	}
	course, err := s.authorizedCourse(ctx, actor, courseID, req.StudentID)
	if err != nil {
		return nil, err
	}
	record, err := s.mark(ctx, course.ID, date, BulkAttendanceItem{StudentID: req.StudentID, Status: req.Status, Remarks: req.Remarks})
	if err != nil {
		s.logger.Info("attendance mark rejected",
			zap.String("actor_id", actor.ID),
			zap.String("course_id", courseID),
			zap.String("student_id", req.StudentID),
			zap.String("code", errorCode(err)))
		return nil, err
	}
	_ = s.cache.Invalidate(ctx, attendanceKey(course.ID, req.StudentID))
	return record, nil
}

// BulkMarkAttendance applies each item independently for one session date.
func (s *AttendanceService) BulkMarkAttendance(ctx context.Context, actor models.Actor, courseID string, req BulkAttendanceRequest) (*models.BulkResult, error) {
	if err := validateStruct(s.validator, req); err != nil {
		return nil, err
	}
	if len(req.Items) > s.bulkLimit {
		return nil, validationError(fmt.Sprintf("batch exceeds %d items", s.bulkLimit))
	}
	date, err := parseAttendanceDate(req.Date)
	if err != nil {
		return nil, err
	}
	course, err := s.authorizedCourse(ctx, actor, courseID, "")
	if err != nil {
		return nil, err
	}

	result := &models.BulkResult{Items: make([]models.BulkItemResult, 0, len(req.Items))}
	for i, item := range req.Items {
		outcome := models.BulkItemResult{Index: i, StudentID: item.StudentID}
		record, err := s.markItem(ctx, course.ID, date, item)
		if err != nil {
			appErr := appErrors.FromError(err)
			outcome.Code, outcome.Error = appErr.Code, appErr.Message
			s.metrics.RecordBulkFailure("attendance", appErr.Code)
		} else {
			outcome.Success, outcome.Record = true, record
		}
		result.Add(outcome)
	}
	if result.Succeeded > 0 {
		_ = s.cache.Invalidate(ctx, courseAttendancePattern(course.ID))
	}
	s.logger.Info("bulk attendance processed",
		zap.String("actor_id", actor.ID),
		zap.String("course_id", courseID),
		zap.Time("date", date),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))
	return result, nil
}

func (s *AttendanceService) authorizedCourse(ctx context.Context, actor models.Actor, courseID, studentID string) (*models.Course, error) {
	course, err := s.guard.RequireCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(ctx, actor, ActionMarkAttendance, Resource{Course: course, StudentID: studentID}); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *AttendanceService) markItem(ctx context.Context, courseID string, date time.Time, item BulkAttendanceItem) (*models.AttendanceRecord, error) {
	if err := validateStruct(s.validator, item); err != nil {
		return nil, err
	}
	return s.mark(ctx, courseID, date, item)
}

func (s *AttendanceService) mark(ctx context.Context, courseID string, date time.Time, item BulkAttendanceItem) (*models.AttendanceRecord, error) {
	status := models.AttendanceStatus(strings.ToUpper(item.Status))
	record, err := s.repo.Upsert(ctx, item.StudentID, courseID, date, status, item.Remarks)
	if err != nil {
		return nil, translate(err, "failed to record attendance")
	}
	s.metrics.RecordAttendanceMark(string(status))
	return record, nil
}

func parseAttendanceDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, validationError("date must be YYYY-MM-DD or RFC3339")
	}
	return dayOf(t), nil
}

// Summary returns the student's counts, percentage and alert level in the course.
func (s *AttendanceService) Summary(ctx context.Context, studentID, courseID string) (*models.AttendanceSummary, error) {
	if _, err := s.guard.RequireCourse(ctx, courseID); err != nil {
		return nil, err
	}
	if _, err := s.guard.RequireStudent(ctx, studentID); err != nil {
		return nil, err
	}
	summary, err := cached(ctx, s.cache, attendanceKey(courseID, studentID), func() (models.AttendanceSummary, error) {
		counts, err := s.repo.CountsFor(ctx, studentID, courseID)
		if err != nil {
			return models.AttendanceSummary{}, translate(err, "failed to count attendance")
		}
		return s.summarize(courseID, *counts), nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// AttendancePercentage is PRESENT over all records, 0 when none exist.
func (s *AttendanceService) AttendancePercentage(ctx context.Context, studentID, courseID string) (float64, error) {
	summary, err := s.Summary(ctx, studentID, courseID)
	if err != nil {
		return 0, err
	}
	return summary.Percentage, nil
}

// ThresholdAlert reports the advisory alert level for the student.
func (s *AttendanceService) ThresholdAlert(ctx context.Context, studentID, courseID string) (models.AlertLevel, error) {
	summary, err := s.Summary(ctx, studentID, courseID)
	if err != nil {
		return models.AlertNone, err
	}
	return summary.Alert, nil
}

// CourseAlerts lists students in the course whose alert is WARNING or CRITICAL.
func (s *AttendanceService) CourseAlerts(ctx context.Context, courseID string) ([]models.AttendanceSummary, error) {
	if _, err := s.guard.RequireCourse(ctx, courseID); err != nil {
		return nil, err
	}
	counts, err := s.repo.CourseCounts(ctx, courseID)
	if err != nil {
		return nil, translate(err, "failed to count course attendance")
	}
	alerts := make([]models.AttendanceSummary, 0)
	for _, c := range counts {
		summary := s.summarize(courseID, c)
		if summary.Alert != models.AlertNone {
			alerts = append(alerts, summary)
		}
	}
	return alerts, nil
}

// CourseSummaries returns a summary for every student with attendance in the course.
func (s *AttendanceService) CourseSummaries(ctx context.Context, courseID string) (map[string]models.AttendanceSummary, error) {
	counts, err := s.repo.CourseCounts(ctx, courseID)
	if err != nil {
		return nil, translate(err, "failed to count course attendance")
	}
	out := make(map[string]models.AttendanceSummary, len(counts))
	for _, c := range counts {
		out[c.StudentID] = s.summarize(courseID, c)
	}
	return out, nil
}

// List returns attendance records with pagination metadata.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, *models.Pagination, error) {
	statuses := make([]models.AttendanceStatus, 0, len(filter.Statuses))
	for _, st := range filter.Statuses {
		statuses = append(statuses, models.AttendanceStatus(strings.ToUpper(string(st))))
	}
	window, statuses, err := NormalizeHistoryFilter(filter.HistoryFilter, statuses, models.AttendanceStatus.Valid)
	if err != nil {
		return nil, nil, err
	}
	filter.HistoryFilter, filter.Statuses = window, statuses

	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, translate(err, "failed to list attendance")
	}
	return records, pagination(filter.Page, filter.PageSize, 50, 200, total), nil
}

func (s *AttendanceService) summarize(courseID string, c models.AttendanceCounts) models.AttendanceSummary {
	pct := percentage(c.Present, c.Total)
	return models.AttendanceSummary{
		StudentID:  c.StudentID,
		CourseID:   courseID,
		Present:    c.Present,
		Absent:     c.Absent,
		Late:       c.Late,
		Total:      c.Total,
		Percentage: pct,
		Alert:      s.alertFor(pct, c.Total),
	}
}

func (s *AttendanceService) alertFor(pct float64, total int) models.AlertLevel {
	switch {
	case total == 0:
		return models.AlertNone
	case pct < s.critical:
		return models.AlertCritical
	case pct < s.warning:
		return models.AlertWarning
	default:
		return models.AlertNone
	}
}
