package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-core-api/internal/models"
	"github.com/noah-isme/academic-core-api/internal/repository"
	appErrors "github.com/noah-isme/academic-core-api/pkg/errors"
)

const defaultBulkLimit = 500

type gradeStore interface {
	Append(ctx context.Context, grade *models.Grade) error
	List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, int, error)
	CourseAggregate(ctx context.Context, courseID string, passMark float64) (*repository.CourseAggregate, error)
	StudentPoints(ctx context.Context, studentID string, completedOnly bool) (float64, int, error)
}

// EnterGradeRequest records one assessment result. At least one of
// numeric_grade, letter_grade or the points pair is required.
type EnterGradeRequest struct {
	StudentID      string     `json:"student_id" validate:"required"`
	AssessmentType string     `json:"assessment_type" validate:"required,assessment_type"`
	NumericGrade   *float64   `json:"numeric_grade" validate:"omitempty,gte=0,lte=100"`
	LetterGrade    string     `json:"letter_grade" validate:"omitempty,letter_grade"`
	MaxPoints      *float64   `json:"max_points" validate:"omitempty,gt=0"`
	PointsEarned   *float64   `json:"points_earned" validate:"omitempty,gte=0"`
	GradeDate      *time.Time `json:"grade_date"`
	Remarks        *string    `json:"remarks" validate:"omitempty,max=500"`
}

// BulkGradeRequest wraps a batch of grade entries for one course.
type BulkGradeRequest struct {
	Items []EnterGradeRequest `json:"items" validate:"required,min=1"`
}

// GradeService records assessment grades and computes course and student aggregates.
type GradeService struct {
	repo      gradeStore
	guard     *Guard
	policy    Policy
	cache     *CacheService
	metrics   *MetricsService
	bulkLimit int
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeService constructs GradeService.
func NewGradeService(repo gradeStore, guard *Guard, policy Policy, cache *CacheService, metrics *MetricsService, bulkLimit int, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if policy == nil {
		policy = NewCoursePolicy(guard)
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
	return &GradeService{repo: repo, guard: guard, policy: policy, cache: cache, metrics: metrics, bulkLimit: bulkLimit, validator: validate, logger: logger}
}

// EnterGrade stores a new attempt for the student's assessment in courseID.
// The student must hold an ENROLLED enrollment in the course.
func (s *GradeService) EnterGrade(ctx context.Context, actor models.Actor, courseID string, req EnterGradeRequest) (*models.Grade, error) {
	course, err := s.authorizedCourse(ctx, actor, courseID, req.StudentID)
	if err != nil {
		return nil, err
	}
	grade, err := s.enter(ctx, course, req)
	if err != nil {
		s.logger.Info("grade entry rejected",
			zap.String("actor_id", actor.ID),
			zap.String("course_id", courseID),
			zap.String("student_id", req.StudentID),
			zap.String("code", errorCode(err)))
		return nil, err
	}
	return grade, nil
}

// BulkEnterGrades applies each item independently. Course-level failures
// (unknown course, not authorized, oversized batch) reject the whole batch.
func (s *GradeService) BulkEnterGrades(ctx context.Context, actor models.Actor, courseID string, req BulkGradeRequest) (*models.BulkResult, error) {
	if err := validateStruct(s.validator, req); err != nil {
		return nil, err
	}
	if len(req.Items) > s.bulkLimit {
		return nil, validationError(fmt.Sprintf("batch exceeds %d items", s.bulkLimit))
	}
	course, err := s.authorizedCourse(ctx, actor, courseID, "")
	if err != nil {
		return nil, err
	}

	result := &models.BulkResult{Items: make([]models.BulkItemResult, 0, len(req.Items))}
	for i, item := range req.Items {
		outcome := models.BulkItemResult{Index: i, StudentID: item.StudentID}
		grade, err := s.enter(ctx, course, item)
		if err != nil {
			appErr := appErrors.FromError(err)
			outcome.Code, outcome.Error = appErr.Code, appErr.Message
			s.metrics.RecordBulkFailure("grades", appErr.Code)
		} else {
			outcome.Success, outcome.Record = true, grade
		}
		result.Add(outcome)
	}
	s.logger.Info("bulk grade entry processed",
		zap.String("actor_id", actor.ID),
		zap.String("course_id", courseID),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))
	return result, nil
}

func (s *GradeService) authorizedCourse(ctx context.Context, actor models.Actor, courseID, studentID string) (*models.Course, error) {
	course, err := s.guard.RequireCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(ctx, actor, ActionEnterGrade, Resource{Course: course, StudentID: studentID}); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *GradeService) enter(ctx context.Context, course *models.Course, req EnterGradeRequest) (*models.Grade, error) {
	if err := validateStruct(s.validator, req); err != nil {
		return nil, err
	}
	grade, err := deriveGrade(req)
	if err != nil {
		return nil, err
	}
	grade.CourseID = course.ID

	if err := s.repo.Append(ctx, grade); err != nil {
		return nil, translate(err, "failed to record grade")
	}
	s.metrics.RecordGradeEntry(string(grade.AssessmentType), grade.LetterGrade)
	_ = s.cache.Invalidate(ctx, courseGradeKey(course.ID, "*"), studentGradeKey(grade.StudentID, "*"))
	return grade, nil
}

// deriveGrade resolves numeric score, letter and grade points from the
// request. An explicit letter wins over the one derived from the score.
func deriveGrade(req EnterGradeRequest) (*models.Grade, error) {
	grade := &models.Grade{
		StudentID:      req.StudentID,
		AssessmentType: models.AssessmentType(strings.ToUpper(req.AssessmentType)),
		MaxPoints:      req.MaxPoints,
		PointsEarned:   req.PointsEarned,
		Remarks:        req.Remarks,
	}
	if req.GradeDate != nil {
		grade.GradeDate = req.GradeDate.UTC()
	}

	if (req.MaxPoints == nil) != (req.PointsEarned == nil) {
		return nil, validationError("max_points and points_earned must be provided together")
	}
	if req.MaxPoints != nil && *req.PointsEarned > *req.MaxPoints {
		return nil, validationError("points_earned exceeds max_points")
	}

	numeric := req.NumericGrade
	if numeric == nil && req.MaxPoints != nil {
		score := round2(*req.PointsEarned / *req.MaxPoints * 100)
		numeric = &score
	}
	grade.NumericGrade = numeric

	switch {
	case req.LetterGrade != "":
		grade.LetterGrade, _ = NormalizeLetter(req.LetterGrade)
	case numeric != nil:
		grade.LetterGrade = LetterFromScore(*numeric)
	default:
		return nil, validationError("numeric_grade, letter_grade or points are required")
	}
	grade.GradePoints = GradePoints[grade.LetterGrade]
	return grade, nil
}

// CourseStats returns average, pass rate and counts over the course's numeric grades.
func (s *GradeService) CourseStats(ctx context.Context, courseID string) (*models.CourseGradeStats, error) {
	if _, err := s.guard.RequireCourse(ctx, courseID); err != nil {
		return nil, err
	}
	stats, err := cached(ctx, s.cache, courseGradeKey(courseID, "stats"), func() (models.CourseGradeStats, error) {
		agg, err := s.repo.CourseAggregate(ctx, courseID, PassMark)
		if err != nil {
			return models.CourseGradeStats{}, translate(err, "failed to aggregate course grades")
		}
		return models.CourseGradeStats{
			CourseID:    courseID,
			Average:     round2(agg.Average),
			PassRate:    percentage(agg.Passed, agg.Graded),
			GradedCount: agg.Graded,
			PassedCount: agg.Passed,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// CourseAverage is the mean numeric grade for the course, 0 when none exist.
func (s *GradeService) CourseAverage(ctx context.Context, courseID string) (float64, error) {
	stats, err := s.CourseStats(ctx, courseID)
	if err != nil {
		return 0, err
	}
	return stats.Average, nil
}

// PassRate is the percentage of graded entries scoring at least PassMark.
func (s *GradeService) PassRate(ctx context.Context, courseID string) (float64, error) {
	stats, err := s.CourseStats(ctx, courseID)
	if err != nil {
		return 0, err
	}
	return stats.PassRate, nil
}

// StudentGPA averages grade points over every grade the student holds.
func (s *GradeService) StudentGPA(ctx context.Context, studentID string) (*models.StudentGradePoints, error) {
	return s.studentPoints(ctx, studentID, "gpa", false)
}

// StudentCGPA averages grade points over grades from completed enrollments.
func (s *GradeService) StudentCGPA(ctx context.Context, studentID string) (*models.StudentGradePoints, error) {
	return s.studentPoints(ctx, studentID, "cgpa", true)
}

func (s *GradeService) studentPoints(ctx context.Context, studentID, metric string, completedOnly bool) (*models.StudentGradePoints, error) {
	if _, err := s.guard.RequireStudent(ctx, studentID); err != nil {
		return nil, err
	}
	points, err := cached(ctx, s.cache, studentGradeKey(studentID, metric), func() (models.StudentGradePoints, error) {
		value, entries, err := s.repo.StudentPoints(ctx, studentID, completedOnly)
		if err != nil {
			return models.StudentGradePoints{}, translate(err, "failed to aggregate grade points")
		}
		return models.StudentGradePoints{StudentID: studentID, Value: round2(value), Entries: entries}, nil
	})
	if err != nil {
		return nil, err
	}
	return &points, nil
}

// List returns grade entries with pagination metadata.
func (s *GradeService) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, *models.Pagination, error) {
	var types []models.AssessmentType
	if filter.AssessmentType != "" {
		types = append(types, models.AssessmentType(strings.ToUpper(string(filter.AssessmentType))))
	}
	window, types, err := NormalizeHistoryFilter(filter.HistoryFilter, types, models.AssessmentType.Valid)
	if err != nil {
		return nil, nil, err
	}
	filter.HistoryFilter = window
	if len(types) == 1 {
		filter.AssessmentType = types[0]
	}

	grades, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, translate(err, "failed to list grades")
	}
	return grades, pagination(filter.Page, filter.PageSize, 50, 200, total), nil
}
