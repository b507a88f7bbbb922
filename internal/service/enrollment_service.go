package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-core-api/internal/models"
	appErrors "github.com/noah-isme/academic-core-api/pkg/errors"
)

type enrollmentStore interface {
	Enroll(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	Drop(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	Complete(ctx context.Context, id, letter string, points float64) (*models.Enrollment, error)
	CountActive(ctx context.Context, courseID string) (int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
}

type cgpaScheduler interface {
	Schedule(studentID string) error
}

// EnrollRequest identifies the pair for enroll and drop.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
}

// FinalGradeRequest carries the letter assigned at course completion.
type FinalGradeRequest struct {
	LetterGrade string `json:"letter_grade" validate:"required,letter_grade"`
}

// EnrollmentService owns the enrollment state machine: ENROLLED may become
// DROPPED or COMPLETED, both terminal.
type EnrollmentService struct {
	repo      enrollmentStore
	guard     *Guard
	policy    Policy
	cgpa      cgpaScheduler
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService. A nil policy falls back to CoursePolicy.
func NewEnrollmentService(repo enrollmentStore, guard *Guard, policy Policy, cgpa cgpaScheduler, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if policy == nil {
		policy = NewCoursePolicy(guard)
	}
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, guard: guard, policy: policy, cgpa: cgpa, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Enroll places the student in the course when it is ACTIVE, the student is
// ACTIVE, no ENROLLED row exists for the pair and a seat is free.
func (s *EnrollmentService) Enroll(ctx context.Context, actor models.Actor, req EnrollRequest) (enrollment *models.Enrollment, err error) {
	defer func() { s.record("enroll", actor, err, pairFields(req)...) }()

	if err := validateStruct(s.validator, req); err != nil {
		return nil, err
	}
	course, err := s.guard.RequireCourse(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(ctx, actor, ActionEnroll, Resource{Course: course, StudentID: req.StudentID}); err != nil {
		return nil, err
	}
	enrollment, err = s.repo.Enroll(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, translate(err, "failed to enroll student")
	}
	return enrollment, nil
}

// Drop moves the pair's ENROLLED row to DROPPED. Grades and attendance are kept.
func (s *EnrollmentService) Drop(ctx context.Context, actor models.Actor, req EnrollRequest) (enrollment *models.Enrollment, err error) {
	defer func() { s.record("drop", actor, err, pairFields(req)...) }()

	if err := validateStruct(s.validator, req); err != nil {
		return nil, err
	}
	course, err := s.guard.RequireCourse(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(ctx, actor, ActionDrop, Resource{Course: course, StudentID: req.StudentID}); err != nil {
		return nil, err
	}
	enrollment, err = s.repo.Drop(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, translate(err, "failed to drop enrollment")
	}
	return enrollment, nil
}

// AssignFinalGrade completes an ENROLLED enrollment with letter and its
// canonical grade points, then schedules a CGPA refresh for the student.
func (s *EnrollmentService) AssignFinalGrade(ctx context.Context, actor models.Actor, enrollmentID string, req FinalGradeRequest) (enrollment *models.Enrollment, err error) {
	defer func() { s.record("final_grade", actor, err, zap.String("enrollment_id", enrollmentID)) }()

	if err := validateStruct(s.validator, req); err != nil {
		return nil, err
	}
	letter, _ := NormalizeLetter(req.LetterGrade)

	current, err := s.repo.FindByID(ctx, enrollmentID)
	if err != nil {
		return nil, translate(err, "failed to load enrollment")
	}
	course, err := s.guard.RequireCourse(ctx, current.CourseID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(ctx, actor, ActionFinalGrade, Resource{Course: course, StudentID: current.StudentID}); err != nil {
		return nil, err
	}

	enrollment, err = s.repo.Complete(ctx, enrollmentID, letter, GradePoints[letter])
	if err != nil {
		return nil, translate(err, "failed to assign final grade")
	}
	_ = s.cache.Invalidate(ctx, studentGradeKey(enrollment.StudentID, "*"))
	if s.cgpa != nil {
		// A refused schedule only delays the stored CGPA; reads compute it live.
		_ = s.cgpa.Schedule(enrollment.StudentID)
	}
	return enrollment, nil
}

// CurrentEnrollmentCount returns the number of ENROLLED rows in the course.
func (s *EnrollmentService) CurrentEnrollmentCount(ctx context.Context, courseID string) (int, error) {
	if _, err := s.guard.RequireCourse(ctx, courseID); err != nil {
		return 0, err
	}
	count, err := s.repo.CountActive(ctx, courseID)
	if err != nil {
		return 0, translate(err, "failed to count enrollments")
	}
	return count, nil
}

// Get returns one enrollment.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to load enrollment")
	}
	return enrollment, nil
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	window, statuses, err := NormalizeHistoryFilter(filter.HistoryFilter, filter.Statuses, models.EnrollmentStatus.Valid)
	if err != nil {
		return nil, nil, err
	}
	filter.HistoryFilter, filter.Statuses = window, statuses

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, translate(err, "failed to list enrollments")
	}
	return items, pagination(filter.Page, filter.PageSize, 20, 100, total), nil
}

func pairFields(req EnrollRequest) []zap.Field {
	return []zap.Field{zap.String("student_id", req.StudentID), zap.String("course_id", req.CourseID)}
}

func (s *EnrollmentService) record(operation string, actor models.Actor, err error, extra ...zap.Field) {
	code := errorCode(err)
	s.metrics.RecordEnrollmentOutcome(operation, code)
	fields := append([]zap.Field{
		zap.String("operation", operation),
		zap.String("actor_id", actor.ID),
		zap.String("actor_role", string(actor.Role)),
		zap.String("code", code),
	}, extra...)
	switch {
	case err == nil:
		s.logger.Info("enrollment mutation applied", fields...)
	case appErrors.IsKind(err, appErrors.KindInternal):
		s.logger.Error("enrollment mutation failed", append(fields, zap.Error(err))...)
	default:
		s.logger.Info("enrollment mutation rejected", fields...)
	}
}

// pagination mirrors the page clamping applied by repositories.
func pagination(page, size, defaultSize, maxSize, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxSize {
		size = defaultSize
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
