package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-core-api/internal/models"
)

const enrollmentColumns = `id, student_id, course_id, status, enrollment_date, dropped_at, completed_at, final_grade, grade_points, updated_at`

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Enroll creates an ENROLLED row for the pair. The course row is locked for
// the whole transaction so concurrent enrollers of one course are serialised
// and the capacity check cannot be raced.
func (r *EnrollmentRepository) Enroll(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin enroll tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var course struct {
		ID       string              `db:"id"`
		Status   models.CourseStatus `db:"status"`
		Capacity int                 `db:"capacity"`
	}
	if err := tx.GetContext(ctx, &course, `SELECT id, status, capacity FROM courses WHERE id = $1 FOR UPDATE`, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("lock course: %w", err)
	}
	if course.Status != models.CourseStatusActive {
		return nil, ErrCourseInactive
	}

	var studentStatus models.StudentStatus
	if err := tx.GetContext(ctx, &studentStatus, `SELECT status FROM students WHERE id = $1 FOR SHARE`, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("read student: %w", err)
	}
	if studentStatus != models.StudentStatusActive {
		return nil, ErrStudentInactive
	}

	var counts struct {
		Mine  int `db:"mine"`
		Total int `db:"total"`
	}
	const countQuery = `SELECT COUNT(*) FILTER (WHERE student_id = $2) AS mine, COUNT(*) AS total
        FROM enrollments WHERE course_id = $1 AND status = $3`
	if err := tx.GetContext(ctx, &counts, countQuery, courseID, studentID, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("count enrollments: %w", err)
	}
	if counts.Mine > 0 {
		return nil, ErrDuplicateEnrollment
	}
	if counts.Total >= course.Capacity {
		return nil, ErrCapacityExceeded
	}

	now := time.Now().UTC()
	enrollment := &models.Enrollment{
		ID:             uuid.NewString(),
		StudentID:      studentID,
		CourseID:       courseID,
		Status:         models.EnrollmentStatusEnrolled,
		EnrollmentDate: now,
		UpdatedAt:      now,
	}
	const insert = `INSERT INTO enrollments (id, student_id, course_id, status, enrollment_date, updated_at)
        VALUES (:id, :student_id, :course_id, :status, :enrollment_date, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, enrollment); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEnrollment
		}
		return nil, fmt.Errorf("insert enrollment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit enroll tx: %w", err)
	}
	return enrollment, nil
}

// Drop transitions the pair's ENROLLED row to DROPPED.
func (r *EnrollmentRepository) Drop(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	now := time.Now().UTC()
	query := `UPDATE enrollments SET status = $4, dropped_at = $5, updated_at = $5
        WHERE student_id = $1 AND course_id = $2 AND status = $3
        RETURNING ` + enrollmentColumns
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, courseID, models.EnrollmentStatusEnrolled, models.EnrollmentStatusDropped, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotEnrolled
		}
		return nil, fmt.Errorf("drop enrollment: %w", err)
	}
	return &enrollment, nil
}

// Complete records the final grade and moves an ENROLLED row to COMPLETED.
func (r *EnrollmentRepository) Complete(ctx context.Context, id, letter string, points float64) (*models.Enrollment, error) {
	now := time.Now().UTC()
	query := `UPDATE enrollments SET status = $3, final_grade = $4, grade_points = $5, completed_at = $6, updated_at = $6
        WHERE id = $1 AND status = $2
        RETURNING ` + enrollmentColumns
	var enrollment models.Enrollment
	err := r.db.GetContext(ctx, &enrollment, query, id, models.EnrollmentStatusEnrolled, models.EnrollmentStatusCompleted, letter, points, now)
	if err == nil {
		return &enrollment, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("complete enrollment: %w", err)
	}
	if _, findErr := r.FindByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, ErrInvalidTransition
}

// CountActive returns the number of ENROLLED rows in a course.
func (r *EnrollmentRepository) CountActive(ctx context.Context, courseID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = $2`
	var total int
	if err := r.db.GetContext(ctx, &total, query, courseID, models.EnrollmentStatusEnrolled); err != nil {
		return 0, fmt.Errorf("count active enrollments: %w", err)
	}
	return total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// FindLatestByPair returns the most recent enrollment for the pair whose
// status is one of statuses; any status when statuses is empty.
func (r *EnrollmentRepository) FindLatestByPair(ctx context.Context, studentID, courseID string, statuses []models.EnrollmentStatus) (*models.Enrollment, error) {
	var w whereBuilder
	w.eq("student_id", studentID)
	w.eq("course_id", courseID)
	w.in("status", stringsOf(statuses))
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments` + w.clause() + ` ORDER BY enrollment_date DESC LIMIT 1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, w.args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotEnrolled
		}
		return nil, fmt.Errorf("find enrollment by pair: %w", err)
	}
	return &enrollment, nil
}

// ListActiveByCourse returns ENROLLED students of a course ordered by name.
func (r *EnrollmentRepository) ListActiveByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.course_id, e.status, e.enrollment_date, e.dropped_at, e.completed_at,
        e.final_grade, e.grade_points, e.updated_at,
        s.full_name AS student_name, s.student_number AS student_number, c.code AS course_code, c.title AS course_title
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        WHERE e.course_id = $1 AND e.status = $2
        ORDER BY s.full_name ASC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, courseID, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("list course enrollments: %w", err)
	}
	return enrollments, nil
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN students s ON s.id = e.student_id
LEFT JOIN courses c ON c.id = e.course_id`
	var w whereBuilder
	w.eq("e.student_id", filter.StudentID)
	w.eq("e.course_id", filter.CourseID)
	w.in("e.status", stringsOf(filter.Statuses))
	w.history("e.enrollment_date", filter.HistoryFilter)
	clause := w.clause()

	_, size, offset := paginate(filter.Page, filter.PageSize, 20, 100)
	order := sortOrder(filter.SortOrder, "DESC")

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.course_id, e.status, e.enrollment_date, e.dropped_at, e.completed_at,
        e.final_grade, e.grade_points, e.updated_at,
        COALESCE(s.full_name, '') AS student_name, COALESCE(s.student_number, '') AS student_number,
        COALESCE(c.code, '') AS course_code, COALESCE(c.title, '') AS course_title
        %s ORDER BY e.enrollment_date %s LIMIT %d OFFSET %d`, base+clause, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, w.args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, w.args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}
