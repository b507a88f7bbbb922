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

const gradeColumns = `id, enrollment_id, student_id, course_id, assessment_type, attempt, numeric_grade, letter_grade,
        grade_points, max_points, points_earned, grade_date, remarks, created_at, updated_at`

// GradeRepository handles persistence for assessment grades.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs a grade repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// Append stores grade as the next attempt for its (student, course,
// assessment type). The ENROLLED enrollment row is locked first, so a
// concurrent drop or completion either precedes the insert and fails it or
// waits until the grade is committed. A pair with no enrollment at all
// yields ErrNotEnrolled; one whose enrollment was dropped or completed
// yields ErrInvalidTransition.
func (r *GradeRepository) Append(ctx context.Context, grade *models.Grade) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin grade tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const lockQuery = `SELECT id FROM enrollments WHERE student_id = $1 AND course_id = $2 AND status = $3 FOR UPDATE`
	var enrollmentID string
	if err := tx.GetContext(ctx, &enrollmentID, lockQuery, grade.StudentID, grade.CourseID, models.EnrollmentStatusEnrolled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.closedEnrollment(ctx, tx, grade.StudentID, grade.CourseID)
		}
		return fmt.Errorf("lock enrollment: %w", err)
	}

	const attemptQuery = `SELECT COALESCE(MAX(attempt), 0) + 1 FROM grades WHERE student_id = $1 AND course_id = $2 AND assessment_type = $3`
	var attempt int
	if err := tx.GetContext(ctx, &attempt, attemptQuery, grade.StudentID, grade.CourseID, grade.AssessmentType); err != nil {
		return fmt.Errorf("next grade attempt: %w", err)
	}

	now := time.Now().UTC()
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	if grade.GradeDate.IsZero() {
		grade.GradeDate = now
	}
	grade.EnrollmentID = enrollmentID
	grade.Attempt = attempt
	grade.CreatedAt = now
	grade.UpdatedAt = now

	const insert = `INSERT INTO grades (id, enrollment_id, student_id, course_id, assessment_type, attempt, numeric_grade,
        letter_grade, grade_points, max_points, points_earned, grade_date, remarks, created_at, updated_at)
        VALUES (:id, :enrollment_id, :student_id, :course_id, :assessment_type, :attempt, :numeric_grade,
        :letter_grade, :grade_points, :max_points, :points_earned, :grade_date, :remarks, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, grade); err != nil {
		return fmt.Errorf("insert grade: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit grade tx: %w", err)
	}
	return nil
}

func (r *GradeRepository) closedEnrollment(ctx context.Context, tx *sqlx.Tx, studentID, courseID string) error {
	const query = `SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2)`
	var exists bool
	if err := tx.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		return fmt.Errorf("check enrollment history: %w", err)
	}
	if exists {
		return ErrInvalidTransition
	}
	return ErrNotEnrolled
}

// List returns grades matching filter with the total count.
func (r *GradeRepository) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, int, error) {
	var w whereBuilder
	w.eq("student_id", filter.StudentID)
	w.eq("course_id", filter.CourseID)
	w.eq("assessment_type", string(filter.AssessmentType))
	w.history("grade_date", filter.HistoryFilter)
	clause := w.clause()

	_, size, offset := paginate(filter.Page, filter.PageSize, 50, 200)
	order := sortOrder(filter.SortOrder, "DESC")
	query := fmt.Sprintf(`SELECT %s FROM grades%s ORDER BY grade_date %s, attempt %s LIMIT %d OFFSET %d`,
		gradeColumns, clause, order, order, size, offset)

	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, w.args...); err != nil {
		return nil, 0, fmt.Errorf("list grades: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM grades"+clause, w.args...); err != nil {
		return nil, 0, fmt.Errorf("count grades: %w", err)
	}
	return grades, total, nil
}

// CourseAggregate is the raw numeric-grade aggregate for a course.
type CourseAggregate struct {
	Graded  int     `db:"graded"`
	Passed  int     `db:"passed"`
	Average float64 `db:"average"`
}

// CourseAggregate computes count, pass count and mean of the non-null
// numeric grades of a course. passMark is inclusive.
func (r *GradeRepository) CourseAggregate(ctx context.Context, courseID string, passMark float64) (*CourseAggregate, error) {
	const query = `SELECT COUNT(numeric_grade) AS graded,
        COUNT(*) FILTER (WHERE numeric_grade >= $2) AS passed,
        COALESCE(AVG(numeric_grade), 0) AS average
        FROM grades WHERE course_id = $1`
	var agg CourseAggregate
	if err := r.db.GetContext(ctx, &agg, query, courseID, passMark); err != nil {
		return nil, fmt.Errorf("aggregate course grades: %w", err)
	}
	return &agg, nil
}

// StudentPoints averages grade points across a student's grade rows. With
// completedOnly the rows are limited to COMPLETED enrollments.
func (r *GradeRepository) StudentPoints(ctx context.Context, studentID string, completedOnly bool) (float64, int, error) {
	query := `SELECT COUNT(*) AS entries, COALESCE(AVG(g.grade_points), 0) AS value FROM grades g`
	args := []interface{}{studentID}
	if completedOnly {
		query += ` JOIN enrollments e ON e.id = g.enrollment_id AND e.status = $2`
		args = append(args, models.EnrollmentStatusCompleted)
	}
	query += ` WHERE g.student_id = $1`

	var row struct {
		Entries int     `db:"entries"`
		Value   float64 `db:"value"`
	}
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return 0, 0, fmt.Errorf("aggregate student grade points: %w", err)
	}
	return row.Value, row.Entries, nil
}
