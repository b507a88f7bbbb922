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

const attendanceColumns = `id, enrollment_id, student_id, course_id, attendance_date, status, remarks, created_at, updated_at`

// AttendanceRepository persists per-session course attendance.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert records status for the student on date. The enrollment lookup and
// the write are one statement: no enrollment (in any status) yields
// ErrNotEnrolled, and a second mark for the same day overwrites the first.
func (r *AttendanceRepository) Upsert(ctx context.Context, studentID, courseID string, date time.Time, status models.AttendanceStatus, remarks *string) (*models.AttendanceRecord, error) {
	query := `INSERT INTO attendance_records (id, enrollment_id, student_id, course_id, attendance_date, status, remarks, created_at, updated_at)
        SELECT $1, e.id, e.student_id, e.course_id, $4, $5, $6, $7, $7
        FROM enrollments e
        WHERE e.student_id = $2 AND e.course_id = $3
        ORDER BY (e.status = 'ENROLLED') DESC, e.enrollment_date DESC
        LIMIT 1
        ON CONFLICT (student_id, course_id, attendance_date)
        DO UPDATE SET status = EXCLUDED.status, remarks = EXCLUDED.remarks, updated_at = EXCLUDED.updated_at
        RETURNING ` + attendanceColumns
	now := time.Now().UTC()
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, uuid.NewString(), studentID, courseID, date, status, remarks, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotEnrolled
		}
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return &record, nil
}

// List returns attendance records filtered by the provided criteria.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	var w whereBuilder
	w.eq("student_id", filter.StudentID)
	w.eq("course_id", filter.CourseID)
	w.in("status", stringsOf(filter.Statuses))
	w.history("attendance_date", filter.HistoryFilter)
	clause := w.clause()

	_, size, offset := paginate(filter.Page, filter.PageSize, 50, 200)
	order := sortOrder(filter.SortOrder, "DESC")
	query := fmt.Sprintf(`SELECT %s FROM attendance_records%s ORDER BY attendance_date %s LIMIT %d OFFSET %d`,
		attendanceColumns, clause, order, size, offset)

	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, w.args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM attendance_records"+clause, w.args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return records, total, nil
}

const countsSelect = `SELECT student_id,
        COUNT(*) FILTER (WHERE status = 'PRESENT') AS present,
        COUNT(*) FILTER (WHERE status = 'ABSENT') AS absent,
        COUNT(*) FILTER (WHERE status = 'LATE') AS late,
        COUNT(*) AS total
        FROM attendance_records`

// CountsFor tallies a student's attendance in one course.
func (r *AttendanceRepository) CountsFor(ctx context.Context, studentID, courseID string) (*models.AttendanceCounts, error) {
	query := countsSelect + ` WHERE student_id = $1 AND course_id = $2 GROUP BY student_id`
	var counts models.AttendanceCounts
	if err := r.db.GetContext(ctx, &counts, query, studentID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.AttendanceCounts{StudentID: studentID}, nil
		}
		return nil, fmt.Errorf("count student attendance: %w", err)
	}
	return &counts, nil
}

// CourseCounts tallies attendance per student for a course.
func (r *AttendanceRepository) CourseCounts(ctx context.Context, courseID string) ([]models.AttendanceCounts, error) {
	query := countsSelect + ` WHERE course_id = $1 GROUP BY student_id ORDER BY student_id`
	var counts []models.AttendanceCounts
	if err := r.db.SelectContext(ctx, &counts, query, courseID); err != nil {
		return nil, fmt.Errorf("count course attendance: %w", err)
	}
	return counts, nil
}
