package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-core-api/internal/models"
)

var attendanceRowColumns = []string{"id", "enrollment_id", "student_id", "course_id", "attendance_date", "status", "remarks", "created_at", "updated_at"}

func TestAttendanceRepositoryUpsertIsSingleStatement(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_id, course_id, attendance_date)")).
		WithArgs(sqlmock.AnyArg(), "stu-1", "cs101", day, models.AttendanceStatusLate, nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(attendanceRowColumns).
			AddRow("att-1", "enr-1", "stu-1", "cs101", day, "LATE", nil, now, now))

	record, err := repo.Upsert(context.Background(), "stu-1", "cs101", day, models.AttendanceStatusLate, nil)
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusLate, record.Status)
	assert.Equal(t, "enr-1", record.EnrollmentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpsertWithoutEnrollment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO attendance_records")).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Upsert(context.Background(), "stu-9", "cs101", time.Now(), models.AttendanceStatusPresent, nil)
	assert.ErrorIs(t, err, ErrNotEnrolled)
}

func TestAttendanceRepositoryCountsFor(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE student_id = $1 AND course_id = $2 GROUP BY student_id")).
		WithArgs("stu-1", "cs101").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "present", "absent", "late", "total"}).AddRow("stu-1", 3, 0, 1, 4))

	counts, err := repo.CountsFor(context.Background(), "stu-1", "cs101")
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Present)
	assert.Equal(t, 1, counts.Late)
	assert.Equal(t, 4, counts.Total)
}

func TestAttendanceRepositoryCountsForNoRecords(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY student_id")).
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "present", "absent", "late", "total"}))

	counts, err := repo.CountsFor(context.Background(), "stu-1", "cs101")
	require.NoError(t, err)
	assert.Equal(t, "stu-1", counts.StudentID)
	assert.Zero(t, counts.Total)
}

func TestAttendanceRepositoryCourseCounts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE course_id = $1 GROUP BY student_id ORDER BY student_id")).
		WithArgs("cs101").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "present", "absent", "late", "total"}).
			AddRow("stu-1", 3, 1, 0, 4).
			AddRow("stu-2", 1, 3, 0, 4))

	counts, err := repo.CourseCounts(context.Background(), "cs101")
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, "stu-2", counts[1].StudentID)
}

func TestAttendanceRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	to := time.Date(2026, 10, 31, 0, 0, 0, 0, time.UTC)
	day := time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_records WHERE student_id = $1 AND status IN ($2) AND attendance_date <= $3 ORDER BY attendance_date ASC LIMIT 50 OFFSET 0")).
		WithArgs("stu-1", "ABSENT", to).
		WillReturnRows(sqlmock.NewRows(attendanceRowColumns).AddRow("att-1", "enr-1", "stu-1", "cs101", day, "ABSENT", nil, day, day))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM attendance_records WHERE")).
		WithArgs("stu-1", "ABSENT", to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	records, total, err := repo.List(context.Background(), models.AttendanceFilter{
		StudentID:     "stu-1",
		Statuses:      []models.AttendanceStatus{models.AttendanceStatusAbsent},
		HistoryFilter: models.HistoryFilter{To: &to},
		SortOrder:     "asc",
	})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
