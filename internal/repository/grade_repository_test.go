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

func TestGradeRepositoryAppendAssignsNextAttempt(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM enrollments WHERE student_id = $1 AND course_id = $2 AND status = $3 FOR UPDATE")).
		WithArgs("stu-1", "cs101", models.EnrollmentStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("enr-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(attempt), 0) + 1 FROM grades")).
		WithArgs("stu-1", "cs101", models.AssessmentQuiz).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grades")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	score := 95.0
	grade := &models.Grade{StudentID: "stu-1", CourseID: "cs101", AssessmentType: models.AssessmentQuiz, NumericGrade: &score, LetterGrade: "A", GradePoints: 9}
	require.NoError(t, repo.Append(context.Background(), grade))
	assert.Equal(t, 2, grade.Attempt)
	assert.Equal(t, "enr-1", grade.EnrollmentID)
	assert.NotEmpty(t, grade.ID)
	assert.False(t, grade.GradeDate.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryAppendRequiresEnrolled(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments WHERE student_id = $1")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2)")).
		WithArgs("stu-1", "cs101").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	err := repo.Append(context.Background(), &models.Grade{StudentID: "stu-1", CourseID: "cs101", AssessmentType: models.AssessmentQuiz})
	assert.ErrorIs(t, err, ErrNotEnrolled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryAppendDroppedIsInvalidTransition(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments WHERE student_id = $1")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("stu-1", "cs101").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.Append(context.Background(), &models.Grade{StudentID: "stu-1", CourseID: "cs101", AssessmentType: models.AssessmentQuiz})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryCourseAggregate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) FILTER (WHERE numeric_grade >= $2) AS passed")).
		WithArgs("cs101", 60.0).
		WillReturnRows(sqlmock.NewRows([]string{"graded", "passed", "average"}).AddRow(3, 3, "85.0000000000000000"))

	agg, err := repo.CourseAggregate(context.Background(), "cs101", 60)
	require.NoError(t, err)
	assert.Equal(t, 3, agg.Graded)
	assert.Equal(t, 3, agg.Passed)
	assert.InDelta(t, 85.0, agg.Average, 0.0001)
}

func TestGradeRepositoryStudentPoints(t *testing.T) {
	t.Run("all rows", func(t *testing.T) {
		db, mock, cleanup := newRepoMock(t)
		defer cleanup()
		mock.ExpectQuery(regexp.QuoteMeta("FROM grades g WHERE g.student_id = $1")).
			WithArgs("stu-1").
			WillReturnRows(sqlmock.NewRows([]string{"entries", "value"}).AddRow(2, 8.5))

		value, entries, err := NewGradeRepository(db).StudentPoints(context.Background(), "stu-1", false)
		require.NoError(t, err)
		assert.Equal(t, 8.5, value)
		assert.Equal(t, 2, entries)
	})
	t.Run("completed only", func(t *testing.T) {
		db, mock, cleanup := newRepoMock(t)
		defer cleanup()
		mock.ExpectQuery(regexp.QuoteMeta("JOIN enrollments e ON e.id = g.enrollment_id AND e.status = $2 WHERE g.student_id = $1")).
			WithArgs("stu-1", models.EnrollmentStatusCompleted).
			WillReturnRows(sqlmock.NewRows([]string{"entries", "value"}).AddRow(0, 0))

		value, entries, err := NewGradeRepository(db).StudentPoints(context.Background(), "stu-1", true)
		require.NoError(t, err)
		assert.Zero(t, value)
		assert.Zero(t, entries)
	})
}

func TestGradeRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	cols := []string{"id", "enrollment_id", "student_id", "course_id", "assessment_type", "attempt", "numeric_grade", "letter_grade",
		"grade_points", "max_points", "points_earned", "grade_date", "remarks", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM grades WHERE course_id = $1 AND assessment_type = $2 AND grade_date >= $3 ORDER BY grade_date DESC, attempt DESC LIMIT 50 OFFSET 0")).
		WithArgs("cs101", "MIDTERM", from).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("g-1", "enr-1", "stu-1", "cs101", "MIDTERM", 1, "88.00", "B+", "8.00", nil, nil, now, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM grades WHERE course_id = $1")).
		WithArgs("cs101", "MIDTERM", from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	grades, total, err := repo.List(context.Background(), models.GradeFilter{
		CourseID:       "cs101",
		AssessmentType: models.AssessmentMidterm,
		HistoryFilter:  models.HistoryFilter{From: &from},
	})
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "B+", grades[0].LetterGrade)
	require.NotNil(t, grades[0].NumericGrade)
	assert.Equal(t, 88.0, *grades[0].NumericGrade)
	assert.NoError(t, mock.ExpectationsWereMet())
}
