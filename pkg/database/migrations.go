package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Migration is a named, idempotent schema step.
type Migration struct {
	Name      string
	Statement string
}

// Migrations lists the schema in application order. Every statement is safe to re-run.
var Migrations = []Migration{
	{Name: "create_students", Statement: `CREATE TABLE IF NOT EXISTS students (
    id UUID PRIMARY KEY,
    student_number VARCHAR(32) NOT NULL UNIQUE,
    full_name VARCHAR(255) NOT NULL,
    email VARCHAR(255) NOT NULL UNIQUE,
    status VARCHAR(16) NOT NULL DEFAULT 'ACTIVE' CHECK (status IN ('ACTIVE','INACTIVE','GRADUATED','SUSPENDED')),
    fee_status VARCHAR(16) NOT NULL DEFAULT 'PENDING' CHECK (fee_status IN ('PAID','PENDING','OVERDUE')),
    cgpa NUMERIC(4,2) NOT NULL DEFAULT 0,
    academic_year VARCHAR(16) NOT NULL,
    semester SMALLINT NOT NULL CHECK (semester > 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`},
	{Name: "create_faculty", Statement: `CREATE TABLE IF NOT EXISTS faculty (
    id UUID PRIMARY KEY,
    employee_number VARCHAR(32) NOT NULL UNIQUE,
    full_name VARCHAR(255) NOT NULL,
    email VARCHAR(255) NOT NULL UNIQUE,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`},
	{Name: "create_courses", Statement: `CREATE TABLE IF NOT EXISTS courses (
    id UUID PRIMARY KEY,
    code VARCHAR(32) NOT NULL UNIQUE,
    title VARCHAR(255) NOT NULL,
    credits INTEGER NOT NULL CHECK (credits > 0),
    capacity INTEGER NOT NULL CHECK (capacity > 0),
    status VARCHAR(16) NOT NULL DEFAULT 'DRAFT' CHECK (status IN ('DRAFT','ACTIVE','INACTIVE','COMPLETED','ARCHIVED')),
    instructor_id UUID REFERENCES faculty(id),
    academic_year VARCHAR(16) NOT NULL,
    semester SMALLINT NOT NULL CHECK (semester > 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`},
	{Name: "create_enrollments", Statement: `CREATE TABLE IF NOT EXISTS enrollments (
    id UUID PRIMARY KEY,
    student_id UUID NOT NULL REFERENCES students(id),
    course_id UUID NOT NULL REFERENCES courses(id),
    status VARCHAR(16) NOT NULL CHECK (status IN ('ENROLLED','DROPPED','COMPLETED')),
    enrollment_date TIMESTAMPTZ NOT NULL,
    dropped_at TIMESTAMPTZ,
    completed_at TIMESTAMPTZ,
    final_grade VARCHAR(2),
    grade_points NUMERIC(4,2) CHECK (grade_points BETWEEN 0 AND 10),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`},
	{Name: "enrollments_one_active_per_pair", Statement: `CREATE UNIQUE INDEX IF NOT EXISTS ux_enrollments_active_pair
    ON enrollments (student_id, course_id) WHERE status = 'ENROLLED'`},
	{Name: "enrollments_course_status", Statement: `CREATE INDEX IF NOT EXISTS ix_enrollments_course_status ON enrollments (course_id, status)`},
	{Name: "create_grades", Statement: `CREATE TABLE IF NOT EXISTS grades (
    id UUID PRIMARY KEY,
    enrollment_id UUID NOT NULL REFERENCES enrollments(id),
    student_id UUID NOT NULL REFERENCES students(id),
    course_id UUID NOT NULL REFERENCES courses(id),
    assessment_type VARCHAR(16) NOT NULL,
    attempt INTEGER NOT NULL CHECK (attempt > 0),
    numeric_grade NUMERIC(5,2) CHECK (numeric_grade BETWEEN 0 AND 100),
    letter_grade VARCHAR(2) NOT NULL,
    grade_points NUMERIC(4,2) NOT NULL CHECK (grade_points BETWEEN 0 AND 10),
    max_points NUMERIC(7,2),
    points_earned NUMERIC(7,2),
    grade_date TIMESTAMPTZ NOT NULL,
    remarks TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (student_id, course_id, assessment_type, attempt)
)`},
	{Name: "grades_course", Statement: `CREATE INDEX IF NOT EXISTS ix_grades_course ON grades (course_id)`},
	{Name: "create_attendance_records", Statement: `CREATE TABLE IF NOT EXISTS attendance_records (
    id UUID PRIMARY KEY,
    enrollment_id UUID NOT NULL REFERENCES enrollments(id),
    student_id UUID NOT NULL REFERENCES students(id),
    course_id UUID NOT NULL REFERENCES courses(id),
    attendance_date DATE NOT NULL,
    status VARCHAR(8) NOT NULL CHECK (status IN ('PRESENT','ABSENT','LATE')),
    remarks TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (student_id, course_id, attendance_date)
)`},
}

// Migrate applies every migration inside a single transaction.
func Migrate(ctx context.Context, db *sqlx.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migrations: %w", err)
	}
	for _, m := range Migrations {
		if _, err := tx.ExecContext(ctx, m.Statement); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
		logger.Debug("migration applied", zap.String("name", m.Name))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	logger.Info("database migrations completed", zap.Int("count", len(Migrations)))
	return nil
}
