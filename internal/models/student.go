package models

import "time"

// StudentStatus represents the standing of a student record.
type StudentStatus string

const (
	StudentStatusActive    StudentStatus = "ACTIVE"
	StudentStatusInactive  StudentStatus = "INACTIVE"
	StudentStatusGraduated StudentStatus = "GRADUATED"
	StudentStatusSuspended StudentStatus = "SUSPENDED"
)

// FeeStatus tracks tuition settlement.
type FeeStatus string

const (
	FeeStatusPaid    FeeStatus = "PAID"
	FeeStatusPending FeeStatus = "PENDING"
	FeeStatusOverdue FeeStatus = "OVERDUE"
)

// Student represents a learner registered in the college. CGPA is derived
// from completed enrollments and only written by the CGPA refresh job.
type Student struct {
	ID            string        `db:"id" json:"id"`
	StudentNumber string        `db:"student_number" json:"student_number"`
	FullName      string        `db:"full_name" json:"full_name"`
	Email         string        `db:"email" json:"email"`
	Status        StudentStatus `db:"status" json:"status"`
	FeeStatus     FeeStatus     `db:"fee_status" json:"fee_status"`
	CGPA          float64       `db:"cgpa" json:"cgpa"`
	AcademicYear  string        `db:"academic_year" json:"academic_year"`
	Semester      int           `db:"semester" json:"semester"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// Faculty represents an instructor.
type Faculty struct {
	ID             string    `db:"id" json:"id"`
	EmployeeNumber string    `db:"employee_number" json:"employee_number"`
	FullName       string    `db:"full_name" json:"full_name"`
	Email          string    `db:"email" json:"email"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
