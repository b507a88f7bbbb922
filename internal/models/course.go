package models

import "time"

// CourseStatus represents the lifecycle of a course offering.
type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "DRAFT"
	CourseStatusActive    CourseStatus = "ACTIVE"
	CourseStatusInactive  CourseStatus = "INACTIVE"
	CourseStatusCompleted CourseStatus = "COMPLETED"
	CourseStatusArchived  CourseStatus = "ARCHIVED"
)

// Course is a course offering with a fixed seat capacity.
type Course struct {
	ID           string       `db:"id" json:"id"`
	Code         string       `db:"code" json:"code"`
	Title        string       `db:"title" json:"title"`
	Credits      int          `db:"credits" json:"credits"`
	Capacity     int          `db:"capacity" json:"capacity"`
	Status       CourseStatus `db:"status" json:"status"`
	InstructorID *string      `db:"instructor_id" json:"instructor_id,omitempty"`
	AcademicYear string       `db:"academic_year" json:"academic_year"`
	Semester     int          `db:"semester" json:"semester"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// TaughtBy reports whether facultyID is the instructor of record.
func (c *Course) TaughtBy(facultyID string) bool {
	return c != nil && c.InstructorID != nil && facultyID != "" && *c.InstructorID == facultyID
}
