package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
	AttendanceStatusLate    AttendanceStatus = "LATE"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate:
		return true
	default:
		return false
	}
}

// AlertLevel is the advisory attendance state of a student in a course.
type AlertLevel string

const (
	AlertNone     AlertLevel = "NONE"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// AttendanceRecord is one session's presence for a student in a course.
type AttendanceRecord struct {
	ID             string           `db:"id" json:"id"`
	EnrollmentID   string           `db:"enrollment_id" json:"enrollment_id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	CourseID       string           `db:"course_id" json:"course_id"`
	AttendanceDate time.Time        `db:"attendance_date" json:"attendance_date"`
	Status         AttendanceStatus `db:"status" json:"status"`
	Remarks        *string          `db:"remarks" json:"remarks,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter defines query filters.
type AttendanceFilter struct {
	HistoryFilter
	StudentID string
	CourseID  string
	Statuses  []AttendanceStatus
	Page      int
	PageSize  int
	SortOrder string
}

// AttendanceCounts are the raw per-status tallies for a student in a course.
type AttendanceCounts struct {
	StudentID string `db:"student_id" json:"student_id"`
	Present   int    `db:"present" json:"present"`
	Absent    int    `db:"absent" json:"absent"`
	Late      int    `db:"late" json:"late"`
	Total     int    `db:"total" json:"total"`
}

// AttendanceSummary summarises counts, percentage and alert state.
type AttendanceSummary struct {
	StudentID  string     `json:"student_id"`
	CourseID   string     `json:"course_id"`
	Present    int        `json:"present"`
	Absent     int        `json:"absent"`
	Late       int        `json:"late"`
	Total      int        `json:"total"`
	Percentage float64    `json:"percentage"`
	Alert      AlertLevel `json:"alert"`
}
