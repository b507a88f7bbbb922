package models

import "time"

// AssessmentType categorises graded work within a course.
type AssessmentType string

const (
	AssessmentQuiz       AssessmentType = "QUIZ"
	AssessmentAssignment AssessmentType = "ASSIGNMENT"
	AssessmentMidterm    AssessmentType = "MIDTERM"
	AssessmentFinal      AssessmentType = "FINAL"
	AssessmentProject    AssessmentType = "PROJECT"
	AssessmentLab        AssessmentType = "LAB"
)

// Valid returns true when the assessment type is recognised.
func (a AssessmentType) Valid() bool {
	switch a {
	case AssessmentQuiz, AssessmentAssignment, AssessmentMidterm, AssessmentFinal, AssessmentProject, AssessmentLab:
		return true
	default:
		return false
	}
}

// Grade is one assessment attempt. Repeated entries for the same
// (student, course, assessment type) are stored as increasing attempts.
type Grade struct {
	ID             string         `db:"id" json:"id"`
	EnrollmentID   string         `db:"enrollment_id" json:"enrollment_id"`
	StudentID      string         `db:"student_id" json:"student_id"`
	CourseID       string         `db:"course_id" json:"course_id"`
	AssessmentType AssessmentType `db:"assessment_type" json:"assessment_type"`
	Attempt        int            `db:"attempt" json:"attempt"`
	NumericGrade   *float64       `db:"numeric_grade" json:"numeric_grade,omitempty"`
	LetterGrade    string         `db:"letter_grade" json:"letter_grade"`
	GradePoints    float64        `db:"grade_points" json:"grade_points"`
	MaxPoints      *float64       `db:"max_points" json:"max_points,omitempty"`
	PointsEarned   *float64       `db:"points_earned" json:"points_earned,omitempty"`
	GradeDate      time.Time      `db:"grade_date" json:"grade_date"`
	Remarks        *string        `db:"remarks" json:"remarks,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// GradeFilter allows querying of grade entries.
type GradeFilter struct {
	HistoryFilter
	StudentID      string
	CourseID       string
	AssessmentType AssessmentType
	Page           int
	PageSize       int
	SortOrder      string
}

// CourseGradeStats aggregates the numeric grades recorded for a course.
type CourseGradeStats struct {
	CourseID    string  `json:"course_id"`
	Average     float64 `json:"average"`
	PassRate    float64 `json:"pass_rate"`
	GradedCount int     `json:"graded_count"`
	PassedCount int     `json:"passed_count"`
}

// StudentGradePoints summarises a student's GPA or CGPA.
type StudentGradePoints struct {
	StudentID string  `json:"student_id"`
	Value     float64 `json:"value"`
	Entries   int     `json:"entries"`
}
