package service

import (
	"context"
	"time"

	"github.com/noah-isme/academic-core-api/internal/models"
	appErrors "github.com/noah-isme/academic-core-api/pkg/errors"
)

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type facultyReader interface {
	FindByID(ctx context.Context, id string) (*models.Faculty, error)
}

type enrollmentLocator interface {
	FindLatestByPair(ctx context.Context, studentID, courseID string, statuses []models.EnrollmentStatus) (*models.Enrollment, error)
}

// Guard bundles the existence and ownership checks shared by the enrollment,
// grade and attendance services so they fail the same way.
type Guard struct {
	students    studentReader
	courses     courseReader
	faculty     facultyReader
	enrollments enrollmentLocator
}

// NewGuard constructs a Guard.
func NewGuard(students studentReader, courses courseReader, faculty facultyReader, enrollments enrollmentLocator) *Guard {
	return &Guard{students: students, courses: courses, faculty: faculty, enrollments: enrollments}
}

// RequireStudent loads the student or fails with NotFound.
func (g *Guard) RequireStudent(ctx context.Context, id string) (*models.Student, error) {
	if id == "" {
		return nil, validationError("student id is required")
	}
	student, err := g.students.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to load student")
	}
	return student, nil
}

// RequireCourse loads the course or fails with NotFound.
func (g *Guard) RequireCourse(ctx context.Context, id string) (*models.Course, error) {
	if id == "" {
		return nil, validationError("course id is required")
	}
	course, err := g.courses.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to load course")
	}
	return course, nil
}

// RequireFaculty loads the faculty member or fails with NotFound.
func (g *Guard) RequireFaculty(ctx context.Context, id string) (*models.Faculty, error) {
	if id == "" {
		return nil, validationError("faculty id is required")
	}
	faculty, err := g.faculty.FindByID(ctx, id)
	if err != nil {
		err = translate(err, "failed to load faculty")
		if appErrors.IsKind(err, appErrors.KindNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
		}
		return nil, err
	}
	return faculty, nil
}

// RequireCourseOwnedBy loads the course and fails with Forbidden unless
// facultyID is its instructor of record.
func (g *Guard) RequireCourseOwnedBy(ctx context.Context, courseID, facultyID string) (*models.Course, error) {
	course, err := g.RequireCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.TaughtBy(facultyID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "course is not taught by this faculty member")
	}
	return course, nil
}

// RequireEnrollmentExists returns the latest enrollment for the pair in one
// of allowed; an empty allowed set accepts any status.
func (g *Guard) RequireEnrollmentExists(ctx context.Context, studentID, courseID string, allowed ...models.EnrollmentStatus) (*models.Enrollment, error) {
	enrollment, err := g.enrollments.FindLatestByPair(ctx, studentID, courseID, allowed)
	if err != nil {
		return nil, translate(err, "failed to load enrollment")
	}
	return enrollment, nil
}

// NormalizeHistoryFilter validates a date window and status list. Bounds are
// converted to UTC, a date-only upper bound is extended to the end of that
// day, and duplicate statuses are collapsed.
func NormalizeHistoryFilter[S ~string](window models.HistoryFilter, statuses []S, valid func(S) bool) (models.HistoryFilter, []S, error) {
	var out models.HistoryFilter
	if window.From != nil {
		from := window.From.UTC()
		out.From = &from
	}
	if window.To != nil {
		to := window.To.UTC()
		if to.Equal(dayOf(to)) {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		out.To = &to
	}
	if out.From != nil && out.To != nil && out.From.After(*out.To) {
		return out, nil, validationError("from must not be after to")
	}

	seen := make(map[S]struct{}, len(statuses))
	cleaned := make([]S, 0, len(statuses))
	for _, status := range statuses {
		if !valid(status) {
			return out, nil, validationError("unsupported status " + string(status))
		}
		if _, dup := seen[status]; dup {
			continue
		}
		seen[status] = struct{}{}
		cleaned = append(cleaned, status)
	}
	return out, cleaned, nil
}

// dayOf truncates t to its UTC calendar day.
func dayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
