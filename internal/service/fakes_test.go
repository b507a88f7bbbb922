package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/academic-core-api/internal/models"
	"github.com/noah-isme/academic-core-api/internal/repository"
)

// campus is an in-memory stand-in for the student, course, faculty and
// enrollment tables with the same atomicity the SQL repositories provide.
type campus struct {
	mu          sync.Mutex
	students    map[string]*models.Student
	courses     map[string]*models.Course
	faculty     map[string]*models.Faculty
	enrollments []*models.Enrollment
	seq         int
}

func newCampus() *campus {
	return &campus{
		students: map[string]*models.Student{},
		courses:  map[string]*models.Course{},
		faculty:  map[string]*models.Faculty{},
	}
}

func (c *campus) addStudent(id string, status models.StudentStatus) {
	c.students[id] = &models.Student{ID: id, FullName: "Student " + id, StudentNumber: "S-" + id, Status: status}
}

func (c *campus) addCourse(id string, capacity int, status models.CourseStatus, instructor string) {
	course := &models.Course{ID: id, Code: id, Title: "Course " + id, Capacity: capacity, Status: status, Credits: 3}
	if instructor != "" {
		course.InstructorID = &instructor
		c.faculty[instructor] = &models.Faculty{ID: instructor, Active: true}
	}
	c.courses[id] = course
}

type campusStudents struct{ *campus }

func (c campusStudents) FindByID(_ context.Context, id string) (*models.Student, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.students[id]
	if !ok {
		return nil, repository.ErrStudentNotFound
	}
	cp := *s
	return &cp, nil
}

type campusCourses struct{ *campus }

func (c campusCourses) FindByID(_ context.Context, id string) (*models.Course, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	course, ok := c.courses[id]
	if !ok {
		return nil, repository.ErrCourseNotFound
	}
	cp := *course
	return &cp, nil
}

type campusFaculty struct{ *campus }

func (c campusFaculty) FindByID(_ context.Context, id string) (*models.Faculty, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.faculty[id]
	if !ok {
		return nil, fmt.Errorf("find faculty: %w", sql.ErrNoRows)
	}
	cp := *f
	return &cp, nil
}

func (c *campus) Enroll(_ context.Context, studentID, courseID string) (*models.Enrollment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	course, ok := c.courses[courseID]
	if !ok {
		return nil, repository.ErrCourseNotFound
	}
	if course.Status != models.CourseStatusActive {
		return nil, repository.ErrCourseInactive
	}
	student, ok := c.students[studentID]
	if !ok {
		return nil, repository.ErrStudentNotFound
	}
	if student.Status != models.StudentStatusActive {
		return nil, repository.ErrStudentInactive
	}
	total := 0
	for _, e := range c.enrollments {
		if e.CourseID != courseID || e.Status != models.EnrollmentStatusEnrolled {
			continue
		}
		if e.StudentID == studentID {
			return nil, repository.ErrDuplicateEnrollment
		}
		total++
	}
	if total >= course.Capacity {
		return nil, repository.ErrCapacityExceeded
	}
	c.seq++
	now := time.Now().UTC().Add(time.Duration(c.seq) * time.Millisecond)
	e := &models.Enrollment{ID: fmt.Sprintf("enr-%d", c.seq), StudentID: studentID, CourseID: courseID, Status: models.EnrollmentStatusEnrolled, EnrollmentDate: now, UpdatedAt: now}
	c.enrollments = append(c.enrollments, e)
	cp := *e
	return &cp, nil
}

func (c *campus) Drop(_ context.Context, studentID, courseID string) (*models.Enrollment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID && e.Status == models.EnrollmentStatusEnrolled {
			now := time.Now().UTC()
			e.Status = models.EnrollmentStatusDropped
			e.DroppedAt = &now
			cp := *e
			return &cp, nil
		}
	}
	return nil, repository.ErrNotEnrolled
}

func (c *campus) Complete(_ context.Context, id, letter string, points float64) (*models.Enrollment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.enrollments {
		if e.ID != id {
			continue
		}
		if e.Status != models.EnrollmentStatusEnrolled {
			return nil, repository.ErrInvalidTransition
		}
		now := time.Now().UTC()
		e.Status = models.EnrollmentStatusCompleted
		e.FinalGrade = &letter
		e.GradePoints = &points
		e.CompletedAt = &now
		cp := *e
		return &cp, nil
	}
	return nil, repository.ErrEnrollmentNotFound
}

func (c *campus) CountActive(_ context.Context, courseID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.enrollments {
		if e.CourseID == courseID && e.Status == models.EnrollmentStatusEnrolled {
			n++
		}
	}
	return n, nil
}

func (c *campus) FindByID(_ context.Context, id string) (*models.Enrollment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.enrollments {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, repository.ErrEnrollmentNotFound
}

func (c *campus) FindLatestByPair(_ context.Context, studentID, courseID string, statuses []models.EnrollmentStatus) (*models.Enrollment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var latest *models.Enrollment
	for _, e := range c.enrollments {
		if e.StudentID != studentID || e.CourseID != courseID || !statusIn(e.Status, statuses) {
			continue
		}
		if latest == nil || e.EnrollmentDate.After(latest.EnrollmentDate) {
			latest = e
		}
	}
	if latest == nil {
		return nil, repository.ErrNotEnrolled
	}
	cp := *latest
	return &cp, nil
}

func (c *campus) List(_ context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.EnrollmentDetail
	for _, e := range c.enrollments {
		if filter.StudentID != "" && e.StudentID != filter.StudentID {
			continue
		}
		if filter.CourseID != "" && e.CourseID != filter.CourseID {
			continue
		}
		if !statusIn(e.Status, filter.Statuses) {
			continue
		}
		out = append(out, models.EnrollmentDetail{Enrollment: *e})
	}
	return out, len(out), nil
}

func (c *campus) ListActiveByCourse(_ context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.EnrollmentDetail
	for _, e := range c.enrollments {
		if e.CourseID == courseID && e.Status == models.EnrollmentStatusEnrolled {
			s := c.students[e.StudentID]
			out = append(out, models.EnrollmentDetail{Enrollment: *e, StudentName: s.FullName, StudentNumber: s.StudentNumber})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentName < out[j].StudentName })
	return out, nil
}

func statusIn(status models.EnrollmentStatus, allowed []models.EnrollmentStatus) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == status {
			return true
		}
	}
	return false
}

func (c *campus) guard() *Guard {
	return NewGuard(campusStudents{c}, campusCourses{c}, campusFaculty{c}, c)
}

type scheduleRecorder struct {
	mu       sync.Mutex
	students []string
}

func (r *scheduleRecorder) Schedule(studentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.students = append(r.students, studentID)
	return nil
}

var (
	admin   = models.Actor{ID: "admin-1", Role: models.RoleAdmin}
	faculty = models.Actor{ID: "fac-1", Role: models.RoleFaculty}
)
