package service

import (
	"context"

	"github.com/noah-isme/academic-core-api/internal/models"
	appErrors "github.com/noah-isme/academic-core-api/pkg/errors"
)

// Action names a mutation subject to authorization.
type Action string

const (
	ActionEnroll         Action = "enroll"
	ActionDrop           Action = "drop"
	ActionFinalGrade     Action = "final_grade"
	ActionEnterGrade     Action = "enter_grade"
	ActionMarkAttendance Action = "mark_attendance"
)

// Resource is what a mutation touches.
type Resource struct {
	Course    *models.Course
	StudentID string
}

// Policy decides whether actor may perform action on resource. It runs
// before any write.
type Policy interface {
	Authorize(ctx context.Context, actor models.Actor, action Action, resource Resource) error
}

// CoursePolicy is the default policy. Admins may do anything. Faculty act on
// the courses they teach. Students may only enroll or drop themselves.
// Faculty identity and course ownership are checked through Guard.
type CoursePolicy struct {
	guard *Guard
}

// NewCoursePolicy constructs CoursePolicy over guard.
func NewCoursePolicy(guard *Guard) CoursePolicy {
	return CoursePolicy{guard: guard}
}

// Authorize implements Policy.
func (p CoursePolicy) Authorize(ctx context.Context, actor models.Actor, action Action, resource Resource) error {
	if actor.ID == "" || !actor.Role.Valid() {
		return appErrors.Clone(appErrors.ErrUnauthorized, "actor identity required")
	}
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleFaculty:
		return p.authorizeFaculty(ctx, actor, resource)
	case models.RoleStudent:
		if (action == ActionEnroll || action == ActionDrop) && resource.StudentID == actor.ID {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "students may only manage their own enrollment")
	}
	return appErrors.ErrForbidden
}

func (p CoursePolicy) authorizeFaculty(ctx context.Context, actor models.Actor, resource Resource) error {
	if resource.Course == nil || p.guard == nil {
		return appErrors.Clone(appErrors.ErrForbidden, "course is not taught by this faculty member")
	}
	member, err := p.guard.RequireFaculty(ctx, actor.ID)
	if err != nil {
		if appErrors.IsKind(err, appErrors.KindNotFound) {
			return appErrors.Clone(appErrors.ErrForbidden, "faculty record not found")
		}
		return err
	}
	if !member.Active {
		return appErrors.Clone(appErrors.ErrForbidden, "faculty member is inactive")
	}
	_, err = p.guard.RequireCourseOwnedBy(ctx, resource.Course.ID, actor.ID)
	return err
}
