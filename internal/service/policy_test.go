package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/academic-core-api/internal/models"
	appErrors "github.com/noah-isme/academic-core-api/pkg/errors"
)

func TestCoursePolicy(t *testing.T) {
	guard, c := newGuardFixture(t)
	c.faculty["fac-2"] = &models.Faculty{ID: "fac-2", Active: true}
	c.faculty["fac-3"] = &models.Faculty{ID: "fac-3", Active: false}
	instructor := "fac-3"
	c.courses["cs300"] = &models.Course{ID: "cs300", Code: "cs300", Capacity: 5, Status: models.CourseStatusActive, InstructorID: &instructor}
	policy := NewCoursePolicy(guard)

	course := c.courses["cs101"]
	student := models.Actor{ID: "s1", Role: models.RoleStudent}

	cases := []struct {
		name     string
		actor    models.Actor
		action   Action
		resource Resource
		want     error
	}{
		{"admin grades anything", admin, ActionEnterGrade, Resource{Course: course}, nil},
		{"owner marks attendance", faculty, ActionMarkAttendance, Resource{Course: course, StudentID: "s1"}, nil},
		{"other faculty", models.Actor{ID: "fac-2", Role: models.RoleFaculty}, ActionFinalGrade, Resource{Course: course}, appErrors.ErrForbidden},
		{"unknown faculty", models.Actor{ID: "fac-9", Role: models.RoleFaculty}, ActionEnterGrade, Resource{Course: course}, appErrors.ErrForbidden},
		{"inactive owner", models.Actor{ID: "fac-3", Role: models.RoleFaculty}, ActionEnterGrade, Resource{Course: c.courses["cs300"]}, appErrors.ErrForbidden},
		{"faculty without course", faculty, ActionEnroll, Resource{StudentID: "s1"}, appErrors.ErrForbidden},
		{"student enrolls self", student, ActionEnroll, Resource{Course: course, StudentID: "s1"}, nil},
		{"student drops other", student, ActionDrop, Resource{Course: course, StudentID: "s2"}, appErrors.ErrForbidden},
		{"student grades", student, ActionEnterGrade, Resource{Course: course, StudentID: "s1"}, appErrors.ErrForbidden},
		{"anonymous", models.Actor{}, ActionEnroll, Resource{Course: course}, appErrors.ErrUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := policy.Authorize(context.Background(), tc.actor, tc.action, tc.resource)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
