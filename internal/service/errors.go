package service

import (
	"database/sql"
	"errors"

	"github.com/noah-isme/academic-core-api/internal/repository"
	appErrors "github.com/noah-isme/academic-core-api/pkg/errors"
)

// translate maps repository sentinels to typed API errors. Anything else is
// wrapped as INTERNAL with fallback as the public message.
func translate(err error, fallback string) error {
	if err == nil {
		return nil
	}
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return typed
	}
	switch {
	case errors.Is(err, repository.ErrStudentNotFound):
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	case errors.Is(err, repository.ErrCourseNotFound):
		return appErrors.Clone(appErrors.ErrNotFound, "course not found")
	case errors.Is(err, repository.ErrEnrollmentNotFound):
		return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.ErrNotFound
	case errors.Is(err, repository.ErrCourseInactive):
		return appErrors.ErrCourseInactive
	case errors.Is(err, repository.ErrStudentInactive):
		return appErrors.ErrStudentInactive
	case errors.Is(err, repository.ErrDuplicateEnrollment):
		return appErrors.ErrDuplicateEnrollment
	case errors.Is(err, repository.ErrCapacityExceeded):
		return appErrors.ErrCapacityExceeded
	case errors.Is(err, repository.ErrNotEnrolled):
		return appErrors.ErrNotEnrolled
	case errors.Is(err, repository.ErrInvalidTransition):
		return appErrors.Clone(appErrors.ErrInvalidState, "enrollment is not in ENROLLED state")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal, fallback)
	}
}

func validationError(message string) error {
	return appErrors.Clone(appErrors.ErrValidation, message)
}

// errorCode returns the public code carried by err, used as a metrics label.
func errorCode(err error) string {
	if err == nil {
		return "OK"
	}
	return appErrors.FromError(err).Code
}
