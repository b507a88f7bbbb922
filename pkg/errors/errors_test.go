package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesTemplate(t *testing.T) {
	err := Clone(ErrCapacityExceeded, "CS101 is full")
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.NotErrorIs(t, err, ErrDuplicateEnrollment)
	assert.Equal(t, "CS101 is full", err.Message)
	assert.Equal(t, "course capacity reached", ErrCapacityExceeded.Message)
	assert.True(t, IsKind(err, KindConflict))
	assert.True(t, IsCode(fmt.Errorf("enroll: %w", err), "CAPACITY_EXCEEDED"))
}

func TestFromErrorNormalisesUnknown(t *testing.T) {
	cause := errors.New("connection reset")
	err := FromError(cause)
	assert.Equal(t, KindInternal, err.Kind)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsKind(cause, KindInternal))
	assert.False(t, IsKind(nil, KindInternal))
	assert.Nil(t, FromError(nil))
}

func TestWrapKeepsTemplateMessage(t *testing.T) {
	err := Wrap(errors.New("boom"), ErrNotEnrolled, "")
	assert.Equal(t, "student not enrolled in course: boom", err.Error())
	assert.Equal(t, http.StatusNotFound, err.Status)
}
