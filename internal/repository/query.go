package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/noah-isme/academic-core-api/internal/models"
)

// Sentinel errors returned by repositories; services translate them into typed API errors.
var (
	ErrStudentNotFound     = errors.New("student not found")
	ErrCourseNotFound      = errors.New("course not found")
	ErrEnrollmentNotFound  = errors.New("enrollment not found")
	ErrCourseInactive      = errors.New("course not active")
	ErrStudentInactive     = errors.New("student not active")
	ErrDuplicateEnrollment = errors.New("active enrollment exists")
	ErrCapacityExceeded    = errors.New("course at capacity")
	ErrNotEnrolled         = errors.New("no qualifying enrollment")
	ErrInvalidTransition   = errors.New("enrollment not in a transitionable state")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// whereBuilder accumulates AND-joined conditions with positional arguments.
type whereBuilder struct {
	conditions []string
	args       []interface{}
}

func (w *whereBuilder) next(value interface{}) string {
	w.args = append(w.args, value)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *whereBuilder) eq(column string, value string) {
	if value == "" {
		return
	}
	w.conditions = append(w.conditions, fmt.Sprintf("%s = %s", column, w.next(value)))
}

func (w *whereBuilder) in(column string, values []string) {
	if len(values) == 0 {
		return
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = w.next(v)
	}
	w.conditions = append(w.conditions, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ",")))
}

// history applies the shared inclusive date window to column.
func (w *whereBuilder) history(column string, filter models.HistoryFilter) {
	if filter.From != nil {
		w.conditions = append(w.conditions, fmt.Sprintf("%s >= %s", column, w.next(*filter.From)))
	}
	if filter.To != nil {
		w.conditions = append(w.conditions, fmt.Sprintf("%s <= %s", column, w.next(*filter.To)))
	}
}

func (w *whereBuilder) clause() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conditions, " AND ")
}

func stringsOf[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func paginate(page, size, defaultSize, maxSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxSize {
		size = defaultSize
	}
	return page, size, (page - 1) * size
}

func sortOrder(raw, fallback string) string {
	order := strings.ToUpper(raw)
	if order != "ASC" && order != "DESC" {
		return fallback
	}
	return order
}
