package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/academic-core-api/internal/models"
)

func TestWhereBuilder(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var w whereBuilder
	w.eq("g.student_id", "stu-1")
	w.eq("g.course_id", "")
	w.in("g.status", []string{"A", "B"})
	w.history("g.grade_date", models.HistoryFilter{From: &from})

	assert.Equal(t, " WHERE g.student_id = $1 AND g.status IN ($2,$3) AND g.grade_date >= $4", w.clause())
	assert.Equal(t, []interface{}{"stu-1", "A", "B", from}, w.args)
}

func TestWhereBuilderEmpty(t *testing.T) {
	var w whereBuilder
	assert.Equal(t, "", w.clause())
}

func TestPaginate(t *testing.T) {
	page, size, offset := paginate(0, 0, 20, 100)
	assert.Equal(t, []int{1, 20, 0}, []int{page, size, offset})
	page, size, offset = paginate(3, 500, 20, 100)
	assert.Equal(t, []int{3, 20, 40}, []int{page, size, offset})
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}

func TestSortOrder(t *testing.T) {
	assert.Equal(t, "ASC", sortOrder("asc", "DESC"))
	assert.Equal(t, "DESC", sortOrder("sideways", "DESC"))
}
