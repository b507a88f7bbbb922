package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-core-api/internal/models"
	"github.com/noah-isme/academic-core-api/internal/repository"
	"github.com/noah-isme/academic-core-api/pkg/config"
	appErrors "github.com/noah-isme/academic-core-api/pkg/errors"
)

// register keeps one attendance row per (student, course, day).
type register struct {
	mu      sync.Mutex
	campus  *campus
	records map[string]*models.AttendanceRecord
}

func attendanceRowKey(studentID, courseID string, date time.Time) string {
	return studentID + "|" + courseID + "|" + date.Format("2006-01-02")
}

func (r *register) Upsert(ctx context.Context, studentID, courseID string, date time.Time, status models.AttendanceStatus, remarks *string) (*models.AttendanceRecord, error) {
	enrollment, err := r.campus.FindLatestByPair(ctx, studentID, courseID, nil)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := attendanceRowKey(studentID, courseID, date)
	now := time.Now().UTC()
	record, ok := r.records[key]
	if !ok {
		record = &models.AttendanceRecord{
			ID:             fmt.Sprintf("att-%d", len(r.records)+1),
			EnrollmentID:   enrollment.ID,
			StudentID:      studentID,
			CourseID:       courseID,
			AttendanceDate: date,
			CreatedAt:      now,
		}
		r.records[key] = record
	}
	record.Status, record.Remarks, record.UpdatedAt = status, remarks, now
	cp := *record
	return &cp, nil
}

func (r *register) List(_ context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AttendanceRecord
	for _, rec := range r.records {
		if filter.StudentID != "" && rec.StudentID != filter.StudentID {
			continue
		}
		if filter.CourseID != "" && rec.CourseID != filter.CourseID {
			continue
		}
		if filter.From != nil && rec.AttendanceDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && rec.AttendanceDate.After(*filter.To) {
			continue
		}
		out = append(out, *rec)
	}
	return out, len(out), nil
}

func (r *register) tally(filter func(*models.AttendanceRecord) bool) map[string]*models.AttendanceCounts {
	out := map[string]*models.AttendanceCounts{}
	for _, rec := range r.records {
		if !filter(rec) {
			continue
		}
		c, ok := out[rec.StudentID]
		if !ok {
			c = &models.AttendanceCounts{StudentID: rec.StudentID}
			out[rec.StudentID] = c
		}
		switch rec.Status {
		case models.AttendanceStatusPresent:
			c.Present++
		case models.AttendanceStatusAbsent:
			c.Absent++
		case models.AttendanceStatusLate:
			c.Late++
		}
		c.Total++
	}
	return out
}

func (r *register) CountsFor(_ context.Context, studentID, courseID string) (*models.AttendanceCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := r.tally(func(rec *models.AttendanceRecord) bool {
		return rec.StudentID == studentID && rec.CourseID == courseID
	})
	if c, ok := counts[studentID]; ok {
		return c, nil
	}
	return &models.AttendanceCounts{StudentID: studentID}, nil
}

func (r *register) CourseCounts(_ context.Context, courseID string) ([]models.AttendanceCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := r.tally(func(rec *models.AttendanceRecord) bool { return rec.CourseID == courseID })
	out := make([]models.AttendanceCounts, 0, len(counts))
	for _, c := range counts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func newAttendanceFixture(t *testing.T) (*AttendanceService, *register, *MetricsService) {
	t.Helper()
	c := newCampus()
	c.addCourse("cs101", 10, models.CourseStatusActive, "fac-1")
	c.addCourse("cs102", 10, models.CourseStatusActive, "fac-1")
	for _, id := range []string{"s1", "s2", "s3"} {
		c.addStudent(id, models.StudentStatusActive)
	}
	enrollments := NewEnrollmentService(c, c.guard(), nil, nil, nil, nil, nil, nil)
	for _, id := range []string{"s1", "s2", "s3"} {
		_, err := enrollments.Enroll(context.Background(), admin, EnrollRequest{StudentID: id, CourseID: "cs101"})
		require.NoError(t, err)
	}
	_, err := enrollments.Drop(context.Background(), admin, EnrollRequest{StudentID: "s3", CourseID: "cs101"})
	require.NoError(t, err)

	reg := &register{campus: c, records: map[string]*models.AttendanceRecord{}}
	metrics := NewMetricsService()
	svc := NewAttendanceService(reg, c.guard(), nil, nil, metrics, config.AttendanceConfig{}, 3, nil, nil)
	return svc, reg, metrics
}

func TestMarkAttendanceTwiceKeepsLatest(t *testing.T) {
	svc, reg, metrics := newAttendanceFixture(t)
	ctx := context.Background()

	_, err := svc.MarkAttendance(ctx, faculty, "cs101", MarkAttendanceRequest{StudentID: "s1", Date: "2024-09-02", Status: "absent"})
	require.NoError(t, err)
	record, err := svc.MarkAttendance(ctx, faculty, "cs101", MarkAttendanceRequest{StudentID: "s1", Date: "2024-09-02T15:30:00+07:00", Status: "PRESENT"})
	require.NoError(t, err)

	assert.Len(t, reg.records, 1)
	assert.Equal(t, models.AttendanceStatusPresent, record.Status)
	assert.Equal(t, time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC), record.AttendanceDate)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.attendanceMarks.WithLabelValues("ABSENT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.attendanceMarks.WithLabelValues("PRESENT")))
}

func TestMarkAttendanceRejections(t *testing.T) {
	svc, reg, _ := newAttendanceFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		actor  models.Actor
		course string
		req    MarkAttendanceRequest
		want   *appErrors.Error
	}{
		{"not enrolled", faculty, "cs102", MarkAttendanceRequest{StudentID: "s1", Date: "2024-09-02", Status: "PRESENT"}, appErrors.ErrNotEnrolled},
		{"unknown course", faculty, "nope", MarkAttendanceRequest{StudentID: "s1", Date: "2024-09-02", Status: "PRESENT"}, appErrors.ErrNotFound},
		{"bad status", faculty, "cs101", MarkAttendanceRequest{StudentID: "s1", Date: "2024-09-02", Status: "EXCUSED"}, appErrors.ErrValidation},
		{"bad date", faculty, "cs101", MarkAttendanceRequest{StudentID: "s1", Date: "02/09/2024", Status: "PRESENT"}, appErrors.ErrValidation},
		{"other faculty", models.Actor{ID: "fac-9", Role: models.RoleFaculty}, "cs101", MarkAttendanceRequest{StudentID: "s1", Date: "2024-09-02", Status: "PRESENT"}, appErrors.ErrForbidden},
		{"anonymous", models.Actor{}, "cs101", MarkAttendanceRequest{StudentID: "s1", Date: "2024-09-02", Status: "PRESENT"}, appErrors.ErrUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.MarkAttendance(ctx, tc.actor, tc.course, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, reg.records)

	// Dropped students keep their enrollment row, so marking still succeeds.
	_, err := svc.MarkAttendance(ctx, faculty, "cs101", MarkAttendanceRequest{StudentID: "s3", Date: "2024-09-02", Status: "ABSENT"})
	assert.NoError(t, err)
}

func TestAttendancePercentageAndAlert(t *testing.T) {
	svc, _, _ := newAttendanceFixture(t)
	ctx := context.Background()

	pct, err := svc.AttendancePercentage(ctx, "s1", "cs101")
	require.NoError(t, err)
	assert.Equal(t, 0.0, pct)
	alert, err := svc.ThresholdAlert(ctx, "s1", "cs101")
	require.NoError(t, err)
	assert.Equal(t, models.AlertNone, alert)

	for i, status := range []string{"PRESENT", "PRESENT", "PRESENT", "ABSENT"} {
		_, err := svc.MarkAttendance(ctx, faculty, "cs101", MarkAttendanceRequest{StudentID: "s1", Date: fmt.Sprintf("2024-09-%02d", i+1), Status: status})
		require.NoError(t, err)
	}
	summary, err := svc.Summary(ctx, "s1", "cs101")
	require.NoError(t, err)
	assert.Equal(t, 75.0, summary.Percentage)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, models.AlertNone, summary.Alert)

	_, err = svc.MarkAttendance(ctx, faculty, "cs101", MarkAttendanceRequest{StudentID: "s1", Date: "2024-09-05", Status: "LATE"})
	require.NoError(t, err)
	alert, err = svc.ThresholdAlert(ctx, "s1", "cs101")
	require.NoError(t, err)
	assert.Equal(t, models.AlertWarning, alert)

	_, err = svc.Summary(ctx, "ghost", "cs101")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestBulkMarkAttendanceAndCourseAlerts(t *testing.T) {
	svc, reg, _ := newAttendanceFixture(t)
	ctx := context.Background()

	result, err := svc.BulkMarkAttendance(ctx, faculty, "cs101", BulkAttendanceRequest{Date: "2024-09-02", Items: []BulkAttendanceItem{
		{StudentID: "s1", Status: "PRESENT"},
		{StudentID: "s2", Status: "ABSENT"},
		{StudentID: "ghost", Status: "PRESENT"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, appErrors.ErrNotEnrolled.Code, result.Items[2].Code)
	assert.Len(t, reg.records, 2)

	alerts, err := svc.CourseAlerts(ctx, "cs101")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "s2", alerts[0].StudentID)
	assert.Equal(t, models.AlertCritical, alerts[0].Alert)

	_, err = svc.BulkMarkAttendance(ctx, faculty, "cs101", BulkAttendanceRequest{Date: "2024-09-03", Items: make([]BulkAttendanceItem, 4)})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAttendanceListDateWindow(t *testing.T) {
	svc, _, _ := newAttendanceFixture(t)
	ctx := context.Background()
	for _, day := range []string{"2024-09-01", "2024-09-02", "2024-09-03"} {
		_, err := svc.MarkAttendance(ctx, faculty, "cs101", MarkAttendanceRequest{StudentID: "s1", Date: day, Status: "PRESENT"})
		require.NoError(t, err)
	}

	from := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 9, 3, 0, 0, 0, 0, time.UTC)
	records, page, err := svc.List(ctx, models.AttendanceFilter{StudentID: "s1", HistoryFilter: models.HistoryFilter{From: &from, To: &to}})
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 2, page.TotalCount)

	_, _, err = svc.List(ctx, models.AttendanceFilter{HistoryFilter: models.HistoryFilter{From: &to, To: &from}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, _, err = svc.List(ctx, models.AttendanceFilter{Statuses: []models.AttendanceStatus{"EXCUSED"}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

// slowRegister holds the first CountsFor result until released, after the
// underlying read has already happened.
type slowRegister struct {
	*register
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (r *slowRegister) CountsFor(ctx context.Context, studentID, courseID string) (*models.AttendanceCounts, error) {
	counts, err := r.register.CountsFor(ctx, studentID, courseID)
	r.once.Do(func() {
		close(r.entered)
		<-r.release
	})
	return counts, err
}

func TestSummaryNotCachedAcrossConcurrentMark(t *testing.T) {
	_, reg, _ := newAttendanceFixture(t)
	slow := &slowRegister{register: reg, entered: make(chan struct{}), release: make(chan struct{})}
	cache := NewCacheService(repository.NewMemoryCacheRepository(gocache.New(time.Minute, time.Minute)), nil, time.Minute, nil, true)
	svc := NewAttendanceService(slow, reg.campus.guard(), nil, cache, nil, config.AttendanceConfig{}, 3, nil, nil)
	ctx := context.Background()

	done := make(chan *models.AttendanceSummary, 1)
	go func() {
		summary, err := svc.Summary(ctx, "s1", "cs101")
		assert.NoError(t, err)
		done <- summary
	}()
	<-slow.entered

	_, err := svc.MarkAttendance(ctx, faculty, "cs101", MarkAttendanceRequest{StudentID: "s1", Date: "2024-09-02", Status: "PRESENT"})
	require.NoError(t, err)
	close(slow.release)
	inFlight := <-done
	require.NotNil(t, inFlight)
	assert.Equal(t, 0, inFlight.Total)

	got, err := svc.Summary(ctx, "s1", "cs101")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Total)
	assert.Equal(t, 100.0, got.Percentage)
}

func TestBulkMarkAttendanceInvalidatesCourseOnce(t *testing.T) {
	_, reg, _ := newAttendanceFixture(t)
	cacheRepo := newMemoryCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := NewAttendanceService(reg, reg.campus.guard(), nil, cache, nil, config.AttendanceConfig{}, 3, nil, nil)
	ctx := context.Background()

	_, err := svc.BulkMarkAttendance(ctx, faculty, "cs101", BulkAttendanceRequest{Date: "2024-09-02", Items: []BulkAttendanceItem{
		{StudentID: "s1", Status: "PRESENT"},
		{StudentID: "s2", Status: "LATE"},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{courseAttendancePattern("cs101")}, cacheRepo.deleted)

	_, err = svc.BulkMarkAttendance(ctx, faculty, "cs101", BulkAttendanceRequest{Date: "2024-09-03", Items: []BulkAttendanceItem{
		{StudentID: "ghost", Status: "PRESENT"},
	}})
	require.NoError(t, err)
	assert.Len(t, cacheRepo.deleted, 1, "nothing recorded, nothing to invalidate")

	_, err = svc.MarkAttendance(ctx, faculty, "cs101", MarkAttendanceRequest{StudentID: "s1", Date: "2024-09-04", Status: "ABSENT"})
	require.NoError(t, err)
	assert.Equal(t, attendanceKey("cs101", "s1"), cacheRepo.deleted[1])
}
