package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-core-api/pkg/config"
	"github.com/noah-isme/academic-core-api/pkg/jobs"
)

const jobTypeCGPARefresh = "cgpa_refresh"

type gradePointSource interface {
	StudentPoints(ctx context.Context, studentID string, completedOnly bool) (float64, int, error)
}

type cgpaWriter interface {
	UpdateCGPA(ctx context.Context, id string, cgpa float64) error
}

// CGPAWorker recomputes and stores students.cgpa off the request path once
// a final grade has been assigned.
type CGPAWorker struct {
	grades   gradePointSource
	students cgpaWriter
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	queue    *jobs.Queue
}

// NewCGPAWorker wires the worker onto its own job queue.
func NewCGPAWorker(grades gradePointSource, students cgpaWriter, cache *CacheService, metrics *MetricsService, cfg config.JobsConfig, logger *zap.Logger) *CGPAWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &CGPAWorker{grades: grades, students: students, cache: cache, metrics: metrics, logger: logger}
	w.queue = jobs.NewQueue(jobTypeCGPARefresh, w.handle, jobs.QueueConfig{
		Workers:    cfg.CGPAWorkers,
		BufferSize: cfg.CGPABufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnDone: func(_ jobs.Job, err error) {
			metrics.RecordCGPAJob(err == nil)
		},
	})
	return w
}

// Start launches the queue workers.
func (w *CGPAWorker) Start(ctx context.Context) { w.queue.Start(ctx) }

// Stop drains the workers.
func (w *CGPAWorker) Stop() { w.queue.Stop() }

// Schedule requests a refresh for studentID without blocking.
func (w *CGPAWorker) Schedule(studentID string) error {
	err := w.queue.TryEnqueue(jobs.Job{ID: uuid.NewString(), Type: jobTypeCGPARefresh, Payload: studentID})
	if err != nil {
		w.logger.Warn("cgpa refresh not scheduled", zap.String("student_id", studentID), zap.Error(err))
	}
	return err
}

// Refresh recomputes the CGPA for studentID and persists it.
func (w *CGPAWorker) Refresh(ctx context.Context, studentID string) (float64, error) {
	value, _, err := w.grades.StudentPoints(ctx, studentID, true)
	if err != nil {
		return 0, err
	}
	cgpa := round2(value)
	if err := w.students.UpdateCGPA(ctx, studentID, cgpa); err != nil {
		return 0, err
	}
	_ = w.cache.Invalidate(ctx, studentGradeKey(studentID, "*"))
	w.logger.Debug("cgpa refreshed", zap.String("student_id", studentID), zap.Float64("cgpa", cgpa))
	return cgpa, nil
}

func (w *CGPAWorker) handle(ctx context.Context, job jobs.Job) error {
	studentID, ok := job.Payload.(string)
	if !ok || studentID == "" {
		return fmt.Errorf("cgpa job %s: invalid payload %T", job.ID, job.Payload)
	}
	_, err := w.Refresh(ctx, studentID)
	return err
}
