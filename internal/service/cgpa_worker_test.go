package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-core-api/pkg/config"
)

type pointSourceMock struct {
	value     float64
	entries   int
	completed []bool
}

func (m *pointSourceMock) StudentPoints(_ context.Context, _ string, completedOnly bool) (float64, int, error) {
	m.completed = append(m.completed, completedOnly)
	return m.value, m.entries, nil
}

type cgpaWriterMock struct {
	mu      sync.Mutex
	written map[string]float64
	done    chan struct{}
}

func (m *cgpaWriterMock) UpdateCGPA(_ context.Context, id string, cgpa float64) error {
	m.mu.Lock()
	if m.written == nil {
		m.written = map[string]float64{}
	}
	m.written[id] = cgpa
	m.mu.Unlock()
	if m.done != nil {
		m.done <- struct{}{}
	}
	return nil
}

func TestCGPAWorkerRefreshUsesCompletedEnrollments(t *testing.T) {
	points := &pointSourceMock{value: 8.333333, entries: 3}
	writer := &cgpaWriterMock{}
	worker := NewCGPAWorker(points, writer, nil, nil, config.JobsConfig{}, nil)

	cgpa, err := worker.Refresh(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 8.33, cgpa)
	assert.Equal(t, []bool{true}, points.completed)
	assert.Equal(t, 8.33, writer.written["stu-1"])
}

func TestCGPAWorkerScheduleProcessesInBackground(t *testing.T) {
	points := &pointSourceMock{value: 9, entries: 1}
	writer := &cgpaWriterMock{done: make(chan struct{}, 1)}
	metrics := NewMetricsService()
	worker := NewCGPAWorker(points, writer, nil, metrics, config.JobsConfig{CGPAWorkers: 1, CGPABufferSize: 4}, nil)
	worker.Start(context.Background())
	defer worker.Stop()

	require.NoError(t, worker.Schedule("stu-2"))
	select {
	case <-writer.done:
	case <-time.After(2 * time.Second):
		t.Fatal("cgpa refresh did not run")
	}
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.cgpaJobs.WithLabelValues("success")) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestCGPAWorkerScheduleBeforeStartFails(t *testing.T) {
	worker := NewCGPAWorker(&pointSourceMock{}, &cgpaWriterMock{}, nil, nil, config.JobsConfig{}, nil)
	assert.Error(t, worker.Schedule("stu-1"))
}
