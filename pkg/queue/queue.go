// Package queue runs background jobs such as catalog reclassification after
// admin writes.
//
//	type ReclassifyJob struct{ Reason string }
//	func (j *ReclassifyJob) Handle(ctx context.Context) error { ... }
//
//	queue.Register("*jobs.ReclassifyJob", func() queue.Job { return &ReclassifyJob{...} })
//	queue.Dispatch(ctx, &ReclassifyJob{Reason: "category created"})
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shashiranjanraj/kirana/pkg/logger"
	"github.com/shashiranjanraj/kirana/pkg/metrics"
)

// Job is the interface every queued job must satisfy. Exported fields are
// JSON-encoded into the queue; dependencies come from the registered factory.
type Job interface {
	Handle(ctx context.Context) error
}

// FailedJob holds information about a job that exhausted its retries.
type FailedJob struct {
	Type     string
	Job      Job
	Err      error
	FailedAt time.Time
	Attempts int
}

// Driver is the queue storage backend.
type Driver interface {
	Push(ctx context.Context, payload []byte) error
	// Pop blocks until a payload is ready. A nil payload with nil error
	// means the wait timed out.
	Pop(ctx context.Context) ([]byte, error)
}

// Delayer is implemented by drivers with native delayed delivery.
type Delayer interface {
	PushDelayed(ctx context.Context, payload []byte, delay time.Duration) error
}

// Manager is the central queue hub.
type Manager struct {
	mu       sync.RWMutex
	driver   Driver
	registry map[string]func() Job // type name → constructor
	failed   []FailedJob
	maxRetry int
	backoff  time.Duration
	sink     FailedSink
}

var defaultManager = NewManager(NewMemoryDriver())

// NewManager returns a manager with 3 retries and a 1s linear backoff.
func NewManager(d Driver) *Manager {
	return &Manager{
		driver:   d,
		registry: map[string]func() Job{},
		maxRetry: 3,
		backoff:  time.Second,
	}
}

// Default returns the process-wide manager used by the package functions.
func Default() *Manager { return defaultManager }

func (m *Manager) SetDriver(d Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.driver = d
}

func (m *Manager) SetMaxRetry(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxRetry = n
}

// SetBackoff sets the base delay; attempt n waits n×d before retrying.
func (m *Manager) SetBackoff(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backoff = d
}

// Register makes a job type available for decoding by name.
func (m *Manager) Register(name string, factory func() Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[name] = factory
}

func SetDriver(d Driver)                       { defaultManager.SetDriver(d) }
func SetMaxRetry(n int)                        { defaultManager.SetMaxRetry(n) }
func Register(name string, factory func() Job) { defaultManager.Register(name, factory) }

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Dispatch pushes job onto the default queue immediately.
func Dispatch(ctx context.Context, job Job) error {
	return defaultManager.Dispatch(ctx, job)
}

// DispatchAfter pushes job after delay, natively when the driver supports it.
func DispatchAfter(ctx context.Context, job Job, delay time.Duration) error {
	return defaultManager.DispatchAfter(ctx, job, delay)
}

func (m *Manager) Dispatch(ctx context.Context, job Job) error {
	env, err := encode(job)
	if err != nil {
		return err
	}
	return m.currentDriver().Push(ctx, env)
}

func (m *Manager) DispatchAfter(ctx context.Context, job Job, delay time.Duration) error {
	env, err := encode(job)
	if err != nil {
		return err
	}
	d := m.currentDriver()
	if dl, ok := d.(Delayer); ok {
		return dl.PushDelayed(ctx, env, delay)
	}
	time.AfterFunc(delay, func() {
		if err := d.Push(context.Background(), env); err != nil {
			logger.Error("queue: delayed dispatch failed", "error", err)
		}
	})
	return nil
}

func encode(job Job) ([]byte, error) {
	typeName := fmt.Sprintf("%T", job)

	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("queue: marshal job %s: %w", typeName, err)
	}
	env, err := json.Marshal(envelope{Type: typeName, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("queue: marshal envelope: %w", err)
	}
	return env, nil
}

func (m *Manager) currentDriver() Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.driver
}

// StartWorkers launches n workers on the default manager. They run until
// ctx is cancelled.
func StartWorkers(ctx context.Context, n int) {
	defaultManager.StartWorkers(ctx, n)
}

func (m *Manager) StartWorkers(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		go m.work(ctx)
	}
	logger.Info("queue: workers started", "count", n)
}

func (m *Manager) work(ctx context.Context) {
	for ctx.Err() == nil {
		raw, err := m.currentDriver().Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("queue: pop failed", "error", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if raw != nil {
			m.Process(ctx, raw)
		}
	}
}

// Process decodes and runs one envelope. Exposed for drivers that hand out
// payloads themselves and for tests.
func (m *Manager) Process(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Error("queue: bad envelope", "error", err)
		return
	}

	m.mu.RLock()
	factory, ok := m.registry[env.Type]
	m.mu.RUnlock()

	if !ok {
		logger.Warn("queue: unregistered job type", "type", env.Type)
		metrics.RecordQueueJob(env.Type, "unregistered")
		return
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		logger.Error("queue: unmarshal payload", "type", env.Type, "error", err)
		metrics.RecordQueueJob(env.Type, "bad_payload")
		return
	}

	m.runWithRetry(ctx, job, env.Type)
}

func (m *Manager) runWithRetry(ctx context.Context, job Job, typeName string) {
	m.mu.RLock()
	maxRetry, backoff := m.maxRetry, m.backoff
	m.mu.RUnlock()

	var lastErr error
	for attempt := 1; attempt <= maxRetry; attempt++ {
		if err := job.Handle(ctx); err != nil {
			lastErr = err
			logger.Warn("queue: job failed", "type", typeName, "attempt", attempt, "error", err)
			if attempt < maxRetry {
				select {
				case <-ctx.Done():
					attempt = maxRetry
				case <-time.After(time.Duration(attempt) * backoff):
				}
			}
			continue
		}
		metrics.RecordQueueJob(typeName, "ok")
		logger.Info("queue: job processed", "type", typeName)
		return
	}

	metrics.RecordQueueJob(typeName, "failed")
	m.persistFailed(ctx, job, typeName, lastErr, maxRetry)
	logger.Error("queue: job exhausted retries", "type", typeName, "error", lastErr)
}

// FailedJobs returns a snapshot of the default manager's failed jobs.
func FailedJobs() []FailedJob { return defaultManager.FailedJobs() }

func (m *Manager) FailedJobs() []FailedJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]FailedJob, len(m.failed))
	copy(out, m.failed)
	return out
}
