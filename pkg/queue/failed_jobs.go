package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shashiranjanraj/kirana/pkg/logger"
	"github.com/shashiranjanraj/kirana/pkg/store"
)

// FailedJobsTable is where exhausted jobs are recorded.
const FailedJobsTable = "failed_jobs"

// FailedJobRecord is the persisted form of a FailedJob.
type FailedJobRecord struct {
	ID       string    `json:"id"        bson:"id"        gorm:"primaryKey;size:36"`
	JobType  string    `json:"job_type"  bson:"job_type"  gorm:"size:255;not null;index"`
	Payload  string    `json:"payload"   bson:"payload"   gorm:"type:text;not null"`
	Error    string    `json:"error"     bson:"error"     gorm:"type:text"`
	Attempts int       `json:"attempts"  bson:"attempts"  gorm:"not null;default:0"`
	FailedAt time.Time `json:"failed_at" bson:"failed_at" gorm:"index"`
}

func (FailedJobRecord) TableName() string { return FailedJobsTable }

// FailedSink persists failed jobs. The store client satisfies it through
// StoreSink.
type FailedSink interface {
	Record(ctx context.Context, rec FailedJobRecord) error
}

// StoreSink writes failed jobs to the generic store.
type StoreSink struct{ Client store.Client }

func (s StoreSink) Record(ctx context.Context, rec FailedJobRecord) error {
	return s.Client.Insert(ctx, FailedJobsTable, &rec)
}

// UseStore persists failed jobs of the default manager to c.
//
//	queue.UseStore(client)
func UseStore(c store.Client) { defaultManager.SetSink(StoreSink{Client: c}) }

func (m *Manager) SetSink(s FailedSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink = s
}

// persistFailed keeps the failure in memory and, when a sink is set, in the
// store as well.
func (m *Manager) persistFailed(ctx context.Context, job Job, typeName string, lastErr error, attempts int) {
	now := time.Now()

	m.mu.Lock()
	m.failed = append(m.failed, FailedJob{
		Type: typeName, Job: job, Err: lastErr, FailedAt: now, Attempts: attempts,
	})
	sink := m.sink
	m.mu.Unlock()

	if sink == nil {
		return
	}

	payload, err := json.Marshal(job)
	if err != nil {
		payload = []byte(fmt.Sprintf(`{"error": "could not marshal: %v"}`, err))
	}
	msg := ""
	if lastErr != nil {
		msg = lastErr.Error()
	}

	rec := FailedJobRecord{
		ID:       uuid.NewString(),
		JobType:  typeName,
		Payload:  string(payload),
		Error:    msg,
		Attempts: attempts,
		FailedAt: now,
	}
	if err := sink.Record(context.WithoutCancel(ctx), rec); err != nil {
		logger.Error("queue: persist failed job", "type", typeName, "error", err)
	}
}
