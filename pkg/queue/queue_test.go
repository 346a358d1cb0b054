package queue_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/kirana/pkg/queue"
	"github.com/shashiranjanraj/kirana/pkg/store"
)

type echoJob struct {
	Val  string `json:"val"`
	seen *atomic.Value
}

func (j *echoJob) Handle(context.Context) error {
	j.seen.Store(j.Val)
	return nil
}

type failJob struct {
	attempts *atomic.Int32
}

func (j *failJob) Handle(context.Context) error {
	j.attempts.Add(1)
	return errors.New("always fails")
}

func newManager(t *testing.T) (*queue.Manager, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	m := queue.NewManager(queue.NewMemoryDriver())
	m.SetBackoff(time.Millisecond)
	m.StartWorkers(ctx, 2)
	return m, ctx
}

func TestDispatchAndProcess(t *testing.T) {
	m, ctx := newManager(t)
	seen := &atomic.Value{}
	m.Register("*queue_test.echoJob", func() queue.Job { return &echoJob{seen: seen} })

	require.NoError(t, m.Dispatch(ctx, &echoJob{Val: "hello"}))

	assert.Eventually(t, func() bool { return seen.Load() == "hello" }, 2*time.Second, 10*time.Millisecond)
}

func TestFailedJobIsRetriedAndRecorded(t *testing.T) {
	m, ctx := newManager(t)
	attempts := &atomic.Int32{}
	m.Register("*queue_test.failJob", func() queue.Job { return &failJob{attempts: attempts} })
	m.SetMaxRetry(2)

	sink := store.NewMemory()
	m.SetSink(queue.StoreSink{Client: sink})

	require.NoError(t, m.Dispatch(ctx, &failJob{}))

	assert.Eventually(t, func() bool { return len(m.FailedJobs()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 2, attempts.Load())

	assert.Eventually(t, func() bool { return sink.Len(queue.FailedJobsTable) == 1 }, time.Second, 10*time.Millisecond)
	recs, err := store.Find[queue.FailedJobRecord](context.Background(), sink, queue.FailedJobsTable, store.All())
	require.NoError(t, err)
	assert.Equal(t, "*queue_test.failJob", recs[0].JobType)
	assert.Equal(t, "always fails", recs[0].Error)
}

func TestUnregisteredJobIsDropped(t *testing.T) {
	m := queue.NewManager(queue.NewMemoryDriver())
	m.Process(context.Background(), []byte(`{"type":"*x.Unknown","payload":{}}`))
	m.Process(context.Background(), []byte(`not json`))
	assert.Empty(t, m.FailedJobs())
}

func TestDispatchAfterWithoutNativeDelay(t *testing.T) {
	m, ctx := newManager(t)
	seen := &atomic.Value{}
	m.Register("*queue_test.echoJob", func() queue.Job { return &echoJob{seen: seen} })

	require.NoError(t, m.DispatchAfter(ctx, &echoJob{Val: "later"}, 20*time.Millisecond))
	assert.Nil(t, seen.Load())
	assert.Eventually(t, func() bool { return seen.Load() == "later" }, 2*time.Second, 10*time.Millisecond)
}
