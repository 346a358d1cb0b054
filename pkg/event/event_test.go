package event_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/kirana/pkg/event"
)

func TestFireRunsListenersInOrder(t *testing.T) {
	t.Cleanup(event.Flush)

	var got []string
	event.Listen("order.placed", func(_ context.Context, p any) { got = append(got, "a:"+p.(string)) })
	event.Listen("order.placed", func(_ context.Context, _ any) { panic("bad listener") })
	event.Listen("order.placed", func(_ context.Context, p any) { got = append(got, "b:"+p.(string)) })
	event.Listen("other", func(_ context.Context, _ any) { got = append(got, "other") })

	event.Fire(context.Background(), "order.placed", "o1")
	assert.Equal(t, []string{"a:o1", "b:o1"}, got)
}

func TestFireAsyncSurvivesCancelledCaller(t *testing.T) {
	t.Cleanup(event.Flush)

	var calls atomic.Int32
	var sawCancel atomic.Bool
	event.Listen("x", func(ctx context.Context, _ any) {
		calls.Add(1)
		sawCancel.Store(ctx.Err() != nil)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	event.FireAsync(ctx, "x", nil)
	event.Wait()

	assert.EqualValues(t, 1, calls.Load())
	assert.False(t, sawCancel.Load())
}
