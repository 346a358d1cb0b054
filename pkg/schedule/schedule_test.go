package schedule_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/kirana/pkg/schedule"
)

func at(h, m, s int) time.Time {
	// 2024-01-03 was a Wednesday.
	return time.Date(2024, 1, 3, h, m, s, 0, time.UTC)
}

func TestMatches(t *testing.T) {
	cases := []struct {
		expr string
		t    time.Time
		want bool
	}{
		{"0 3 * * *", at(3, 0, 0), true},
		{"0 3 * * *", at(3, 1, 0), false},
		{"*/15 * * * *", at(9, 45, 0), true},
		{"*/15 * * * *", at(9, 50, 0), false},
		{"0 9-17 * * 1-5", at(12, 0, 0), true},
		{"0 9-17 * * 0,6", at(12, 0, 0), false},
		{"30 1,13 3 1 *", at(13, 30, 0), true},
	}
	for _, tc := range cases {
		got, err := schedule.Matches(tc.expr, tc.t)
		require.NoError(t, err, tc.expr)
		assert.Equal(t, tc.want, got, tc.expr)
	}
}

func TestValidateRejectsBadExpressions(t *testing.T) {
	for _, expr := range []string{"", "* * * *", "61 * * * *", "*/0 * * * *", "5-1 * * * *", "a * * * *"} {
		assert.Error(t, schedule.Validate(expr), expr)
	}
	assert.Error(t, schedule.New().Cron("nope").Run(func(context.Context) {}))
}

func TestCronFiresOncePerMinute(t *testing.T) {
	s := schedule.New()
	var runs atomic.Int32
	require.NoError(t, s.Cron("0 3 * * *").Name("classify").Run(func(context.Context) { runs.Add(1) }))

	ctx := context.Background()
	for sec := 0; sec < 60; sec++ {
		s.Tick(ctx, at(3, 0, sec))
	}
	s.Tick(ctx, at(3, 1, 0))
	s.Wait()

	assert.EqualValues(t, 1, runs.Load())
	assert.Equal(t, []string{"classify  [0 3 * * *]"}, s.List())
}

func TestIntervalAndOverlap(t *testing.T) {
	s := schedule.New()
	release := make(chan struct{})
	var runs atomic.Int32
	require.NoError(t, s.Every(1).Seconds().WithoutOverlapping().Run(func(context.Context) {
		runs.Add(1)
		<-release
	}))

	ctx := context.Background()
	s.Tick(ctx, at(1, 0, 0))
	s.Tick(ctx, at(1, 0, 1)) // still running: skipped
	close(release)
	s.Wait()

	s.Tick(ctx, at(1, 0, 2))
	s.Wait()
	assert.EqualValues(t, 2, runs.Load())
}
