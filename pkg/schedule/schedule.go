// Package schedule runs periodic maintenance such as the nightly catalog
// classifier pass.
//
//	s := schedule.New()
//	s.Cron(config.ClassifierCron()).Name("catalog:classify").WithoutOverlapping().Run(task)
//	s.Every(10).Minutes().Name("checkout:sweep").Run(sweep)
//	s.Start(ctx)
package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shashiranjanraj/kirana/pkg/logger"
)

// Task is the function signature for a scheduled task.
type Task func(ctx context.Context)

type entry struct {
	id        string
	interval  time.Duration
	cronExpr  string // "" unless using Cron()
	task      Task
	noOverlap bool

	mu      sync.Mutex
	lastRun time.Time
	running bool
}

// Scheduler holds registered entries and dispatches the due ones.
type Scheduler struct {
	mu      sync.Mutex
	entries []*entry
	wg      sync.WaitGroup
}

func New() *Scheduler { return &Scheduler{} }

// Builder configures one entry before Run registers it.
type Builder struct {
	s *Scheduler
	e *entry
}

// Every starts a fluent interval builder with n units.
func (s *Scheduler) Every(n int) *Freq { return &Freq{s: s, n: n} }

func (s *Scheduler) Hourly() *Builder { return s.Every(1).Hours() }

func (s *Scheduler) Daily() *Builder { return s.Every(24).Hours() }

// Cron schedules with a 5-field expression (min hour dom mon dow). Each
// field accepts *, n, a-b, */step and comma lists of those.
func (s *Scheduler) Cron(expr string) *Builder {
	return &Builder{s: s, e: &entry{cronExpr: expr}}
}

type Freq struct {
	s *Scheduler
	n int
}

func (f *Freq) build(unit time.Duration) *Builder {
	return &Builder{s: f.s, e: &entry{interval: time.Duration(f.n) * unit}}
}

func (f *Freq) Seconds() *Builder { return f.build(time.Second) }
func (f *Freq) Minutes() *Builder { return f.build(time.Minute) }
func (f *Freq) Hours() *Builder   { return f.build(time.Hour) }

// WithoutOverlapping skips a run while the previous one is still executing.
func (b *Builder) WithoutOverlapping() *Builder {
	b.e.noOverlap = true
	return b
}

// Name gives the entry an identifier for logs and List.
func (b *Builder) Name(id string) *Builder {
	b.e.id = id
	return b
}

// Run registers the task. An invalid cron expression is rejected here
// rather than silently never firing.
func (b *Builder) Run(fn Task) error {
	if b.e.cronExpr != "" {
		if err := Validate(b.e.cronExpr); err != nil {
			return err
		}
	}
	b.e.task = fn

	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if b.e.id == "" {
		b.e.id = fmt.Sprintf("task-%d", len(b.s.entries)+1)
	}
	b.s.entries = append(b.s.entries, b.e)
	return nil
}

// Start ticks every second until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
	logger.Info("schedule: scheduler started", "entries", len(s.List()))
}

// Wait blocks until dispatched tasks have returned.
func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("schedule: scheduler stopped")
			return
		case now := <-ticker.C:
			s.Tick(ctx, now)
		}
	}
}

// Tick dispatches every entry due at now.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	current := append([]*entry(nil), s.entries...)
	s.mu.Unlock()

	for _, e := range current {
		if e.due(now) {
			s.dispatch(ctx, e, now)
		}
	}
}

func (e *entry) due(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cronExpr != "" {
		// Cron resolution is one minute, so fire at most once per minute.
		if !e.lastRun.IsZero() && e.lastRun.Truncate(time.Minute).Equal(now.Truncate(time.Minute)) {
			return false
		}
		ok, _ := Matches(e.cronExpr, now)
		return ok
	}
	return e.lastRun.IsZero() || now.Sub(e.lastRun) >= e.interval
}

func (s *Scheduler) dispatch(ctx context.Context, e *entry, now time.Time) {
	e.mu.Lock()
	if e.noOverlap && e.running {
		e.mu.Unlock()
		logger.Warn("schedule: skipping overlapping task", "id", e.id)
		return
	}
	e.running = true
	e.lastRun = now
	e.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
			if r := recover(); r != nil {
				logger.Error("schedule: task panicked", "id", e.id, "panic", fmt.Sprint(r))
			}
		}()

		logger.Info("schedule: running task", "id", e.id)
		e.task(ctx)
	}()
}

// List describes every registered entry (for the CLI).
func (s *Scheduler) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		freq := e.cronExpr
		if freq == "" {
			freq = "every " + e.interval.String()
		}
		out = append(out, fmt.Sprintf("%s  [%s]", e.id, freq))
	}
	return out
}

var bounds = [5][2]int{{0, 59}, {0, 23}, {1, 31}, {1, 12}, {0, 6}}

// Validate reports whether expr is a supported 5-field cron expression.
func Validate(expr string) error {
	_, err := Matches(expr, time.Time{})
	return err
}

// Matches reports whether t falls on expr.
func Matches(expr string, t time.Time) (bool, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return false, fmt.Errorf("schedule: cron %q: want 5 fields, got %d", expr, len(fields))
	}
	vals := [5]int{t.Minute(), t.Hour(), t.Day(), int(t.Month()), int(t.Weekday())}

	all := true
	for i, f := range fields {
		ok, err := matchField(f, vals[i], bounds[i][0], bounds[i][1])
		if err != nil {
			return false, fmt.Errorf("schedule: cron %q: %w", expr, err)
		}
		all = all && ok
	}
	return all, nil
}

func matchField(field string, val, lo, hi int) (bool, error) {
	matched := false
	for _, part := range strings.Split(field, ",") {
		ok, err := matchPart(part, val, lo, hi)
		if err != nil {
			return false, err
		}
		matched = matched || ok
	}
	return matched, nil
}

func matchPart(part string, val, lo, hi int) (bool, error) {
	if part == "*" {
		return true, nil
	}
	if step, ok := strings.CutPrefix(part, "*/"); ok {
		n, err := strconv.Atoi(step)
		if err != nil || n <= 0 {
			return false, fmt.Errorf("bad step %q", part)
		}
		return (val-lo)%n == 0, nil
	}
	if a, b, ok := strings.Cut(part, "-"); ok {
		from, err1 := strconv.Atoi(a)
		to, err2 := strconv.Atoi(b)
		if err1 != nil || err2 != nil || from < lo || to > hi || from > to {
			return false, fmt.Errorf("bad range %q", part)
		}
		return val >= from && val <= to, nil
	}
	n, err := strconv.Atoi(part)
	if err != nil || n < lo || n > hi {
		return false, fmt.Errorf("bad value %q", part)
	}
	return n == val, nil
}
