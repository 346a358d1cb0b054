// Package event is an in-process dispatcher for domain events such as
// "order.placed".
//
//	event.Listen(orders.EventPlaced, func(ctx context.Context, p any) { ... })
//	event.Fire(ctx, orders.EventPlaced, order)
package event

import (
	"context"
	"fmt"
	"sync"

	"github.com/shashiranjanraj/kirana/pkg/logger"
)

// Handler receives an event payload.
type Handler func(ctx context.Context, payload any)

var (
	mu       sync.RWMutex
	handlers = map[string][]Handler{}
	pending  sync.WaitGroup
)

// Listen registers a handler for the given event name.
func Listen(event string, handler Handler) {
	mu.Lock()
	defer mu.Unlock()
	handlers[event] = append(handlers[event], handler)
}

func listeners(event string) []Handler {
	mu.RLock()
	defer mu.RUnlock()
	return append([]Handler(nil), handlers[event]...)
}

// Fire runs every listener synchronously. A panicking listener is logged and
// does not stop the others.
func Fire(ctx context.Context, event string, payload any) {
	for _, h := range listeners(event) {
		call(ctx, event, h, payload)
	}
}

// FireAsync runs every listener on its own goroutine and returns at once.
// The listeners get a context that outlives the caller's cancellation.
func FireAsync(ctx context.Context, event string, payload any) {
	detached := context.WithoutCancel(ctx)
	for _, h := range listeners(event) {
		pending.Add(1)
		go func(h Handler) {
			defer pending.Done()
			call(detached, event, h, payload)
		}(h)
	}
}

// Wait blocks until every FireAsync listener started so far has returned.
func Wait() { pending.Wait() }

func call(ctx context.Context, event string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithCtx(ctx).Error("event: listener panicked", "event", event, "panic", fmt.Sprint(r))
		}
	}()
	h(ctx, payload)
}

// Flush removes all listeners (useful in tests).
func Flush() {
	mu.Lock()
	defer mu.Unlock()
	handlers = map[string][]Handler{}
}
