// Package payment wraps the third-party checkout widget in a state machine:
//
//	Idle → ScriptLoading → Ready → ModalOpen → Settled | Failed | CancelledByUser | TimedOut → Idle
//
// Each ModalOpen ends in exactly one terminal state. The widget's callbacks
// and the timeout timer all race to resolve one settlement; the first wins
// and the rest are ignored.
package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shashiranjanraj/kirana/app/services/errs"
	"github.com/shashiranjanraj/kirana/pkg/logger"
	"github.com/shashiranjanraj/kirana/pkg/metrics"
)

// ErrCheckoutInProgress is returned when a checkout is submitted while the
// adapter is not Idle. Nothing else happens.
var ErrCheckoutInProgress = errs.Conflict("payment: a checkout is already in progress")

// Request describes one charge.
type Request struct {
	CheckoutID       string
	AmountMinorUnits int64
	CurrencyCode     string
	DisplayName      string
	ThemeColor       string
}

// Outcome is the terminal result of one ModalOpen.
type Outcome struct {
	State     State  `json:"state"`
	Reference string `json:"reference,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// SettleFunc runs after a successful payment, before the adapter returns
// to Idle.
type SettleFunc func(ctx context.Context, reference string) error

// Observer sees every state change.
type Observer func(checkoutID string, from, to State)

type Adapter struct {
	gw      Gateway
	apiKey  string
	timeout time.Duration
	observe Observer

	mu      sync.Mutex
	state   State
	current string
}

func NewAdapter(gw Gateway, apiKey string, timeout time.Duration, observe Observer) *Adapter {
	if observe == nil {
		observe = func(string, State, State) {}
	}
	return &Adapter{gw: gw, apiKey: apiKey, timeout: timeout, observe: observe, state: Idle}
}

func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Adapter) move(to State) {
	a.mu.Lock()
	from, id := a.state, a.current
	if !canTransition(from, to) {
		a.mu.Unlock()
		panic(fmt.Sprintf("payment: illegal transition %s → %s", from, to))
	}
	a.state = to
	if to == Idle {
		a.current = ""
	}
	a.mu.Unlock()

	a.observe(id, from, to)
}

// Checkout runs a whole checkout and blocks until the adapter is Idle
// again. A non-Settled outcome is returned with a *errs.GatewayError; a
// Settled one with whatever onSettled returned.
func (a *Adapter) Checkout(ctx context.Context, req Request, onSettled SettleFunc) (Outcome, error) {
	if err := a.Begin(req.CheckoutID); err != nil {
		return Outcome{}, err
	}
	return a.Proceed(ctx, req, onSettled)
}

// Begin claims an Idle adapter for checkoutID and moves it to
// ScriptLoading. Callers that then cannot Proceed must Abort.
func (a *Adapter) Begin(checkoutID string) error {
	a.mu.Lock()
	if a.state != Idle {
		a.mu.Unlock()
		return ErrCheckoutInProgress
	}
	a.state = ScriptLoading
	a.current = checkoutID
	a.mu.Unlock()

	a.observe(checkoutID, Idle, ScriptLoading)
	return nil
}

// Abort returns a begun adapter to Idle before its widget opens.
func (a *Adapter) Abort() {
	if a.State() == ScriptLoading {
		a.move(Idle)
	}
}

// Proceed continues a begun checkout from ScriptLoading.
func (a *Adapter) Proceed(ctx context.Context, req Request, onSettled SettleFunc) (Outcome, error) {
	log := logger.WithCtx(ctx).With("checkout_id", req.CheckoutID)

	if err := a.gw.LoadScript(ctx); err != nil {
		log.Warn("payment: gateway script failed to load", "error", err)
		return a.finish(ctx, Outcome{State: Failed, Reason: "gateway unavailable"}, nil)
	}
	a.move(Ready)

	s := newSettlement()
	widget, err := a.gw.NewWidget(ctx, req.CheckoutID, WidgetOptions{
		APIKey:           a.apiKey,
		AmountMinorUnits: req.AmountMinorUnits,
		CurrencyCode:     req.CurrencyCode,
		DisplayName:      req.DisplayName,
		ThemeColor:       req.ThemeColor,
		OnSuccess:        func(ref string) { s.resolve(Outcome{State: Settled, Reference: ref}) },
		OnFailure:        func(reason string) { s.resolve(Outcome{State: Failed, Reason: reason}) },
		OnDismiss:        func() { s.resolve(Outcome{State: CancelledByUser, Reason: "dismissed"}) },
	})
	if err != nil {
		log.Warn("payment: widget construction failed", "error", err)
		return a.finish(ctx, Outcome{State: Failed, Reason: "widget unavailable"}, nil)
	}
	defer widget.Close()

	if err := widget.Open(); err != nil {
		log.Warn("payment: widget failed to open", "error", err)
		return a.finish(ctx, Outcome{State: Failed, Reason: "widget unavailable"}, nil)
	}
	a.move(ModalOpen)
	timer := time.AfterFunc(a.timeout, func() {
		s.resolve(Outcome{State: TimedOut, Reason: "no response from gateway"})
	})

	out := s.wait()
	timer.Stop()
	return a.finish(ctx, out, onSettled)
}

func (a *Adapter) finish(ctx context.Context, out Outcome, onSettled SettleFunc) (Outcome, error) {
	a.move(out.State)
	defer a.move(Idle)

	metrics.CheckoutOutcomes.WithLabelValues(string(out.State)).Inc()

	if out.State != Settled {
		return out, &errs.GatewayError{Reason: out.Reason}
	}
	if onSettled == nil {
		return out, nil
	}
	return out, onSettled(ctx, out.Reference)
}

// IsGatewayError reports whether err is a payment that did not go through.
func IsGatewayError(err error) bool {
	var ge *errs.GatewayError
	return errors.As(err, &ge)
}

// settlement is resolved at most once.
type settlement struct {
	once sync.Once
	done chan Outcome
}

func newSettlement() *settlement {
	return &settlement{done: make(chan Outcome, 1)}
}

func (s *settlement) resolve(out Outcome) {
	s.once.Do(func() { s.done <- out })
}

func (s *settlement) wait() Outcome {
	return <-s.done
}
