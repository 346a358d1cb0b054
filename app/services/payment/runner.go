package payment

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/kirana/pkg/logger"
	"github.com/shashiranjanraj/kirana/pkg/sse"
	"github.com/shashiranjanraj/kirana/pkg/workerpool"
)

type unavailable string

func (e unavailable) Error() string   { return string(e) }
func (e unavailable) HTTPStatus() int { return http.StatusServiceUnavailable }

// ErrBusy is returned when every checkout worker is taken.
var ErrBusy error = unavailable("payment: too many checkouts in progress, try again shortly")

// PlaceFunc turns a settled payment into an order; its result is kept on
// the checkout status.
type PlaceFunc func(ctx context.Context, reference string) (any, error)

// WidgetView is what the browser needs to construct the widget.
type WidgetView struct {
	Key              string `json:"key"`
	ScriptURL        string `json:"script_url,omitempty"`
	AmountMinorUnits int64  `json:"amount"`
	CurrencyCode     string `json:"currency"`
	DisplayName      string `json:"name"`
	ThemeColor       string `json:"theme_color"`
}

// Status is the latest known state of one checkout.
type Status struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"-"`
	State     State      `json:"state"`
	Widget    WidgetView `json:"widget"`
	Reference string     `json:"reference,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Result    any        `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Done reports whether the checkout has finished.
func (s Status) Done() bool { return s.State.Terminal() }

type RunnerConfig struct {
	APIKey    string
	ScriptURL string
	Timeout   time.Duration
	Workers   int
}

// Runner executes checkouts on a worker pool, keeps their latest status
// for polling and streams state changes to SSE subscribers.
type Runner struct {
	sessions *Sessions
	pool     *workerpool.Pool
	broker   *sse.Broker
	cfg      RunnerConfig

	mu       sync.Mutex
	statuses map[string]*Status
}

func NewRunner(gw Gateway, cfg RunnerConfig, broker *sse.Broker) *Runner {
	if broker == nil {
		broker = sse.NewBroker()
	}
	r := &Runner{
		pool:     workerpool.New(cfg.Workers),
		broker:   broker,
		cfg:      cfg,
		statuses: map[string]*Status{},
	}
	r.sessions = NewSessions(gw, cfg.APIKey, cfg.Timeout, r.observe)
	return r
}

// Submit starts a checkout for owner and returns at once. A second submit
// from the same owner while one is open returns ErrCheckoutInProgress.
func (r *Runner) Submit(ctx context.Context, owner string, req Request, place PlaceFunc) (Status, error) {
	if req.CheckoutID == "" {
		req.CheckoutID = uuid.NewString()
	}

	r.mu.Lock()
	r.statuses[req.CheckoutID] = &Status{
		ID:      req.CheckoutID,
		OwnerID: owner,
		State:   Idle,
		Widget: WidgetView{
			Key:              r.cfg.APIKey,
			ScriptURL:        r.cfg.ScriptURL,
			AmountMinorUnits: req.AmountMinorUnits,
			CurrencyCode:     req.CurrencyCode,
			DisplayName:      req.DisplayName,
			ThemeColor:       req.ThemeColor,
		},
		UpdatedAt: time.Now().UTC(),
	}
	r.mu.Unlock()

	adapter, err := r.sessions.Begin(owner, req.CheckoutID)
	if err != nil {
		r.forget(req.CheckoutID)
		return Status{}, err
	}

	// The checkout outlives the request that started it.
	bg := context.WithoutCancel(ctx)
	err = r.pool.Submit(func() { r.run(bg, adapter, req, place) })
	if err != nil {
		logger.WithCtx(ctx).Warn("payment: checkout rejected", "checkout_id", req.CheckoutID, "error", err)
		adapter.Abort()
		r.forget(req.CheckoutID)
		return Status{}, ErrBusy
	}

	st, _ := r.Get(owner, req.CheckoutID)
	return st, nil
}

func (r *Runner) run(ctx context.Context, a *Adapter, req Request, place PlaceFunc) {
	var result any
	settle := func(ctx context.Context, ref string) error {
		if place == nil {
			return nil
		}
		var err error
		result, err = place(ctx, ref)
		return err
	}

	out, err := a.Proceed(ctx, req, settle)

	r.mu.Lock()
	st, ok := r.statuses[req.CheckoutID]
	if ok {
		st.State = out.State
		st.Reference = out.Reference
		st.Reason = out.Reason
		st.Result = result
		if err != nil && out.State == Settled {
			st.Error = err.Error()
		}
		st.UpdatedAt = time.Now().UTC()
	}
	var snapshot Status
	if ok {
		snapshot = *st
	}
	r.mu.Unlock()

	if err != nil && out.State == Settled {
		logger.WithCtx(ctx).Error("payment: settled but order placement failed",
			"checkout_id", req.CheckoutID, "reference", out.Reference, "error", err)
	}
	r.broker.Publish(req.CheckoutID, sse.Event{Name: "done", Data: snapshot})
	r.broker.Close(req.CheckoutID)
}

// observe records intermediate states. Terminal states and the return to
// Idle are recorded by run, together with the result.
func (r *Runner) observe(id string, _, to State) {
	if to == Idle || to.Terminal() {
		return
	}
	r.mu.Lock()
	st, ok := r.statuses[id]
	if ok {
		st.State = to
		st.UpdatedAt = time.Now().UTC()
	}
	r.mu.Unlock()

	if ok {
		r.broker.Publish(id, sse.Event{Name: "state", Data: map[string]State{"state": to}})
	}
}

// Get returns the status of a checkout owned by owner.
func (r *Runner) Get(owner, id string) (Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.statuses[id]
	if !ok || st.OwnerID != owner {
		return Status{}, ErrUnknownCheckout
	}
	return *st, nil
}

// Subscribe streams state changes of an unfinished checkout. The channel
// closes when the checkout finishes.
func (r *Runner) Subscribe(owner, id string) (Status, <-chan sse.Event, func(), error) {
	st, err := r.Get(owner, id)
	if err != nil {
		return Status{}, nil, nil, err
	}
	ch, cancel := r.broker.Subscribe(id)
	// Re-read in case it finished between Get and Subscribe.
	if st, _ = r.Get(owner, id); st.Done() {
		cancel()
	}
	return st, ch, cancel, nil
}

// Prune forgets finished checkouts older than age.
func (r *Runner) Prune(age time.Duration) int {
	cutoff := time.Now().UTC().Add(-age)

	r.mu.Lock()
	n := 0
	for id, st := range r.statuses {
		if st.Done() && st.UpdatedAt.Before(cutoff) {
			delete(r.statuses, id)
			n++
		}
	}
	r.mu.Unlock()

	return n + r.sessions.Prune()
}

// InFlight is the number of checkouts currently holding a worker.
func (r *Runner) InFlight() int { return r.pool.Busy() }

// Shutdown waits for running checkouts to finish.
func (r *Runner) Shutdown() { r.pool.Shutdown() }

func (r *Runner) forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.statuses, id)
}
