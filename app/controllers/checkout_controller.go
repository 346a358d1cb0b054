package controllers

import (
	"time"

	"github.com/shashiranjanraj/kirana/app/services/orders"
	"github.com/shashiranjanraj/kirana/app/services/payment"
	"github.com/shashiranjanraj/kirana/pkg/ctx"
	"github.com/shashiranjanraj/kirana/pkg/sse"
)

const keepalive = 15 * time.Second

type CheckoutController struct {
	checkout  *orders.Checkout
	runner    *payment.Runner
	callbacks *payment.Registry
}

func NewCheckoutController(d Deps) *CheckoutController {
	return &CheckoutController{checkout: d.Checkout, runner: d.Runner, callbacks: d.Callbacks}
}

// Start opens the payment widget for the caller's cart. The reply carries
// the widget options; progress is polled on Show or streamed on Events.
func (c *CheckoutController) Start(x *ctx.Context) {
	var in orders.CheckoutInput
	if !x.BindJSON(&in) {
		return
	}
	st, err := c.checkout.Start(x.Context(), x.UserID(), in)
	if err != nil {
		x.Fail(err)
		return
	}
	x.Accepted(st)
}

func (c *CheckoutController) Show(x *ctx.Context) {
	st, err := c.runner.Get(x.UserID(), x.Param("id"))
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(st)
}

// Events streams "state" events and a final "done" event carrying the
// finished status.
func (c *CheckoutController) Events(x *ctx.Context) {
	st, ch, cancel, err := c.runner.Subscribe(x.UserID(), x.Param("id"))
	if err != nil {
		x.Fail(err)
		return
	}
	defer cancel()

	stream := sse.New(x.W, x.R)
	if stream == nil {
		return
	}
	if st.Done() {
		_ = stream.Send("done", st)
		return
	}
	_ = stream.Send("state", map[string]payment.State{"state": st.State})
	stream.Pipe(x.Context(), ch, keepalive)
}

// Callback relays the widget's success, failure or dismiss callback from
// the browser.
func (c *CheckoutController) Callback(x *ctx.Context) {
	var in struct {
		Event  string `json:"event"  validate:"required,in=success|failure|dismiss"`
		Detail string `json:"detail"`
	}
	if !x.BindJSON(&in) {
		return
	}
	id := x.Param("id")
	if _, err := c.runner.Get(x.UserID(), id); err != nil {
		x.Fail(err)
		return
	}
	if err := c.callbacks.Resolve(id, payment.Callback(in.Event), in.Detail); err != nil {
		x.Fail(err)
		return
	}
	st, _ := c.runner.Get(x.UserID(), id)
	x.Accepted(st)
}
