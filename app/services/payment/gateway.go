package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shashiranjanraj/kirana/app/services/errs"
	khttp "github.com/shashiranjanraj/kirana/pkg/http"
	"github.com/shashiranjanraj/kirana/pkg/store"
)

// WidgetOptions are what the gateway's widget is constructed with.
type WidgetOptions struct {
	APIKey           string
	AmountMinorUnits int64
	CurrencyCode     string
	DisplayName      string
	ThemeColor       string

	OnSuccess func(reference string)
	OnFailure func(reason string)
	OnDismiss func()
}

// Widget is one open-able checkout modal.
type Widget interface {
	Open() error
	Close()
}

// Gateway is the third-party checkout service.
type Gateway interface {
	LoadScript(ctx context.Context) error
	NewWidget(ctx context.Context, checkoutID string, opts WidgetOptions) (Widget, error)
}

// ErrUnknownCheckout is returned for callbacks naming no open widget.
var ErrUnknownCheckout = fmt.Errorf("payment: checkout: %w", store.ErrNotFound)

// Callback is what the browser reports back from the widget.
type Callback string

const (
	CallbackSuccess Callback = "success"
	CallbackFailure Callback = "failure"
	CallbackDismiss Callback = "dismiss"
)

// HostedGateway runs the widget in the shopper's browser. The server side
// only checks the script is reachable and keeps each widget's callbacks in
// a Registry until the browser reports back through the API.
type HostedGateway struct {
	ScriptURL string
	Registry  *Registry
}

func NewHostedGateway(scriptURL string) *HostedGateway {
	return &HostedGateway{ScriptURL: scriptURL, Registry: NewRegistry()}
}

// LoadScript probes the checkout script. An empty URL means the script is
// bundled with the storefront and always available.
func (g *HostedGateway) LoadScript(ctx context.Context) error {
	if g.ScriptURL == "" {
		return nil
	}
	resp, err := khttp.Head(g.ScriptURL).
		WithContext(ctx).
		Header("Accept", "*/*").
		Timeout(3 * time.Second).
		Retry(2, 200*time.Millisecond).
		Send()
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusMethodNotAllowed {
		return nil
	}
	return resp.Throw()
}

func (g *HostedGateway) NewWidget(_ context.Context, checkoutID string, opts WidgetOptions) (Widget, error) {
	if opts.APIKey == "" {
		return nil, errors.New("payment: gateway key is not configured")
	}
	w := &hostedWidget{id: checkoutID, opts: opts, reg: g.Registry}
	g.Registry.add(w)
	return w, nil
}

type hostedWidget struct {
	id   string
	opts WidgetOptions
	reg  *Registry

	mu     sync.Mutex
	opened bool
}

func (w *hostedWidget) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.opened = true
	return nil
}

func (w *hostedWidget) Close() { w.reg.remove(w.id) }

// Registry holds open widgets by checkout id.
type Registry struct {
	mu      sync.Mutex
	widgets map[string]*hostedWidget
}

func NewRegistry() *Registry {
	return &Registry{widgets: map[string]*hostedWidget{}}
}

func (r *Registry) add(w *hostedWidget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.widgets[w.id] = w
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.widgets, id)
}

// Resolve delivers a browser callback to the widget for checkoutID.
// detail is the payment reference on success and the reason on failure.
func (r *Registry) Resolve(checkoutID string, cb Callback, detail string) error {
	r.mu.Lock()
	w, ok := r.widgets[checkoutID]
	r.mu.Unlock()
	if !ok {
		return ErrUnknownCheckout
	}

	w.mu.Lock()
	opened := w.opened
	w.mu.Unlock()
	if !opened {
		return ErrUnknownCheckout
	}

	switch cb {
	case CallbackSuccess:
		if detail == "" {
			return errs.Invalid("reference", "The reference field is required.")
		}
		w.opts.OnSuccess(detail)
	case CallbackFailure:
		if detail == "" {
			detail = "payment.failed"
		}
		w.opts.OnFailure(detail)
	case CallbackDismiss:
		w.opts.OnDismiss()
	default:
		return errs.Invalid("callback", fmt.Sprintf("Unknown callback %q.", cb))
	}
	return nil
}
