package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/kirana/pkg/sse"
)

func newHostedRunner(t *testing.T, scriptURL string) (*Runner, *HostedGateway) {
	t.Helper()
	gw := NewHostedGateway(scriptURL)
	r := NewRunner(gw, RunnerConfig{APIKey: "rzp_test", ScriptURL: scriptURL, Timeout: time.Second, Workers: 2}, sse.NewBroker())
	t.Cleanup(r.Shutdown)
	return r, gw
}

func waitFor(t *testing.T, r *Runner, owner, id string, state State) Status {
	t.Helper()
	var st Status
	require.Eventually(t, func() bool {
		st, _ = r.Get(owner, id)
		return st.State == state
	}, 2*time.Second, 5*time.Millisecond)
	return st
}

func TestHostedCheckoutSettlesThroughRegistry(t *testing.T) {
	r, gw := newHostedRunner(t, "")

	st, err := r.Submit(context.Background(), "u1", Request{AmountMinorUnits: 2500, CurrencyCode: "INR"},
		func(_ context.Context, ref string) (any, error) {
			return map[string]string{"order_ref": ref}, nil
		})
	require.NoError(t, err)
	assert.Equal(t, "rzp_test", st.Widget.Key)
	assert.EqualValues(t, 2500, st.Widget.AmountMinorUnits)

	waitFor(t, r, "u1", st.ID, ModalOpen)

	_, err = r.Submit(context.Background(), "u1", Request{}, nil)
	assert.ErrorIs(t, err, ErrCheckoutInProgress)

	_, err = r.Get("u2", st.ID)
	assert.ErrorIs(t, err, ErrUnknownCheckout)

	require.NoError(t, gw.Registry.Resolve(st.ID, CallbackSuccess, "pay_9"))
	done := waitFor(t, r, "u1", st.ID, Settled)
	assert.Equal(t, "pay_9", done.Reference)
	assert.Equal(t, map[string]string{"order_ref": "pay_9"}, done.Result)

	assert.ErrorIs(t, gw.Registry.Resolve(st.ID, CallbackSuccess, "again"), ErrUnknownCheckout)
}

func TestDismissAndFailureCallbacks(t *testing.T) {
	r, gw := newHostedRunner(t, "")

	st, err := r.Submit(context.Background(), "u1", Request{}, nil)
	require.NoError(t, err)
	waitFor(t, r, "u1", st.ID, ModalOpen)
	require.NoError(t, gw.Registry.Resolve(st.ID, CallbackDismiss, ""))
	waitFor(t, r, "u1", st.ID, CancelledByUser)

	st, err = r.Submit(context.Background(), "u1", Request{}, nil)
	require.NoError(t, err)
	waitFor(t, r, "u1", st.ID, ModalOpen)
	assert.Error(t, gw.Registry.Resolve(st.ID, CallbackSuccess, ""), "success needs a reference")
	require.NoError(t, gw.Registry.Resolve(st.ID, CallbackFailure, ""))
	failed := waitFor(t, r, "u1", st.ID, Failed)
	assert.Equal(t, "payment.failed", failed.Reason)
}

func TestPlacementErrorIsRecorded(t *testing.T) {
	r, gw := newHostedRunner(t, "")
	st, err := r.Submit(context.Background(), "u1", Request{}, func(context.Context, string) (any, error) {
		return nil, errors.New("orders table unavailable")
	})
	require.NoError(t, err)
	waitFor(t, r, "u1", st.ID, ModalOpen)
	require.NoError(t, gw.Registry.Resolve(st.ID, CallbackSuccess, "pay_1"))

	done := waitFor(t, r, "u1", st.ID, Settled)
	assert.Contains(t, done.Error, "orders table unavailable")
}

func TestUnreachableScriptFailsCheckout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r, _ := newHostedRunner(t, srv.URL+"/checkout.js")
	st, err := r.Submit(context.Background(), "u1", Request{}, nil)
	require.NoError(t, err)
	waitFor(t, r, "u1", st.ID, Failed)
}

func TestSubscribeReceivesDone(t *testing.T) {
	r, gw := newHostedRunner(t, "")
	st, err := r.Submit(context.Background(), "u1", Request{}, nil)
	require.NoError(t, err)
	waitFor(t, r, "u1", st.ID, ModalOpen)

	_, ch, cancel, err := r.Subscribe("u1", st.ID)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, gw.Registry.Resolve(st.ID, CallbackDismiss, ""))

	var last sse.Event
	for ev := range ch {
		last = ev
	}
	assert.Equal(t, "done", last.Name)
}
