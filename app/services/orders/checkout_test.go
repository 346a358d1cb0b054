package orders_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/kirana/app/models"
	"github.com/shashiranjanraj/kirana/app/services/addressbook"
	"github.com/shashiranjanraj/kirana/app/services/cart"
	"github.com/shashiranjanraj/kirana/app/services/errs"
	"github.com/shashiranjanraj/kirana/app/services/orders"
	"github.com/shashiranjanraj/kirana/app/services/payment"
	"github.com/shashiranjanraj/kirana/pkg/kv"
	"github.com/shashiranjanraj/kirana/pkg/sse"
	"github.com/shashiranjanraj/kirana/pkg/store"
)

type fixture struct {
	db       *store.Memory
	carts    *cart.Service
	book     *addressbook.Book
	gw       *payment.HostedGateway
	runner   *payment.Runner
	checkout *orders.Checkout
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := store.NewMemory()
	gw := payment.NewHostedGateway("")
	runner := payment.NewRunner(gw, payment.RunnerConfig{APIKey: "key", Timeout: 2 * time.Second, Workers: 2}, sse.NewBroker())
	t.Cleanup(runner.Shutdown)

	f := &fixture{
		db:     db,
		carts:  cart.NewService(kv.NewMemory(), db),
		book:   addressbook.New(db),
		gw:     gw,
		runner: runner,
	}
	f.checkout = orders.NewCheckout(f.carts, f.book, runner, orders.NewPlacer(db, 40),
		orders.Branding{Currency: "INR", StoreName: "Kirana", ThemeColor: "#0C831F"})
	return f
}

func TestCheckoutPlacesOrderOnSettlement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seed(t, f.db, models.Product{ID: "A", Name: "Atta", Price: 10, StockQuantity: 3})

	_, err := f.carts.AddProduct(ctx, "u1", "A")
	require.NoError(t, err)
	addr, err := f.book.Create(ctx, "u1", addressbook.Input{Name: "Home", Street: "1 Main", City: "Pune", State: "MH", Zip: "411001"})
	require.NoError(t, err)

	st, err := f.checkout.Start(ctx, "u1", orders.CheckoutInput{AddressID: addr.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 5000, st.Widget.AmountMinorUnits)

	require.Eventually(t, func() bool {
		s, _ := f.runner.Get("u1", st.ID)
		return s.State == payment.ModalOpen
	}, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, f.db.Len(models.TableOrders), "nothing is written before settlement")

	require.NoError(t, f.gw.Registry.Resolve(st.ID, payment.CallbackSuccess, "pay_77"))
	require.Eventually(t, func() bool {
		s, _ := f.runner.Get("u1", st.ID)
		return s.Done()
	}, 2*time.Second, 5*time.Millisecond)

	done, _ := f.runner.Get("u1", st.ID)
	res, ok := done.Result.(orders.Result)
	require.True(t, ok)
	assert.Equal(t, "pay_77", res.Order.PaymentReference)
	assert.True(t, f.carts.Open(ctx, "u1").Empty())
	assert.Equal(t, 2, stock(t, f.db, "A"))
}

func TestCheckoutDismissedKeepsCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seed(t, f.db, models.Product{ID: "A", Price: 10, StockQuantity: 3})
	_, _ = f.carts.AddProduct(ctx, "u1", "A")
	addr, _ := f.book.Create(ctx, "u1", addressbook.Input{Name: "Home", Street: "1 Main", City: "Pune", State: "MH", Zip: "411001"})

	st, err := f.checkout.Start(ctx, "u1", orders.CheckoutInput{AddressID: addr.ID})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		s, _ := f.runner.Get("u1", st.ID)
		return s.State == payment.ModalOpen
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, f.gw.Registry.Resolve(st.ID, payment.CallbackDismiss, ""))
	require.Eventually(t, func() bool {
		s, _ := f.runner.Get("u1", st.ID)
		return s.State == payment.CancelledByUser
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, f.carts.Open(ctx, "u1").ItemCount())
	assert.Equal(t, 3, stock(t, f.db, "A"))
	assert.Zero(t, f.db.Len(models.TableOrders))
}

func TestCheckoutRejectsEmptyCartAndStaleAddress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.checkout.Start(ctx, "u1", orders.CheckoutInput{AddressID: "x"})
	var verr *errs.ValidationError
	assert.ErrorAs(t, err, &verr)

	seed(t, f.db, models.Product{ID: "A", Price: 10, StockQuantity: 3})
	_, _ = f.carts.AddProduct(ctx, "u1", "A")
	_, err = f.checkout.Start(ctx, "u1", orders.CheckoutInput{AddressID: "deleted"})
	var stale *errs.StaleReferenceError
	assert.ErrorAs(t, err, &stale)
}
