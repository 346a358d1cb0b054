package orders_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/kirana/app/models"
	"github.com/shashiranjanraj/kirana/app/services/errs"
	"github.com/shashiranjanraj/kirana/app/services/orders"
	"github.com/shashiranjanraj/kirana/pkg/logger"
	"github.com/shashiranjanraj/kirana/pkg/store"
)

type fakeCart struct{ cleared int }

func (c *fakeCart) Clear(context.Context) error {
	c.cleared++
	return nil
}

func captureLogs(ctx context.Context) (context.Context, *bytes.Buffer) {
	var buf bytes.Buffer
	return logger.InjectLogger(ctx, slog.New(slog.NewTextHandler(&buf, nil))), &buf
}

func seed(t *testing.T, db store.Client, products ...models.Product) {
	t.Helper()
	for i := range products {
		require.NoError(t, db.Insert(context.Background(), models.TableProducts, &products[i]))
	}
}

func stock(t *testing.T, db store.Client, id string) int {
	t.Helper()
	p, err := store.One[models.Product](context.Background(), db, models.TableProducts, store.Eq("id", id))
	require.NoError(t, err)
	return p.StockQuantity
}

func input(lines ...models.CartLine) orders.PlaceInput {
	return orders.PlaceInput{
		OwnerID:          "u1",
		Lines:            lines,
		Address:          models.AddressSnapshot{Name: "Asha", Street: "12 MG Road", City: "Pune", State: "MH", Zip: "411001"},
		PaymentMethod:    "card",
		PaymentReference: "pay_1",
	}
}

func TestPlaceWritesOrderItemsAndStock(t *testing.T) {
	ctx := context.Background()
	db := store.NewMemory()
	seed(t, db,
		models.Product{ID: "A", Name: "Atta", Price: 12, StockQuantity: 5},
		models.Product{ID: "B", Name: "Dal", Price: 5, StockQuantity: 1},
	)
	cart := &fakeCart{}

	// Prices come from the cart lines, not the live catalog.
	res, err := orders.NewPlacer(db, 40).Place(ctx, input(
		models.CartLine{ProductID: "A", UnitPrice: 10, Quantity: 2},
		models.CartLine{ProductID: "B", UnitPrice: 5, Quantity: 1},
	), cart)
	require.NoError(t, err)

	assert.Equal(t, models.StatusConfirmed, res.Order.Status)
	assert.Equal(t, 65.0, res.Order.TotalAmount)
	assert.Equal(t, "12 MG Road", res.Order.ShippingAddress.Street)
	assert.Len(t, res.Order.Items, 2)
	assert.Empty(t, res.StockFailures)
	assert.NoError(t, res.ItemsErr)

	items, err := store.Find[models.OrderItem](ctx, db, models.TableOrderItems, store.Eq("order_id", res.Order.ID))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 10.0, items[0].UnitPriceAtPurchase)

	assert.Equal(t, 3, stock(t, db, "A"))
	assert.Equal(t, 0, stock(t, db, "B"))
	assert.Equal(t, 1, cart.cleared)
}

func TestOrderWriteFailureKeepsCart(t *testing.T) {
	ctx := context.Background()
	db := store.NewMemory()
	seed(t, db, models.Product{ID: "A", StockQuantity: 5})
	db.SetFault(func(op store.Operation, table string, _ store.Query) error {
		if op == store.OpInsert && table == models.TableOrders {
			return errors.New("connection reset")
		}
		return nil
	})
	cart := &fakeCart{}

	_, err := orders.NewPlacer(db, 40).Place(ctx, input(models.CartLine{ProductID: "A", UnitPrice: 10, Quantity: 1}), cart)

	var rw *errs.RemoteWriteError
	require.ErrorAs(t, err, &rw)
	assert.Zero(t, cart.cleared)
	assert.Zero(t, db.Len(models.TableOrders))
	assert.Zero(t, db.Len(models.TableOrderItems))
	assert.Equal(t, 5, stock(t, db, "A"))
}

func TestItemsFailureLeavesOrderWithoutItems(t *testing.T) {
	ctx, logs := captureLogs(context.Background())
	db := store.NewMemory()
	seed(t, db, models.Product{ID: "A", StockQuantity: 5})
	db.SetFault(func(op store.Operation, table string, _ store.Query) error {
		if op == store.OpInsert && table == models.TableOrderItems {
			return errors.New("timeout")
		}
		return nil
	})
	cart := &fakeCart{}

	res, err := orders.NewPlacer(db, 40).Place(ctx, input(models.CartLine{ProductID: "A", UnitPrice: 10, Quantity: 2}), cart)
	require.NoError(t, err)

	assert.Error(t, res.ItemsErr)
	assert.Equal(t, 1, db.Len(models.TableOrders))
	assert.Zero(t, db.Len(models.TableOrderItems))
	assert.Equal(t, 1, cart.cleared, "cart is cleared once the order row exists")
	assert.Equal(t, 3, stock(t, db, "A"), "stock step still runs")
	assert.Contains(t, logs.String(), "create order items failed")
	assert.Contains(t, logs.String(), res.Order.ID)
}

func TestStockDecrementIsIndependentPerProduct(t *testing.T) {
	ctx, logs := captureLogs(context.Background())
	db := store.NewMemory()
	seed(t, db, models.Product{ID: "A", StockQuantity: 5}, models.Product{ID: "B", StockQuantity: 5})
	db.SetFault(func(op store.Operation, table string, q store.Query) error {
		if id, _ := q.Lookup("id"); op == store.OpUpdate && table == models.TableProducts && id == "A" {
			return errors.New("row locked")
		}
		return nil
	})

	res, err := orders.NewPlacer(db, 0).Place(ctx, input(
		models.CartLine{ProductID: "A", UnitPrice: 1, Quantity: 1},
		models.CartLine{ProductID: "B", UnitPrice: 1, Quantity: 1},
		models.CartLine{ProductID: "gone", UnitPrice: 1, Quantity: 1},
	), nil)
	require.NoError(t, err)

	assert.Len(t, res.StockFailures, 2)
	assert.Contains(t, res.StockFailures, "A")
	assert.Contains(t, res.StockFailures, "gone")
	assert.Equal(t, 5, stock(t, db, "A"))
	assert.Equal(t, 4, stock(t, db, "B"))
	assert.Contains(t, logs.String(), "stock decrement failed")
}

func TestSequentialPurchasesClampAtZero(t *testing.T) {
	ctx := context.Background()
	db := store.NewMemory()
	seed(t, db, models.Product{ID: "A", StockQuantity: 3})
	p := orders.NewPlacer(db, 0)

	for i := 0; i < 2; i++ {
		res, err := p.Place(ctx, input(models.CartLine{ProductID: "A", UnitPrice: 1, Quantity: 2}), nil)
		require.NoError(t, err)
		assert.Empty(t, res.StockFailures)
	}
	assert.Equal(t, 0, stock(t, db, "A"))
	assert.Equal(t, 2, db.Len(models.TableOrders), "both orders are kept even though stock ran out")
}

func TestPlaceValidatesBeforeWriting(t *testing.T) {
	db := store.NewMemory()
	in := input()
	in.PaymentReference = ""

	_, err := orders.NewPlacer(db, 0).Place(context.Background(), in, nil)
	var verr *errs.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields(), "lines")
	assert.Contains(t, verr.Fields(), "payment_reference")
	assert.Zero(t, db.Len(models.TableOrders))
}
