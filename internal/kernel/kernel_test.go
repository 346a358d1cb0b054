package kernel_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/kirana/app/models"
	"github.com/shashiranjanraj/kirana/app/services/classifier"
	"github.com/shashiranjanraj/kirana/app/services/orders"
	"github.com/shashiranjanraj/kirana/app/services/payment"
	"github.com/shashiranjanraj/kirana/internal/kernel"
	"github.com/shashiranjanraj/kirana/pkg/auth"
	"github.com/shashiranjanraj/kirana/pkg/crypt"
	"github.com/shashiranjanraj/kirana/pkg/event"
	"github.com/shashiranjanraj/kirana/pkg/kv"
	"github.com/shashiranjanraj/kirana/pkg/queue"
	"github.com/shashiranjanraj/kirana/pkg/schedule"
	"github.com/shashiranjanraj/kirana/pkg/store"
	"github.com/shashiranjanraj/kirana/pkg/testkit"
)

var home = map[string]string{
	"name": "Home", "street": "12 MG Road", "city": "Pune", "state": "MH", "zip": "411001",
}

func boot(t *testing.T) (*kernel.App, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	t.Cleanup(event.Flush)

	cipher, err := crypt.New("test-key")
	require.NoError(t, err)

	q := queue.NewManager(queue.NewMemoryDriver())
	q.SetBackoff(time.Millisecond)
	app := kernel.New(store.NewMemory(), kv.NewMemory(), q, kernel.Options{
		DeliveryFee: 40,
		Branding:    orders.Branding{Currency: "INR", StoreName: "Kirana", ThemeColor: "#0C831F"},
		Payment: payment.RunnerConfig{
			APIKey:  "rzp_test_key",
			Timeout: 5 * time.Second,
			Workers: 4,
		},
		Cipher:         cipher,
		ClassifierCron: "0 3 * * *",
		RateLimit:      10000,
	})
	app.Start(ctx)
	q.StartWorkers(ctx, 1)

	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)
	return app, srv
}

func clientAs(t *testing.T, srv *httptest.Server, userID, role string) *testkit.Client {
	t.Helper()
	tok, err := auth.GenerateToken(userID, role)
	require.NoError(t, err)
	return testkit.NewClient(t, srv).WithToken(tok)
}

func seedProduct(t *testing.T, admin *testkit.Client, stock int) models.Product {
	t.Helper()
	res := admin.Post("/api/admin/categories", map[string]any{"name": "Dairy"})
	testkit.RequireStatus(t, http.StatusCreated, res)
	cat := testkit.Data[models.Category](t, res)

	res = admin.Post("/api/admin/products", map[string]any{
		"name": "Paneer", "price": 90, "stock_quantity": stock, "unit": "200 g", "category_id": cat.ID,
	})
	testkit.RequireStatus(t, http.StatusCreated, res)
	return testkit.Data[models.Product](t, res)
}

func checkoutState(t *testing.T, c *testkit.Client, id string) payment.State {
	return testkit.Data[payment.Status](t, c.Get("/api/checkout/"+id)).State
}

func TestCheckoutEndToEnd(t *testing.T) {
	app, srv := boot(t)
	admin := clientAs(t, srv, "admin-1", auth.RoleAdmin)
	product := seedProduct(t, admin, 5)

	// Live order feed.
	conn, _, err := websocket.DefaultDialer.Dial(admin.WSURL("/api/admin/orders/live?access_token="+admin.Token), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return app.Hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	// A guest fills a cart, then registers and keeps it.
	shopper := testkit.NewClient(t, srv)
	testkit.RequireStatus(t, http.StatusOK, shopper.Post("/api/cart/lines", map[string]string{"product_id": product.ID}))
	testkit.RequireStatus(t, http.StatusOK, shopper.Post("/api/cart/lines", map[string]string{"product_id": product.ID}))

	res := shopper.Post("/api/auth/register", map[string]string{
		"name": "Asha", "email": "asha@example.com", "password": "s3cret-pass",
	})
	testkit.RequireStatus(t, http.StatusCreated, res)
	shopper.WithToken(testkit.Data[map[string]any](t, res)["access_token"].(string))

	view := testkit.Data[struct {
		ItemCount int     `json:"item_count"`
		Total     float64 `json:"total"`
	}](t, shopper.Get("/api/cart"))
	assert.Equal(t, 2, view.ItemCount)
	assert.Equal(t, 180.0, view.Total)

	res = shopper.Post("/api/addresses", home)
	testkit.RequireStatus(t, http.StatusCreated, res)
	addr := testkit.Data[models.Address](t, res)

	res = shopper.Post("/api/checkout", map[string]string{"address_id": addr.ID, "payment_method": "upi"})
	testkit.RequireStatus(t, http.StatusAccepted, res)
	st := testkit.Data[payment.Status](t, res)
	assert.EqualValues(t, 22000, st.Widget.AmountMinorUnits)
	assert.Equal(t, "INR", st.Widget.CurrencyCode)

	require.Eventually(t, func() bool { return checkoutState(t, shopper, st.ID) == payment.ModalOpen },
		2*time.Second, 10*time.Millisecond)

	res = shopper.Post("/api/checkout/"+st.ID+"/callback", map[string]string{"event": "success", "detail": "pay_123"})
	testkit.RequireStatus(t, http.StatusAccepted, res)

	require.Eventually(t, func() bool { return checkoutState(t, shopper, st.ID) == payment.Settled },
		2*time.Second, 10*time.Millisecond)

	res = shopper.Get("/api/orders")
	testkit.RequireStatus(t, http.StatusOK, res)
	history := testkit.Data[[]models.Order](t, res)
	require.Len(t, history, 1)
	assert.Equal(t, "pay_123", history[0].PaymentReference)
	assert.Equal(t, "upi", history[0].PaymentMethod)
	assert.Equal(t, 220.0, history[0].TotalAmount)
	assert.Equal(t, "Pune", history[0].ShippingAddress.City)
	require.Len(t, history[0].Items, 1)
	assert.Equal(t, 2, history[0].Items[0].Quantity)

	assert.Equal(t, 0.0, testkit.Data[map[string]any](t, shopper.Get("/api/cart"))["item_count"])
	assert.Equal(t, 3, testkit.Data[models.Product](t, shopper.Get("/api/catalog/products/"+product.ID)).StockQuantity)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), `"type":"order.placed"`)
	assert.Contains(t, string(msg), history[0].ID)
}

func TestDismissedCheckoutKeepsCart(t *testing.T) {
	_, srv := boot(t)
	product := seedProduct(t, clientAs(t, srv, "admin-1", auth.RoleAdmin), 5)
	shopper := clientAs(t, srv, "u-1", auth.RoleShopper)

	shopper.Post("/api/cart/lines", map[string]string{"product_id": product.ID})
	addr := testkit.Data[models.Address](t, shopper.Post("/api/addresses", home))

	res := shopper.Post("/api/checkout", map[string]string{"address_id": addr.ID})
	testkit.RequireStatus(t, http.StatusAccepted, res)
	st := testkit.Data[payment.Status](t, res)

	testkit.AssertStatus(t, http.StatusConflict, shopper.Post("/api/checkout", map[string]string{"address_id": addr.ID}))

	require.Eventually(t, func() bool { return checkoutState(t, shopper, st.ID) == payment.ModalOpen },
		2*time.Second, 10*time.Millisecond)
	shopper.Post("/api/checkout/"+st.ID+"/callback", map[string]string{"event": "dismiss"})
	require.Eventually(t, func() bool { return checkoutState(t, shopper, st.ID) == payment.CancelledByUser },
		2*time.Second, 10*time.Millisecond)

	assert.Empty(t, testkit.Data[[]models.Order](t, shopper.Get("/api/orders")))
	assert.Equal(t, 1.0, testkit.Data[map[string]any](t, shopper.Get("/api/cart"))["item_count"])

	// Another shopper cannot see or drive this checkout.
	other := clientAs(t, srv, "u-2", auth.RoleShopper)
	testkit.AssertStatus(t, http.StatusNotFound, other.Get("/api/checkout/"+st.ID))
}

func TestCheckoutRejectsStaleAddressAndEmptyCart(t *testing.T) {
	_, srv := boot(t)
	product := seedProduct(t, clientAs(t, srv, "admin-1", auth.RoleAdmin), 5)
	shopper := clientAs(t, srv, "u-3", auth.RoleShopper)

	testkit.AssertStatus(t, http.StatusUnprocessableEntity, shopper.Post("/api/checkout", map[string]string{"address_id": "gone"}))

	shopper.Post("/api/cart/lines", map[string]string{"product_id": product.ID})
	testkit.AssertStatus(t, http.StatusConflict, shopper.Post("/api/checkout", map[string]string{"address_id": "gone"}))
}

func TestAccessControl(t *testing.T) {
	_, srv := boot(t)

	anon := testkit.NewClient(t, srv)
	testkit.AssertStatus(t, http.StatusUnauthorized, anon.Get("/api/orders"))
	testkit.AssertStatus(t, http.StatusOK, anon.Get("/api/catalog/categories"))

	shopper := clientAs(t, srv, "u-4", auth.RoleShopper)
	testkit.AssertStatus(t, http.StatusForbidden, shopper.Post("/api/admin/categories", map[string]string{"name": "X"}))
}

func TestAdminReorderAndClassify(t *testing.T) {
	_, srv := boot(t)
	admin := clientAs(t, srv, "admin-1", auth.RoleAdmin)

	var ids []string
	for _, name := range []string{"Fruits", "Dairy", "Snacks"} {
		ids = append(ids, testkit.Data[models.Category](t, admin.Post("/api/admin/categories", map[string]string{"name": name})).ID)
	}
	testkit.RequireStatus(t, http.StatusCreated, admin.Post("/api/admin/categories", map[string]any{"name": "Bakery", "position": 1}))
	testkit.RequireStatus(t, http.StatusNoContent, admin.Put("/api/admin/categories/"+ids[2]+"/position?position=2", nil))

	var names []string
	for _, c := range testkit.Data[[]models.Category](t, admin.Get("/api/catalog/categories")) {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Bakery", "Snacks", "Fruits", "Dairy"}, names)

	testkit.AssertStatus(t, http.StatusUnprocessableEntity, admin.Post("/api/admin/categories", map[string]any{"name": "Far", "position": 9}))

	testkit.RequireStatus(t, http.StatusCreated, admin.Post("/api/admin/products", map[string]any{"name": "Milk", "price": 30, "category_id": ids[1]}))

	res := admin.Post("/api/admin/classify", nil)
	testkit.RequireStatus(t, http.StatusOK, res)
	report := testkit.Data[classifier.Report](t, res)
	assert.Equal(t, models.CategoryProductCard, report.Types[ids[1]])

	testkit.AssertStatus(t, http.StatusConflict, admin.Post("/api/admin/subcategories", map[string]string{"category_id": ids[1], "name": "Milk"}))
}

func TestSchedulerRegistersMaintenance(t *testing.T) {
	app, _ := boot(t)
	s := schedule.New()
	require.NoError(t, app.Schedule(s))
	assert.Len(t, s.List(), 2)
}

func TestMetricsEndpoint(t *testing.T) {
	_, srv := boot(t)
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "kirana_http_requests_in_flight")
}
