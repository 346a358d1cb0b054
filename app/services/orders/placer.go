// Package orders turns a settled payment into an order.
//
// Placement is three independent writes with no transaction around them:
//
//  1. the order row (failure aborts and keeps the cart),
//  2. the order items in one batch (failure leaves an order with no items),
//  3. a clamped stock decrement per product (each attempted regardless of
//     the others).
//
// Once step 1 succeeds the cart is cleared whatever steps 2 and 3 did.
// Every partial failure is logged and counted, never retried. Stock is
// read-modify-write without locking, so concurrent orders can oversell;
// the clamp only guarantees it never goes negative.
package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/kirana/app/models"
	"github.com/shashiranjanraj/kirana/app/repositories"
	"github.com/shashiranjanraj/kirana/app/services/errs"
	"github.com/shashiranjanraj/kirana/pkg/collection"
	"github.com/shashiranjanraj/kirana/pkg/event"
	"github.com/shashiranjanraj/kirana/pkg/logger"
	"github.com/shashiranjanraj/kirana/pkg/metrics"
	"github.com/shashiranjanraj/kirana/pkg/store"
)

// EventPlaced fires with the placed models.Order.
const EventPlaced = "order.placed"

type PlaceInput struct {
	OwnerID          string
	Lines            []models.CartLine
	Address          models.AddressSnapshot
	PaymentMethod    string
	PaymentReference string
}

func (in PlaceInput) validate() error {
	fields := map[string]string{}
	if in.OwnerID == "" {
		fields["owner_id"] = "The owner_id field is required."
	}
	if len(in.Lines) == 0 {
		fields["lines"] = "The cart is empty."
	}
	for _, l := range in.Lines {
		if l.ProductID == "" || l.Quantity < 1 {
			fields["lines"] = "Every line needs a product and a quantity of at least 1."
			break
		}
	}
	if in.Address.Street == "" || in.Address.City == "" || in.Address.Zip == "" {
		fields["address"] = "A delivery address is required."
	}
	if in.PaymentReference == "" {
		fields["payment_reference"] = "The payment_reference field is required."
	}
	if len(fields) > 0 {
		return &errs.ValidationError{Errors: fields}
	}
	return nil
}

// Result reports what placement managed to write.
type Result struct {
	Order models.Order `json:"order"`
	// ItemsErr is set when step 2 failed; the order then has no items.
	ItemsErr error `json:"-"`
	// StockFailures maps product id to the error that stopped its decrement.
	StockFailures map[string]error `json:"-"`
	Warnings      []string         `json:"warnings,omitempty"`
}

// CartClearer is the cart emptied after a successful order write.
type CartClearer interface {
	Clear(ctx context.Context) error
}

type Placer struct {
	orders   *repositories.Repository[models.Order]
	items    *repositories.Repository[models.OrderItem]
	products *repositories.Repository[models.Product]
	fee      float64
	now      func() time.Time
}

func NewPlacer(db store.Client, deliveryFee float64) *Placer {
	return &Placer{
		orders:   repositories.Orders(db),
		items:    repositories.OrderItems(db),
		products: repositories.Products(db),
		fee:      deliveryFee,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Total is the sum of line subtotals plus the delivery fee.
func (p *Placer) Total(lines []models.CartLine) float64 {
	return collection.Sum(lines, models.CartLine.Subtotal) + p.fee
}

// Place runs the three writes in order. It only returns an error when
// validation or the order write fails; later failures are reported on
// the Result. cart may be nil.
func (p *Placer) Place(ctx context.Context, in PlaceInput, cart CartClearer) (Result, error) {
	if err := in.validate(); err != nil {
		return Result{}, err
	}
	log := logger.WithCtx(ctx).With("owner_id", in.OwnerID, "payment_reference", in.PaymentReference)

	now := p.now()
	order := models.Order{
		ID:               uuid.NewString(),
		OwnerID:          in.OwnerID,
		TotalAmount:      p.Total(in.Lines),
		DeliveryFee:      p.fee,
		Status:           models.StatusConfirmed,
		PaymentMethod:    in.PaymentMethod,
		PaymentReference: in.PaymentReference,
		ShippingAddress:  in.Address,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := p.orders.Create(ctx, &order); err != nil {
		metrics.OrderStepFailures.WithLabelValues("create_order").Inc()
		log.Error("orders: create order failed; payment is captured but no order exists", "error", err)
		return Result{}, errs.RemoteWrite("create order", err)
	}
	log = log.With("order_id", order.ID)
	res := Result{Order: order, StockFailures: map[string]error{}}

	items := make([]models.OrderItem, len(in.Lines))
	for i, l := range in.Lines {
		items[i] = models.OrderItem{
			ID:                  uuid.NewString(),
			OrderID:             order.ID,
			ProductID:           l.ProductID,
			Name:                l.Name,
			Quantity:            l.Quantity,
			UnitPriceAtPurchase: l.UnitPrice,
		}
	}
	if err := p.items.CreateMany(ctx, items); err != nil {
		metrics.OrderStepFailures.WithLabelValues("create_items").Inc()
		log.Error("orders: create order items failed; order has no items", "items", len(items), "error", err)
		res.ItemsErr = err
		res.Warnings = append(res.Warnings, "order items could not be saved")
	} else {
		res.Order.Items = items
	}

	for _, l := range in.Lines {
		if err := p.decrement(ctx, l.ProductID, l.Quantity); err != nil {
			metrics.StockDecrementFailures.Inc()
			log.Error("orders: stock decrement failed", "product_id", l.ProductID, "quantity", l.Quantity, "error", err)
			res.StockFailures[l.ProductID] = err
		}
	}
	if len(res.StockFailures) > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("stock not updated for %d product(s)", len(res.StockFailures)))
	}

	if cart != nil {
		if err := cart.Clear(ctx); err != nil {
			log.Warn("orders: cart clear failed", "error", err)
		}
	}

	metrics.OrdersPlaced.Inc()
	log.Info("orders: placed", "total", order.TotalAmount, "lines", len(in.Lines))
	event.FireAsync(ctx, EventPlaced, res.Order)
	return res, nil
}

// decrement sets stock to max(0, current-qty).
func (p *Placer) decrement(ctx context.Context, productID string, qty int) error {
	prod, err := p.products.Find(ctx, productID)
	if err != nil {
		return fmt.Errorf("read stock: %w", err)
	}
	next := prod.StockQuantity - qty
	if next < 0 {
		next = 0
	}
	if err := p.products.Update(ctx, productID, map[string]any{
		"stock_quantity": next,
		"updated_at":     p.now(),
	}); err != nil {
		return fmt.Errorf("write stock: %w", err)
	}
	return nil
}
