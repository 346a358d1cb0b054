package orders

import (
	"context"
	"math"

	"github.com/shashiranjanraj/kirana/app/services/addressbook"
	"github.com/shashiranjanraj/kirana/app/services/cart"
	"github.com/shashiranjanraj/kirana/app/services/errs"
	"github.com/shashiranjanraj/kirana/app/services/payment"
)

// CheckoutInput is what the shopper submits.
type CheckoutInput struct {
	AddressID     string `json:"address_id"     validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"nullable,in=card|upi|netbanking|wallet"`
}

// Branding is shown on the payment widget.
type Branding struct {
	Currency   string
	StoreName  string
	ThemeColor string
}

// Checkout connects a cart and an address to the payment runner, and the
// payment's settlement to the Placer.
type Checkout struct {
	carts    *cart.Service
	book     *addressbook.Book
	runner   *payment.Runner
	placer   *Placer
	branding Branding
}

func NewCheckout(carts *cart.Service, book *addressbook.Book, runner *payment.Runner, placer *Placer, b Branding) *Checkout {
	return &Checkout{carts: carts, book: book, runner: runner, placer: placer, branding: b}
}

// Start validates the cart and address, snapshots both and opens a payment.
// The order is placed from the snapshots when, and only when, the payment
// settles.
func (c *Checkout) Start(ctx context.Context, owner string, in CheckoutInput) (payment.Status, error) {
	current := c.carts.Open(ctx, owner)
	if current.Empty() {
		return payment.Status{}, errs.Invalid("cart", "The cart is empty.")
	}
	lines := current.Lines()

	addr, err := c.book.Snapshot(ctx, owner, in.AddressID)
	if err != nil {
		return payment.Status{}, err
	}

	method := in.PaymentMethod
	if method == "" {
		method = "card"
	}

	req := payment.Request{
		AmountMinorUnits: MinorUnits(c.placer.Total(lines)),
		CurrencyCode:     c.branding.Currency,
		DisplayName:      c.branding.StoreName,
		ThemeColor:       c.branding.ThemeColor,
	}
	return c.runner.Submit(ctx, owner, req, func(ctx context.Context, reference string) (any, error) {
		res, err := c.placer.Place(ctx, PlaceInput{
			OwnerID:          owner,
			Lines:            lines,
			Address:          addr,
			PaymentMethod:    method,
			PaymentReference: reference,
		}, c.carts.Open(ctx, owner))
		return res, err
	})
}

// MinorUnits converts rupees to paise.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
