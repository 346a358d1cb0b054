package models

// CartLine is one product in a cart. Quantity is always at least 1; a line
// set to zero is removed instead.
type CartLine struct {
	ProductID     string  `json:"product_id"`
	Name          string  `json:"name"`
	UnitPrice     float64 `json:"unit_price"`
	Image         string  `json:"image"`
	CategoryLabel string  `json:"category_label"`
	Quantity      int     `json:"quantity"`
}

func (l CartLine) Subtotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}
