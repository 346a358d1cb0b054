package models

import "time"

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

var statusRank = map[OrderStatus]int{
	StatusPending:   0,
	StatusConfirmed: 1,
	StatusShipped:   2,
	StatusDelivered: 3,
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok || s == StatusCancelled
}

// CanTransition reports whether an order may move from s to next. Statuses
// only move forward; cancelled is terminal and reachable from any state
// before delivery.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	if s == StatusCancelled || s == StatusDelivered {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	from, ok1 := statusRank[s]
	to, ok2 := statusRank[next]
	return ok1 && ok2 && to > from
}

// Order is written once per settled payment.
type Order struct {
	ID               string          `gorm:"primaryKey;size:36"             json:"id"                bson:"id"`
	OwnerID          string          `gorm:"size:64;not null;index"         json:"owner_id"          bson:"owner_id"`
	TotalAmount      float64         `gorm:"not null"                       json:"total_amount"      bson:"total_amount"`
	DeliveryFee      float64         `gorm:"not null;default:0"             json:"delivery_fee"      bson:"delivery_fee"`
	Status           OrderStatus     `gorm:"size:20;not null;index"         json:"status"            bson:"status"`
	PaymentMethod    string          `gorm:"size:50"                        json:"payment_method"    bson:"payment_method"`
	PaymentReference string          `gorm:"size:128;index"                 json:"payment_reference" bson:"payment_reference"`
	ShippingAddress  AddressSnapshot `gorm:"embedded;embeddedPrefix:ship_" json:"shipping_address"  bson:"shipping_address"`
	CreatedAt        time.Time       `gorm:"index"                          json:"created_at"        bson:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"                     bson:"updated_at"`

	Items []OrderItem `gorm:"-" json:"items,omitempty" bson:"-"`
}

// OrderItem captures the unit price at purchase time.
type OrderItem struct {
	ID                  string  `gorm:"primaryKey;size:36"     json:"id"                     bson:"id"`
	OrderID             string  `gorm:"size:36;not null;index" json:"order_id"               bson:"order_id"`
	ProductID           string  `gorm:"size:36;not null;index" json:"product_id"             bson:"product_id"`
	Name                string  `gorm:"size:255"               json:"name"                   bson:"name"`
	Quantity            int     `gorm:"not null"               json:"quantity"               bson:"quantity"`
	UnitPriceAtPurchase float64 `gorm:"not null"               json:"unit_price_at_purchase" bson:"unit_price_at_purchase"`
}
