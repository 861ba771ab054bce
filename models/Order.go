package models

import (
	"gorm.io/gorm"
)

// OrderStatus is a node in the order fulfillment state machine.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderPreparing OrderStatus = "PREPARING"
	OrderReady     OrderStatus = "READY"
	OrderServed    OrderStatus = "SERVED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// Terminal reports whether s admits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderServed || s == OrderCancelled
}

// OrderType distinguishes how an order is fulfilled.
type OrderType string

const (
	OrderDineIn   OrderType = "DINE_IN"
	OrderDelivery OrderType = "DELIVERY"
	OrderTakeaway OrderType = "TAKEAWAY"
)

// ValidOrderType reports whether t is a known order type.
func ValidOrderType(t OrderType) bool {
	switch t {
	case OrderDineIn, OrderDelivery, OrderTakeaway:
		return true
	}
	return false
}

// Order is a customer checkout. Line items and monetary fields are
// immutable after creation; only the status changes afterwards.
type Order struct {
	gorm.Model
	OrderNo         string      `gorm:"size:32;uniqueIndex;not null" json:"order_no"`
	BillNumber      *uint64     `gorm:"index" json:"bill_number,omitempty"`
	Status          OrderStatus `gorm:"size:16;not null;default:PENDING" json:"status"`
	Type            OrderType   `gorm:"size:16;not null" json:"type"`
	TableID         *uint       `gorm:"index" json:"table_id,omitempty"`
	Table           *Table      `gorm:"foreignKey:TableID" json:"table,omitempty"`
	CustomerName    string      `json:"customer_name"`
	Phone           string      `gorm:"size:32" json:"phone"`
	DeliveryAddress string      `gorm:"type:text" json:"delivery_address,omitempty"`
	Items           []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	Subtotal        Money       `gorm:"not null" json:"subtotal"`
	DiscountPercent float64     `gorm:"not null;default:0" json:"discount_percent"`
	DiscountAmount  Money       `gorm:"not null;default:0" json:"discount_amount"`
	DeliveryFee     Money       `gorm:"not null;default:0" json:"delivery_fee"`
	TaxAmount       Money       `gorm:"not null;default:0" json:"tax_amount"`
	TotalAmount     Money       `gorm:"not null" json:"total_amount"`
	PaymentMethod   string      `gorm:"size:32" json:"payment_method"`
}

// OrderItem is one priced line of an order, immutable post-creation.
type OrderItem struct {
	gorm.Model
	OrderID   uint   `gorm:"index;not null" json:"order_id"`
	Name      string `gorm:"not null" json:"name"`
	Quantity  int    `gorm:"not null" json:"quantity"`
	UnitPrice Money  `gorm:"not null" json:"unit_price"`
	Amount    Money  `gorm:"not null" json:"amount"`
	Taxable   bool   `gorm:"not null;default:true" json:"taxable"`
}
