package models

import (
	"time"

	"gorm.io/gorm"
)

// Bill is a point-in-time financial record. Once issued it is never
// edited; a correction requires a new bill under a new number.
type Bill struct {
	gorm.Model
	Number          uint64     `gorm:"uniqueIndex;not null" json:"number"`
	CustomerName    string     `json:"customer_name"`
	Phone           string     `gorm:"size:32" json:"phone"`
	TaxID           string     `gorm:"size:64" json:"tax_id,omitempty"`
	Items           []BillItem `gorm:"foreignKey:BillID" json:"items"`
	Subtotal        Money      `gorm:"not null" json:"subtotal"`
	DiscountPercent float64    `gorm:"not null;default:0" json:"discount_percent"`
	DiscountAmount  Money      `gorm:"not null;default:0" json:"discount_amount"`
	VATAmount       Money      `gorm:"not null;default:0" json:"vat_amount"`
	DeliveryFee     Money      `gorm:"not null;default:0" json:"delivery_fee"`
	TotalAmount     Money      `gorm:"not null" json:"total_amount"`
	PaymentMethod   string     `gorm:"size:32" json:"payment_method"`
	TableID         *uint      `json:"table_id,omitempty"`
	IssuedAt        time.Time  `gorm:"not null" json:"issued_at"`
}

// BillItem is one snapshotted line of an issued bill.
type BillItem struct {
	gorm.Model
	BillID    uint   `gorm:"index;not null" json:"bill_id"`
	Name      string `gorm:"not null" json:"name"`
	Quantity  int    `gorm:"not null" json:"quantity"`
	UnitPrice Money  `gorm:"not null" json:"unit_price"`
	Amount    Money  `gorm:"not null" json:"amount"`
	Taxable   bool   `gorm:"not null;default:true" json:"taxable"`
}
