package billing

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	applog "restrodesk/internal/log"
	"restrodesk/models"
)

// VATRate is the fixed tax rate applied to the taxable portion of a
// bill's subtotal after discount.
const VATRate = 13.0

// LineItem is one priced entry of a cart. Non-taxable lines still count
// toward the subtotal but are excluded from the VAT base.
type LineItem struct {
	Name      string       `json:"name"`
	Quantity  int          `json:"quantity"`
	UnitPrice models.Money `json:"unit_price"`
	Taxable   bool         `json:"taxable"`
}

// BillRequest carries everything needed to issue a bill.
type BillRequest struct {
	Items           []LineItem
	CustomerName    string
	Phone           string
	PaymentMethod   string
	DiscountPercent float64
	DeliveryFee     models.Money
	TaxID           string
	TableID         *uint
}

// Totals is the deterministic monetary breakdown of a bill request.
// Identical inputs always produce identical totals.
type Totals struct {
	Subtotal       models.Money `json:"subtotal"`
	DiscountAmount models.Money `json:"discount_amount"`
	VATAmount      models.Money `json:"vat_amount"`
	TotalAmount    models.Money `json:"total_amount"`
}

// Engine issues immutable numbered bills. Bill numbers come from a
// monotonic process-scoped counter seeded from the highest persisted
// number; a number handed out is never reused, even if the bill is
// discarded.
type Engine struct {
	db  *gorm.DB
	seq atomic.Uint64
}

// New builds an Engine, seeding the bill counter from the store.
func New(db *gorm.DB) (*Engine, error) {
	e := &Engine{db: db}

	var highest uint64
	row := db.Model(&models.Bill{}).Select("COALESCE(MAX(number), 0)").Row()
	if err := row.Scan(&highest); err != nil {
		return nil, fmt.Errorf("seed bill counter: %w", err)
	}
	e.seq.Store(highest)

	return e, nil
}

// NextNumber reserves and returns the next bill number. There is no
// rollback path: discarding the bill burns the number.
func (e *Engine) NextNumber() uint64 {
	return e.seq.Add(1)
}

// Compute runs the fixed-order bill arithmetic of the tax rules, with
// rounding to whole currency units at every intermediate step. It is a
// pure function of its input.
func Compute(req BillRequest) Totals {
	var subtotal, taxableSubtotal models.Money
	for _, item := range req.Items {
		amount := item.UnitPrice.Mul(item.Quantity)
		subtotal = subtotal.Add(amount)
		if item.Taxable {
			taxableSubtotal = taxableSubtotal.Add(amount)
		}
	}

	discountAmount := subtotal.Percent(req.DiscountPercent)

	// The VAT base is the taxable share of the subtotal, discounted at
	// the same percentage. When every line is taxable this reduces to
	// subtotal minus discount.
	taxableBase := taxableSubtotal.Sub(taxableSubtotal.Percent(req.DiscountPercent))
	vatAmount := taxableBase.Percent(VATRate)

	total := subtotal.Sub(discountAmount).Add(vatAmount).Add(req.DeliveryFee)

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		VATAmount:      vatAmount,
		TotalAmount:    total,
	}
}

// GenerateBill validates the request, computes its totals, assigns the
// next bill number and persists the finished bill. The returned bill is
// immutable; corrections require issuing a new one.
func (e *Engine) GenerateBill(ctx context.Context, req BillRequest) (*models.Bill, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	totals := Compute(req)

	items := make([]models.BillItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, models.BillItem{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Amount:    item.UnitPrice.Mul(item.Quantity),
			Taxable:   item.Taxable,
		})
	}

	bill := &models.Bill{
		Number:          e.NextNumber(),
		CustomerName:    req.CustomerName,
		Phone:           req.Phone,
		TaxID:           req.TaxID,
		Items:           items,
		Subtotal:        totals.Subtotal,
		DiscountPercent: req.DiscountPercent,
		DiscountAmount:  totals.DiscountAmount,
		VATAmount:       totals.VATAmount,
		DeliveryFee:     req.DeliveryFee,
		TotalAmount:     totals.TotalAmount,
		PaymentMethod:   req.PaymentMethod,
		TableID:         req.TableID,
		IssuedAt:        time.Now().UTC(),
	}

	if err := e.db.WithContext(ctx).Create(bill).Error; err != nil {
		return nil, fmt.Errorf("persist bill: %w", err)
	}

	applog.Info(ctx, "bill issued",
		"number", bill.Number,
		"subtotal", bill.Subtotal.Int64(),
		"total", bill.TotalAmount.Int64(),
	)
	return bill, nil
}

func validate(req BillRequest) error {
	if len(req.Items) == 0 {
		return &models.ValidationError{Field: "items", Reason: "at least one line item is required"}
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return &models.ValidationError{Field: "quantity", Reason: "must be positive"}
		}
		if item.UnitPrice < 0 {
			return &models.ValidationError{Field: "unit_price", Reason: "must not be negative"}
		}
	}
	if req.DiscountPercent < 0 || req.DiscountPercent > 100 {
		return &models.ValidationError{Field: "discount_percent", Reason: "must be between 0 and 100"}
	}
	if req.DeliveryFee < 0 {
		return &models.ValidationError{Field: "delivery_fee", Reason: "must not be negative"}
	}
	return nil
}
