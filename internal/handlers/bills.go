package handlers

import (
	"encoding/json"
	"net/http"

	"restrodesk/internal/billing"
	applog "restrodesk/internal/log"
	"restrodesk/models"
)

type billRequest struct {
	CustomerName    string             `json:"customer_name"`
	Phone           string             `json:"phone"`
	PaymentMethod   string             `json:"payment_method"`
	DiscountPercent float64            `json:"discount_percent"`
	DeliveryFee     int64              `json:"delivery_fee"`
	TaxID           string             `json:"tax_id"`
	TableID         *uint              `json:"table_id"`
	Items           []orderLineRequest `json:"items"`
}

// ListBills returns issued bills newest first.
func ListBills(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var bills []models.Bill
	if err := database.WithContext(ctx).Preload("Items").Order("number desc").Find(&bills).Error; err != nil {
		applog.Error(ctx, "failed to list bills", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load bills")
		return
	}
	writeJSON(w, http.StatusOK, bills)
}

// GenerateBill issues a standalone bill for a priced cart, such as a
// counter sale with no order behind it.
func GenerateBill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload billRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid bill payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	items := make([]billing.LineItem, 0, len(payload.Items))
	for _, line := range payload.Items {
		price, err := models.NewMoney(line.UnitPrice)
		if err != nil {
			writeDomainError(w, r, &models.ValidationError{Field: "items", Reason: "unit_price must not be negative"})
			return
		}
		items = append(items, billing.LineItem{
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: price,
			Taxable:   line.Taxable,
		})
	}

	fee, err := models.NewMoney(payload.DeliveryFee)
	if err != nil {
		writeDomainError(w, r, &models.ValidationError{Field: "delivery_fee", Reason: "must not be negative"})
		return
	}

	bill, err := deps.Billing.GenerateBill(ctx, billing.BillRequest{
		Items:           items,
		CustomerName:    payload.CustomerName,
		Phone:           payload.Phone,
		PaymentMethod:   payload.PaymentMethod,
		DiscountPercent: payload.DiscountPercent,
		DeliveryFee:     fee,
		TaxID:           payload.TaxID,
		TableID:         payload.TableID,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, bill)
}
