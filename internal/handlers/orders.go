package handlers

import (
	"encoding/json"
	"net/http"

	"restrodesk/internal/billing"
	applog "restrodesk/internal/log"
	"restrodesk/internal/orders"
	"restrodesk/models"
)

type orderLineRequest struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Taxable   bool   `json:"taxable"`
}

type placeOrderRequest struct {
	Type            string             `json:"type"`
	TableID         *uint              `json:"table_id"`
	PartySize       int                `json:"party_size"`
	CustomerName    string             `json:"customer_name"`
	Phone           string             `json:"phone"`
	DeliveryAddress string             `json:"delivery_address"`
	PaymentMethod   string             `json:"payment_method"`
	DiscountPercent float64            `json:"discount_percent"`
	DeliveryFee     int64              `json:"delivery_fee"`
	TaxID           string             `json:"tax_id"`
	Items           []orderLineRequest `json:"items"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// ListOrders returns orders newest first, with their line items.
func ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var results []models.Order
	query := database.WithContext(ctx).Preload("Items").Order("id desc")
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&results).Error; err != nil {
		applog.Error(ctx, "failed to list orders", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load orders")
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// PlaceOrder issues the bill and creates the order. Dine-in orders seat
// their table in the same transaction.
func PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid order payload", "error", err)
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

	order, err := deps.Orders.PlaceOrder(ctx, orders.PlaceOrderRequest{
		Items:           items,
		Type:            models.OrderType(payload.Type),
		TableID:         payload.TableID,
		PartySize:       payload.PartySize,
		CustomerName:    payload.CustomerName,
		Phone:           payload.Phone,
		DeliveryAddress: payload.DeliveryAddress,
		PaymentMethod:   payload.PaymentMethod,
		DiscountPercent: payload.DiscountPercent,
		DeliveryFee:     fee,
		TaxID:           payload.TaxID,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// UpdateOrderStatus advances an order through its lifecycle.
func UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	var payload statusRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid status payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	order, err := deps.Orders.UpdateStatus(ctx, id, models.OrderStatus(payload.Status))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
