package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"restrodesk/internal/billing"
	"restrodesk/internal/events"
	"restrodesk/internal/locks"
	applog "restrodesk/internal/log"
	"restrodesk/models"
)

// allowedTransitions is the complete edge set of the order state
// machine. Anything absent here is rejected with an
// InvalidTransitionError.
var allowedTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:   {models.OrderConfirmed, models.OrderCancelled},
	models.OrderConfirmed: {models.OrderPreparing, models.OrderCancelled},
	models.OrderPreparing: {models.OrderReady, models.OrderCancelled},
	models.OrderReady:     {models.OrderServed},
	models.OrderServed:    {},
	models.OrderCancelled: {},
}

// CanTransition reports whether from -> to is an allowed edge.
func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// knownStatus reports whether s is a node of the state machine at all.
func knownStatus(s models.OrderStatus) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// Service drives orders through their lifecycle and keeps table
// occupancy coupled to it. Seating a table and creating its dine-in
// order commit in one transaction.
type Service struct {
	db      *gorm.DB
	billing *billing.Engine
	locker  *locks.EntityLocker
	events  *events.Publisher
	seq     atomic.Uint64
}

// NewService builds the order service, seeding the order-number counter
// from the store. The events publisher may be nil.
func NewService(db *gorm.DB, be *billing.Engine, locker *locks.EntityLocker, pub *events.Publisher) (*Service, error) {
	s := &Service{db: db, billing: be, locker: locker, events: pub}

	var highest uint64
	row := db.Model(&models.Order{}).Select("COALESCE(MAX(id), 0)").Row()
	if err := row.Scan(&highest); err != nil {
		return nil, fmt.Errorf("seed order counter: %w", err)
	}
	s.seq.Store(highest)

	return s, nil
}

func (s *Service) nextOrderNo() string {
	return fmt.Sprintf("ORD-%06d", s.seq.Add(1))
}

// PlaceOrderRequest is one checkout: a priced cart plus fulfillment
// details. For dine-in orders TableID and PartySize seat the table.
type PlaceOrderRequest struct {
	Items           []billing.LineItem
	Type            models.OrderType
	TableID         *uint
	PartySize       int
	CustomerName    string
	Phone           string
	DeliveryAddress string
	PaymentMethod   string
	DiscountPercent float64
	DeliveryFee     models.Money
	TaxID           string
}

// PlaceOrder issues the bill for the cart and creates the order
// referencing it. A dine-in order requires its table to be available or
// reserved; the order row and the table's transition to occupied commit
// in the same transaction so a failure leaves neither applied.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*models.Order, error) {
	if !models.ValidOrderType(req.Type) {
		return nil, &models.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown order type %q", req.Type)}
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		return nil, &models.ValidationError{Field: "customer_name", Reason: "is required"}
	}
	if req.Type == models.OrderDineIn {
		if req.TableID == nil {
			return nil, &models.ValidationError{Field: "table_id", Reason: "is required for dine-in orders"}
		}
		if req.PartySize <= 0 {
			return nil, &models.ValidationError{Field: "party_size", Reason: "must be positive for dine-in orders"}
		}
	}
	if req.Type == models.OrderDelivery && strings.TrimSpace(req.DeliveryAddress) == "" {
		return nil, &models.ValidationError{Field: "delivery_address", Reason: "is required for delivery orders"}
	}

	if req.Type == models.OrderDineIn {
		return s.placeDineIn(ctx, req)
	}
	return s.placeSimple(ctx, req)
}

func (s *Service) placeSimple(ctx context.Context, req PlaceOrderRequest) (*models.Order, error) {
	bill, err := s.billing.GenerateBill(ctx, billRequest(req))
	if err != nil {
		return nil, err
	}

	order := s.buildOrder(req, bill)
	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	applog.Info(ctx, "order placed", "order_no", order.OrderNo, "type", order.Type, "total", order.TotalAmount.Int64())
	s.events.OrderStatusChanged(ctx, order.OrderNo, "", string(order.Status))
	return order, nil
}

func (s *Service) placeDineIn(ctx context.Context, req PlaceOrderRequest) (*models.Order, error) {
	release := s.locker.Acquire(locks.Key{Kind: locks.KindTable, ID: *req.TableID})
	defer release()

	var table models.Table
	if err := s.db.WithContext(ctx).First(&table, *req.TableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &models.ValidationError{Field: "table_id", Reason: fmt.Sprintf("table %d does not exist", *req.TableID)}
		}
		return nil, fmt.Errorf("load table: %w", err)
	}

	if table.Status != models.TableAvailable && table.Status != models.TableReserved {
		return nil, &models.ConflictError{
			Resource: "table",
			Reason:   fmt.Sprintf("table %d is %s and cannot be seated", table.Number, table.Status),
		}
	}
	if req.PartySize > table.Capacity {
		return nil, &models.ConflictError{
			Resource: "table",
			Reason:   fmt.Sprintf("party of %d exceeds table capacity %d", req.PartySize, table.Capacity),
		}
	}

	bill, err := s.billing.GenerateBill(ctx, billRequest(req))
	if err != nil {
		return nil, err
	}

	order := s.buildOrder(req, bill)
	now := time.Now().UTC()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		return tx.Model(&models.Table{}).Where("id = ?", table.ID).Updates(map[string]any{
			"status":        models.TableOccupied,
			"customer_name": req.CustomerName,
			"phone":         req.Phone,
			"party_size":    req.PartySize,
			"checked_in_at": &now,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("seat table and create order: %w", err)
	}

	applog.Info(ctx, "dine-in order placed",
		"order_no", order.OrderNo,
		"table", table.Number,
		"party_size", req.PartySize,
	)
	s.events.OrderStatusChanged(ctx, order.OrderNo, "", string(order.Status))
	return order, nil
}

func billRequest(req PlaceOrderRequest) billing.BillRequest {
	return billing.BillRequest{
		Items:           req.Items,
		CustomerName:    req.CustomerName,
		Phone:           req.Phone,
		PaymentMethod:   req.PaymentMethod,
		DiscountPercent: req.DiscountPercent,
		DeliveryFee:     req.DeliveryFee,
		TaxID:           req.TaxID,
		TableID:         req.TableID,
	}
}

func (s *Service) buildOrder(req PlaceOrderRequest, bill *models.Bill) *models.Order {
	items := make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, models.OrderItem{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Amount:    item.UnitPrice.Mul(item.Quantity),
			Taxable:   item.Taxable,
		})
	}

	return &models.Order{
		OrderNo:         s.nextOrderNo(),
		BillNumber:      &bill.Number,
		Status:          models.OrderPending,
		Type:            req.Type,
		TableID:         req.TableID,
		CustomerName:    req.CustomerName,
		Phone:           req.Phone,
		DeliveryAddress: req.DeliveryAddress,
		Items:           items,
		Subtotal:        bill.Subtotal,
		DiscountPercent: bill.DiscountPercent,
		DiscountAmount:  bill.DiscountAmount,
		DeliveryFee:     bill.DeliveryFee,
		TaxAmount:       bill.VATAmount,
		TotalAmount:     bill.TotalAmount,
		PaymentMethod:   req.PaymentMethod,
	}
}

// UpdateStatus moves an order along the state machine. A disallowed
// edge returns InvalidTransitionError and leaves the order untouched.
func (s *Service) UpdateStatus(ctx context.Context, orderID uint, to models.OrderStatus) (*models.Order, error) {
	if !knownStatus(to) {
		return nil, &models.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", to)}
	}

	release := s.locker.Acquire(locks.Key{Kind: locks.KindOrder, ID: orderID})
	defer release()

	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &models.ValidationError{Field: "order_id", Reason: fmt.Sprintf("order %d does not exist", orderID)}
		}
		return nil, fmt.Errorf("load order: %w", err)
	}

	from := order.Status
	if !CanTransition(from, to) {
		return nil, &models.InvalidTransitionError{Entity: "order", From: string(from), To: string(to)}
	}

	if err := s.db.WithContext(ctx).Model(&order).Update("status", to).Error; err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	order.Status = to

	applog.Info(ctx, "order status changed", "order_no", order.OrderNo, "from", from, "to", to)
	s.events.OrderStatusChanged(ctx, order.OrderNo, string(from), string(to))
	return &order, nil
}

// ActiveOrderCount returns the number of non-terminal orders currently
// referencing the table.
func (s *Service) ActiveOrderCount(ctx context.Context, tableID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("table_id = ? AND status NOT IN ?", tableID, []models.OrderStatus{models.OrderServed, models.OrderCancelled}).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count active orders: %w", err)
	}
	return count, nil
}
