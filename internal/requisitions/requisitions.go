package requisitions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"restrodesk/internal/ledger"
	"restrodesk/internal/locks"
	applog "restrodesk/internal/log"
	"restrodesk/models"
)

// Service runs the requisition workflow: staff request raw materials,
// and approval drains the ledger through the same atomic deduction
// primitive production uses.
type Service struct {
	db     *gorm.DB
	ledger *ledger.Ledger
	locker *locks.EntityLocker
}

// NewService builds the requisition service.
func NewService(db *gorm.DB, l *ledger.Ledger, locker *locks.EntityLocker) *Service {
	return &Service{db: db, ledger: l, locker: locker}
}

// ItemRequest is one requested ingredient line.
type ItemRequest struct {
	IngredientID uint    `json:"ingredient_id"`
	Quantity     float64 `json:"quantity"`
}

// Create opens a pending requisition. No stock is touched at creation;
// only staff accounts may request materials.
func (s *Service) Create(ctx context.Context, staff *models.User, items []ItemRequest, notes string) (*models.Requisition, error) {
	if staff == nil || !staff.StaffLike() {
		return nil, &models.ValidationError{Field: "staff", Reason: "requisitions can only be created by staff accounts"}
	}
	if len(items) == 0 {
		return nil, &models.ValidationError{Field: "items", Reason: "at least one item is required"}
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, &models.ValidationError{Field: "quantity", Reason: "must be positive"}
		}
	}

	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.IngredientID)
	}
	var known int64
	if err := s.db.WithContext(ctx).Model(&models.Ingredient{}).Where("id IN ?", ids).Count(&known).Error; err != nil {
		return nil, fmt.Errorf("check ingredients: %w", err)
	}
	if int(known) != len(uniqueIDs(ids)) {
		return nil, &models.ValidationError{Field: "ingredient_id", Reason: "one or more ingredients do not exist"}
	}

	lines := make([]models.RequisitionItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, models.RequisitionItem{
			IngredientID: item.IngredientID,
			Quantity:     item.Quantity,
		})
	}

	req := &models.Requisition{
		RequisitionNo: "REQ-" + strings.ToUpper(uuid.NewString()[:8]),
		StaffID:       staff.ID,
		Status:        models.RequisitionPending,
		Notes:         notes,
		Items:         lines,
	}
	if err := s.db.WithContext(ctx).Create(req).Error; err != nil {
		return nil, fmt.Errorf("create requisition: %w", err)
	}

	applog.Info(ctx, "requisition created", "requisition_no", req.RequisitionNo, "staff", staff.ID, "items", len(lines))
	return req, nil
}

// Approve deducts the requested quantities from the ledger in one
// atomic call and marks the requisition approved. If stock is
// insufficient the requisition is marked rejected with the shortage
// noted, and the shortage error is returned so the outcome is never
// silently dropped.
func (s *Service) Approve(ctx context.Context, reqID uint, approver *models.User) (*models.Requisition, error) {
	if approver == nil || approver.Role != models.RoleAdmin {
		return nil, &models.ValidationError{Field: "approver", Reason: "requisitions can only be approved by admin accounts"}
	}

	release := s.locker.Acquire(locks.Key{Kind: locks.KindRequisition, ID: reqID})
	defer release()

	req, err := s.load(ctx, reqID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequisitionPending {
		return nil, &models.InvalidTransitionError{Entity: "requisition", From: string(req.Status), To: string(models.RequisitionApproved)}
	}

	deltas := make([]ledger.Delta, 0, len(req.Items))
	for _, item := range req.Items {
		deltas = append(deltas, ledger.Delta{IngredientID: item.IngredientID, Quantity: -item.Quantity})
	}

	releaseStock := s.locker.AcquireAll(ledger.LockKeys(deltas)...)
	defer releaseStock()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ledger.ApplyDeltasTx(ctx, tx, models.MovementRequisition, req.RequisitionNo, deltas); err != nil {
			return err
		}
		return tx.Model(req).Update("status", models.RequisitionApproved).Error
	})
	if err != nil {
		var stockErr *models.InsufficientStockError
		if errors.As(err, &stockErr) {
			updates := map[string]any{
				"status": models.RequisitionRejected,
				"notes":  appendNote(req.Notes, stockErr.Error()),
			}
			if dbErr := s.db.WithContext(ctx).Model(req).Updates(updates).Error; dbErr != nil {
				return nil, fmt.Errorf("record rejected requisition: %w", dbErr)
			}
			applog.Warn(ctx, "requisition rejected for shortage", "requisition_no", req.RequisitionNo)
			return nil, err
		}
		return nil, fmt.Errorf("approve requisition: %w", err)
	}
	req.Status = models.RequisitionApproved

	applog.Info(ctx, "requisition approved", "requisition_no", req.RequisitionNo, "approver", approver.ID)
	return req, nil
}

// Reject marks a pending requisition rejected without touching stock.
func (s *Service) Reject(ctx context.Context, reqID uint, approver *models.User, reason string) (*models.Requisition, error) {
	if approver == nil || approver.Role != models.RoleAdmin {
		return nil, &models.ValidationError{Field: "approver", Reason: "requisitions can only be rejected by admin accounts"}
	}

	release := s.locker.Acquire(locks.Key{Kind: locks.KindRequisition, ID: reqID})
	defer release()

	req, err := s.load(ctx, reqID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequisitionPending {
		return nil, &models.InvalidTransitionError{Entity: "requisition", From: string(req.Status), To: string(models.RequisitionRejected)}
	}

	updates := map[string]any{
		"status": models.RequisitionRejected,
		"notes":  appendNote(req.Notes, reason),
	}
	if err := s.db.WithContext(ctx).Model(req).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("reject requisition: %w", err)
	}
	req.Status = models.RequisitionRejected

	applog.Info(ctx, "requisition rejected", "requisition_no", req.RequisitionNo, "approver", approver.ID)
	return req, nil
}

func (s *Service) load(ctx context.Context, reqID uint) (*models.Requisition, error) {
	var req models.Requisition
	if err := s.db.WithContext(ctx).Preload("Items").First(&req, reqID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &models.ValidationError{Field: "requisition_id", Reason: fmt.Sprintf("requisition %d does not exist", reqID)}
		}
		return nil, fmt.Errorf("load requisition: %w", err)
	}
	return &req, nil
}

func appendNote(existing, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return existing
	}
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
