package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"kitshed/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Checkout/Return state machine. Each transition is one transaction keyed by
// the checkout (and kit) row; the partial unique index on
// kit_checkouts(kit_id) over live statuses makes the "one active checkout per
// kit" rule hold even when two initiators race past the fast-path check.

func requireSignature(sig string) error {
	if strings.TrimSpace(sig) == "" {
		return Validationf("signature is required")
	}
	return nil
}

func requireStatus(co *models.KitCheckout, allowed ...string) error {
	for _, s := range allowed {
		if co.Status == s {
			return nil
		}
	}
	return InvalidStatef("checkout %d is %s", co.ID, co.Status)
}

func (r *Repo) lockCheckout(tx *gorm.DB, tenantID string, id uint) (*models.KitCheckout, error) {
	var co models.KitCheckout
	if err := forUpdate(tx).
		First(&co, "tenant_id = ? AND id = ?", tenantID, id).Error; err != nil {
		return nil, asNotFound(err, "checkout %d not found", id)
	}
	return &co, nil
}

func appendEvent(tx *gorm.DB, co *models.KitCheckout, action, from, to string, actorID *int64, note string) error {
	return tx.Create(&models.CheckoutEvent{
		ID:         uuid.NewString(),
		TenantID:   co.TenantID,
		CheckoutID: co.ID,
		KitID:      co.KitID,
		Action:     action,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actorID,
		Note:       note,
	}).Error
}

type InitiateCheckoutInput struct {
	KitID            uint       `json:"kitId"`
	BorrowerID       int64      `json:"borrowerId"`
	ExpectedReturnAt *time.Time `json:"expectedReturnAt,omitempty"`
	ConditionOut     string     `json:"conditionOut,omitempty"`
	Notes            string     `json:"notes,omitempty"`
}

// InitiateCheckout opens a Pending checkout for an Available kit, snapshotting
// every current kit item into a checkout item. The kit itself is untouched
// until the signature confirms the handover.
func (r *Repo) InitiateCheckout(ctx context.Context, tenantID string, in InitiateCheckoutInput) (*models.KitCheckout, error) {
	borrowerName, err := r.Users.ResolveUser(ctx, in.BorrowerID)
	if err != nil {
		return nil, err
	}

	var co *models.KitCheckout
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		kit, err := r.lockKit(tx, tenantID, in.KitID)
		if err != nil {
			return err
		}
		if kit.Status != models.KitAvailable {
			return InvalidStatef("kit %s is %s", kit.Code, kit.Status)
		}
		var live int64
		if err := tx.Model(&models.KitCheckout{}).
			Where("kit_id = ? AND status IN ?", kit.ID, models.LiveCheckoutStatuses()).
			Count(&live).Error; err != nil {
			return err
		}
		if live > 0 {
			return InvalidStatef("kit %s already has an active checkout", kit.Code)
		}

		var items []models.KitItem
		if err := tx.Where("kit_id = ?", kit.ID).Order("position ASC").Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return Validationf("kit %s has no items", kit.Code)
		}

		now := time.Now().UTC()
		expected := now.Add(time.Duration(r.defaultLoanDays(tx, kit)) * 24 * time.Hour)
		if in.ExpectedReturnAt != nil {
			expected = in.ExpectedReturnAt.UTC()
		}
		if !expected.After(now) {
			return Validationf("expected return must be in the future")
		}
		condOut := in.ConditionOut
		if condOut == "" {
			condOut = models.ConditionGood
		}

		co = &models.KitCheckout{
			TenantID:         tenantID,
			KitID:            kit.ID,
			Status:           models.CheckoutPending,
			BorrowerID:       in.BorrowerID,
			BorrowerName:     borrowerName,
			ExpectedReturnAt: expected,
			ConditionOut:     condOut,
			NotesOut:         in.Notes,
		}
		for _, it := range items {
			co.Items = append(co.Items, models.CheckoutItem{
				KitItemID:    it.ID,
				EquipmentID:  it.EquipmentID,
				Position:     it.Position,
				PresentOut:   true,
				ConditionOut: condOut,
			})
		}
		if err := tx.Create(co).Error; err != nil {
			if isUniqueViolation(err) {
				return InvalidStatef("kit %s already has an active checkout", kit.Code)
			}
			return err
		}
		return appendEvent(tx, co, "initiate_checkout", "", models.CheckoutPending, &in.BorrowerID, in.Notes)
	})
	if err != nil {
		return nil, err
	}
	return co, nil
}

func (r *Repo) defaultLoanDays(tx *gorm.DB, kit *models.EquipmentKit) int {
	if kit.TemplateID != nil {
		var tpl models.KitTemplate
		if err := tx.First(&tpl, "id = ?", *kit.TemplateID).Error; err == nil && tpl.DefaultLoanDays > 0 {
			return tpl.DefaultLoanDays
		}
	}
	return 7
}

// ConfirmCheckout hands the kit over: Pending -> CheckedOut, gated on a
// non-empty signature.
func (r *Repo) ConfirmCheckout(ctx context.Context, tenantID string, checkoutID uint, signature string) (*models.KitCheckout, error) {
	var co *models.KitCheckout
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		co, err = r.lockCheckout(tx, tenantID, checkoutID)
		if err != nil {
			return err
		}
		if err := requireStatus(co, models.CheckoutPending); err != nil {
			return err
		}
		if err := requireSignature(signature); err != nil {
			return err
		}

		now := time.Now().UTC()
		co.Status = models.CheckoutCheckedOut
		co.CheckedOutAt = &now
		co.SignatureOut = signature
		co.SignatureOutAt = &now
		if err := tx.Save(co).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.EquipmentKit{}).
			Where("id = ?", co.KitID).
			Updates(map[string]any{
				"status":           models.KitCheckedOut,
				"assigned_user_id": co.BorrowerID,
			}).Error; err != nil {
			return err
		}
		return appendEvent(tx, co, "confirm_checkout", models.CheckoutPending, co.Status, &co.BorrowerID, "")
	})
	if err != nil {
		return nil, err
	}
	return co, nil
}

type ReturnItemInput struct {
	CheckoutItemID uint   `json:"checkoutItemId"`
	Present        bool   `json:"present"`
	Condition      string `json:"condition,omitempty"`
	Damaged        bool   `json:"damaged"`
	DamageNote     string `json:"damageNote,omitempty"`
	Note           string `json:"note,omitempty"`
}

func applyReturnItems(tx *gorm.DB, co *models.KitCheckout, items []ReturnItemInput) error {
	for _, in := range items {
		var ci models.CheckoutItem
		if err := tx.First(&ci, "checkout_id = ? AND id = ?", co.ID, in.CheckoutItemID).Error; err != nil {
			return asNotFound(err, "checkout item %d not found in checkout %d", in.CheckoutItemID, co.ID)
		}
		cond := in.Condition
		if cond == "" {
			cond = ci.ConditionOut
		}
		// Damage is sticky: ReportDamage may already have marked the row.
		damaged := ci.Damaged || in.Damaged
		if damaged {
			cond = models.ConditionDamaged
		}
		updates := map[string]any{
			"present_in":      in.Present,
			"condition_in":    cond,
			"damaged":         damaged,
			"return_recorded": true,
		}
		if in.DamageNote != "" {
			updates["damage_note"] = in.DamageNote
		}
		if in.Note != "" {
			updates["note"] = in.Note
		}
		if err := tx.Model(&ci).Updates(updates).Error; err != nil {
			return err
		}
	}
	return nil
}

// InitiateReturn records proposed per-item return conditions without
// finalizing anything; the checkout status is unchanged.
func (r *Repo) InitiateReturn(ctx context.Context, tenantID string, checkoutID uint, items []ReturnItemInput) (*models.KitCheckout, error) {
	var co *models.KitCheckout
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		co, err = r.lockCheckout(tx, tenantID, checkoutID)
		if err != nil {
			return err
		}
		if err := requireStatus(co, models.CheckoutCheckedOut, models.CheckoutPartialReturn, models.CheckoutOverdue); err != nil {
			return err
		}
		if err := applyReturnItems(tx, co, items); err != nil {
			return err
		}
		return appendEvent(tx, co, "initiate_return", co.Status, co.Status, nil, "")
	})
	if err != nil {
		return nil, err
	}
	return co, nil
}

type ConfirmReturnInput struct {
	Signature   string            `json:"signature"`
	ConditionIn string            `json:"conditionIn,omitempty"`
	Notes       string            `json:"notes,omitempty"`
	Items       []ReturnItemInput `json:"items,omitempty"`
}

// ConfirmReturn closes the loan: everything not explicitly recorded counts as
// returned in its checkout-time condition, damage flags propagate to the kit
// items, and the kit goes back on the shelf.
func (r *Repo) ConfirmReturn(ctx context.Context, tenantID string, checkoutID uint, in ConfirmReturnInput) (*models.KitCheckout, error) {
	var co *models.KitCheckout
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		co, err = r.lockCheckout(tx, tenantID, checkoutID)
		if err != nil {
			return err
		}
		from := co.Status
		if err := requireStatus(co, models.CheckoutCheckedOut, models.CheckoutPartialReturn, models.CheckoutOverdue); err != nil {
			return err
		}
		if err := requireSignature(in.Signature); err != nil {
			return err
		}
		if err := applyReturnItems(tx, co, in.Items); err != nil {
			return err
		}
		// Items never captured by a return recording come back now; a
		// damage report alone keeps its condition but counts as present.
		if err := tx.Model(&models.CheckoutItem{}).
			Where("checkout_id = ? AND return_recorded = ?", co.ID, false).
			Update("present_in", true).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.CheckoutItem{}).
			Where("checkout_id = ? AND condition_in = ''", co.ID).
			Update("condition_in", gorm.Expr("condition_out")).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		co.Status = models.CheckoutReturned
		co.ActualReturnAt = &now
		co.SignatureIn = in.Signature
		co.SignatureInAt = &now
		co.NotesIn = in.Notes
		co.ConditionIn = in.ConditionIn
		if co.ConditionIn == "" {
			co.ConditionIn = models.ConditionGood
		}
		if err := tx.Save(co).Error; err != nil {
			return err
		}

		kit, err := r.lockKit(tx, tenantID, co.KitID)
		if err != nil {
			return err
		}
		if err := tx.Model(kit).Updates(map[string]any{
			"status":           models.KitAvailable,
			"assigned_user_id": nil,
		}).Error; err != nil {
			return err
		}

		if err := r.flagDamagedItems(tx, kit, co); err != nil {
			return err
		}
		return appendEvent(tx, co, "confirm_return", from, co.Status, nil, in.Notes)
	})
	if err != nil {
		return nil, err
	}
	return co, nil
}

// flagDamagedItems propagates return-time damage reports into the kit items
// and the kit-level maintenance flag.
func (r *Repo) flagDamagedItems(tx *gorm.DB, kit *models.EquipmentKit, co *models.KitCheckout) error {
	var damaged []models.CheckoutItem
	if err := tx.Where("checkout_id = ? AND damaged = ?", co.ID, true).Find(&damaged).Error; err != nil {
		return err
	}
	for _, ci := range damaged {
		var item models.KitItem
		if err := tx.First(&item, "id = ?", ci.KitItemID).Error; err != nil {
			// The slot may have been swapped out since checkout.
			continue
		}
		if err := flagItemTx(tx, kit, &item, ci.DamageNote); err != nil {
			return err
		}
	}
	return nil
}

type PartialReturnInput struct {
	Signature string            `json:"signature"`
	Items     []ReturnItemInput `json:"items"`
}

// PartialReturn records that a subset of items came back. The kit stays
// checked out: it still owes items, so kit status and assignment do not move.
func (r *Repo) PartialReturn(ctx context.Context, tenantID string, checkoutID uint, in PartialReturnInput) (*models.KitCheckout, error) {
	var co *models.KitCheckout
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		co, err = r.lockCheckout(tx, tenantID, checkoutID)
		if err != nil {
			return err
		}
		from := co.Status
		if err := requireStatus(co, models.CheckoutCheckedOut, models.CheckoutOverdue); err != nil {
			return err
		}
		if err := requireSignature(in.Signature); err != nil {
			return err
		}
		if len(in.Items) == 0 {
			return Validationf("partial return needs at least one item")
		}
		if err := applyReturnItems(tx, co, in.Items); err != nil {
			return err
		}
		co.Status = models.CheckoutPartialReturn
		if err := tx.Save(co).Error; err != nil {
			return err
		}
		return appendEvent(tx, co, "partial_return", from, co.Status, nil, "")
	})
	if err != nil {
		return nil, err
	}
	return co, nil
}

// CancelCheckout voids any non-terminal checkout. The release decision uses
// the status captured before the transition: a checkout that had reached
// CheckedOut (including PartialReturn and Overdue) hands its kit back.
func (r *Repo) CancelCheckout(ctx context.Context, tenantID string, checkoutID uint, note string) (*models.KitCheckout, error) {
	var co *models.KitCheckout
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		co, err = r.lockCheckout(tx, tenantID, checkoutID)
		if err != nil {
			return err
		}
		prev := co.Status
		if err := requireStatus(co, models.CheckoutPending, models.CheckoutCheckedOut,
			models.CheckoutPartialReturn, models.CheckoutOverdue); err != nil {
			return err
		}

		co.Status = models.CheckoutCancelled
		co.NotesIn = note
		if err := tx.Save(co).Error; err != nil {
			return err
		}
		if prev != models.CheckoutPending {
			if err := tx.Model(&models.EquipmentKit{}).
				Where("id = ?", co.KitID).
				Updates(map[string]any{
					"status":           models.KitAvailable,
					"assigned_user_id": nil,
				}).Error; err != nil {
				return err
			}
		}
		return appendEvent(tx, co, "cancel_checkout", prev, co.Status, nil, note)
	})
	if err != nil {
		return nil, err
	}
	return co, nil
}

// ExtendCheckout pushes the expected return out. An Overdue checkout whose
// new date lies in the future goes back to CheckedOut.
func (r *Repo) ExtendCheckout(ctx context.Context, tenantID string, checkoutID uint, newExpectedReturn time.Time) (*models.KitCheckout, error) {
	var co *models.KitCheckout
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		co, err = r.lockCheckout(tx, tenantID, checkoutID)
		if err != nil {
			return err
		}
		from := co.Status
		if err := requireStatus(co, models.CheckoutCheckedOut, models.CheckoutPartialReturn, models.CheckoutOverdue); err != nil {
			return err
		}
		newExpectedReturn = newExpectedReturn.UTC()
		if !newExpectedReturn.After(co.ExpectedReturnAt) {
			return Validationf("new expected return must be after the current one")
		}
		co.ExpectedReturnAt = newExpectedReturn
		if co.Status == models.CheckoutOverdue && newExpectedReturn.After(time.Now().UTC()) {
			co.Status = models.CheckoutCheckedOut
		}
		if err := tx.Save(co).Error; err != nil {
			return err
		}
		return appendEvent(tx, co, "extend_checkout", from, co.Status, nil, "")
	})
	if err != nil {
		return nil, err
	}
	return co, nil
}

// ReportDamage marks one checkout item damaged. It can precede or accompany
// the return transitions and never moves the state machine itself.
func (r *Repo) ReportDamage(ctx context.Context, tenantID string, checkoutID, kitItemID uint, description string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		co, err := r.lockCheckout(tx, tenantID, checkoutID)
		if err != nil {
			return err
		}
		if err := requireStatus(co, models.CheckoutPending, models.CheckoutCheckedOut,
			models.CheckoutPartialReturn, models.CheckoutOverdue); err != nil {
			return err
		}
		res := tx.Model(&models.CheckoutItem{}).
			Where("checkout_id = ? AND kit_item_id = ?", checkoutID, kitItemID).
			Updates(map[string]any{
				"damaged":      true,
				"damage_note":  description,
				"condition_in": models.ConditionDamaged,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return NotFoundf("kit item %d not part of checkout %d", kitItemID, checkoutID)
		}
		return appendEvent(tx, co, "report_damage", co.Status, co.Status, nil, description)
	})
}

// GetCurrentCheckout returns the kit's single live checkout, or nil when the
// kit is idle.
func (r *Repo) GetCurrentCheckout(ctx context.Context, tenantID string, kitID uint) (*models.KitCheckout, error) {
	var co models.KitCheckout
	err := r.DB.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Where("tenant_id = ? AND kit_id = ? AND status IN ?", tenantID, kitID, models.LiveCheckoutStatuses()).
		First(&co).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &co, nil
}

func (r *Repo) GetCheckout(ctx context.Context, tenantID string, id uint) (*models.KitCheckout, error) {
	var co models.KitCheckout
	err := r.DB.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		First(&co, "tenant_id = ? AND id = ?", tenantID, id).Error
	if err != nil {
		return nil, asNotFound(err, "checkout %d not found", id)
	}
	return &co, nil
}

type CheckoutQuery struct {
	KitID      uint
	BorrowerID int64
	Status     string
	Page       int
	Size       int
}

type ListCheckoutsResult struct {
	Checkouts []models.KitCheckout `json:"checkouts"`
	Total     int64                `json:"total"`
}

func (r *Repo) ListCheckouts(ctx context.Context, tenantID string, q CheckoutQuery) (ListCheckoutsResult, error) {
	page, size := normalizePage(q.Page, q.Size)

	tx := r.DB.WithContext(ctx).Model(&models.KitCheckout{}).Where("tenant_id = ?", tenantID)
	if q.KitID != 0 {
		tx = tx.Where("kit_id = ?", q.KitID)
	}
	if q.BorrowerID != 0 {
		tx = tx.Where("borrower_id = ?", q.BorrowerID)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return ListCheckoutsResult{}, err
	}
	var rows []models.KitCheckout
	if err := tx.
		Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&rows).Error; err != nil {
		return ListCheckoutsResult{}, err
	}
	return ListCheckoutsResult{Checkouts: rows, Total: total}, nil
}

// ListCheckoutEvents returns the audit trail for one checkout, oldest first.
func (r *Repo) ListCheckoutEvents(ctx context.Context, tenantID string, checkoutID uint) ([]models.CheckoutEvent, error) {
	var events []models.CheckoutEvent
	err := r.DB.WithContext(ctx).
		Where("tenant_id = ? AND checkout_id = ?", tenantID, checkoutID).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}
