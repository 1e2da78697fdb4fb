package db

import (
	"context"
	"fmt"
	"strings"

	"kitshed/models"

	"gorm.io/gorm"
)

// Kit Composition Engine: creating kits from templates or ad hoc, item
// add/remove/swap/reorder, and completeness checks against the template.
// All mutations run in one transaction keyed by the kit row; the partial
// unique index on kit_items(equipment_id) backs up the membership checks.

type CreateKitInput struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Location     string `json:"location"`
	EquipmentIDs []uint `json:"equipmentIds"`
}

func (r *Repo) CreateKitFromTemplate(ctx context.Context, tenantID string, templateID uint, in CreateKitInput) (*models.EquipmentKit, error) {
	tpl, err := r.GetTemplate(ctx, tenantID, templateID)
	if err != nil {
		return nil, err
	}
	if !tpl.Active {
		return nil, InvalidStatef("template %s is not active", tpl.Code)
	}
	if in.Name == "" {
		in.Name = tpl.Name
	}
	return r.createKit(ctx, tenantID, &templateID, in)
}

func (r *Repo) CreateAdHocKit(ctx context.Context, tenantID string, in CreateKitInput) (*models.EquipmentKit, error) {
	return r.createKit(ctx, tenantID, nil, in)
}

func (r *Repo) createKit(ctx context.Context, tenantID string, templateID *uint, in CreateKitInput) (*models.EquipmentKit, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, Validationf("kit name is required")
	}
	if len(in.EquipmentIDs) == 0 {
		return nil, Validationf("kit needs at least one equipment item")
	}

	code, err := r.Codes.NextCode(ctx, SeriesKit, tenantID)
	if err != nil {
		return nil, err
	}

	kit := &models.EquipmentKit{
		TenantID:    tenantID,
		Code:        code,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Location:    in.Location,
		TemplateID:  templateID,
		Status:      models.KitAvailable,
	}

	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.checkEquipmentFree(tx, tenantID, in.EquipmentIDs); err != nil {
			return err
		}
		for i, eqID := range in.EquipmentIDs {
			kit.Items = append(kit.Items, models.KitItem{EquipmentID: eqID, Position: i})
		}
		if err := tx.Create(kit).Error; err != nil {
			if isUniqueViolation(err) {
				return Conflictf("equipment already assigned to another kit")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return kit, nil
}

// checkEquipmentFree verifies every id exists in the tenant, is not retired,
// and is not a member of any live kit. Failures name the offending ids.
func (r *Repo) checkEquipmentFree(tx *gorm.DB, tenantID string, ids []uint) error {
	var eqs []models.Equipment
	if err := forUpdate(tx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&eqs).Error; err != nil {
		return err
	}
	found := map[uint]*models.Equipment{}
	for i := range eqs {
		found[eqs[i].ID] = &eqs[i]
	}
	var missing, retired []uint
	for _, id := range ids {
		eq, ok := found[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		if eq.Status == models.EquipmentRetired {
			retired = append(retired, id)
		}
	}
	if len(missing) > 0 {
		return NotFoundf("equipment not found: %s", joinIDs(missing))
	}
	if len(retired) > 0 {
		return Validationf("equipment retired: %s", joinIDs(retired))
	}

	var taken []uint
	if err := tx.Model(&models.KitItem{}).
		Where("equipment_id IN ?", ids).
		Pluck("equipment_id", &taken).Error; err != nil {
		return err
	}
	if len(taken) > 0 {
		return Conflictf("equipment already in another kit: %s", joinIDs(taken))
	}
	return nil
}

func joinIDs(ids []uint) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}

func (r *Repo) lockKit(tx *gorm.DB, tenantID string, kitID uint) (*models.EquipmentKit, error) {
	var kit models.EquipmentKit
	if err := forUpdate(tx).
		First(&kit, "tenant_id = ? AND id = ?", tenantID, kitID).Error; err != nil {
		return nil, asNotFound(err, "kit %d not found", kitID)
	}
	return &kit, nil
}

// Items may not be altered while the kit is loaned out.
func requireEditable(kit *models.EquipmentKit) error {
	if kit.Status != models.KitAvailable {
		return InvalidStatef("kit %s is checked out", kit.Code)
	}
	return nil
}

func (r *Repo) AddKitItem(ctx context.Context, tenantID string, kitID, equipmentID uint) (*models.KitItem, error) {
	var item *models.KitItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		kit, err := r.lockKit(tx, tenantID, kitID)
		if err != nil {
			return err
		}
		if err := requireEditable(kit); err != nil {
			return err
		}
		if err := r.checkEquipmentFree(tx, tenantID, []uint{equipmentID}); err != nil {
			return err
		}
		var maxPos int
		if err := tx.Model(&models.KitItem{}).
			Where("kit_id = ?", kitID).
			Select("COALESCE(MAX(position), -1)").
			Scan(&maxPos).Error; err != nil {
			return err
		}
		item = &models.KitItem{KitID: kitID, EquipmentID: equipmentID, Position: maxPos + 1}
		if err := tx.Create(item).Error; err != nil {
			if isUniqueViolation(err) {
				return Conflictf("equipment %d already in another kit", equipmentID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *Repo) RemoveKitItem(ctx context.Context, tenantID string, kitID, itemID uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		kit, err := r.lockKit(tx, tenantID, kitID)
		if err != nil {
			return err
		}
		if err := requireEditable(kit); err != nil {
			return err
		}
		res := tx.Where("kit_id = ? AND id = ?", kitID, itemID).Delete(&models.KitItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return NotFoundf("kit item %d not found in kit %d", itemID, kitID)
		}
		return recomputeKitMaintenance(tx, kit)
	})
}

// SwapKitItem replaces the physical equipment behind one slot, keeping the
// slot's position. The incoming item's maintenance state starts clean.
func (r *Repo) SwapKitItem(ctx context.Context, tenantID string, kitID, itemID, newEquipmentID uint) (*models.KitItem, error) {
	var item models.KitItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		kit, err := r.lockKit(tx, tenantID, kitID)
		if err != nil {
			return err
		}
		if err := requireEditable(kit); err != nil {
			return err
		}
		if err := tx.First(&item, "kit_id = ? AND id = ?", kitID, itemID).Error; err != nil {
			return asNotFound(err, "kit item %d not found in kit %d", itemID, kitID)
		}
		if err := r.checkEquipmentFree(tx, tenantID, []uint{newEquipmentID}); err != nil {
			return err
		}
		updates := map[string]any{
			"equipment_id":      newEquipmentID,
			"needs_maintenance": false,
			"note":              "",
		}
		if err := tx.Model(&item).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				return Conflictf("equipment %d already in another kit", newEquipmentID)
			}
			return err
		}
		return recomputeKitMaintenance(tx, kit)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ReorderKitItems rewrites display positions. The id list must be exactly
// the kit's current items.
func (r *Repo) ReorderKitItems(ctx context.Context, tenantID string, kitID uint, orderedItemIDs []uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		kit, err := r.lockKit(tx, tenantID, kitID)
		if err != nil {
			return err
		}
		if err := requireEditable(kit); err != nil {
			return err
		}
		var current []uint
		if err := tx.Model(&models.KitItem{}).
			Where("kit_id = ?", kitID).
			Pluck("id", &current).Error; err != nil {
			return err
		}
		if len(current) != len(orderedItemIDs) {
			return Validationf("reorder must list all %d kit items", len(current))
		}
		have := map[uint]bool{}
		for _, id := range current {
			have[id] = true
		}
		for _, id := range orderedItemIDs {
			if !have[id] {
				return Validationf("kit item %d does not belong to kit %d", id, kitID)
			}
		}
		for pos, id := range orderedItemIDs {
			if err := tx.Model(&models.KitItem{}).
				Where("kit_id = ? AND id = ?", kitID, id).
				Update("position", pos).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repo) GetKit(ctx context.Context, tenantID string, id uint) (*models.EquipmentKit, error) {
	var kit models.EquipmentKit
	err := r.DB.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		First(&kit, "tenant_id = ? AND id = ?", tenantID, id).Error
	if err != nil {
		return nil, asNotFound(err, "kit %d not found", id)
	}
	return &kit, nil
}

type KitQuery struct {
	Q                string
	Status           string
	NeedsMaintenance *bool
	Page             int
	Size             int
}

type ListKitsResult struct {
	Kits  []models.EquipmentKit `json:"kits"`
	Total int64                 `json:"total"`
}

func (r *Repo) ListKits(ctx context.Context, tenantID string, q KitQuery) (ListKitsResult, error) {
	page, size := normalizePage(q.Page, q.Size)

	tx := r.DB.WithContext(ctx).Model(&models.EquipmentKit{}).Where("tenant_id = ?", tenantID)
	if s := strings.TrimSpace(q.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", like, like)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.NeedsMaintenance != nil {
		tx = tx.Where("needs_maintenance = ?", *q.NeedsMaintenance)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return ListKitsResult{}, err
	}
	var rows []models.EquipmentKit
	if err := tx.
		Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&rows).Error; err != nil {
		return ListKitsResult{}, err
	}
	return ListKitsResult{Kits: rows, Total: total}, nil
}

// DeleteKit soft-deletes a kit and its items, freeing the equipment for
// other kits. Rejected while the kit is checked out.
func (r *Repo) DeleteKit(ctx context.Context, tenantID string, kitID uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		kit, err := r.lockKit(tx, tenantID, kitID)
		if err != nil {
			return err
		}
		if kit.Status != models.KitAvailable {
			return InvalidStatef("kit %s is checked out", kit.Code)
		}
		var live int64
		if err := tx.Model(&models.KitCheckout{}).
			Where("kit_id = ? AND status IN ?", kitID, models.LiveCheckoutStatuses()).
			Count(&live).Error; err != nil {
			return err
		}
		if live > 0 {
			return InvalidStatef("kit %s has an active checkout", kit.Code)
		}
		if err := tx.Where("kit_id = ?", kitID).Delete(&models.KitItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(kit).Error
	})
}

// ValidateCompleteness reports whether a kit satisfies its template: every
// mandatory template row's type is covered by at least the required count of
// kit items. Ad-hoc kits are always complete.
func (r *Repo) ValidateCompleteness(ctx context.Context, tenantID string, kitID uint) (bool, error) {
	missing, err := r.missingTemplateItems(ctx, tenantID, kitID, true)
	if err != nil {
		return false, err
	}
	return len(missing) == 0, nil
}

// MissingTemplateItems returns every template row (mandatory or not) whose
// required quantity is not met, for diagnostics.
func (r *Repo) MissingTemplateItems(ctx context.Context, tenantID string, kitID uint) ([]models.TemplateItem, error) {
	return r.missingTemplateItems(ctx, tenantID, kitID, false)
}

func (r *Repo) missingTemplateItems(ctx context.Context, tenantID string, kitID uint, mandatoryOnly bool) ([]models.TemplateItem, error) {
	kit, err := r.GetKit(ctx, tenantID, kitID)
	if err != nil {
		return nil, err
	}
	if kit.TemplateID == nil {
		return nil, nil
	}
	tpl, err := r.GetTemplate(ctx, tenantID, *kit.TemplateID)
	if err != nil {
		return nil, err
	}

	counts, err := r.kitTypeCounts(ctx, kitID)
	if err != nil {
		return nil, err
	}

	var missing []models.TemplateItem
	for _, ti := range tpl.Items {
		if mandatoryOnly && !ti.Mandatory {
			continue
		}
		if counts[ti.TypeID] < ti.Quantity {
			missing = append(missing, ti)
		}
	}
	return missing, nil
}

func (r *Repo) kitTypeCounts(ctx context.Context, kitID uint) (map[uint]int, error) {
	var rows []struct {
		TypeID uint
		N      int
	}
	err := r.DB.WithContext(ctx).Model(&models.KitItem{}).
		Select(fmt.Sprintf("%s.type_id AS type_id, COUNT(*) AS n", models.EquipmentTable)).
		Joins(fmt.Sprintf("JOIN %s ON %s.id = %s.equipment_id",
			models.EquipmentTable, models.EquipmentTable, models.KitItemTable)).
		Where(models.KitItemTable+".kit_id = ?", kitID).
		Group(models.EquipmentTable + ".type_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uint]int, len(rows))
	for _, row := range rows {
		counts[row.TypeID] = row.N
	}
	return counts, nil
}
