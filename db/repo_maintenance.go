package db

import (
	"context"

	"kitshed/models"

	"gorm.io/gorm"
)

// Maintenance Flag Propagator. Item-level flags are authoritative; the
// kit-level flag is recomputed by scanning siblings (kits hold a handful of
// items, so a recompute cannot drift the way a counter could).

func (r *Repo) FlagItemForMaintenance(ctx context.Context, tenantID string, kitID, itemID uint, note string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		kit, err := r.lockKit(tx, tenantID, kitID)
		if err != nil {
			return err
		}
		var item models.KitItem
		if err := tx.First(&item, "kit_id = ? AND id = ?", kitID, itemID).Error; err != nil {
			return asNotFound(err, "kit item %d not found in kit %d", itemID, kitID)
		}
		return flagItemTx(tx, kit, &item, note)
	})
}

func (r *Repo) ClearMaintenanceFlag(ctx context.Context, tenantID string, kitID, itemID uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		kit, err := r.lockKit(tx, tenantID, kitID)
		if err != nil {
			return err
		}
		res := tx.Model(&models.KitItem{}).
			Where("kit_id = ? AND id = ?", kitID, itemID).
			Updates(map[string]any{"needs_maintenance": false, "note": ""})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return NotFoundf("kit item %d not found in kit %d", itemID, kitID)
		}
		return recomputeKitMaintenance(tx, kit)
	})
}

// flagItemTx marks one item, raises the kit flag, and moves the underlying
// equipment into maintenance status. Equipment status is not restored on
// clear; putting a repaired item back into service is an operator action in
// the asset catalog.
func flagItemTx(tx *gorm.DB, kit *models.EquipmentKit, item *models.KitItem, note string) error {
	if err := tx.Model(item).
		Updates(map[string]any{"needs_maintenance": true, "note": note}).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.Equipment{}).
		Where("id = ?", item.EquipmentID).
		Update("status", models.EquipmentMaintenance).Error; err != nil {
		return err
	}
	updates := map[string]any{"needs_maintenance": true}
	if note != "" {
		updates["maintenance_note"] = note
	}
	return tx.Model(kit).Updates(updates).Error
}

// recomputeKitMaintenance derives the kit-level flag from the surviving
// items: set iff at least one sibling still needs maintenance.
func recomputeKitMaintenance(tx *gorm.DB, kit *models.EquipmentKit) error {
	var flagged int64
	if err := tx.Model(&models.KitItem{}).
		Where("kit_id = ? AND needs_maintenance = ?", kit.ID, true).
		Count(&flagged).Error; err != nil {
		return err
	}
	updates := map[string]any{"needs_maintenance": flagged > 0}
	if flagged == 0 {
		updates["maintenance_note"] = ""
	}
	return tx.Model(kit).Updates(updates).Error
}
