// models/equipment.go
package models

import (
	"time"

	"gorm.io/gorm"
)

const EquipmentTable = "ks_equipment"

// Equipment lifecycle statuses. The catalog itself is owned elsewhere; this
// service only reads identity/status and flips status when maintenance is
// flagged at return time.
const (
	EquipmentActive      = "active"
	EquipmentMaintenance = "maintenance"
	EquipmentRetired     = "retired"
)

type Equipment struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	TenantID string `gorm:"size:64;index;not null;uniqueIndex:ux_ks_equipment_tenant_code" json:"tenantId"`
	Code     string `gorm:"size:120;not null;uniqueIndex:ux_ks_equipment_tenant_code" json:"code"`
	Name     string `gorm:"size:200;not null" json:"name"`
	TypeID   uint   `gorm:"index;not null" json:"typeId"`
	Status   string `gorm:"size:20;not null;default:'active'" json:"status"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Equipment) TableName() string { return EquipmentTable }
