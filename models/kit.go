// models/kit.go
package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	KitTable     = "ks_kits"
	KitItemTable = "ks_kit_items"
)

// Kit statuses. A kit is either on the shelf or in the field; the finer
// lifecycle (pending, partial return, overdue) lives on the checkout row.
const (
	KitAvailable  = "available"
	KitCheckedOut = "checked_out"
)

// EquipmentKit is a composed, trackable unit of equipment. TemplateID is nil
// for ad-hoc kits. One physical equipment item lives in at most one live kit
// at a time; besides the service-layer checks, a partial unique index on
// ks_kit_items(equipment_id) makes races fail loudly (see db.Migrate).
type EquipmentKit struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	TenantID    string `gorm:"size:64;index;not null;uniqueIndex:ux_ks_kits_tenant_code" json:"tenantId"`
	Code        string `gorm:"size:120;not null;uniqueIndex:ux_ks_kits_tenant_code" json:"code"`
	Name        string `gorm:"size:200;not null" json:"name"`
	Description string `gorm:"size:500" json:"description,omitempty"`
	TemplateID  *uint  `gorm:"index" json:"templateId,omitempty"`
	Status      string `gorm:"size:20;not null;default:'available'" json:"status"`

	AssignedUserID *int64 `gorm:"index" json:"assignedUserId,omitempty"`
	Location       string `gorm:"size:200" json:"location,omitempty"`

	NeedsMaintenance bool   `gorm:"not null;default:false" json:"needsMaintenance"`
	MaintenanceNote  string `gorm:"size:500" json:"maintenanceNote,omitempty"`

	Items []KitItem `gorm:"foreignKey:KitID" json:"items,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type KitItem struct {
	ID          uint `gorm:"primaryKey" json:"id"`
	KitID       uint `gorm:"index;not null" json:"kitId"`
	EquipmentID uint `gorm:"index;not null" json:"equipmentId"`
	Position    int  `gorm:"not null;default:0" json:"position"`

	NeedsMaintenance bool   `gorm:"not null;default:false" json:"needsMaintenance"`
	Note             string `gorm:"size:500" json:"note,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (EquipmentKit) TableName() string { return KitTable }
func (KitItem) TableName() string      { return KitItemTable }
