// models/kit_template.go
package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	TemplateTable     = "ks_kit_templates"
	TemplateItemTable = "ks_template_items"
)

// KitTemplate is a blueprint: which equipment types a kit needs and the
// default checkout policy. Templates are administered up front and never
// mutated by the checkout flow.
type KitTemplate struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	TenantID string `gorm:"size:64;index;not null;uniqueIndex:ux_ks_templates_tenant_code" json:"tenantId"`
	Code     string `gorm:"size:120;not null;uniqueIndex:ux_ks_templates_tenant_code" json:"code"`
	Name     string `gorm:"size:200;not null" json:"name"`
	Category string `gorm:"size:120" json:"category,omitempty"`

	DefaultLoanDays       int  `gorm:"not null;default:7" json:"defaultLoanDays"`
	RequireSignature      bool `gorm:"not null;default:true" json:"requireSignature"`
	RequireConditionCheck bool `gorm:"not null;default:false" json:"requireConditionCheck"`
	Active                bool `gorm:"not null;default:true" json:"active"`

	Items []TemplateItem `gorm:"foreignKey:TemplateID" json:"items,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type TemplateItem struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	TemplateID uint `gorm:"index;not null" json:"templateId"`
	TypeID     uint `gorm:"index;not null" json:"typeId"`
	Quantity   int  `gorm:"not null;default:1" json:"quantity"`
	Mandatory  bool `gorm:"not null;default:true" json:"mandatory"`
	Position   int  `gorm:"not null;default:0" json:"position"`
}

func (KitTemplate) TableName() string  { return TemplateTable }
func (TemplateItem) TableName() string { return TemplateItemTable }
