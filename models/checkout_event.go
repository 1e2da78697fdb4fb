// models/checkout_event.go
package models

import "time"

// CheckoutEvent is an append-only audit row, one per state-machine
// transition. ID is assigned by the repo (UUID string).
type CheckoutEvent struct {
	ID         string `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID   string `gorm:"size:64;index;not null" json:"tenantId"`
	CheckoutID uint   `gorm:"index;not null" json:"checkoutId"`
	KitID      uint   `gorm:"index;not null" json:"kitId"`

	Action     string `gorm:"size:40;not null" json:"action"`
	FromStatus string `gorm:"size:20" json:"fromStatus,omitempty"`
	ToStatus   string `gorm:"size:20" json:"toStatus,omitempty"`
	ActorID    *int64 `json:"actorId,omitempty"`
	Note       string `gorm:"size:500" json:"note,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

func (CheckoutEvent) TableName() string { return "ks_checkout_events" }
